package reflectdb

import (
	"context"

	"github.com/syssam/reflectdb/dialect/sql/schema"
)

// textKind: DDL text; passthrough read/write.
type textKind struct {
	noSubfields
	noSetup
	noCleanup
	noTarget
	passthroughPostUpdate
	passthroughPreDestroy

	f *Field
}

func (k *textKind) TableAdditions(columnSlug string) []schema.ColumnSpec {
	return []schema.ColumnSpec{{
		Name:     columnSlug,
		Type:     schema.TextType(),
		Nullable: true,
	}}
}

func (k *textKind) UpdateValues(_ context.Context, content map[string]any, acc map[string]any) map[string]any {
	if v, present := content[k.f.Slug]; present {
		acc[k.f.Slug] = asString(v)
	}
	return acc
}

func (k *textKind) FieldFrom(_ context.Context, content map[string]any, _ Options) (any, error) {
	v, ok := content[k.f.Slug]
	if !ok || v == nil {
		return nil, nil
	}
	return asString(v), nil
}

func (k *textKind) Render(ctx context.Context, content map[string]any, opts Options) (any, error) {
	return k.FieldFrom(ctx, content, opts)
}
