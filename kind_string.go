package reflectdb

import (
	"context"

	"github.com/syssam/reflectdb/dialect/sql/schema"
)

// stringKind: DDL varchar(256); passthrough read/write.
type stringKind struct {
	noSubfields
	noSetup
	noCleanup
	noTarget
	passthroughPostUpdate
	passthroughPreDestroy

	f *Field
}

func (k *stringKind) TableAdditions(columnSlug string) []schema.ColumnSpec {
	return []schema.ColumnSpec{{
		Name:     columnSlug,
		Type:     schema.StringType(256),
		Nullable: true,
	}}
}

func (k *stringKind) UpdateValues(_ context.Context, content map[string]any, acc map[string]any) map[string]any {
	if v, present := content[k.f.Slug]; present {
		acc[k.f.Slug] = asString(v)
	}
	return acc
}

func (k *stringKind) FieldFrom(_ context.Context, content map[string]any, _ Options) (any, error) {
	v, ok := content[k.f.Slug]
	if !ok || v == nil {
		return nil, nil
	}
	return asString(v), nil
}

func (k *stringKind) Render(ctx context.Context, content map[string]any, opts Options) (any, error) {
	return k.FieldFrom(ctx, content, opts)
}
