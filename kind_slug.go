package reflectdb

import (
	"context"

	"github.com/syssam/reflectdb/dialect/sql/schema"
)

// slugKind: DDL varchar(256). On write, a link_slug-
// configured field derives its value from the linked field's incoming
// content by slugifying it; otherwise it slugifies its own incoming value
// if present; otherwise it is left alone. The peer is resolved by LinkID
// through the registry at use time, never cached across a reload.
type slugKind struct {
	noSubfields
	noSetup
	noCleanup
	noTarget
	passthroughPostUpdate
	passthroughPreDestroy

	f   *Field
	eng *Engine
}

func (k *slugKind) TableAdditions(columnSlug string) []schema.ColumnSpec {
	return []schema.ColumnSpec{{
		Name:     columnSlug,
		Type:     schema.StringType(256),
		Nullable: true,
	}}
}

func (k *slugKind) UpdateValues(_ context.Context, content map[string]any, acc map[string]any) map[string]any {
	if k.f.LinkID != 0 {
		if linked, err := k.eng.registry.FieldByID(k.f.LinkID); err == nil {
			if v, present := content[linked.Slug]; present && v != nil {
				acc[k.f.Slug] = Slugify(asString(v))
				return acc
			}
		}
	}
	if v, present := content[k.f.Slug]; present && v != nil {
		acc[k.f.Slug] = Slugify(asString(v))
	}
	return acc
}

func (k *slugKind) FieldFrom(_ context.Context, content map[string]any, _ Options) (any, error) {
	v, ok := content[k.f.Slug]
	if !ok || v == nil {
		return nil, nil
	}
	return asString(v), nil
}

func (k *slugKind) Render(ctx context.Context, content map[string]any, opts Options) (any, error) {
	return k.FieldFrom(ctx, content, opts)
}
