package reflectdb

import (
	"context"

	"github.com/syssam/reflectdb/dialect/sql/schema"
)

// booleanKind: DDL boolean; parses "true"/"false" strings on
// write, silently dropping the key on parse failure.
type booleanKind struct {
	noSubfields
	noSetup
	noCleanup
	noTarget
	passthroughPostUpdate
	passthroughPreDestroy

	f   *Field
	eng *Engine
}

func (k *booleanKind) TableAdditions(columnSlug string) []schema.ColumnSpec {
	return []schema.ColumnSpec{{
		Name:     columnSlug,
		Type:     schema.BoolType(),
		Nullable: true,
	}}
}

func (k *booleanKind) UpdateValues(ctx context.Context, content map[string]any, acc map[string]any) map[string]any {
	v, present := content[k.f.Slug]
	if !present {
		return acc
	}
	b, ok := parseBoolValue(v)
	if !ok {
		k.eng.logger.Debug(ctx, "boolean coercion failed, dropping key", "field", k.f.Slug, "value", v)
		return acc
	}
	acc[k.f.Slug] = b
	return acc
}

func (k *booleanKind) FieldFrom(_ context.Context, content map[string]any, _ Options) (any, error) {
	v, ok := content[k.f.Slug]
	if !ok || v == nil {
		return nil, nil
	}
	return asBool(v), nil
}

func (k *booleanKind) Render(ctx context.Context, content map[string]any, opts Options) (any, error) {
	return k.FieldFrom(ctx, content, opts)
}
