package reflectdb

import (
	"context"

	"github.com/syssam/reflectdb/dialect/sql/schema"
)

// integerKind: DDL "integer DEFAULT <default|NULL>". On
// write it parses strings to integers and silently drops the key on a
// parse failure rather than surfacing a coercion error.
type integerKind struct {
	noSubfields
	noSetup
	noCleanup
	noTarget
	passthroughPostUpdate
	passthroughPreDestroy

	f   *Field
	eng *Engine
}

func (k *integerKind) TableAdditions(columnSlug string) []schema.ColumnSpec {
	return []schema.ColumnSpec{{
		Name:     columnSlug,
		Type:     schema.IntegerType(),
		Nullable: true,
	}}
}

func (k *integerKind) UpdateValues(ctx context.Context, content map[string]any, acc map[string]any) map[string]any {
	v, present := content[k.f.Slug]
	if !present {
		return acc
	}
	n, ok := parseIntValue(v)
	if !ok {
		k.eng.logger.Debug(ctx, "integer coercion failed, dropping key", "field", k.f.Slug, "value", v)
		return acc
	}
	acc[k.f.Slug] = n
	return acc
}

func (k *integerKind) FieldFrom(_ context.Context, content map[string]any, _ Options) (any, error) {
	v, ok := content[k.f.Slug]
	if !ok || v == nil {
		return nil, nil
	}
	return asInt64(v), nil
}

func (k *integerKind) Render(ctx context.Context, content map[string]any, opts Options) (any, error) {
	return k.FieldFrom(ctx, content, opts)
}
