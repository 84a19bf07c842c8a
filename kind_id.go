package reflectdb

import (
	"context"

	"github.com/syssam/reflectdb/dialect/sql/schema"
)

// idKind is the primary key every engine table carries:
// DDL SERIAL PRIMARY KEY, identity on read. It never contributes to
// update_values — the database assigns it on insert and it is immutable
// thereafter.
type idKind struct {
	noSubfields
	noSetup
	noCleanup
	noTarget
	passthroughPostUpdate
	passthroughPreDestroy

	f *Field
}

func (k *idKind) TableAdditions(columnSlug string) []schema.ColumnSpec {
	return []schema.ColumnSpec{{
		Name:          columnSlug,
		Type:          schema.SerialType(),
		PrimaryKey:    true,
		AutoIncrement: true,
	}}
}

func (k *idKind) UpdateValues(_ context.Context, _ map[string]any, acc map[string]any) map[string]any {
	return acc
}

func (k *idKind) FieldFrom(_ context.Context, content map[string]any, _ Options) (any, error) {
	return content[k.f.Slug], nil
}

func (k *idKind) Render(ctx context.Context, content map[string]any, opts Options) (any, error) {
	return k.FieldFrom(ctx, content, opts)
}
