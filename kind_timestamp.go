package reflectdb

import (
	"context"
	"time"

	"github.com/syssam/reflectdb/dialect/sql/schema"
)

// timestampKind: DDL "timestamp with time zone NOT NULL
// DEFAULT current_timestamp". On write, updated_at always substitutes the
// current_timestamp sentinel regardless of incoming content; every other
// timestamp field passes its value through. Renders as a string.
type timestampKind struct {
	noSubfields
	noSetup
	noCleanup
	noTarget
	passthroughPostUpdate
	passthroughPreDestroy

	f *Field
}

func (k *timestampKind) TableAdditions(columnSlug string) []schema.ColumnSpec {
	return []schema.ColumnSpec{{
		Name:    columnSlug,
		Type:    schema.TimestampType(),
		Default: "current_timestamp",
	}}
}

func (k *timestampKind) UpdateValues(_ context.Context, content map[string]any, acc map[string]any) map[string]any {
	if k.f.Slug == "updated_at" {
		acc[k.f.Slug] = schema.Raw("current_timestamp")
		return acc
	}
	if v, present := content[k.f.Slug]; present {
		acc[k.f.Slug] = v
	}
	return acc
}

func (k *timestampKind) FieldFrom(_ context.Context, content map[string]any, _ Options) (any, error) {
	return content[k.f.Slug], nil
}

// Render formats the timestamp as a string, accepting both
// the time.Time a driver may hand back and the raw string some drivers
// return for TEXT-backed timestamp columns (e.g. sqlite).
func (k *timestampKind) Render(_ context.Context, content map[string]any, _ Options) (any, error) {
	v, ok := content[k.f.Slug]
	if !ok || v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case time.Time:
		return t.Format(time.RFC3339), nil
	case string:
		return t, nil
	default:
		return asString(v), nil
	}
}
