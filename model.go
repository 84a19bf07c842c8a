package reflectdb

import (
	"context"

	"github.com/syssam/reflectdb/dialect/sql/schema"
)

// Model is the live descriptor for one logical entity: one
// model corresponds 1:1 to a physical SQL table named by its Slug.
type Model struct {
	ID          int64
	Name        string
	Slug        string
	Description string
	Position    int
	Nested      bool

	// Fields maps field slug to its live Field descriptor (which carries
	// its Kind instance). FieldOrder holds
	// the same slugs in the table's declared column order, so folds over
	// "all fields" run deterministically in that declared order.
	Fields     map[string]*Field
	FieldOrder []string
}

// FieldBySlug is a defensive accessor; Model.Fields is safe to read
// directly once a descriptor has left the registry's construction path,
// since the registry never mutates a published Model in place: readers
// always see a fully constructed descriptor.
func (m *Model) FieldBySlug(slug string) (*Field, bool) {
	f, ok := m.Fields[slug]
	return f, ok
}

// OrderedFields returns the model's fields in FieldOrder.
func (m *Model) OrderedFields() []*Field {
	out := make([]*Field, 0, len(m.FieldOrder))
	for _, slug := range m.FieldOrder {
		if f, ok := m.Fields[slug]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Field is the descriptor row backing one column or virtual
// relationship. Kind is the live protocol instance built from Type by
// newKind; it owns no mutable state beyond this row and the static peer
// link, which is a numeric id resolved through the registry at use time.
type Field struct {
	ID         int64
	Name       string
	Slug       string
	Type       string
	ModelID    int64
	TargetID   int64 // peer model, for relational kinds; 0 if none
	LinkID     int64 // peer field, for reciprocal kinds; 0 if none
	LinkSlug   string
	Dependent  bool
	Editable   bool
	Locked     bool
	Immutable  bool

	Kind Kind
}

// Options drives a read projection: which relational
// fields to expand, and the page window for rally().
type Options struct {
	Include  map[string]Options
	OrderBy  string
	Order    string
	Limit    int
	Offset   int
}

// Included reports whether this field's slug is present in opts.Include —
// absence means do not expand a relational field — and returns the
// sub-options to pass to a nested projection.
func (o Options) Included(slug string) (Options, bool) {
	if o.Include == nil {
		return Options{}, false
	}
	sub, ok := o.Include[slug]
	return sub, ok
}

// Kind is the field-kind protocol. The eleven concrete
// kinds (kind_*.go) all live in this package rather than a sub-package:
// splitting them out would force an import cycle back into Model/Engine
// with no compensating benefit.
type Kind interface {
	// TableAdditions returns the DDL column specs to append to the owning
	// model's table when this field is introduced.
	TableAdditions(columnSlug string) []schema.ColumnSpec

	// SubfieldNames returns auxiliary field names this kind synthesizes.
	SubfieldNames(columnSlug string) []string

	// SetupField runs after the field row is created, to build reciprocal
	// structure. Must be idempotent against partial prior setup.
	SetupField(ctx context.Context) error

	// CleanupField runs before the field row is destroyed, to tear down
	// reciprocal structure. Errors are caught and logged by the caller;
	// teardown is best-effort.
	CleanupField(ctx context.Context) error

	// TargetFor returns the peer model for relational kinds, or nil.
	TargetFor() *Model

	// UpdateValues merges this field's contribution into acc, the
	// accumulator of values to persist. Always returns acc — never nil,
	// even for kinds with nothing to contribute.
	UpdateValues(ctx context.Context, content map[string]any, acc map[string]any) map[string]any

	// PostUpdate runs after the row has been inserted/updated and the
	// parent id is known. Used by collection to recursively persist
	// children.
	PostUpdate(ctx context.Context, content map[string]any) (map[string]any, error)

	// PreDestroy runs before the row is deleted. Used by relational kinds
	// with Dependent set to cascade.
	PreDestroy(ctx context.Context, content map[string]any) (map[string]any, error)

	// FieldFrom is the read projection for this field: the value placed
	// at content[slug] when building a `from` result.
	FieldFrom(ctx context.Context, content map[string]any, opts Options) (any, error)

	// Render is the display-oriented projection; it defaults to
	// FieldFrom's value for most kinds.
	Render(ctx context.Context, content map[string]any, opts Options) (any, error)
}

// BaseFields returns the column set every engine-created table carries
// automatically, in declaration order. id is intentionally
// excluded: the "id" kind is synthesized separately since it is always
// the model's first column and is never user-removable.
func BaseFields() []struct {
	Name string
	Type string
} {
	return []struct {
		Name string
		Type string
	}{
		{"position", "integer"},
		{"status", "integer"},
		{"locale_id", "integer"},
		{"env_id", "integer"},
		{"locked", "boolean"},
		{"created_at", "timestamp"},
		{"updated_at", "timestamp"},
	}
}
