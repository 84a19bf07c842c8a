package reflectdb

import "fmt"

// The closed set of field kinds.
const (
	KindID         = "id"
	KindInteger    = "integer"
	KindString     = "string"
	KindSlug       = "slug"
	KindText       = "text"
	KindBoolean    = "boolean"
	KindTimestamp  = "timestamp"
	KindImage      = "image"
	KindCollection = "collection"
	KindPart       = "part"
	KindLink       = "link"
)

// newKind dispatches on f.Type to build the live Kind instance for a field
// descriptor row. Constructors never perform DDL or other
// side effects — that is SetupField's job, run later by the field bootstrap
// hooks (bootstrap.go). Kinds that need to resolve peer fields/models at
// use time (slug, collection, part) hold eng, never a direct pointer to the
// peer descriptor.
func newKind(f *Field, eng *Engine) (Kind, error) {
	switch f.Type {
	case KindID:
		return &idKind{f: f}, nil
	case KindInteger:
		return &integerKind{f: f, eng: eng}, nil
	case KindString:
		return &stringKind{f: f}, nil
	case KindText:
		return &textKind{f: f}, nil
	case KindBoolean:
		return &booleanKind{f: f, eng: eng}, nil
	case KindTimestamp:
		return &timestampKind{f: f}, nil
	case KindSlug:
		return &slugKind{f: f, eng: eng}, nil
	case KindImage:
		return &imageKind{f: f}, nil
	case KindLink:
		return &linkKind{f: f}, nil
	case KindCollection:
		return &collectionKind{f: f, eng: eng}, nil
	case KindPart:
		return &partKind{f: f, eng: eng}, nil
	default:
		return nil, fmt.Errorf("reflectdb: unknown field kind %q", f.Type)
	}
}
