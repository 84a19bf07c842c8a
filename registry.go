package reflectdb

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// The two reserved table names the engine bootstraps itself with.
const (
	modelTableSlug = "model"
	fieldTableSlug = "field"
)

// registrySnapshot is the atomically-swapped contents of the registry:
// readers always see one fully-constructed snapshot, never a partially
// rebuilt one.
type registrySnapshot struct {
	bySlug   map[string]*Model
	byID     map[int64]*Model
	fieldsByID map[int64]*Field
}

func emptySnapshot() *registrySnapshot {
	return &registrySnapshot{
		bySlug:     make(map[string]*Model),
		byID:       make(map[int64]*Model),
		fieldsByID: make(map[int64]*Field),
	}
}

// Registry is the process-wide model registry: a dual-indexed map from
// slug and numeric id to the same live Model descriptor, rebuilt
// wholesale by InvokeModels or merged one model at a time by AlterModels.
type Registry struct {
	snap atomic.Pointer[registrySnapshot]

	// mu serializes mutation (InvokeModels/AlterModels/Evict); readers
	// never take it, they only load the atomic pointer.
	mu sync.Mutex

	eng *Engine
}

// NewRegistry returns an empty Registry bound to eng, used by field kinds
// that must resolve peers (slug link_id, collection/part target_id and
// link_id) at use time rather than holding direct pointers across a
// reload.
func NewRegistry(eng *Engine) *Registry {
	r := &Registry{eng: eng}
	r.snap.Store(emptySnapshot())
	return r
}

// BySlug resolves a model by its slug.
func (r *Registry) BySlug(slug string) (*Model, error) {
	m, ok := r.snap.Load().bySlug[slug]
	if !ok {
		return nil, NewMissingModelError(slug)
	}
	return m, nil
}

// ByID resolves a model by its numeric id.
func (r *Registry) ByID(id int64) (*Model, error) {
	m, ok := r.snap.Load().byID[id]
	if !ok {
		return nil, NewMissingModelErrorByID(id)
	}
	return m, nil
}

// Resolve accepts either a slug (string) or a numeric id (int64, int, or
// any of the scanned-value integer types) and resolves to the model. The
// registry accepts both forms uniformly since at least one caller
// (destroy :model) passes a numeric id where a slug would be expected
// elsewhere.
func (r *Registry) Resolve(key any) (*Model, error) {
	switch v := key.(type) {
	case string:
		return r.BySlug(v)
	case *Model:
		return v, nil
	default:
		return r.ByID(asInt64(v))
	}
}

// FieldByID resolves a field descriptor by its numeric id, across all
// models, used to follow link_id peer references.
func (r *Registry) FieldByID(id int64) (*Field, error) {
	f, ok := r.snap.Load().fieldsByID[id]
	if !ok {
		return nil, fmt.Errorf("reflectdb: no field with id %d", id)
	}
	return f, nil
}

// InvokeModels fully rebuilds the registry: it selects every
// row from the model table, builds each descriptor with its fields, and
// atomically swaps the snapshot in. Concurrent readers either see the old
// snapshot in full or the new one in full, never a partial rebuild.
func (r *Registry) InvokeModels(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.eng.storeFor(ctx).Fetch(ctx, "model", "")
	if err != nil {
		return fmt.Errorf("reflectdb: invoke_models: %w", err)
	}
	sort.Slice(rows, func(i, j int) bool {
		return asInt64(rows[i]["position"]) < asInt64(rows[j]["position"])
	})

	next := emptySnapshot()
	for _, row := range rows {
		m, err := r.invokeModelLocked(ctx, row)
		if err != nil {
			return err
		}
		next.bySlug[m.Slug] = m
		next.byID[m.ID] = m
		for _, f := range m.Fields {
			next.fieldsByID[f.ID] = f
		}
	}

	r.eng.hooks.MakeLifecycleHooks(modelTableSlug)
	r.eng.hooks.MakeLifecycleHooks(fieldTableSlug)

	r.snap.Store(next)
	return nil
}

// InvokeModel builds the descriptor for a single model row, along with its
// fields, without touching the registry map.
func (r *Registry) InvokeModel(ctx context.Context, modelRow map[string]any) (*Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.invokeModelLocked(ctx, modelRow)
}

func (r *Registry) invokeModelLocked(ctx context.Context, row map[string]any) (*Model, error) {
	m := &Model{
		ID:          asInt64(row["id"]),
		Name:        asString(row["name"]),
		Slug:        asString(row["slug"]),
		Description: asString(row["description"]),
		Position:    int(asInt64(row["position"])),
		Nested:      asBool(row["nested"]),
		Fields:      make(map[string]*Field),
	}

	fieldRows, err := r.eng.storeFor(ctx).Fetch(ctx, "field", "model_id = %1", m.ID)
	if err != nil {
		return nil, fmt.Errorf("reflectdb: invoke_model %s: %w", m.Slug, err)
	}
	sort.Slice(fieldRows, func(i, j int) bool {
		return asInt64(fieldRows[i]["id"]) < asInt64(fieldRows[j]["id"])
	})

	for _, fr := range fieldRows {
		f, err := newFieldFromRow(fr, r.eng)
		if err != nil {
			return nil, err
		}
		m.Fields[f.Slug] = f
		m.FieldOrder = append(m.FieldOrder, f.Slug)
	}
	return m, nil
}

// newFieldFromRow builds a live Field descriptor, including its Kind
// instance, from one "field" table row. Used both by the registry's
// model-construction walk and by the field bootstrap hooks (bootstrap.go),
// which need a Field/Kind before the owning model has necessarily been
// re-registered.
func newFieldFromRow(fr map[string]any, eng *Engine) (*Field, error) {
	f := &Field{
		ID:        asInt64(fr["id"]),
		Name:      asString(fr["name"]),
		Slug:      asString(fr["slug"]),
		Type:      asString(fr["type"]),
		ModelID:   asInt64(fr["model_id"]),
		TargetID:  asInt64(fr["target_id"]),
		LinkID:    asInt64(fr["link_id"]),
		LinkSlug:  asString(fr["link_slug"]),
		Dependent: asBool(fr["dependent"]),
		Editable:  asBool(fr["editable"]),
		Locked:    asBool(fr["locked"]),
		Immutable: asBool(fr["immutable"]),
	}
	kind, err := newKind(f, eng)
	if err != nil {
		return nil, err
	}
	f.Kind = kind
	return f, nil
}

// AlterModels merges one freshly-built descriptor into the registry,
// leaving every other model untouched.
func (r *Registry) AlterModels(m *Model) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.snap.Load()
	next := &registrySnapshot{
		bySlug:     make(map[string]*Model, len(prev.bySlug)+1),
		byID:       make(map[int64]*Model, len(prev.byID)+1),
		fieldsByID: make(map[int64]*Field, len(prev.fieldsByID)+len(m.Fields)),
	}
	for k, v := range prev.bySlug {
		next.bySlug[k] = v
	}
	for k, v := range prev.byID {
		next.byID[k] = v
	}
	for k, v := range prev.fieldsByID {
		next.fieldsByID[k] = v
	}
	next.bySlug[m.Slug] = m
	next.byID[m.ID] = m
	for _, f := range m.Fields {
		next.fieldsByID[f.ID] = f
	}
	r.snap.Store(next)
}

// Evict removes a model from the registry under both its slug and id.
func (r *Registry) Evict(slug string, id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.snap.Load()
	next := &registrySnapshot{
		bySlug:     make(map[string]*Model, len(prev.bySlug)),
		byID:       make(map[int64]*Model, len(prev.byID)),
		fieldsByID: make(map[int64]*Field, len(prev.fieldsByID)),
	}
	for k, v := range prev.bySlug {
		if k != slug {
			next.bySlug[k] = v
		}
	}
	for k, v := range prev.byID {
		if k != id {
			next.byID[k] = v
		}
	}
	evicted, wasKnown := prev.byID[id]
	for k, v := range prev.fieldsByID {
		if wasKnown && v.ModelID == evicted.ID {
			continue
		}
		next.fieldsByID[k] = v
	}
	r.snap.Store(next)
}
