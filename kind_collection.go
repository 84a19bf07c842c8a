package reflectdb

import (
	"context"
	"fmt"
)

// collectionKind: the reciprocal "has-many" half
// of a collection/part pair. It adds no column of its own; setup_field
// synthesizes the reciprocal part field on the target model (named after
// the owning model's slug — a zap model's "yellows" collection
// reciprocates a part literally named "zap" on yellow) and cross-links
// both sides by numeric id.
type collectionKind struct {
	noDDL
	noSubfields
	noCleanup

	f   *Field
	eng *Engine
}

func (k *collectionKind) TargetFor() *Model {
	m, err := k.eng.registry.ByID(k.f.TargetID)
	if err != nil {
		return nil
	}
	return m
}

// UpdateValues never contributes a column: always return the
// accumulator, never nil.
func (k *collectionKind) UpdateValues(_ context.Context, _ map[string]any, acc map[string]any) map[string]any {
	return acc
}

func (k *collectionKind) reciprocalPart() (*Field, error) {
	if k.f.LinkID == 0 {
		return nil, NewReciprocalSetupError("collection", k.f.Slug, fmt.Errorf("no reciprocal part linked yet"))
	}
	return k.eng.registry.FieldByID(k.f.LinkID)
}

// reciprocal resolves the target model and the foreign-key column its
// rows carry back to this collection's parent, for Rally's batch prefetch.
func (k *collectionKind) reciprocal() (*Model, string, error) {
	target := k.TargetFor()
	if target == nil {
		return nil, "", fmt.Errorf("reflectdb: collection %s: unresolved target model", k.f.Slug)
	}
	part, err := k.reciprocalPart()
	if err != nil {
		return nil, "", err
	}
	return target, part.Slug + "_id", nil
}

func (k *collectionKind) SetupField(ctx context.Context) error {
	if k.f.LinkID != 0 {
		return nil
	}
	target := k.TargetFor()
	if target == nil {
		return NewReciprocalSetupError("collection", k.f.Slug, fmt.Errorf("target model %d not found", k.f.TargetID))
	}
	owner, err := k.eng.registry.ByID(k.f.ModelID)
	if err != nil {
		// The owning model may still be running its own after_create /
		// invoke loop and so not be registered yet; read its row directly.
		row, cerr := k.eng.storeFor(ctx).Choose(ctx, modelTableSlug, k.f.ModelID)
		if cerr != nil || row == nil {
			return NewReciprocalSetupError("collection", k.f.Slug, err)
		}
		owner = &Model{ID: asInt64(row["id"]), Name: asString(row["name"]), Slug: asString(row["slug"])}
	}

	partSlug := Slugify(owner.Slug)
	if existing, ok := target.FieldBySlug(partSlug); ok && existing.Type == KindPart {
		return k.crossLink(ctx, existing.ID)
	}

	created, err := k.eng.Create(ctx, fieldTableSlug, map[string]any{
		"name":      owner.Name,
		"slug":      partSlug,
		"type":      KindPart,
		"model_id":  target.ID,
		"target_id": owner.ID,
		"link_id":   k.f.ID,
		"dependent": k.f.Dependent,
	})
	if err != nil {
		return NewReciprocalSetupError("collection", k.f.Slug, err)
	}
	return k.crossLink(ctx, asInt64(created["id"]))
}

func (k *collectionKind) crossLink(ctx context.Context, partID int64) error {
	if _, err := k.eng.storeFor(ctx).Update(ctx, fieldTableSlug, map[string]any{"link_id": partID}, "id = %1", k.f.ID); err != nil {
		return NewReciprocalSetupError("collection", k.f.Slug, err)
	}
	k.f.LinkID = partID
	return nil
}

// PostUpdate reads content[slug] — a sequence of child submaps — and
// persists each one against the target model, carrying the parent's id
// under the reciprocal part's "_id" column plus a _parent marker the
// child's hooks can observe.
func (k *collectionKind) PostUpdate(ctx context.Context, content map[string]any) (map[string]any, error) {
	raw, ok := content[k.f.Slug]
	if !ok || raw == nil {
		return content, nil
	}
	children, ok := raw.([]any)
	if !ok {
		return content, nil
	}
	target := k.TargetFor()
	if target == nil {
		return content, NewReciprocalSetupError("collection", k.f.Slug, fmt.Errorf("target model %d not found", k.f.TargetID))
	}
	part, err := k.reciprocalPart()
	if err != nil {
		return content, err
	}
	parentID := content["id"]

	for _, c := range children {
		childSpec, ok := c.(map[string]any)
		if !ok {
			continue
		}
		merged := make(map[string]any, len(childSpec)+2)
		for ck, cv := range childSpec {
			merged[ck] = cv
		}
		merged[part.Slug+"_id"] = parentID
		merged["_parent"] = content
		if _, err := k.eng.Create(ctx, target.Slug, merged); err != nil {
			return content, err
		}
	}
	return content, nil
}

// PreDestroy cascades to destroy every child row when dependent holds,
// either on this field or on its reciprocal part.
func (k *collectionKind) PreDestroy(ctx context.Context, content map[string]any) (map[string]any, error) {
	part, err := k.reciprocalPart()
	if err != nil {
		return content, nil
	}
	if !k.f.Dependent && !part.Dependent {
		return content, nil
	}
	target := k.TargetFor()
	if target == nil {
		return content, nil
	}
	parentID := asInt64(content["id"])
	children, err := k.eng.storeFor(ctx).Fetch(ctx, target.Slug, part.Slug+"_id = %1", parentID)
	if err != nil {
		return content, fmt.Errorf("reflectdb: collection %s pre_destroy: %w", k.f.Slug, err)
	}
	for _, child := range children {
		if _, err := k.eng.Destroy(ctx, target.Slug, asInt64(child["id"])); err != nil {
			return content, err
		}
	}
	return content, nil
}

// FieldFrom fetches children where the reciprocal part's "_id" column
// equals the parent's id, only when opts.Include names this slug;
// otherwise it returns an empty sequence. A Rally page
// populates a request-scoped batch cache (read.go) that is checked first
// to avoid one query per parent row.
func (k *collectionKind) FieldFrom(ctx context.Context, content map[string]any, opts Options) (any, error) {
	sub, included := opts.Included(k.f.Slug)
	if !included {
		return []any{}, nil
	}
	target, fkColumn, err := k.reciprocal()
	if err != nil {
		return []any{}, nil
	}
	parentID := asInt64(content["id"])

	if cache, ok := relLoaderCacheFrom(ctx); ok {
		if byParent, ok := cache.get(relLoaderKey{target.Slug, fkColumn}); ok {
			return k.project(ctx, target, byParent[parentID], sub)
		}
	}

	rows, err := k.eng.storeFor(ctx).Fetch(ctx, target.Slug, fkColumn+" = %1", parentID)
	if err != nil {
		return nil, fmt.Errorf("reflectdb: collection %s field_from: %w", k.f.Slug, err)
	}
	return k.project(ctx, target, rows, sub)
}

func (k *collectionKind) project(ctx context.Context, target *Model, rows []map[string]any, opts Options) (any, error) {
	out := make([]any, 0, len(rows))
	for _, row := range rows {
		projected, err := k.eng.From(ctx, target, row, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, projected)
	}
	return out, nil
}

func (k *collectionKind) Render(ctx context.Context, content map[string]any, opts Options) (any, error) {
	return k.FieldFrom(ctx, content, opts)
}
