package reflectdb

import (
	"context"
	"fmt"
)

// partKind: the reciprocal "belongs-to" half of
// a collection/part pair. It adds no direct column, but synthesizes two
// auxiliary integer fields "<slug>_id"/"<slug>_position" that do carry
// real columns; setup_field creates the reciprocal collection field on
// the target model if one is not already linked.
type partKind struct {
	noDDL

	f   *Field
	eng *Engine
}

func (k *partKind) SubfieldNames(columnSlug string) []string {
	return []string{columnSlug + "_id", columnSlug + "_position"}
}

func (k *partKind) TargetFor() *Model {
	m, err := k.eng.registry.ByID(k.f.TargetID)
	if err != nil {
		return nil
	}
	return m
}

// UpdateValues never contributes a column.
func (k *partKind) UpdateValues(_ context.Context, _ map[string]any, acc map[string]any) map[string]any {
	return acc
}

func (k *partKind) PostUpdate(_ context.Context, content map[string]any) (map[string]any, error) {
	return content, nil
}

func (k *partKind) PreDestroy(_ context.Context, content map[string]any) (map[string]any, error) {
	return content, nil
}

// SetupField ensures both auxiliary integer columns exist, then creates
// and cross-links the reciprocal collection field if one is not already
// linked.
func (k *partKind) SetupField(ctx context.Context) error {
	owner, err := k.eng.registry.ByID(k.f.ModelID)
	if err != nil {
		return NewReciprocalSetupError("part", k.f.Slug, err)
	}
	for _, sub := range k.SubfieldNames(k.f.Slug) {
		if _, ok := owner.FieldBySlug(sub); ok {
			continue
		}
		if _, err := k.eng.Create(ctx, fieldTableSlug, map[string]any{
			"name":     sub,
			"slug":     sub,
			"type":     KindInteger,
			"model_id": owner.ID,
			"editable": false,
			"locked":   true,
		}); err != nil {
			return NewReciprocalSetupError("part", k.f.Slug, err)
		}
	}

	if k.f.LinkID != 0 {
		return nil
	}
	target := k.TargetFor()
	if target == nil {
		return NewReciprocalSetupError("part", k.f.Slug, fmt.Errorf("target model %d not found", k.f.TargetID))
	}
	if existing, ok := target.FieldBySlug(owner.Slug); ok && existing.Type == KindCollection {
		return k.crossLink(ctx, existing.ID)
	}

	created, err := k.eng.Create(ctx, fieldTableSlug, map[string]any{
		"name":      owner.Name,
		"slug":      owner.Slug,
		"type":      KindCollection,
		"model_id":  target.ID,
		"target_id": owner.ID,
		"link_id":   k.f.ID,
		"dependent": k.f.Dependent,
	})
	if err != nil {
		return NewReciprocalSetupError("part", k.f.Slug, err)
	}
	return k.crossLink(ctx, asInt64(created["id"]))
}

func (k *partKind) crossLink(ctx context.Context, collectionID int64) error {
	if _, err := k.eng.storeFor(ctx).Update(ctx, fieldTableSlug, map[string]any{"link_id": collectionID}, "id = %1", k.f.ID); err != nil {
		return NewReciprocalSetupError("part", k.f.Slug, err)
	}
	k.f.LinkID = collectionID
	return nil
}

// CleanupField destroys the two auxiliary integer fields and the
// reciprocal collection. Teardown is best-effort: failures are logged,
// not returned.
func (k *partKind) CleanupField(ctx context.Context) error {
	if owner, err := k.eng.registry.ByID(k.f.ModelID); err == nil {
		for _, sub := range k.SubfieldNames(k.f.Slug) {
			subField, ok := owner.FieldBySlug(sub)
			if !ok {
				continue
			}
			if _, err := k.eng.Destroy(ctx, fieldTableSlug, subField.ID); err != nil {
				k.eng.logger.Warn(ctx, "part cleanup: drop subfield failed", "slug", k.f.Slug, "subfield", sub, "error", err)
			}
		}
	} else {
		k.eng.logger.Warn(ctx, "part cleanup: owner model unresolved", "slug", k.f.Slug, "error", err)
	}

	if k.f.LinkID != 0 {
		if _, err := k.eng.Destroy(ctx, fieldTableSlug, k.f.LinkID); err != nil {
			k.eng.logger.Warn(ctx, "part cleanup: drop reciprocal collection failed", "slug", k.f.Slug, "error", err)
		}
	}
	return nil
}

// FieldFrom, when opts.Include names this slug, chooses the target row by
// "<slug>_id" and recursively projects it.
func (k *partKind) FieldFrom(ctx context.Context, content map[string]any, opts Options) (any, error) {
	sub, included := opts.Included(k.f.Slug)
	if !included {
		return nil, nil
	}
	target := k.TargetFor()
	if target == nil {
		return nil, nil
	}
	fkVal, ok := content[k.f.Slug+"_id"]
	if !ok || fkVal == nil {
		return nil, nil
	}
	row, err := k.eng.storeFor(ctx).Choose(ctx, target.Slug, asInt64(fkVal))
	if err != nil {
		return nil, fmt.Errorf("reflectdb: part %s field_from: %w", k.f.Slug, err)
	}
	if row == nil {
		return nil, nil
	}
	return k.eng.From(ctx, target, row, sub)
}

func (k *partKind) Render(ctx context.Context, content map[string]any, opts Options) (any, error) {
	return k.FieldFrom(ctx, content, opts)
}
