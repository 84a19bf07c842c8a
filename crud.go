package reflectdb

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/syssam/reflectdb/dialect"
	"github.com/syssam/reflectdb/dialect/sql/schema"
)

// traceKey threads a correlation id through a CRUD call's context/logging
// for cross-hook tracing, independent of the env map (which is plain data,
// not a place to smuggle infrastructure concerns).
type traceKey struct{}

func withTrace(ctx context.Context) (context.Context, string) {
	if id, ok := ctx.Value(traceKey{}).(string); ok {
		return ctx, id
	}
	id := uuid.NewString()
	return context.WithValue(ctx, traceKey{}, id), id
}

// Create persists a new row for slug from spec. If spec carries an
// "id" key, it defers to Update (upsert semantics).
func (e *Engine) Create(ctx context.Context, slug string, spec map[string]any) (map[string]any, error) {
	if idVal, ok := spec["id"]; ok && idVal != nil {
		return e.Update(ctx, slug, asInt64(idVal), spec)
	}

	var result map[string]any
	err := e.withSlugLock(ctx, slug, func(ctx context.Context) error {
		return e.withTx(ctx, func(ctx context.Context, _ dialect.ExecQuerier) error {
			ctx, traceID := withTrace(ctx)
			model, err := e.registry.BySlug(slug)
			if err != nil {
				return err
			}
			e.logger.Info(ctx, "create", "slug", slug, "trace_id", traceID)

			spec := e.config.applyIdentityDefaults(spec)
			values := map[string]any{}
			for _, f := range model.OrderedFields() {
				if f.Slug == "updated_at" {
					continue
				}
				values = f.Kind.UpdateValues(ctx, spec, values)
			}

			env := Env{"model": model, "values": values, "spec": spec}
			env, err = e.hooks.RunHook(ctx, slug, BeforeSave, env)
			if err != nil {
				return err
			}
			env, err = e.hooks.RunHook(ctx, slug, BeforeCreate, env)
			if err != nil {
				return err
			}

			writeValues, _ := env["values"].(map[string]any)
			delete(writeValues, "updated_at")
			content, err := e.storeFor(ctx).Insert(ctx, slug, writeValues)
			if err != nil {
				if kind := schema.DetectConstraint(err); kind != schema.ConstraintNone {
					return NewConstraintError(fmt.Sprintf("%s: %s constraint", slug, kind), err)
				}
				return NewMutationError(slug, "create", err)
			}

			specVal, _ := env["spec"].(map[string]any)
			merged := mergeContent(specVal, content)
			env["content"] = merged
			env, err = e.hooks.RunHook(ctx, slug, AfterCreate, env)
			if err != nil {
				return err
			}

			post, _ := env["content"].(map[string]any)
			for _, f := range model.OrderedFields() {
				post, err = f.Kind.PostUpdate(ctx, post)
				if err != nil {
					return err
				}
			}
			env["content"] = post
			env, err = e.hooks.RunHook(ctx, slug, AfterSave, env)
			if err != nil {
				return err
			}
			result, _ = env["content"].(map[string]any)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Update persists spec's changes onto the existing row slug#id.
func (e *Engine) Update(ctx context.Context, slug string, id int64, spec map[string]any) (map[string]any, error) {
	var result map[string]any
	err := e.withSlugLock(ctx, slug, func(ctx context.Context) error {
		return e.withTx(ctx, func(ctx context.Context, _ dialect.ExecQuerier) error {
			ctx, traceID := withTrace(ctx)
			model, err := e.registry.BySlug(slug)
			if err != nil {
				return err
			}
			e.logger.Info(ctx, "update", "slug", slug, "id", id, "trace_id", traceID)

			original, err := e.storeFor(ctx).Choose(ctx, slug, id)
			if err != nil {
				return NewQueryError(slug, "choose", err)
			}
			if original == nil {
				return NewNotFoundErrorWithID(slug, id)
			}

			values := map[string]any{}
			for _, f := range model.OrderedFields() {
				values = f.Kind.UpdateValues(ctx, spec, values)
			}

			env := Env{"model": model, "values": values, "spec": spec, "original": original}
			env, err = e.hooks.RunHook(ctx, slug, BeforeSave, env)
			if err != nil {
				return err
			}
			env, err = e.hooks.RunHook(ctx, slug, BeforeUpdate, env)
			if err != nil {
				return err
			}

			writeValues, _ := env["values"].(map[string]any)
			if _, err := e.storeFor(ctx).Update(ctx, slug, writeValues, "id = %1", id); err != nil {
				if kind := schema.DetectConstraint(err); kind != schema.ConstraintNone {
					return NewConstraintError(fmt.Sprintf("%s: %s constraint", slug, kind), err)
				}
				return NewMutationError(slug, "update", err)
			}
			content, err := e.storeFor(ctx).Choose(ctx, slug, id)
			if err != nil {
				return NewQueryError(slug, "choose", err)
			}

			specVal, _ := env["spec"].(map[string]any)
			merged := mergeContent(specVal, content)
			env["content"] = merged
			env, err = e.hooks.RunHook(ctx, slug, AfterUpdate, env)
			if err != nil {
				return err
			}

			post, _ := env["content"].(map[string]any)
			for _, f := range model.OrderedFields() {
				post, err = f.Kind.PostUpdate(ctx, post)
				if err != nil {
					return err
				}
			}
			env["content"] = post
			env, err = e.hooks.RunHook(ctx, slug, AfterSave, env)
			if err != nil {
				return err
			}
			result, _ = env["content"].(map[string]any)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Destroy deletes the row slug#id, running PreDestroy on every field
// first so relational kinds can cascade.
func (e *Engine) Destroy(ctx context.Context, slug string, id int64) (map[string]any, error) {
	var result map[string]any
	err := e.withSlugLock(ctx, slug, func(ctx context.Context) error {
		return e.withTx(ctx, func(ctx context.Context, _ dialect.ExecQuerier) error {
			ctx, traceID := withTrace(ctx)
			model, err := e.registry.BySlug(slug)
			if err != nil {
				return err
			}
			e.logger.Info(ctx, "destroy", "slug", slug, "id", id, "trace_id", traceID)

			content, err := e.storeFor(ctx).Choose(ctx, slug, id)
			if err != nil {
				return NewQueryError(slug, "choose", err)
			}
			if content == nil {
				return NewNotFoundErrorWithID(slug, id)
			}

			env := Env{"model": model, "content": content}
			env, err = e.hooks.RunHook(ctx, slug, BeforeDestroy, env)
			if err != nil {
				return err
			}

			pre, _ := env["content"].(map[string]any)
			for _, f := range model.OrderedFields() {
				pre, err = f.Kind.PreDestroy(ctx, pre)
				if err != nil {
					return err
				}
			}
			env["content"] = pre

			if _, err := e.storeFor(ctx).Delete(ctx, slug, "id = %1", id); err != nil {
				if kind := schema.DetectConstraint(err); kind != schema.ConstraintNone {
					return NewConstraintError(fmt.Sprintf("%s: %s constraint", slug, kind), err)
				}
				return NewMutationError(slug, "delete", err)
			}

			env, err = e.hooks.RunHook(ctx, slug, AfterDestroy, env)
			if err != nil {
				return err
			}
			result, _ = env["content"].(map[string]any)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// mergeContent layers the freshly-persisted row over the caller's spec, so
// fields the DML didn't touch (e.g. a relational field never written to a
// physical column) survive into the returned content.
func mergeContent(spec, content map[string]any) map[string]any {
	merged := make(map[string]any, len(spec)+len(content))
	for k, v := range spec {
		if k == "_parent" {
			continue
		}
		merged[k] = v
	}
	for k, v := range content {
		merged[k] = v
	}
	return merged
}
