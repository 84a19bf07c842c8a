package reflectdb

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/reflectdb/contrib/dataloader"
	"github.com/syssam/reflectdb/dialect/sql/schema"
)

// relLoaderKey identifies one batchable relational fetch: all children of
// a target model sharing the same foreign-key column.
type relLoaderKey struct {
	targetSlug string
	fkColumn   string
}

// relLoaderCache holds the result of a batched child fetch, keyed by
// parent id, for the duration of one rally() page — avoiding N+1 queries
// when a collection field is expanded across many rows.
// collectionKind.FieldFrom consults it before falling back to a direct
// per-parent query.
type relLoaderCache struct {
	mu   sync.Mutex
	data map[relLoaderKey]map[int64][]map[string]any
}

type relLoaderCacheKey struct{}

func withRelLoaderCache(ctx context.Context) (context.Context, *relLoaderCache) {
	c := &relLoaderCache{data: make(map[relLoaderKey]map[int64][]map[string]any)}
	return context.WithValue(ctx, relLoaderCacheKey{}, c), c
}

func relLoaderCacheFrom(ctx context.Context) (*relLoaderCache, bool) {
	c, ok := ctx.Value(relLoaderCacheKey{}).(*relLoaderCache)
	return c, ok
}

func (c *relLoaderCache) get(key relLoaderKey) (map[int64][]map[string]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	byParent, ok := c.data[key]
	return byParent, ok
}

func (c *relLoaderCache) set(key relLoaderKey, byParent map[int64][]map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = byParent
}

// prefetchChildren batch-fetches every row of targetSlug whose fkColumn
// matches one of parentIDs in a single query, grouping the results by
// parent id with contrib/dataloader, and stashes the result in the
// request-scoped relLoaderCache.
func (e *Engine) prefetchChildren(ctx context.Context, targetSlug, fkColumn string, parentIDs []int64) error {
	cache, ok := relLoaderCacheFrom(ctx)
	if !ok || len(parentIDs) == 0 {
		return nil
	}
	key := relLoaderKey{targetSlug, fkColumn}
	if _, ok := cache.get(key); ok {
		return nil
	}
	placeholders := make([]string, len(parentIDs))
	args := make([]any, len(parentIDs))
	for i, id := range parentIDs {
		placeholders[i] = fmt.Sprintf("%%%d", i+1)
		args[i] = id
	}
	rows, err := e.storeFor(ctx).Fetch(ctx, targetSlug, fkColumn+" IN ("+strings.Join(placeholders, ", ")+")", args...)
	if err != nil {
		return NewQueryError(targetSlug, "prefetch "+fkColumn, err)
	}
	grouped := dataloader.GroupByKey(rows, func(r map[string]any) int64 { return asInt64(r[fkColumn]) })
	cache.set(key, grouped)
	return nil
}

// From walks the model's fields, replacing each slug's value with
// field_from(row, opts).
func (e *Engine) From(ctx context.Context, model *Model, row map[string]any, opts Options) (map[string]any, error) {
	out := make(map[string]any, len(model.FieldOrder))
	for _, f := range model.OrderedFields() {
		v, err := f.Kind.FieldFrom(ctx, row, opts)
		if err != nil {
			return nil, err
		}
		out[f.Slug] = v
	}
	return out, nil
}

// ModelRender runs the same walk as From, using render instead of
// field_from.
func (e *Engine) ModelRender(ctx context.Context, model *Model, row map[string]any, opts Options) (map[string]any, error) {
	out := make(map[string]any, len(model.FieldOrder))
	for _, f := range model.OrderedFields() {
		v, err := f.Kind.Render(ctx, row, opts)
		if err != nil {
			return nil, err
		}
		out[f.Slug] = v
	}
	return out, nil
}

// Rally runs a paged SELECT mapped through From. Relational fields named
// in opts.Include are batch-prefetched across the whole page before
// projecting any row, and the per-row projections run concurrently
// (bounded) since row-level reads are independent of one another.
func (e *Engine) Rally(ctx context.Context, slug string, opts Options) ([]map[string]any, error) {
	model, err := e.registry.BySlug(slug)
	if err != nil {
		return nil, err
	}

	rallyDefaults := e.config.rallyOrDefault()
	orderBy := opts.OrderBy
	if orderBy == "" {
		orderBy = rallyDefaults.OrderBy
	}
	order := opts.Order
	if order == "" {
		order = rallyDefaults.Order
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = rallyDefaults.Limit
	}
	offset := opts.Offset
	if offset <= 0 {
		offset = rallyDefaults.Offset
	}

	q := fmt.Sprintf("SELECT * FROM %s ORDER BY %s %s LIMIT %d OFFSET %d",
		schema.QuoteIdent(e.dialect, slug), schema.QuoteIdent(e.dialect, orderBy), order, limit, offset)
	rows, err := e.storeFor(ctx).Query(ctx, q)
	if err != nil {
		return nil, NewQueryError(slug, "rally", err)
	}

	ctx, _ = withRelLoaderCache(ctx)
	if err := e.prefetchIncludes(ctx, model, rows, opts); err != nil {
		return nil, err
	}

	results := make([]map[string]any, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, row := range rows {
		i, row := i, row
		g.Go(func() error {
			projected, err := e.From(gctx, model, row, opts)
			if err != nil {
				return err
			}
			results[i] = projected
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// prefetchIncludes batch-fetches children for every included collection
// field, across every row in the page, in one query per field.
func (e *Engine) prefetchIncludes(ctx context.Context, model *Model, rows []map[string]any, opts Options) error {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = asInt64(r["id"])
	}
	for _, f := range model.OrderedFields() {
		if f.Type != KindCollection {
			continue
		}
		if _, included := opts.Included(f.Slug); !included {
			continue
		}
		ck, ok := f.Kind.(*collectionKind)
		if !ok {
			continue
		}
		target, fkColumn, err := ck.reciprocal()
		if err != nil {
			return nil // unresolved reciprocal: leave FieldFrom to fall back to per-row queries
		}
		if err := e.prefetchChildren(ctx, target.Slug, fkColumn, ids); err != nil {
			return err
		}
	}
	return nil
}

// Progenitors returns the chain from row to its nested-model root.
func (e *Engine) Progenitors(ctx context.Context, slug string, id int64, opts Options) ([]map[string]any, error) {
	return e.walkNested(ctx, slug, id, opts, "t.id = walked.parent_id")
}

// Descendents returns the full descendant tree under row.
func (e *Engine) Descendents(ctx context.Context, slug string, id int64, opts Options) ([]map[string]any, error) {
	return e.walkNested(ctx, slug, id, opts, "t.parent_id = walked.id")
}

func (e *Engine) walkNested(ctx context.Context, slug string, id int64, opts Options, recurWhere string) ([]map[string]any, error) {
	model, err := e.registry.BySlug(slug)
	if err != nil {
		return nil, err
	}
	if !model.Nested {
		row, err := e.storeFor(ctx).Choose(ctx, slug, id)
		if err != nil {
			return nil, NewQueryError(slug, "choose", err)
		}
		if row == nil {
			return nil, NewNotFoundErrorWithID(slug, id)
		}
		projected, err := e.From(ctx, model, row, opts)
		if err != nil {
			return nil, err
		}
		return []map[string]any{projected}, nil
	}

	baseWhere := fmt.Sprintf("%s = %d", schema.QuoteIdent(e.dialect, "id"), id)
	rows, err := e.storeFor(ctx).RecursiveQuery(ctx, slug, nil, baseWhere, recurWhere)
	if err != nil {
		return nil, NewQueryError(slug, "walk", err)
	}
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		projected, err := e.From(ctx, model, row, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, projected)
	}
	return out, nil
}
