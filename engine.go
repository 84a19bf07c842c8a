package reflectdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/syssam/reflectdb/dialect"
	"github.com/syssam/reflectdb/dialect/sql/schema"
)

// Engine is the explicit handle for a running instance: construct one,
// call Init, and pass it to every public call. Default returns a
// package-level convenience handle for callers happy with process-wide
// state.
type Engine struct {
	driver   dialect.Driver
	store    *schema.Store
	migrator *schema.Migrator
	dialect  string

	registry *Registry
	hooks    *Dispatcher
	logger   Logger
	config   *Config

	locks sync.Map // string slug -> *sync.Mutex
}

// New constructs an Engine over an already-open driver. Call Init before
// issuing any CRUD call.
func New(drv dialect.Driver, opts ...Option) *Engine {
	eng := &Engine{
		driver:  drv,
		dialect: drv.Dialect(),
		logger:  noopLogger{},
		config:  DefaultConfig(),
	}
	eng.store = schema.NewStore(drv, eng.dialect)
	eng.migrator = schema.NewMigrator(drv, eng.dialect)
	eng.hooks = NewDispatcher()
	eng.registry = NewRegistry(eng)
	for _, opt := range opts {
		opt(eng)
	}
	return eng
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger overrides the default no-op Logger.
func WithLogger(l Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithConfig overrides the default Config (identity defaults, Rally
// paging defaults, slug-lock acquire timeout). Dialect/DSN on cfg are
// ignored here since the driver is already open by the time New runs.
func WithConfig(cfg *Config) Option {
	return func(e *Engine) {
		if cfg != nil {
			e.config = cfg
		}
	}
}

var (
	defaultOnce sync.Once
	defaultEng  *Engine
)

// Default returns a process-wide Engine built from DefaultConfig() and
// memoized across calls, for callers that don't need an explicit handle.
func Default(ctx context.Context) (*Engine, error) {
	var err error
	defaultOnce.Do(func() {
		cfg := DefaultConfig()
		var drv dialect.Driver
		drv, err = cfg.Open()
		if err != nil {
			return
		}
		defaultEng = New(drv, WithLogger(NewStdLogger()), WithConfig(cfg))
		err = defaultEng.Init(ctx)
	})
	if err != nil {
		return nil, err
	}
	return defaultEng, nil
}

// Init bootstraps the model/field meta-tables (bootstrap.go) if absent and
// loads the registry.
func (e *Engine) Init(ctx context.Context) error {
	if err := e.bootstrap(ctx); err != nil {
		return fmt.Errorf("reflectdb: init: %w", err)
	}
	if err := e.registry.InvokeModels(ctx); err != nil {
		return fmt.Errorf("reflectdb: init: %w", err)
	}
	return nil
}

// InvokeModels re-exposes Registry.InvokeModels on the engine handle.
func (e *Engine) InvokeModels(ctx context.Context) error {
	return e.registry.InvokeModels(ctx)
}

// AddHook re-exposes Dispatcher.AddHook on the engine handle.
func (e *Engine) AddHook(slug string, timing Timing, id string, fn Interceptor) {
	e.hooks.AddHook(slug, timing, id, fn)
}

// slugMutex returns the per-slug lock used to serialize CRUD calls
// touching that slug.
func (e *Engine) slugMutex(slug string) *sync.Mutex {
	mu, _ := e.locks.LoadOrStore(slug, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

type heldSlugsKey struct{}

// withSlugLock holds a slug-granular lock for the duration of fn, for
// the entire CRUD call. It is reentrant within one logical call chain:
// if the current context already holds slug (e.g. a field bootstrap
// hook recursively creating another field row), the existing lock is
// reused instead of deadlocking, since the outer call already
// serializes against other writers of that slug.
func (e *Engine) withSlugLock(ctx context.Context, slug string, fn func(ctx context.Context) error) error {
	held, _ := ctx.Value(heldSlugsKey{}).(map[string]bool)
	if held[slug] {
		return fn(ctx)
	}
	mu := e.slugMutex(slug)
	if err := e.acquireSlugLock(ctx, mu, slug); err != nil {
		return err
	}
	defer mu.Unlock()

	next := make(map[string]bool, len(held)+1)
	for k := range held {
		next[k] = true
	}
	next[slug] = true
	return fn(context.WithValue(ctx, heldSlugsKey{}, next))
}

// acquireSlugLock locks mu, bounded by the Config.Lock.AcquireTimeout so a
// wedged slug (e.g. a runaway hook) doesn't hang every future caller of the
// same slug forever. A zero timeout waits indefinitely, matching the
// teacher's unbounded sync.Mutex.Lock.
func (e *Engine) acquireSlugLock(ctx context.Context, mu *sync.Mutex, slug string) error {
	timeout := e.config.Lock.AcquireTimeout
	if timeout <= 0 {
		mu.Lock()
		return nil
	}
	acquired := make(chan struct{})
	go func() {
		mu.Lock()
		select {
		case acquired <- struct{}{}:
		default:
			// The wait below already gave up; release immediately
			// instead of holding the lock forever.
			mu.Unlock()
		}
	}()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-acquired:
		return nil
	case <-timer.C:
		return fmt.Errorf("reflectdb: acquire lock for %q: timed out after %s", slug, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// withTx wraps fn in a transaction on e.driver, committing on success and
// rolling back on error or panic: every CRUD call runs inside one RDBMS
// transaction. Reentrant calls that are
// already inside a transaction (detected via txKey in ctx) run fn directly
// against the existing transaction instead of nesting, since rsql.Tx
// rejects nested Tx() calls (ErrTxStarted).
func (e *Engine) withTx(ctx context.Context, fn func(ctx context.Context, drv dialect.ExecQuerier) error) (err error) {
	if drv, ok := ctx.Value(txKey{}).(dialect.ExecQuerier); ok {
		return fn(ctx, drv)
	}
	tx, err := e.driver.Tx(ctx)
	if err != nil {
		return fmt.Errorf("reflectdb: begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				e.logger.Warn(ctx, "rollback failed", "error", rerr)
				err = NewAggregateError(err, &RollbackError{Err: rerr})
			}
			return
		}
		err = tx.Commit()
	}()
	txCtx := context.WithValue(ctx, txKey{}, dialect.ExecQuerier(tx))
	err = fn(txCtx, tx)
	return err
}

type txKey struct{}

// storeFor returns the Store bound to the transaction in ctx, if any,
// else the engine's ambient (non-transactional) Store.
func (e *Engine) storeFor(ctx context.Context) *schema.Store {
	if drv, ok := ctx.Value(txKey{}).(dialect.ExecQuerier); ok {
		return schema.NewStore(drv, e.dialect)
	}
	return e.store
}

// migratorFor returns the Migrator bound to the transaction in ctx, if
// any, else the engine's ambient Migrator.
func (e *Engine) migratorFor(ctx context.Context) *schema.Migrator {
	if drv, ok := ctx.Value(txKey{}).(dialect.ExecQuerier); ok {
		return schema.NewMigrator(drv, e.dialect)
	}
	return e.migrator
}
