package catalog

import (
	"context"
	"sync"
	"time"
)

// SchemaHandle is a goroutine-safe holder for the current GraphSchema. Reads
// take the read lock for the duration of a pointer copy only; compilations
// then work against their own snapshot for the rest of a query's lifetime
// (spec.md §5 concurrency model).
type SchemaHandle struct {
	mu     sync.RWMutex
	schema *GraphSchema
}

// NewSchemaHandle wraps an already-loaded schema.
func NewSchemaHandle(schema *GraphSchema) *SchemaHandle {
	return &SchemaHandle{schema: schema}
}

// Load returns the current schema snapshot.
func (h *SchemaHandle) Load() *GraphSchema {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.schema
}

// Swap installs a new schema snapshot, taking the write lock only for the
// pointer assignment. The previous snapshot is left for the garbage
// collector once any in-flight compilations holding it complete.
func (h *SchemaHandle) Swap(schema *GraphSchema) {
	h.mu.Lock()
	h.schema = schema
	h.mu.Unlock()
}

// VersionSource reports the current catalog version, used by Refresher to
// decide whether a reload is needed without paying the full load cost on
// every tick.
type VersionSource interface {
	CurrentVersion(ctx context.Context) (int, error)
}

// Loader rebuilds a GraphSchema from scratch, e.g. by re-reading a YAML file
// and re-running auto-discovery and engine detection.
type Loader interface {
	Load(ctx context.Context) (*LoadResult, error)
}

// LoaderFunc adapts a plain function to Loader.
type LoaderFunc func(ctx context.Context) (*LoadResult, error)

func (f LoaderFunc) Load(ctx context.Context) (*LoadResult, error) { return f(ctx) }

// RefreshObserver receives refresh lifecycle events, used to wire structured
// logging and telemetry without this package depending on either.
type RefreshObserver interface {
	OnRefreshSkipped(version int)
	OnRefreshSucceeded(version int, warnings []string)
	OnRefreshFailed(err error)
}

// NoopObserver discards every event.
type NoopObserver struct{}

func (NoopObserver) OnRefreshSkipped(int)             {}
func (NoopObserver) OnRefreshSucceeded(int, []string)  {}
func (NoopObserver) OnRefreshFailed(error)             {}

// Refresher polls a VersionSource on an interval and reloads the schema
// behind a SchemaHandle whenever the version changes (spec.md §5, §4.1).
type Refresher struct {
	Handle   *SchemaHandle
	Versions VersionSource
	Loader   Loader
	Interval time.Duration
	Observer RefreshObserver

	lastVersion int
}

// NewRefresher builds a Refresher with a NoopObserver; callers can set
// Observer directly afterward to wire logging/telemetry.
func NewRefresher(handle *SchemaHandle, versions VersionSource, loader Loader, interval time.Duration) *Refresher {
	return &Refresher{
		Handle:   handle,
		Versions: versions,
		Loader:   loader,
		Interval: interval,
		Observer: NoopObserver{},
	}
}

// Run blocks polling on a ticker until ctx is cancelled. It performs one
// synchronous check-and-reload before entering the ticker loop so a fresh
// process doesn't wait a full interval for its first refresh attempt.
func (r *Refresher) Run(ctx context.Context) {
	r.tick(ctx)
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Refresher) tick(ctx context.Context) {
	version, err := r.Versions.CurrentVersion(ctx)
	if err != nil {
		r.Observer.OnRefreshFailed(err)
		return
	}
	if version == r.lastVersion && r.Handle.Load() != nil {
		r.Observer.OnRefreshSkipped(version)
		return
	}
	result, err := r.Loader.Load(ctx)
	if err != nil {
		r.Observer.OnRefreshFailed(err)
		return
	}
	result.Schema.Version = version
	r.Handle.Swap(result.Schema)
	r.lastVersion = version
	r.Observer.OnRefreshSucceeded(version, result.Warnings)
}
