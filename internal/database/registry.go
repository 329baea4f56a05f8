package database

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cybertec-postgresql/sqlconsole/pkg/types"
)

var (
	// ErrUnknownDataSource is returned by Registry.Get for unconfigured names
	ErrUnknownDataSource = errors.New("unknown data source")

	// ErrRegistryClosed is returned by Registry.Get after Close
	ErrRegistryClosed = errors.New("data source registry is closed")
)

// OpenFunc opens an executor for a data source
type OpenFunc func(ctx context.Context, ds types.DataSource) (Executor, error)

// Registry opens configured data sources on first use and keeps them open
// until Close. It is safe for concurrent use: a data source that is slow to
// open only delays callers asking for that same data source.
type Registry struct {
	open    OpenFunc
	sources []types.DataSource

	mu     sync.Mutex
	live   map[string]*entry
	closed bool
}

// entry is a data source that is open or being opened. done is closed once
// ex and err are set.
type entry struct {
	done chan struct{}
	ex   Executor
	err  error
}

// NewRegistry creates a registry over sources. A nil open uses Open.
func NewRegistry(sources []types.DataSource, open OpenFunc) *Registry {
	if open == nil {
		open = Open
	}
	return &Registry{
		open:    open,
		sources: sources,
		live:    make(map[string]*entry),
	}
}

// List returns the configured data sources in configuration order
func (r *Registry) List() []types.DataSourceInfo {
	list := make([]types.DataSourceInfo, 0, len(r.sources))
	for _, ds := range r.sources {
		list = append(list, types.DataSourceInfo{Name: ds.Name, Kind: ds.Kind})
	}
	return list
}

func (r *Registry) source(name string) (types.DataSource, bool) {
	for _, ds := range r.sources {
		if ds.Name == name {
			return ds, true
		}
	}
	return types.DataSource{}, false
}

// Get returns the executor for name, opening it if needed. Concurrent calls
// for the same name share one open; a failed open is retried by the next call.
func (r *Registry) Get(ctx context.Context, name string) (Executor, error) {
	ds, ok := r.source(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDataSource, name)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRegistryClosed
	}
	e, ok := r.live[name]
	if !ok {
		e = &entry{done: make(chan struct{})}
		r.live[name] = e
	}
	r.mu.Unlock()

	if !ok {
		r.resolve(ctx, ds, e)
	}

	select {
	case <-e.done:
		return e.ex, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// resolve opens ds without holding the registry lock and publishes the outcome in e
func (r *Registry) resolve(ctx context.Context, ds types.DataSource, e *entry) {
	ex, err := r.open(ctx, ds)

	r.mu.Lock()
	switch {
	case err != nil:
		if r.live[ds.Name] == e {
			delete(r.live, ds.Name)
		}
	case r.closed:
		ex.Close()
		ex, err = nil, ErrRegistryClosed
	}
	e.ex, e.err = ex, err
	r.mu.Unlock()

	close(e.done)
}

// Close closes every executor opened so far. Opens still in progress are
// closed as soon as they finish.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	var open []Executor
	for name, e := range r.live {
		if e.ex != nil {
			open = append(open, e.ex)
		}
		delete(r.live, name)
	}
	r.mu.Unlock()

	for _, ex := range open {
		ex.Close()
	}
}
