// Package refcache memoizes reference construction for one schema snapshot.
//
// Builders in internal/typeutils are pure, so their results can be cached
// freely as long as the cache is keyed by snapshot version. Cache layers an
// in-process map over an optional SQLite store (internal/store): a lookup
// checks memory, then the store, then builds and writes through. Concurrent
// misses for the same lookup are collapsed into one build.
//
// A Cache is safe for concurrent use.
package refcache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/roach88/typeref/internal/ir"
	"github.com/roach88/typeref/internal/schema"
	"github.com/roach88/typeref/internal/store"
	"github.com/roach88/typeref/internal/typeutils"
)

// VersionedSchema is a schema that can name its own snapshot version.
// *schema.Snapshot implements it.
type VersionedSchema interface {
	schema.Schema
	Version() string
}

// Stats counts where lookups were answered from.
type Stats struct {
	MemoryHits int64
	StoreHits  int64
	Builds     int64
}

// Cache memoizes type and pointer references for one snapshot.
type Cache struct {
	schema  VersionedSchema
	version string
	store   *store.Store // nil for memory only
	logger  *slog.Logger

	group singleflight.Group

	mu    sync.RWMutex
	types map[string]ir.TypeRef
	ptrs  map[string]ir.PtrRef
	keys  map[ir.TypeRef]ir.RefKey // content keys of endpoint references

	memoryHits atomic.Int64
	storeHits  atomic.Int64
	builds     atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithStore persists references in st.
func WithStore(st *store.Store) Option {
	return func(c *Cache) {
		c.store = st
	}
}

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New creates a cache over s.
func New(s VersionedSchema, opts ...Option) *Cache {
	c := &Cache{
		schema:  s,
		version: s.Version(),
		logger:  slog.New(slog.DiscardHandler),
		types:   make(map[string]ir.TypeRef),
		ptrs:    make(map[string]ir.PtrRef),
		keys:    make(map[ir.TypeRef]ir.RefKey),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Version returns the snapshot version the cache is keyed by.
func (c *Cache) Version() string {
	return c.version
}

// Stats returns a copy of the hit counters.
func (c *Cache) Stats() Stats {
	return Stats{
		MemoryHits: c.memoryHits.Load(),
		StoreHits:  c.storeHits.Load(),
		Builds:     c.builds.Load(),
	}
}

// TypeRef returns the reference for t.
func (c *Cache) TypeRef(ctx context.Context, t schema.Type) (ir.TypeRef, error) {
	return c.NamedTypeRef(ctx, t, "")
}

// NamedTypeRef returns the reference for t carrying name instead of the
// type's own name. An empty name keeps the type's name.
func (c *Cache) NamedTypeRef(ctx context.Context, t schema.Type, name string) (ir.TypeRef, error) {
	if t == nil {
		return nil, fmt.Errorf("cache type ref: nil type")
	}
	lookup := TypeLookup(t, name)

	c.mu.RLock()
	ref, ok := c.types[lookup]
	c.mu.RUnlock()
	if ok {
		c.memoryHits.Add(1)
		return ref, nil
	}

	v, err := c.shared(ctx, lookup, func(ctx context.Context) (any, error) {
		if c.store != nil {
			ref, found, err := c.store.GetTypeRef(ctx, c.version, lookup)
			if err != nil {
				return nil, err
			}
			if found {
				c.storeHits.Add(1)
				c.logger.Debug("type ref store hit", "lookup", lookup, "key", ref.Key().Short())
				return ref, nil
			}
		}

		var opts []typeutils.TypeRefOption
		if name != "" {
			opts = append(opts, typeutils.WithTypeName(name))
		}
		ref, err := typeutils.TypeToTypeRef(c.schema, t, opts...)
		if err != nil {
			return nil, err
		}
		c.builds.Add(1)
		c.logger.Debug("type ref built", "lookup", lookup, "key", ref.Key().Short())

		if c.store != nil {
			if _, err := c.store.PutTypeRef(ctx, c.version, lookup, ref); err != nil {
				return nil, err
			}
		}
		return ref, nil
	})
	if err != nil {
		return nil, err
	}

	ref = v.(ir.TypeRef)
	c.mu.Lock()
	c.types[lookup] = ref
	c.mu.Unlock()
	return ref, nil
}

// PtrRef returns the reference for req. Tuple and type indirections have
// no stable identity to key by and are built on every call.
func (c *Cache) PtrRef(ctx context.Context, req typeutils.PtrRefRequest) (ir.PtrRef, error) {
	if req.Pointer == nil || req.Pointer.ID() == uuid.Nil {
		return typeutils.PtrRefFromPointer(c.schema, req)
	}
	if req.Source == nil || req.Target == nil {
		return nil, fmt.Errorf("cache pointer ref %s: source and target are required", req.Pointer.Name())
	}
	var parent ir.RefKey
	if req.Parent != nil {
		parent = req.Parent.Key()
	}
	lookup := ptrLookup(req, c.refKey(req.Source), c.refKey(req.Target), parent)

	c.mu.RLock()
	ref, ok := c.ptrs[lookup]
	c.mu.RUnlock()
	if ok {
		c.memoryHits.Add(1)
		return ref, nil
	}

	v, err := c.shared(ctx, lookup, func(ctx context.Context) (any, error) {
		if c.store != nil {
			ref, found, err := c.store.GetPtrRef(ctx, c.version, lookup)
			if err != nil {
				return nil, err
			}
			if found {
				c.storeHits.Add(1)
				c.logger.Debug("pointer ref store hit", "lookup", lookup, "key", ref.Key().Short())
				return ref, nil
			}
		}

		ref, err := typeutils.PtrRefFromPointer(c.schema, req)
		if err != nil {
			return nil, err
		}
		c.builds.Add(1)
		c.logger.Debug("pointer ref built", "lookup", lookup, "key", ref.Key().Short())

		if c.store != nil {
			if _, err := c.store.PutPtrRef(ctx, c.version, lookup, ref); err != nil {
				return nil, err
			}
		}
		return ref, nil
	})
	if err != nil {
		return nil, err
	}

	ref = v.(ir.PtrRef)
	c.mu.Lock()
	c.ptrs[lookup] = ref
	c.mu.Unlock()
	return ref, nil
}

// shared runs fn once for all concurrent callers of lookup. fn does not
// inherit the cancellation of whichever caller started it; each caller stops
// waiting when its own ctx is done.
func (c *Cache) shared(ctx context.Context, lookup string, fn func(context.Context) (any, error)) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(lookup, func() (any, error) {
		return fn(detached)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PointerRef builds the reference for p traversed in dir, using p's declared
// endpoints.
func (c *Cache) PointerRef(ctx context.Context, p schema.Pointer, dir ir.Direction) (ir.PtrRef, error) {
	source := c.schema.Source(p)
	target := c.schema.Target(p)
	if source == nil || target == nil {
		return nil, fmt.Errorf("cache pointer ref %s: pointer has no declared endpoints", p.Name())
	}
	src, err := c.TypeRef(ctx, source)
	if err != nil {
		return nil, err
	}
	dst, err := c.TypeRef(ctx, target)
	if err != nil {
		return nil, err
	}
	return c.PtrRef(ctx, typeutils.PtrRefRequest{
		Source:    src,
		Target:    dst,
		Pointer:   p,
		Direction: dir,
	})
}

// WarmResult summarizes a Warm call.
type WarmResult struct {
	Types    int
	Pointers int
}

// Warm builds references for every type and for every pointer in both
// directions, using at most workers goroutines (workers <= 0 means no
// limit). The first error cancels the remaining work.
func (c *Cache) Warm(ctx context.Context, types []schema.Type, ptrs []schema.Pointer, workers int) (WarmResult, error) {
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for _, t := range types {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := c.TypeRef(ctx, t)
			return err
		})
	}
	for _, p := range ptrs {
		for _, dir := range []ir.Direction{ir.Outbound, ir.Inbound} {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				_, err := c.PointerRef(ctx, p, dir)
				return err
			})
		}
	}
	if err := g.Wait(); err != nil {
		return WarmResult{}, fmt.Errorf("warm cache: %w", err)
	}

	res := WarmResult{Types: len(types), Pointers: 2 * len(ptrs)}
	c.logger.Info("cache warmed",
		"snapshot", c.version,
		"types", res.Types,
		"pointers", res.Pointers,
		"builds", c.builds.Load(),
		"store_hits", c.storeHits.Load())
	return res, nil
}

// TypeLookup is the lookup key of a type reference request.
func TypeLookup(t schema.Type, name string) string {
	return "type:" + t.ID().String() + ":" + name
}

// PtrLookup is the lookup key of a pointer reference request. Endpoints and
// parent are keyed by content so equal requests share one entry.
func PtrLookup(req typeutils.PtrRefRequest) string {
	var parent ir.RefKey
	if req.Parent != nil {
		parent = req.Parent.Key()
	}
	return ptrLookup(req, req.Source.Key(), req.Target.Key(), parent)
}

func ptrLookup(req typeutils.PtrRefRequest, source, target, parent ir.RefKey) string {
	lookup := "ptr:" + req.Pointer.ID().String() + ":" + req.Direction.String() +
		":" + string(source) + ":" + string(target)
	if parent != "" {
		lookup += ":" + string(parent)
	}
	return lookup
}

// refKey returns r.Key(), hashing each reference instance once. Endpoint
// references come from the cache itself and are reused across pointers.
func (c *Cache) refKey(r ir.TypeRef) ir.RefKey {
	c.mu.RLock()
	k, ok := c.keys[r]
	c.mu.RUnlock()
	if ok {
		return k
	}
	k = r.Key()
	c.mu.Lock()
	c.keys[r] = k
	c.mu.Unlock()
	return k
}
