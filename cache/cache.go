// Package cache provides a small family of TTL/LRU key-value stores sharing
// one contract: a thread-safe in-memory store, an awaitable-lock store for
// cooperative callers, a Redis-backed remote store and a ristretto-backed
// local store. Entries expire lazily on access; bounded stores evict the
// least-recently-used entry first.
package cache

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/langfork/warden/codec"
	"github.com/langfork/warden/merge"
)

var tracer = otel.Tracer("github.com/langfork/warden/cache")

// Store defines the operations common to all cache implementations.
//
// T is the type of values held by the store.
type Store[T any] interface {
	// Get retrieves the value for key. The boolean reports whether the key
	// was found and unexpired. A successful Get promotes the key to
	// most-recently-used.
	Get(ctx context.Context, key string) (T, bool, error)
	// Set stores value under key, replacing any existing entry and
	// refreshing its insertion time.
	Set(ctx context.Context, key string, value T) error
	// Upsert combines an existing value with the new one using the store's
	// merge strategy, then stores the result.
	Upsert(ctx context.Context, key string, value T) error
	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Clear removes every entry.
	Clear(ctx context.Context) error
	// Contains reports whether key is present and unexpired, without
	// promoting it.
	Contains(ctx context.Context, key string) (bool, error)
}

// Option configures a store at construction time.
type Option[T any] func(*config[T])

type config[T any] struct {
	name       string
	maxEntries int
	ttl        time.Duration
	strategy   merge.Strategy[T]
	codec      codec.Codec
	prefix     string
	reg        prometheus.Registerer
	trace      bool
}

func newConfig[T any](name string, opts []Option[T]) config[T] {
	cfg := config[T]{name: name, strategy: merge.Replace[T]{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithMaxEntries bounds the store to n entries, evicting the
// least-recently-used entry when a Set would exceed it. A non-positive n
// means unbounded.
func WithMaxEntries[T any](n int) Option[T] {
	return func(c *config[T]) { c.maxEntries = n }
}

// WithExpiration sets the time-to-live applied to every entry. Entries are
// expired lazily on access; there is no background sweep. A non-positive
// duration disables expiry.
func WithExpiration[T any](ttl time.Duration) Option[T] {
	return func(c *config[T]) { c.ttl = ttl }
}

// WithMerge sets the strategy Upsert uses to combine values. The default
// replaces the existing value.
func WithMerge[T any](s merge.Strategy[T]) Option[T] {
	return func(c *config[T]) { c.strategy = s }
}

// WithCodec sets the wire codec used by remote stores. The default is JSON.
func WithCodec[T any](c codec.Codec) Option[T] {
	return func(cfg *config[T]) { cfg.codec = c }
}

// WithKeyPrefix namespaces the keys written by remote stores.
func WithKeyPrefix[T any](prefix string) Option[T] {
	return func(c *config[T]) { c.prefix = prefix }
}

// WithName labels the store's metrics. Defaults to the implementation name.
func WithName[T any](name string) Option[T] {
	return func(c *config[T]) { c.name = name }
}

// WithMetrics enables Prometheus counters for hits, misses and evictions,
// registered on reg and labelled with the store name.
func WithMetrics[T any](reg prometheus.Registerer) Option[T] {
	return func(c *config[T]) { c.reg = reg }
}

// WithTracing enables OpenTelemetry spans on store operations.
func WithTracing[T any]() Option[T] {
	return func(c *config[T]) { c.trace = true }
}

// instruments holds the optional observability hooks shared by stores.
type instruments struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions prometheus.Counter
	trace     bool
}

func newInstruments[T any](cfg config[T]) instruments {
	ins := instruments{trace: cfg.trace}
	if cfg.reg != nil {
		labels := prometheus.Labels{"store": cfg.name}
		ins.hits = prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "warden_cache_hits_total",
			Help:        "Total number of cache hits",
			ConstLabels: labels,
		})
		ins.misses = prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "warden_cache_misses_total",
			Help:        "Total number of cache misses",
			ConstLabels: labels,
		})
		ins.evictions = prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "warden_cache_evictions_total",
			Help:        "Total number of cache evictions",
			ConstLabels: labels,
		})
		cfg.reg.MustRegister(ins.hits, ins.misses, ins.evictions)
	}
	return ins
}

func (i instruments) hit() {
	if i.hits != nil {
		i.hits.Inc()
	}
}

func (i instruments) miss() {
	if i.misses != nil {
		i.misses.Inc()
	}
}

func (i instruments) evicted(n int) {
	if i.evictions != nil && n > 0 {
		i.evictions.Add(float64(n))
	}
}

// span starts a trace span when tracing is enabled; the returned end func is
// always safe to defer.
func (i instruments) span(ctx context.Context, op string) (context.Context, func(hit bool)) {
	if !i.trace {
		return ctx, func(bool) {}
	}
	ctx, sp := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("warden.cache.op", op)))
	return ctx, func(hit bool) {
		sp.SetAttributes(attribute.Bool("warden.cache.hit", hit))
		sp.End()
	}
}
