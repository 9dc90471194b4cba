package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Sternrassler/quran-xref/pkg/breaker"
	"github.com/Sternrassler/quran-xref/pkg/cache"
	"github.com/Sternrassler/quran-xref/pkg/client"
	"github.com/Sternrassler/quran-xref/pkg/logging"
	"github.com/Sternrassler/quran-xref/pkg/slug"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Fetcher issues upstream requests. *client.Client implements it.
type Fetcher interface {
	Do(ctx context.Context, req client.Request) (*client.Response, error)
}

// Config holds adapter configuration.
type Config struct {
	// Name labels logs and metrics
	Name string

	// Endpoint is the upstream path of the cluster collection
	Endpoint string

	// TTL is the lifetime of the collection and of every query result
	TTL time.Duration

	// MaxSize bounds the number of cached query results
	MaxSize int

	// HonorExpires lets Cache-Control/Expires on the upstream response
	// decide the collection lifetime
	HonorExpires bool

	// Coalesce shares one upstream call between concurrent collection misses
	Coalesce bool
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		Name:     "clusters",
		Endpoint: "/v1/clusters",
		TTL:      cache.DefaultTTL,
		MaxSize:  cache.DefaultMaxSize,
	}
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithBreaker wraps every upstream call in b.
func WithBreaker(b *breaker.Breaker) Option {
	return func(a *Adapter) { a.breaker = b }
}

// WithSnapshot adds a shared Redis second level for the collection.
func WithSnapshot(s *cache.Snapshot) Option {
	return func(a *Adapter) { a.snapshot = s }
}

// WithTable replaces the default surah table.
func WithTable(t *slug.Table) Option {
	return func(a *Adapter) { a.table = t }
}

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// WithClock replaces time.Now for the adapter's caches.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// Adapter serves normalized clusters from one upstream collection.
// Each adapter owns its caches and breaker.
type Adapter struct {
	fetcher  Fetcher
	config   Config
	table    *slug.Table
	breaker  *breaker.Breaker
	snapshot *cache.Snapshot
	logger   zerolog.Logger
	now      func() time.Time

	queries     *cache.Cache[string, []Cluster]
	collections *cache.Cache[string, []Cluster]
	group       singleflight.Group
}

// NewAdapter creates an adapter fetching through fetcher.
func NewAdapter(fetcher Fetcher, cfg Config, opts ...Option) *Adapter {
	if fetcher == nil {
		panic("fetcher cannot be nil")
	}

	defaults := DefaultConfig()
	if cfg.Name == "" {
		cfg.Name = defaults.Name
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaults.Endpoint
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaults.TTL
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = defaults.MaxSize
	}

	a := &Adapter{
		fetcher: fetcher,
		config:  cfg,
		table:   slug.Default(),
		logger:  logging.NewLogger(logging.ComponentAdapter).With().Str("adapter", cfg.Name).Logger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.queries = cache.New[string, []Cluster](cache.Config{
		Name:    cfg.Name + "-queries",
		MaxSize: cfg.MaxSize,
		TTL:     cfg.TTL,
	}, cache.WithClock(a.now))
	a.collections = cache.New[string, []Cluster](cache.Config{
		Name:    cfg.Name + "-collection",
		MaxSize: 1,
		TTL:     cfg.TTL,
	}, cache.WithClock(a.now))

	return a
}

// Name returns the adapter name.
func (a *Adapter) Name() string {
	return a.config.Name
}

// GetByKey returns the clusters containing an anchor verse with the given
// canonical key. Composite identifiers such as "al-baqarah:247" are resolved
// first. It never fails: upstream errors yield an empty, uncached result.
func (a *Adapter) GetByKey(ctx context.Context, key string) []Cluster {
	cacheKey := cache.LookupKey(key)
	if result, ok := a.queries.Get(cacheKey); ok {
		return cloneClusters(result)
	}

	want := key
	if ref, ok := a.table.Resolve(key); ok {
		want = ref.Key()
	}

	all, ok := a.collection(ctx)
	result := make([]Cluster, 0)
	for _, c := range all {
		if c.HasAnchorKey(want) {
			result = append(result, c)
		}
	}

	if ok {
		a.queries.Set(cacheKey, result)
	}
	return cloneClusters(result)
}

// Search returns the clusters whose summary or any reference text contains
// query, case-insensitively.
func (a *Adapter) Search(ctx context.Context, query string) []Cluster {
	cacheKey := cache.SearchKey(query)
	if result, ok := a.queries.Get(cacheKey); ok {
		return cloneClusters(result)
	}

	needle := strings.ToLower(query)
	all, ok := a.collection(ctx)
	result := make([]Cluster, 0)
	for _, c := range all {
		if matches(c, needle) {
			result = append(result, c)
		}
	}

	if ok {
		a.queries.Set(cacheKey, result)
	}
	return cloneClusters(result)
}

// Invalidate drops every cached query, the collection and its snapshot.
func (a *Adapter) Invalidate(ctx context.Context) {
	a.queries.Clear()
	a.collections.Clear()

	if a.snapshot != nil {
		if err := a.snapshot.Delete(ctx, a.snapshotKey()); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to delete collection snapshot")
		}
	}

	a.logger.Debug().Msg("Adapter caches invalidated")
}

func matches(c Cluster, needle string) bool {
	if strings.Contains(strings.ToLower(c.Summary), needle) {
		return true
	}
	for _, ref := range c.References {
		if strings.Contains(strings.ToLower(ref.Text), needle) {
			return true
		}
	}
	return false
}

// collection returns the normalized collection. ok is false when it could
// not be loaded.
func (a *Adapter) collection(ctx context.Context) ([]Cluster, bool) {
	if clusters, ok := a.collections.Get(cache.SentinelKey); ok {
		return clusters, true
	}

	var (
		clusters []Cluster
		err      error
	)
	if a.config.Coalesce {
		// The shared load must outlive any one caller; each caller still
		// stops waiting when its own context ends.
		ch := a.group.DoChan(cache.SentinelKey, func() (any, error) {
			return a.loadCollection(context.WithoutCancel(ctx))
		})
		select {
		case res := <-ch:
			err = res.Err
			if err == nil {
				clusters = res.Val.([]Cluster)
			}
		case <-ctx.Done():
			err = &client.TransportError{Method: http.MethodGet, URL: a.config.Endpoint, Cancelled: true, Err: ctx.Err()}
		}
	} else {
		clusters, err = a.loadCollection(ctx)
	}

	if err != nil {
		collectionFetchesTotal.WithLabelValues(a.config.Name, "error").Inc()
		a.logger.Error().
			Err(err).
			Str("endpoint", a.config.Endpoint).
			Str("error_class", string(client.ClassOf(err))).
			Msg("Failed to load cluster collection")
		return nil, false
	}
	return clusters, true
}

// loadCollection consults the snapshot, then the upstream, and fills the
// caches.
func (a *Adapter) loadCollection(ctx context.Context) ([]Cluster, error) {
	if clusters, ok := a.loadSnapshot(ctx); ok {
		return clusters, nil
	}

	resp, err := a.fetch(ctx)
	if err != nil {
		return nil, err
	}

	raws, err := DecodePayload(resp.Body)
	if err != nil {
		return nil, err
	}

	clusters := make([]Cluster, 0, len(raws))
	for _, raw := range raws {
		c, ok := NormalizeCluster(raw, a.table)
		if !ok {
			clustersDroppedTotal.WithLabelValues(a.config.Name).Inc()
			continue
		}
		clusters = append(clusters, c)
	}

	ttl := a.config.TTL
	if a.config.HonorExpires {
		if upstreamTTL, ok := client.ExpiresTTL(resp.Header, a.now()); ok {
			ttl = upstreamTTL
		}
	}

	collectionFetchesTotal.WithLabelValues(a.config.Name, "upstream").Inc()
	collectionSize.WithLabelValues(a.config.Name).Set(float64(len(clusters)))
	a.logger.Info().
		Int("records", len(raws)).
		Int("clusters", len(clusters)).
		Dur("ttl", ttl).
		Msg("Cluster collection loaded from upstream")

	if ttl <= 0 {
		return clusters, nil
	}

	a.collections.SetWithTTL(cache.SentinelKey, clusters, ttl)
	if a.snapshot != nil {
		if err := a.snapshot.Set(ctx, a.snapshotKey(), clusters, ttl); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to store collection snapshot")
		}
	}

	return clusters, nil
}

// fetch performs exactly one logical upstream request, through the breaker
// when one is configured.
func (a *Adapter) fetch(ctx context.Context) (*client.Response, error) {
	do := func() (*client.Response, error) {
		return a.fetcher.Do(ctx, client.Request{Method: http.MethodGet, Path: a.config.Endpoint})
	}

	if a.breaker == nil {
		return do()
	}

	resp, err := breaker.Call(a.breaker, do)
	if errors.Is(err, breaker.ErrCircuitOpen) {
		return nil, fmt.Errorf("fetch %s: %w", a.config.Endpoint, err)
	}
	return resp, err
}

func (a *Adapter) loadSnapshot(ctx context.Context) ([]Cluster, bool) {
	if a.snapshot == nil {
		return nil, false
	}

	var clusters []Cluster
	if err := a.snapshot.Get(ctx, a.snapshotKey(), &clusters); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			a.logger.Warn().Err(err).Msg("Collection snapshot unavailable")
		}
		return nil, false
	}
	if clusters == nil {
		clusters = []Cluster{}
	}

	ttl := a.config.TTL
	if remaining, err := a.snapshot.TTL(ctx, a.snapshotKey()); err == nil && remaining > 0 {
		ttl = remaining
	}
	a.collections.SetWithTTL(cache.SentinelKey, clusters, ttl)

	collectionFetchesTotal.WithLabelValues(a.config.Name, "snapshot").Inc()
	a.logger.Debug().
		Int("clusters", len(clusters)).
		Dur("ttl", ttl).
		Msg("Cluster collection loaded from snapshot")

	return clusters, true
}

func (a *Adapter) snapshotKey() cache.Key {
	return cache.Key{Endpoint: a.config.Endpoint}
}
