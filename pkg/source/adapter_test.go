package source

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/quran-xref/internal/testutil"
	"github.com/Sternrassler/quran-xref/pkg/breaker"
	"github.com/Sternrassler/quran-xref/pkg/cache"
	"github.com/Sternrassler/quran-xref/pkg/client"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher serves a fixed body or error and counts calls.
type fakeFetcher struct {
	mu     sync.Mutex
	calls  int
	body   string
	header http.Header
	err    error
	gate   chan struct{}
}

func (f *fakeFetcher) Do(ctx context.Context, req client.Request) (*client.Response, error) {
	f.mu.Lock()
	f.calls++
	body, header, err, gate := f.body, f.header, f.err, f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if header == nil {
		header = http.Header{}
	}
	return &client.Response{StatusCode: http.StatusOK, Header: header, Body: []byte(body)}, nil
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeFetcher) set(body string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.body, f.err = body, err
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestAdapter(f Fetcher, cfg Config, opts ...Option) *Adapter {
	opts = append([]Option{WithLogger(zerolog.Nop())}, opts...)
	return NewAdapter(f, cfg, opts...)
}

func TestAdapter_SingleUpstreamCallAcrossQueries(t *testing.T) {
	f := &fakeFetcher{body: testutil.SampleClusters}
	a := newTestAdapter(f, DefaultConfig())
	ctx := context.Background()

	a.GetByKey(ctx, "2:247")
	a.GetByKey(ctx, "11:40")
	a.Search(ctx, "david")
	a.GetByKey(ctx, "2:247")

	assert.Equal(t, 1, f.Calls(), "collection should be fetched once per cache window")
}

func TestAdapter_GetByKey(t *testing.T) {
	f := &fakeFetcher{body: testutil.SampleClusters}
	a := newTestAdapter(f, DefaultConfig())
	ctx := context.Background()

	result := a.GetByKey(ctx, "2:247")
	require.Len(t, result, 1)
	assert.Equal(t, "c-saul", result[0].ID)
	assert.InDelta(t, 0.91, result[0].Similarity, 1e-9)

	anchor := result[0].References[0]
	assert.Equal(t, KindAnchor, anchor.Kind)
	assert.Equal(t, "Quran", anchor.Book)
	assert.Equal(t, "2:247", anchor.CanonicalKey)

	related := result[0].References[1]
	assert.Equal(t, KindRelated, related.Kind)
	assert.Equal(t, "1 Samuel", related.Book)
	assert.Equal(t, 10, related.Chapter)
	assert.Equal(t, 24, related.Verse)

	flood := a.GetByKey(ctx, "11:40")
	require.Len(t, flood, 1)
	assert.Equal(t, "c-flood", flood[0].ID)
	assert.InDelta(t, 0.84, flood[0].Similarity, 1e-9)

	psalms := a.GetByKey(ctx, "4:163")
	require.Len(t, psalms, 1)
	assert.Equal(t, "3", psalms[0].ID)
	assert.Equal(t, 1.0, psalms[0].Similarity)
	assert.Len(t, psalms[0].References, 2, "verse with unknown tag should be dropped")

	assert.Empty(t, a.GetByKey(ctx, "1:1"))
}

func TestAdapter_GetByKeyResolvesCompositeIDs(t *testing.T) {
	f := &fakeFetcher{body: testutil.SampleClusters}
	a := newTestAdapter(f, DefaultConfig())

	for _, key := range []string{"al-baqarah:247", "Al Baqarah/247", "02:247"} {
		result := a.GetByKey(context.Background(), key)
		require.Len(t, result, 1, key)
		assert.Equal(t, "c-saul", result[0].ID, key)
	}
	assert.Equal(t, 1, f.Calls())
}

func TestAdapter_Search(t *testing.T) {
	f := &fakeFetcher{body: testutil.SampleClusters}
	a := newTestAdapter(f, DefaultConfig())
	ctx := context.Background()

	tests := []struct {
		query   string
		wantIDs []string
	}{
		{"NOAH", []string{"c-flood"}},
		{"oven", []string{"c-flood"}},
		{"david", []string{"3"}},
		{"king", []string{"c-saul"}},
		{"nothing matches this", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			result := a.Search(ctx, tt.query)
			ids := make([]string, 0, len(result))
			for _, c := range result {
				ids = append(ids, c.ID)
			}
			if tt.wantIDs == nil {
				assert.Empty(t, ids)
				assert.NotNil(t, result)
				return
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}

	assert.Equal(t, 1, f.Calls())
}

func TestAdapter_SearchCacheIgnoresCase(t *testing.T) {
	f := &fakeFetcher{body: testutil.SampleClusters}
	a := newTestAdapter(f, DefaultConfig())

	require.Len(t, a.Search(context.Background(), "Flood"), 1)
	assert.True(t, a.queries.Has(cache.SearchKey("FLOOD")))
	assert.False(t, a.queries.Has(cache.LookupKey("Flood")))
}

func TestAdapter_NullPayload(t *testing.T) {
	for _, body := range []string{"null", "", `{"clusters": null}`} {
		f := &fakeFetcher{body: body}
		a := newTestAdapter(f, DefaultConfig())
		ctx := context.Background()

		result := a.GetByKey(ctx, "2:247")
		assert.NotNil(t, result)
		assert.Empty(t, result)

		a.Search(ctx, "anything")
		assert.Equal(t, 1, f.Calls(), "empty collection should be cached for body %q", body)
	}
}

func TestAdapter_UpstreamFailure(t *testing.T) {
	f := &fakeFetcher{err: &client.HTTPError{StatusCode: 503, Class: client.ErrorClassServer}}
	a := newTestAdapter(f, DefaultConfig())
	ctx := context.Background()

	result := a.GetByKey(ctx, "2:247")
	assert.NotNil(t, result)
	assert.Empty(t, result)
	assert.Empty(t, a.Search(ctx, "flood"))
	assert.Equal(t, 2, f.Calls(), "failed loads must not be cached")

	// The next call retries and picks up the recovered upstream.
	f.set(testutil.SampleClusters, nil)
	assert.Len(t, a.GetByKey(ctx, "2:247"), 1)
	assert.Equal(t, 3, f.Calls())
}

func TestAdapter_MalformedPayload(t *testing.T) {
	f := &fakeFetcher{body: `{"clusters": "oops"}`}
	a := newTestAdapter(f, DefaultConfig())

	assert.Empty(t, a.GetByKey(context.Background(), "2:247"))
	assert.Empty(t, a.GetByKey(context.Background(), "2:247"))
	assert.Equal(t, 2, f.Calls())
}

func TestAdapter_TTLExpiry(t *testing.T) {
	clock := newFakeClock()
	f := &fakeFetcher{body: testutil.SampleClusters}
	cfg := DefaultConfig()
	cfg.TTL = time.Minute
	a := newTestAdapter(f, cfg, WithClock(clock.Now))
	ctx := context.Background()

	a.GetByKey(ctx, "2:247")
	clock.Advance(59 * time.Second)
	a.GetByKey(ctx, "2:247")
	assert.Equal(t, 1, f.Calls())

	clock.Advance(time.Second)
	a.GetByKey(ctx, "2:247")
	assert.Equal(t, 2, f.Calls(), "entries expire exactly at the TTL")
}

func TestAdapter_Invalidate(t *testing.T) {
	f := &fakeFetcher{body: testutil.SampleClusters}
	a := newTestAdapter(f, DefaultConfig())
	ctx := context.Background()

	require.Len(t, a.GetByKey(ctx, "2:247"), 1)
	f.set(`[]`, nil)
	require.Len(t, a.GetByKey(ctx, "2:247"), 1, "cached result survives upstream change")

	a.Invalidate(ctx)
	assert.Empty(t, a.GetByKey(ctx, "2:247"))
	assert.Equal(t, 2, f.Calls())
}

func TestAdapter_HonorExpires(t *testing.T) {
	clock := newFakeClock()
	f := &fakeFetcher{
		body:   testutil.SampleClusters,
		header: http.Header{"Cache-Control": []string{"max-age=10"}},
	}
	cfg := DefaultConfig()
	cfg.TTL = time.Hour
	cfg.HonorExpires = true
	a := newTestAdapter(f, cfg, WithClock(clock.Now))
	ctx := context.Background()

	a.Search(ctx, "flood")
	clock.Advance(11 * time.Second)
	a.Search(ctx, "noah")
	assert.Equal(t, 2, f.Calls(), "collection lifetime should follow max-age")
}

func TestAdapter_HonorExpiresNoStore(t *testing.T) {
	f := &fakeFetcher{
		body:   testutil.SampleClusters,
		header: http.Header{"Cache-Control": []string{"no-store"}},
	}
	cfg := DefaultConfig()
	cfg.HonorExpires = true
	a := newTestAdapter(f, cfg)
	ctx := context.Background()

	assert.Len(t, a.Search(ctx, "flood"), 1)
	assert.Len(t, a.Search(ctx, "noah"), 1)
	assert.Equal(t, 2, f.Calls(), "no-store collections are not cached")
}

func TestAdapter_Breaker(t *testing.T) {
	f := &fakeFetcher{err: errors.New("connection refused")}
	settings := breaker.DefaultSettings()
	settings.FailureThreshold = 2
	settings.ResetTimeout = time.Hour
	b := breaker.New("clusters-test", settings)

	a := newTestAdapter(f, DefaultConfig(), WithBreaker(b))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		assert.Empty(t, a.GetByKey(ctx, "2:247"))
	}

	assert.Equal(t, 2, f.Calls(), "open breaker should stop upstream calls")
	assert.Equal(t, breaker.StateOpen, b.State())
}

func TestAdapter_Coalesce(t *testing.T) {
	gate := make(chan struct{})
	f := &fakeFetcher{body: testutil.SampleClusters, gate: gate}
	cfg := DefaultConfig()
	cfg.Coalesce = true
	a := newTestAdapter(f, cfg)

	const callers = 8
	var wg sync.WaitGroup
	results := make([][]Cluster, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = a.GetByKey(context.Background(), "2:247")
		}(i)
	}

	require.Eventually(t, func() bool { return f.Calls() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, 1, f.Calls(), "concurrent misses should share one upstream call")
	for i, r := range results {
		assert.Len(t, r, 1, "caller %d", i)
	}
}

func TestAdapter_EndToEnd(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetSequence(testutil.ClustersPath,
		testutil.NewServerErrorResponse(),
		testutil.NewClustersResponse(testutil.SampleClusters),
	)

	logger := zerolog.Nop()
	cfg := client.DefaultConfig(mock.URL())
	cfg.BackoffBase = time.Millisecond
	cfg.Logger = &logger
	c, err := client.New(cfg)
	require.NoError(t, err)

	a := newTestAdapter(c, DefaultConfig())
	ctx := context.Background()

	result := a.GetByKey(ctx, "2:247")
	require.Len(t, result, 1)
	assert.Equal(t, "Quran", result[0].References[0].Book)
	assert.Len(t, a.Search(ctx, "psalms"), 1)

	assert.Equal(t, 2, mock.PathCount(testutil.ClustersPath), "one retry, then served from cache")
}

func TestAdapter_EndToEndClientError(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetResponse(testutil.ClustersPath, testutil.MockResponse{StatusCode: http.StatusNotFound})

	logger := zerolog.Nop()
	cfg := client.DefaultConfig(mock.URL())
	cfg.Logger = &logger
	c, err := client.New(cfg)
	require.NoError(t, err)

	a := newTestAdapter(c, DefaultConfig())
	assert.Empty(t, a.GetByKey(context.Background(), "2:247"))
	assert.Equal(t, 1, mock.PathCount(testutil.ClustersPath), "4xx is never retried")
}

func TestAdapter_ResultsDoNotAliasCache(t *testing.T) {
	f := &fakeFetcher{body: testutil.SampleClusters}
	a := newTestAdapter(f, DefaultConfig())
	ctx := context.Background()

	first := a.GetByKey(ctx, "2:247")
	require.Len(t, first, 1)
	first[0].Summary = "changed"
	first[0].References[0].Text = "changed text"

	again := a.GetByKey(ctx, "2:247")
	require.Len(t, again, 1)
	assert.Equal(t, "Saul (Talut) appointed king over Israel", again[0].Summary)
	assert.Equal(t, "Allah has appointed Talut as a king over you", again[0].References[0].Text)

	found := a.Search(ctx, "talut")
	require.Len(t, found, 1)
	found[0].References[0].Text = "changed text"

	assert.Empty(t, a.Search(ctx, "changed text"))
	assert.Len(t, a.Search(ctx, "TALUT"), 1)
	assert.Equal(t, 1, f.Calls())
}

func TestAdapter_CoalesceSurvivesCancelledCaller(t *testing.T) {
	gate := make(chan struct{})
	f := &fakeFetcher{body: testutil.SampleClusters, gate: gate}
	cfg := DefaultConfig()
	cfg.Coalesce = true
	a := newTestAdapter(f, cfg)

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()

	resultA := make(chan []Cluster, 1)
	go func() { resultA <- a.GetByKey(ctxA, "2:247") }()
	require.Eventually(t, func() bool { return f.Calls() == 1 }, time.Second, 5*time.Millisecond)

	resultB := make(chan []Cluster, 1)
	go func() { resultB <- a.GetByKey(context.Background(), "2:247") }()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	select {
	case r := <-resultA:
		assert.Empty(t, r, "cancelled caller gets an empty result")
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting on the shared load")
	}

	close(gate)
	select {
	case r := <-resultB:
		require.Len(t, r, 1)
		assert.Equal(t, "c-saul", r[0].ID)
	case <-time.After(time.Second):
		t.Fatal("second caller never received the shared load")
	}

	assert.Equal(t, 1, f.Calls())
	assert.Len(t, a.GetByKey(context.Background(), "11:40"), 1, "shared load was cached")
	assert.Equal(t, 1, f.Calls())
}

func TestAdapter_BreakerIgnoresCancellation(t *testing.T) {
	cancelled := &client.TransportError{Cancelled: true, Err: context.Canceled}
	f := &fakeFetcher{err: cancelled}
	settings := breaker.DefaultSettings()
	settings.FailureThreshold = 2
	settings.ResetTimeout = time.Hour
	settings.IsNeutral = func(err error) bool { return errors.Is(err, client.ErrContextCancelled) }
	b := breaker.New("clusters-cancel", settings)

	a := newTestAdapter(f, DefaultConfig(), WithBreaker(b))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		assert.Empty(t, a.GetByKey(ctx, "2:247"))
	}
	assert.Equal(t, 5, f.Calls())
	assert.Equal(t, breaker.StateClosed, b.State())

	f.set(testutil.SampleClusters, nil)
	assert.Len(t, a.GetByKey(ctx, "2:247"), 1)
}
