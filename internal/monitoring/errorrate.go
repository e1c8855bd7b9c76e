package monitoring

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/unaibg/merkatu/internal/pkg/metrics"
)

const (
	errorRateWindow      = time.Minute
	defaultMaxEndpoints  = 500
	endpointEvictPercent = 10
)

// EndpointRate is one entry of an error-rate snapshot.
type EndpointRate struct {
	ErrorRate     float64 `json:"error_rate"`
	TotalRequests int     `json:"total_requests"`
}

type endpointCounter struct {
	requests int
	errors   int
}

// ErrorRateTracker keeps per-endpoint request/error counts over a rolling
// one-minute window. The window is checked lazily on every write; there is
// no background timer, so between writes a stale window simply sits there.
// Reads intentionally do not reconcile elapsed time.
type ErrorRateTracker struct {
	logger       *slog.Logger
	maxEndpoints int

	mu          sync.Mutex
	windowStart time.Time
	counters    map[string]*endpointCounter
	now         func() time.Time
}

// NewErrorRateTracker builds a tracker. maxEndpoints <= 0 uses the default
// ceiling of 500 tracked endpoint keys.
func NewErrorRateTracker(logger *slog.Logger, maxEndpoints int) *ErrorRateTracker {
	if logger == nil {
		logger = slog.Default()
	}
	if maxEndpoints <= 0 {
		maxEndpoints = defaultMaxEndpoints
	}
	return &ErrorRateTracker{
		logger:       logger,
		maxEndpoints: maxEndpoints,
		counters:     make(map[string]*endpointCounter),
		now:          time.Now,
	}
}

// Record counts one completed request. A window older than one minute is
// cleared first, atomically with this write, so the new request lands in the
// fresh window.
func (t *ErrorRateTracker) Record(endpoint string, isError bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if t.windowStart.IsZero() {
		t.windowStart = now
	} else if now.Sub(t.windowStart) > errorRateWindow {
		t.counters = make(map[string]*endpointCounter)
		t.windowStart = now
	}

	c := t.counters[endpoint]
	if c == nil {
		if len(t.counters) >= t.maxEndpoints {
			t.evictLocked()
		}
		c = &endpointCounter{}
		t.counters[endpoint] = c
	}
	c.requests++
	if isError {
		c.errors++
	}
}

// evictLocked drops the bottom 10% of endpoints by request count. Caller
// holds the mutex.
func (t *ErrorRateTracker) evictLocked() {
	keys := make([]string, 0, len(t.counters))
	for k := range t.counters {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return t.counters[keys[i]].requests < t.counters[keys[j]].requests
	})

	drop := len(keys) * endpointEvictPercent / 100
	if drop < 1 {
		drop = 1
	}
	for _, k := range keys[:drop] {
		delete(t.counters, k)
	}

	t.logger.Warn("endpoint counters evicted",
		"dropped", drop, "remaining", len(t.counters), "ceiling", t.maxEndpoints)
	metrics.TrackerEvictions.WithLabelValues("error_rate").Add(float64(drop))
}

// Rate returns the error percentage for one endpoint, 0 if never seen.
func (t *ErrorRateTracker) Rate(endpoint string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := t.counters[endpoint]
	if c == nil || c.requests == 0 {
		return 0
	}
	return float64(c.errors) / float64(c.requests) * 100
}

// Snapshot returns every tracked endpoint with its error rate and volume.
func (t *ErrorRateTracker) Snapshot() map[string]EndpointRate {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]EndpointRate, len(t.counters))
	for k, c := range t.counters {
		rate := 0.0
		if c.requests > 0 {
			rate = float64(c.errors) / float64(c.requests) * 100
		}
		out[k] = EndpointRate{ErrorRate: rate, TotalRequests: c.requests}
	}
	return out
}

// Reset clears all counters immediately.
func (t *ErrorRateTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counters = make(map[string]*endpointCounter)
	t.windowStart = time.Time{}
}
