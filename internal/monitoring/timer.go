package monitoring

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Response-time alert limits. These are request-level constants; only the
// slow-query limit is configuration (see Thresholds.SlowQuery).
const (
	slowResponseThreshold     = 1 * time.Second
	criticalResponseThreshold = 5 * time.Second
)

// Monitor creates per-request timers. One instance lives at the composition
// root and is shared by every request.
type Monitor struct {
	logger     *slog.Logger
	thresholds Thresholds
	now        func() time.Time
}

// NewMonitor builds a Monitor. A nil logger uses slog.Default().
func NewMonitor(logger *slog.Logger, thresholds Thresholds) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		logger:     logger,
		thresholds: thresholds.withDefaults(),
		now:        time.Now,
	}
}

// Sample is the immutable record of one completed request.
type Sample struct {
	Endpoint     string         `json:"endpoint"`
	Method       string         `json:"method"`
	StatusCode   int            `json:"status_code"`
	ResponseTime time.Duration  `json:"response_time"`
	QueryTime    *time.Duration `json:"query_time,omitempty"`
	Error        string         `json:"error,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

type span struct {
	start  time.Time
	end    time.Time
	closed bool
}

// RequestTimer tracks one request from Begin to Complete. Sub-operations
// (DB queries, upstream calls) are timed as spans addressed by the integer
// index returned from StartSpan. Spans may overlap; each contributes its own
// duration to the query-time sum.
type RequestTimer struct {
	mon      *Monitor
	endpoint string
	method   string

	mu        sync.Mutex
	startedAt time.Time
	spans     []span
	done      bool
	sample    Sample
}

// Begin starts timing a request.
func (m *Monitor) Begin(endpoint, method string) *RequestTimer {
	return &RequestTimer{
		mon:       m,
		endpoint:  endpoint,
		method:    method,
		startedAt: m.now(),
	}
}

// StartSpan opens a sub-operation and returns its id. Returns -1 after
// Complete, when span operations are no longer meaningful.
func (t *RequestTimer) StartSpan() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return -1
	}
	t.spans = append(t.spans, span{start: t.mon.now()})
	return len(t.spans) - 1
}

// EndSpan closes a span. Unknown ids and already-closed spans are no-ops.
func (t *RequestTimer) EndSpan(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done || id < 0 || id >= len(t.spans) || t.spans[id].closed {
		return
	}
	t.spans[id].end = t.mon.now()
	t.spans[id].closed = true
}

// Complete finalises the request, logs the sample, and evaluates alert rules.
// It is the terminal call; repeated calls return the first sample unchanged.
// Spans never closed are excluded from the query-time sum.
func (t *RequestTimer) Complete(statusCode int, errMsg string, metadata map[string]any) Sample {
	t.mu.Lock()
	if t.done {
		s := t.sample
		t.mu.Unlock()
		return s
	}

	now := t.mon.now()
	var queryTime *time.Duration
	var total time.Duration
	completedAny := false
	for _, sp := range t.spans {
		if sp.closed {
			total += sp.end.Sub(sp.start)
			completedAny = true
		}
	}
	if completedAny {
		queryTime = &total
	}

	t.sample = Sample{
		Endpoint:     t.endpoint,
		Method:       t.method,
		StatusCode:   statusCode,
		ResponseTime: now.Sub(t.startedAt),
		QueryTime:    queryTime,
		Error:        errMsg,
		Metadata:     metadata,
		CreatedAt:    now,
	}
	t.done = true
	s := t.sample
	t.mu.Unlock()

	t.log(s)
	t.evaluate(s)
	return s
}

func (t *RequestTimer) log(s Sample) {
	attrs := []slog.Attr{
		slog.String("endpoint", s.Endpoint),
		slog.String("method", s.Method),
		slog.Int("status", s.StatusCode),
		slog.Duration("response_time", s.ResponseTime),
	}
	if s.QueryTime != nil {
		attrs = append(attrs, slog.Duration("query_time", *s.QueryTime))
	}
	if s.Error != "" {
		attrs = append(attrs, slog.String("error", s.Error))
	}
	for k, v := range s.Metadata {
		attrs = append(attrs, slog.Any(k, v))
	}
	t.mon.logger.LogAttrs(context.Background(), slog.LevelInfo, "request sample", attrs...)
}

// evaluate runs the four request-level alert rules. They are independent:
// one sample can fire all of them.
func (t *RequestTimer) evaluate(s Sample) {
	log := t.mon.logger
	if s.ResponseTime > slowResponseThreshold {
		log.Warn("slow response",
			"endpoint", s.Endpoint, "method", s.Method,
			"response_time", s.ResponseTime, "threshold", slowResponseThreshold)
	}
	if s.ResponseTime > criticalResponseThreshold {
		log.Error("critically slow response",
			"endpoint", s.Endpoint, "method", s.Method,
			"response_time", s.ResponseTime, "threshold", criticalResponseThreshold)
	}
	if s.QueryTime != nil && *s.QueryTime > t.mon.thresholds.SlowQuery {
		log.Warn("slow database query time",
			"endpoint", s.Endpoint, "method", s.Method,
			"query_time", *s.QueryTime, "threshold", t.mon.thresholds.SlowQuery)
	}
	if s.Error != "" {
		log.Error("request failed",
			"endpoint", s.Endpoint, "method", s.Method,
			"status", s.StatusCode, "error", s.Error)
	}
}
