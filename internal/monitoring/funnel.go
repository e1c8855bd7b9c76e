package monitoring

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/unaibg/merkatu/internal/pkg/metrics"
)

// EventType identifies one stage of the authentication funnel. The set is
// closed: callers use the typed constants (or the convenience methods below).
type EventType string

const (
	EventVerificationSent      EventType = "verification_sent"
	EventVerificationCompleted EventType = "verification_completed"
	EventVerificationFailed    EventType = "verification_failed"

	EventEmailDelivered  EventType = "email_delivered"
	EventEmailBounced    EventType = "email_bounced"
	EventEmailComplained EventType = "email_complained"

	EventPasswordResetRequested EventType = "password_reset_requested"
	EventPasswordResetCompleted EventType = "password_reset_completed"
	EventPasswordResetFailed    EventType = "password_reset_failed"

	EventRoleChanged      EventType = "role_changed"
	EventRoleChangeFailed EventType = "role_change_failed"

	EventLoginSucceeded  EventType = "login_succeeded"
	EventLoginFailed     EventType = "login_failed"
	EventSignupSucceeded EventType = "signup_succeeded"
	EventSignupFailed    EventType = "signup_failed"

	EventAuthError EventType = "auth_error"
)

const (
	funnelWindow       = time.Hour
	defaultMaxEvents   = 5000
	funnelEvictPercent = 20

	// Minimum-sample gates: a rate-based alert only fires above these volumes.
	verificationSampleGate  = 10
	passwordResetSampleGate = 5
	authAttemptSampleGate   = 20
)

// Event is one recorded funnel occurrence. Never mutated after creation.
type Event struct {
	Type     EventType      `json:"type"`
	At       time.Time      `json:"at"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// FunnelMetrics is a point-in-time derivation over the current window.
// Rates are percentages in [0,100] and 0 when the denominator is 0.
type FunnelMetrics struct {
	Counts map[EventType]int `json:"counts"`

	VerificationCompletionRate float64 `json:"verification_completion_rate"`
	DeliveryRate               float64 `json:"delivery_rate"`
	PasswordResetSuccessRate   float64 `json:"password_reset_success_rate"`
	RoleChangeSuccessRate      float64 `json:"role_change_success_rate"`
	AuthErrorRate              float64 `json:"auth_error_rate"`

	HardBounces    int `json:"hard_bounces"`
	SpamComplaints int `json:"spam_complaints"`
	TotalEvents    int `json:"total_events"`

	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	Timestamp   time.Time `json:"timestamp"`
}

// FunnelTracker holds authentication-funnel events in a rolling one-hour
// window and raises alerts through the injected Notifier. Like the error-rate
// tracker, the window is checked lazily on write only.
type FunnelTracker struct {
	logger     *slog.Logger
	notifier   Notifier
	thresholds Thresholds
	maxEvents  int

	mu          sync.Mutex
	windowStart time.Time
	events      []Event
	now         func() time.Time
}

// NewFunnelTracker builds a tracker. A nil notifier falls back to log-only
// alerts; maxEvents <= 0 uses the default ceiling of 5000 events.
func NewFunnelTracker(logger *slog.Logger, notifier Notifier, thresholds Thresholds, maxEvents int) *FunnelTracker {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	if maxEvents <= 0 {
		maxEvents = defaultMaxEvents
	}
	return &FunnelTracker{
		logger:     logger,
		notifier:   notifier,
		thresholds: thresholds.withDefaults(),
		maxEvents:  maxEvents,
		now:        time.Now,
	}
}

// Record appends one event, resetting the window or evicting old events as
// needed, then evaluates every alert rule against the current window.
func (f *FunnelTracker) Record(eventType EventType, metadata map[string]any) {
	f.mu.Lock()

	now := f.now()
	if f.windowStart.IsZero() {
		f.windowStart = now
	} else if now.Sub(f.windowStart) > funnelWindow {
		f.events = f.events[:0]
		f.windowStart = now
	}

	if len(f.events) >= f.maxEvents {
		drop := f.maxEvents * funnelEvictPercent / 100
		if drop < 1 {
			drop = 1
		}
		f.events = append(f.events[:0], f.events[drop:]...)
		f.logger.Warn("funnel events evicted",
			"dropped", drop, "remaining", len(f.events), "ceiling", f.maxEvents)
		metrics.TrackerEvictions.WithLabelValues("funnel").Add(float64(drop))
	}

	f.events = append(f.events, Event{Type: eventType, At: now, Metadata: metadata})
	m := f.deriveLocked(now)
	f.mu.Unlock()

	f.logger.Debug("funnel event", "type", string(eventType))
	metrics.FunnelEvents.WithLabelValues(string(eventType)).Inc()

	f.evaluate(m)
}

// Metrics returns the derived metrics for the current window. It does not
// reset a stale window; only writes do.
func (f *FunnelTracker) Metrics() FunnelMetrics {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deriveLocked(f.now())
}

// Reset clears all recorded events immediately.
func (f *FunnelTracker) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
	f.windowStart = time.Time{}
}

// deriveLocked computes counts and rates. Caller holds the mutex.
func (f *FunnelTracker) deriveLocked(now time.Time) FunnelMetrics {
	counts := make(map[EventType]int)
	hardBounces := 0
	for _, e := range f.events {
		counts[e.Type]++
		if e.Type == EventEmailBounced && !isSoftBounce(e.Metadata) {
			hardBounces++
		}
	}

	sent := counts[EventVerificationSent]
	resetDone := counts[EventPasswordResetCompleted]
	resetFailed := counts[EventPasswordResetFailed]
	roleDone := counts[EventRoleChanged]
	roleFailed := counts[EventRoleChangeFailed]
	attempts := counts[EventLoginSucceeded] + counts[EventLoginFailed] +
		counts[EventSignupSucceeded] + counts[EventSignupFailed]
	authFailures := counts[EventLoginFailed] + counts[EventSignupFailed] + counts[EventAuthError]

	return FunnelMetrics{
		Counts:                     counts,
		VerificationCompletionRate: percent(counts[EventVerificationCompleted], sent),
		DeliveryRate:               percent(counts[EventEmailDelivered], sent),
		PasswordResetSuccessRate:   percent(resetDone, resetDone+resetFailed),
		RoleChangeSuccessRate:      percent(roleDone, roleDone+roleFailed),
		AuthErrorRate:              percent(authFailures, attempts),
		HardBounces:                hardBounces,
		SpamComplaints:             counts[EventEmailComplained],
		TotalEvents:                len(f.events),
		WindowStart:                f.windowStart,
		WindowEnd:                  f.windowStart.Add(funnelWindow),
		Timestamp:                  now,
	}
}

// evaluate runs all six alert rules independently against one snapshot.
func (f *FunnelTracker) evaluate(m FunnelMetrics) {
	th := f.thresholds
	sent := m.Counts[EventVerificationSent]
	requested := m.Counts[EventPasswordResetRequested]
	attempts := m.Counts[EventLoginSucceeded] + m.Counts[EventLoginFailed] +
		m.Counts[EventSignupSucceeded] + m.Counts[EventSignupFailed]

	snapshot := map[string]any{
		"window_start": m.WindowStart,
		"total_events": m.TotalEvents,
	}

	if sent > verificationSampleGate && m.VerificationCompletionRate < th.VerificationCompletionFloor {
		f.notifier.Notify(SeverityWarning, "low verification completion rate",
			fmt.Sprintf("completion rate %.1f%% below floor %.1f%% (%d sent)",
				m.VerificationCompletionRate, th.VerificationCompletionFloor, sent),
			snapshot)
	}
	if sent > verificationSampleGate && m.DeliveryRate < th.DeliveryFloor {
		f.notifier.Notify(SeverityError, "low email delivery rate",
			fmt.Sprintf("delivery rate %.1f%% below floor %.1f%% (%d sent)",
				m.DeliveryRate, th.DeliveryFloor, sent),
			snapshot)
	}
	if requested > passwordResetSampleGate && m.PasswordResetSuccessRate < th.PasswordResetSuccessFloor {
		f.notifier.Notify(SeverityWarning, "low password reset success rate",
			fmt.Sprintf("success rate %.1f%% below floor %.1f%% (%d requested)",
				m.PasswordResetSuccessRate, th.PasswordResetSuccessFloor, requested),
			snapshot)
	}
	if attempts > authAttemptSampleGate && m.AuthErrorRate > th.AuthErrorRateCeiling {
		f.notifier.Notify(SeverityError, "high authentication error rate",
			fmt.Sprintf("error rate %.1f%% above ceiling %.1f%% (%d attempts)",
				m.AuthErrorRate, th.AuthErrorRateCeiling, attempts),
			snapshot)
	}
	if m.HardBounces > th.HardBounceCeiling {
		f.notifier.Notify(SeverityCritical, "high hard bounce count",
			fmt.Sprintf("%d hard bounces above ceiling %d", m.HardBounces, th.HardBounceCeiling),
			snapshot)
	}
	if m.SpamComplaints > th.SpamComplaintCeiling {
		f.notifier.Notify(SeverityCritical, "high spam complaint count",
			fmt.Sprintf("%d complaints above ceiling %d", m.SpamComplaints, th.SpamComplaintCeiling),
			snapshot)
	}
}

// isSoftBounce reports whether bounce metadata marks the bounce as soft.
// Anything else, including missing metadata, counts as hard.
func isSoftBounce(metadata map[string]any) bool {
	v, ok := metadata["bounce_type"]
	if !ok {
		return false
	}
	s, ok := v.(string)
	return ok && s == "soft"
}

func percent(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator) * 100
}

// Convenience entry points, one per event kind.

func (f *FunnelTracker) VerificationSent(md map[string]any)      { f.Record(EventVerificationSent, md) }
func (f *FunnelTracker) VerificationCompleted(md map[string]any) { f.Record(EventVerificationCompleted, md) }
func (f *FunnelTracker) VerificationFailed(md map[string]any)    { f.Record(EventVerificationFailed, md) }

func (f *FunnelTracker) EmailDelivered(md map[string]any)  { f.Record(EventEmailDelivered, md) }
func (f *FunnelTracker) EmailBounced(md map[string]any)    { f.Record(EventEmailBounced, md) }
func (f *FunnelTracker) EmailComplained(md map[string]any) { f.Record(EventEmailComplained, md) }

func (f *FunnelTracker) PasswordResetRequested(md map[string]any) {
	f.Record(EventPasswordResetRequested, md)
}
func (f *FunnelTracker) PasswordResetCompleted(md map[string]any) {
	f.Record(EventPasswordResetCompleted, md)
}
func (f *FunnelTracker) PasswordResetFailed(md map[string]any) {
	f.Record(EventPasswordResetFailed, md)
}

func (f *FunnelTracker) RoleChanged(md map[string]any)      { f.Record(EventRoleChanged, md) }
func (f *FunnelTracker) RoleChangeFailed(md map[string]any) { f.Record(EventRoleChangeFailed, md) }

func (f *FunnelTracker) LoginSucceeded(md map[string]any)  { f.Record(EventLoginSucceeded, md) }
func (f *FunnelTracker) LoginFailed(md map[string]any)     { f.Record(EventLoginFailed, md) }
func (f *FunnelTracker) SignupSucceeded(md map[string]any) { f.Record(EventSignupSucceeded, md) }
func (f *FunnelTracker) SignupFailed(md map[string]any)    { f.Record(EventSignupFailed, md) }

func (f *FunnelTracker) AuthError(md map[string]any) { f.Record(EventAuthError, md) }
