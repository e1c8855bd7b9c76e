package monitoring

import (
	"context"
	"log/slog"

	"github.com/unaibg/merkatu/internal/pkg/metrics"
)

// Severity classifies an emitted alert.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Notifier receives alerts raised by the trackers. Implementations may log,
// publish to a broker, or page — call sites stay the same either way.
type Notifier interface {
	Notify(severity Severity, title, description string, snapshot map[string]any)
}

// LogNotifier writes alerts to structured logs and counts them in Prometheus.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier builds a LogNotifier. A nil logger uses slog.Default().
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(severity Severity, title, description string, snapshot map[string]any) {
	level := slog.LevelWarn
	if severity == SeverityError || severity == SeverityCritical {
		level = slog.LevelError
	}

	attrs := []slog.Attr{
		slog.String("severity", string(severity)),
		slog.String("description", description),
	}
	for k, v := range snapshot {
		attrs = append(attrs, slog.Any(k, v))
	}

	n.logger.LogAttrs(context.Background(), level, "ALERT: "+title, attrs...)
	metrics.AlertsEmitted.WithLabelValues(string(severity)).Inc()
}

// MultiNotifier fans one alert out to several sinks.
type MultiNotifier struct {
	sinks []Notifier
}

// NewMultiNotifier combines notifiers; nil entries are skipped.
func NewMultiNotifier(sinks ...Notifier) *MultiNotifier {
	m := &MultiNotifier{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *MultiNotifier) Notify(severity Severity, title, description string, snapshot map[string]any) {
	for _, s := range m.sinks {
		s.Notify(severity, title, description, snapshot)
	}
}
