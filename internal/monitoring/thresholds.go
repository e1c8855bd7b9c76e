package monitoring

import "time"

// Thresholds holds the alerting limits evaluated by the funnel tracker and
// the request timer's slow-query rule. Zero values fall back to defaults.
type Thresholds struct {
	// Percentage floors: an alert fires when the measured rate drops below.
	VerificationCompletionFloor float64
	DeliveryFloor               float64
	PasswordResetSuccessFloor   float64

	// Percentage ceiling: an alert fires when the measured rate rises above.
	AuthErrorRateCeiling float64

	// Absolute count ceilings within the current window.
	HardBounceCeiling    int
	SpamComplaintCeiling int

	// Summed per-request query time above this triggers a slow-query warning.
	SlowQuery time.Duration
}

// DefaultThresholds returns the stock alerting limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		VerificationCompletionFloor: 70,
		DeliveryFloor:               95,
		PasswordResetSuccessFloor:   80,
		AuthErrorRateCeiling:        5,
		HardBounceCeiling:           10,
		SpamComplaintCeiling:        3,
		SlowQuery:                   500 * time.Millisecond,
	}
}

// withDefaults fills unset fields so a partially configured Thresholds never
// disables a rule by accident.
func (t Thresholds) withDefaults() Thresholds {
	def := DefaultThresholds()
	if t.VerificationCompletionFloor <= 0 {
		t.VerificationCompletionFloor = def.VerificationCompletionFloor
	}
	if t.DeliveryFloor <= 0 {
		t.DeliveryFloor = def.DeliveryFloor
	}
	if t.PasswordResetSuccessFloor <= 0 {
		t.PasswordResetSuccessFloor = def.PasswordResetSuccessFloor
	}
	if t.AuthErrorRateCeiling <= 0 {
		t.AuthErrorRateCeiling = def.AuthErrorRateCeiling
	}
	if t.HardBounceCeiling <= 0 {
		t.HardBounceCeiling = def.HardBounceCeiling
	}
	if t.SpamComplaintCeiling <= 0 {
		t.SpamComplaintCeiling = def.SpamComplaintCeiling
	}
	if t.SlowQuery <= 0 {
		t.SlowQuery = def.SlowQuery
	}
	return t
}
