package pipeline

import "time"

// AlertState carries the alert policy state across loop iterations.
// LastAlertTime is monotonically non-decreasing: it only moves forward, and
// only when an alert is actually dispatched.
type AlertState struct {
	LastAlertTime time.Time
	Cooldown      time.Duration
	Enabled       bool
}

// MaybeAlert decides whether a new alert should fire. No alert when there is
// no fire or alerts are disabled. Otherwise an alert fires iff the cooldown
// window since the last dispatched alert has elapsed, measured at dispatch
// time. The returned state is unchanged unless an alert fires.
func MaybeAlert(fireDetected bool, now time.Time, st AlertState) (bool, AlertState) {
	if !fireDetected || !st.Enabled {
		return false, st
	}

	if st.LastAlertTime.IsZero() || now.Sub(st.LastAlertTime) > st.Cooldown {
		st.LastAlertTime = now
		return true, st
	}

	return false, st
}
