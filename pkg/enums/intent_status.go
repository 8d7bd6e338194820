package enums

import "fmt"

// IntentStatus tracks the lifecycle of a payment intent. Transitions are
// monotonic: pending is the only non-terminal state.
type IntentStatus string

const (
	IntentStatusPending   IntentStatus = "pending"
	IntentStatusCompleted IntentStatus = "completed"
	IntentStatusFailed    IntentStatus = "failed"
	IntentStatusExpired   IntentStatus = "expired"
)

var validIntentStatuses = []IntentStatus{
	IntentStatusPending,
	IntentStatusCompleted,
	IntentStatusFailed,
	IntentStatusExpired,
}

// String implements fmt.Stringer.
func (s IntentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known IntentStatus.
func (s IntentStatus) IsValid() bool {
	for _, candidate := range validIntentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed from s.
func (s IntentStatus) IsTerminal() bool {
	return s != IntentStatusPending
}

// ParseIntentStatus converts raw input into an IntentStatus.
func ParseIntentStatus(value string) (IntentStatus, error) {
	for _, candidate := range validIntentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid intent status %q", value)
}
