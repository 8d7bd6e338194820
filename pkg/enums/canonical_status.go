package enums

// CanonicalStatus is the four-value vocabulary every provider status maps
// into. Unmapped provider values become unknown, never completed.
type CanonicalStatus string

const (
	CanonicalStatusCompleted CanonicalStatus = "completed"
	CanonicalStatusFailed    CanonicalStatus = "failed"
	CanonicalStatusPending   CanonicalStatus = "pending"
	CanonicalStatusUnknown   CanonicalStatus = "unknown"
)

// String implements fmt.Stringer.
func (s CanonicalStatus) String() string {
	return string(s)
}
