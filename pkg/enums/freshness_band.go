package enums

// FreshnessBand is derived at read time and never stored.
type FreshnessBand string

const (
	FreshnessNone  FreshnessBand = "none"
	FreshnessFresh FreshnessBand = "fresh"
	FreshnessAging FreshnessBand = "aging"
	FreshnessStale FreshnessBand = "stale"
	FreshnessCold  FreshnessBand = "cold"
)

// String implements fmt.Stringer.
func (f FreshnessBand) String() string {
	return string(f)
}
