package aggregate

// Validity is the allow-list of result codes that count as billable/valid
// calls. It is loaded once from configuration and shared by every consumer
// (billing, reconciliation summaries, dashboard stats) so the valid/invalid
// split can never drift between views.
type Validity struct {
	codes map[string]struct{}
}

// NewValidity builds a validity set from configured code strings.
func NewValidity(codes []string) Validity {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return Validity{codes: set}
}

// Valid reports whether code is on the allow-list.
func (v Validity) Valid(code string) bool {
	_, ok := v.codes[code]
	return ok
}

// Split sums bucket counts into valid and invalid totals.
func (v Validity) Split(buckets []Bucket) (valid, invalid int64) {
	for _, b := range buckets {
		if v.Valid(b.ResultCode) {
			valid += b.Count
		} else {
			invalid += b.Count
		}
	}
	return valid, invalid
}
