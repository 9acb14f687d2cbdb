// Package aggregate turns raw authentication event rows into counted buckets.
// Everything here is pure: no IO, no shared state, deterministic output for
// deterministic input.
package aggregate

import (
	"sort"
	"time"

	"github.com/croftje/billingd/internal/timeutil"
)

// Wire values the authentication service writes for auth_mode.
const (
	ModeTwoFactor   = "0x40"
	ModeThreeFactor = "0x42"
)

// Record is one authentication attempt as read from the event log.
type Record struct {
	OrgID         string
	OrgName       string
	AuthMode      string
	ResultCode    string
	ResultMessage string
	ExecStart     time.Time
}

// Bucket is a counted group of records sharing the same dimensions. Date is
// empty unless the grouping included the calendar date.
type Bucket struct {
	OrgID         string
	OrgName       string
	AuthMode      string
	ResultCode    string
	ResultMessage string
	Date          string
	Count         int64
}

// Options selects the grouping dimensions.
type Options struct {
	// ByDate adds the calendar date (in Location) as a grouping dimension.
	ByDate bool
	// Location is the reporting timezone for date derivation. Nil means UTC.
	Location *time.Location
}

type groupKey struct {
	mode string
	code string
	msg  string
	date string
}

// Group buckets records by (authMode, resultCode, resultMessage[, date]) and
// counts each group. The counts partition the input: their sum always equals
// len(records). Empty input yields an empty slice.
func Group(records []Record, opts Options) []Bucket {
	loc := timeutil.EnsureLocation(opts.Location)
	counts := make(map[groupKey]*Bucket)
	order := make([]groupKey, 0)
	for _, r := range records {
		key := groupKey{mode: r.AuthMode, code: r.ResultCode, msg: r.ResultMessage}
		if opts.ByDate {
			key.date = timeutil.DayLabel(r.ExecStart, loc)
		}
		b, ok := counts[key]
		if !ok {
			b = &Bucket{
				OrgID:         r.OrgID,
				OrgName:       r.OrgName,
				AuthMode:      r.AuthMode,
				ResultCode:    r.ResultCode,
				ResultMessage: r.ResultMessage,
				Date:          key.date,
			}
			counts[key] = b
			order = append(order, key)
		}
		b.Count++
	}
	out := make([]Bucket, 0, len(order))
	for _, key := range order {
		out = append(out, *counts[key])
	}
	return out
}

// Total sums bucket counts.
func Total(buckets []Bucket) int64 {
	var n int64
	for _, b := range buckets {
		n += b.Count
	}
	return n
}

// SortForBilling orders buckets within a billing tier: the success code
// first, then the remaining codes via CompareResultCodes, ties broken by
// message so the order is total.
func SortForBilling(buckets []Bucket) {
	sort.SliceStable(buckets, func(i, j int) bool {
		if c := CompareResultCodes(buckets[i].ResultCode, buckets[j].ResultCode); c != 0 {
			return c < 0
		}
		return buckets[i].ResultMessage < buckets[j].ResultMessage
	})
}

// SortForReconciliation orders date-grouped buckets: date descending, then
// authMode ascending, then the result-code comparator, then message.
func SortForReconciliation(buckets []Bucket) {
	sort.SliceStable(buckets, func(i, j int) bool {
		a, b := buckets[i], buckets[j]
		if a.Date != b.Date {
			return a.Date > b.Date
		}
		if a.AuthMode != b.AuthMode {
			return a.AuthMode < b.AuthMode
		}
		if c := CompareResultCodes(a.ResultCode, b.ResultCode); c != 0 {
			return c < 0
		}
		return a.ResultMessage < b.ResultMessage
	})
}
