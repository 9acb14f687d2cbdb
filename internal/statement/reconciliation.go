package statement

import (
	"sort"
	"time"

	"github.com/croftje/billingd/internal/aggregate"
	"github.com/croftje/billingd/internal/apperror"
)

// ReconciliationItem is one date-grouped result line.
type ReconciliationItem struct {
	Date          string `json:"date"`
	AuthMode      string `json:"auth_mode"`
	ResultCode    string `json:"result_code"`
	ResultMessage string `json:"result_message"`
	Count         int64  `json:"count"`
	Valid         bool   `json:"valid"`
}

// SummaryDetail is a merged (code, message) count inside a mode summary.
type SummaryDetail struct {
	ResultCode    string `json:"result_code"`
	ResultMessage string `json:"result_message"`
	Count         int64  `json:"count"`
}

// ModeSummary totals one authentication mode over the full period,
// independent of pagination.
type ModeSummary struct {
	AuthMode string          `json:"auth_mode"`
	Total    int64           `json:"total"`
	Success  int64           `json:"success"`
	Fail     int64           `json:"fail"`
	Details  []SummaryDetail `json:"details"`
}

// Reconciliation is one page of the reconciliation view plus the
// pagination-independent summaries.
type Reconciliation struct {
	OrgID       string               `json:"org_id"`
	OrgName     string               `json:"org_name"`
	PeriodStart string               `json:"period_start"`
	PeriodEnd   string               `json:"period_end"`
	Items       []ReconciliationItem `json:"items"`
	Page        int                  `json:"page"`
	PageSize    int                  `json:"page_size"`
	TotalCount  int                  `json:"total_count"`
	TotalPages  int                  `json:"total_pages"`
	Summaries   []ModeSummary        `json:"summaries"`
	GeneratedAt string               `json:"generated_at"`
}

// ReconciliationInput carries everything BuildReconciliation needs. Buckets
// must be grouped with the date dimension.
type ReconciliationInput struct {
	OrgID       string
	OrgName     string
	PeriodStart string
	PeriodEnd   string
	Buckets     []aggregate.Bucket
	Validity    aggregate.Validity
	Page        int
	PageSize    int
	MaxPageSize int
	Now         time.Time
}

// BuildReconciliation sorts the date-grouped buckets, slices the requested
// page, and computes per-mode summaries over the full list. Pagination bounds
// are validated before any work: page starts at 1 and pageSize must be in
// [1, MaxPageSize]. A page past the end returns empty items, not an error.
func BuildReconciliation(in ReconciliationInput) (Reconciliation, error) {
	if in.Page < 1 {
		return Reconciliation{}, apperror.InvalidArgument("page must be >= 1, got %d", in.Page)
	}
	if in.PageSize < 1 || in.PageSize > in.MaxPageSize {
		return Reconciliation{}, apperror.InvalidArgument("page_size must be between 1 and %d, got %d", in.MaxPageSize, in.PageSize)
	}

	buckets := make([]aggregate.Bucket, len(in.Buckets))
	copy(buckets, in.Buckets)
	aggregate.SortForReconciliation(buckets)

	totalCount := len(buckets)
	totalPages := (totalCount + in.PageSize - 1) / in.PageSize

	start := (in.Page - 1) * in.PageSize
	end := start + in.PageSize
	if start > totalCount {
		start = totalCount
	}
	if end > totalCount {
		end = totalCount
	}

	items := make([]ReconciliationItem, 0, end-start)
	for _, b := range buckets[start:end] {
		items = append(items, ReconciliationItem{
			Date:          b.Date,
			AuthMode:      b.AuthMode,
			ResultCode:    b.ResultCode,
			ResultMessage: b.ResultMessage,
			Count:         b.Count,
			Valid:         in.Validity.Valid(b.ResultCode),
		})
	}

	return Reconciliation{
		OrgID:       in.OrgID,
		OrgName:     in.OrgName,
		PeriodStart: in.PeriodStart,
		PeriodEnd:   in.PeriodEnd,
		Items:       items,
		Page:        in.Page,
		PageSize:    in.PageSize,
		TotalCount:  totalCount,
		TotalPages:  totalPages,
		Summaries:   buildSummaries(buckets, in.Validity),
		GeneratedAt: in.Now.UTC().Format(time.RFC3339),
	}, nil
}

// buildSummaries totals each mode over the full bucket list so the summary
// never changes with the requested page. Duplicate (code, message) pairs from
// different dates merge into one detail line.
func buildSummaries(buckets []aggregate.Bucket, validity aggregate.Validity) []ModeSummary {
	type detailKey struct {
		code string
		msg  string
	}
	summaries := make(map[string]*ModeSummary)
	details := make(map[string]map[detailKey]int64)
	for _, b := range buckets {
		s, ok := summaries[b.AuthMode]
		if !ok {
			s = &ModeSummary{AuthMode: b.AuthMode}
			summaries[b.AuthMode] = s
			details[b.AuthMode] = make(map[detailKey]int64)
		}
		s.Total += b.Count
		if validity.Valid(b.ResultCode) {
			s.Success += b.Count
		}
		details[b.AuthMode][detailKey{code: b.ResultCode, msg: b.ResultMessage}] += b.Count
	}

	out := make([]ModeSummary, 0, len(summaries))
	for mode, s := range summaries {
		s.Fail = s.Total - s.Success
		for k, count := range details[mode] {
			s.Details = append(s.Details, SummaryDetail{
				ResultCode:    k.code,
				ResultMessage: k.msg,
				Count:         count,
			})
		}
		sort.Slice(s.Details, func(i, j int) bool {
			if c := aggregate.CompareResultCodes(s.Details[i].ResultCode, s.Details[j].ResultCode); c != 0 {
				return c < 0
			}
			return s.Details[i].ResultMessage < s.Details[j].ResultMessage
		})
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AuthMode < out[j].AuthMode })
	return out
}
