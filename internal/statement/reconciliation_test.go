package statement

import (
	"testing"
	"time"

	"github.com/croftje/billingd/internal/aggregate"
	"github.com/croftje/billingd/internal/apperror"
)

func reconFixture(page, pageSize int) ReconciliationInput {
	return ReconciliationInput{
		OrgID:       "org-1",
		OrgName:     "Acme",
		PeriodStart: "2026-01-01",
		PeriodEnd:   "2026-01-31",
		Buckets: []aggregate.Bucket{
			{Date: "2026-01-09", AuthMode: aggregate.ModeTwoFactor, ResultCode: "0", ResultMessage: "success", Count: 10},
			{Date: "2026-01-09", AuthMode: aggregate.ModeTwoFactor, ResultCode: "210001", ResultMessage: "liveness", Count: 4},
			{Date: "2026-01-10", AuthMode: aggregate.ModeTwoFactor, ResultCode: "0", ResultMessage: "success", Count: 20},
			{Date: "2026-01-10", AuthMode: aggregate.ModeTwoFactor, ResultCode: "210001", ResultMessage: "liveness", Count: 2},
			{Date: "2026-01-10", AuthMode: aggregate.ModeThreeFactor, ResultCode: "0", ResultMessage: "success", Count: 8},
			{Date: "2026-01-10", AuthMode: aggregate.ModeThreeFactor, ResultCode: "999999", ResultMessage: "internal", Count: 1},
		},
		Validity:    testValidity,
		Page:        page,
		PageSize:    pageSize,
		MaxPageSize: 100,
		Now:         time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestBuildReconciliationPageBounds(t *testing.T) {
	if _, err := BuildReconciliation(reconFixture(0, 20)); !apperror.Is(err, apperror.CategoryInvalidArgument) {
		t.Fatalf("page=0 must be invalid_argument, got %v", err)
	}
	if _, err := BuildReconciliation(reconFixture(1, 0)); !apperror.Is(err, apperror.CategoryInvalidArgument) {
		t.Fatalf("page_size=0 must be invalid_argument, got %v", err)
	}
	if _, err := BuildReconciliation(reconFixture(1, 101)); !apperror.Is(err, apperror.CategoryInvalidArgument) {
		t.Fatalf("page_size=101 must be invalid_argument, got %v", err)
	}
}

func TestBuildReconciliationOrdering(t *testing.T) {
	r, err := BuildReconciliation(reconFixture(1, 20))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if r.TotalCount != 6 || r.TotalPages != 1 {
		t.Fatalf("unexpected totals: count=%d pages=%d", r.TotalCount, r.TotalPages)
	}
	first := r.Items[0]
	if first.Date != "2026-01-10" || first.AuthMode != aggregate.ModeTwoFactor || first.ResultCode != "0" {
		t.Fatalf("unexpected first item %+v", first)
	}
	last := r.Items[len(r.Items)-1]
	if last.Date != "2026-01-09" {
		t.Fatalf("expected oldest date last, got %+v", last)
	}
}

func TestBuildReconciliationPagesPartitionTheList(t *testing.T) {
	var seen []ReconciliationItem
	for page := 1; ; page++ {
		r, err := BuildReconciliation(reconFixture(page, 2))
		if err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		if r.TotalPages != 3 {
			t.Fatalf("expected 3 pages of 2, got %d", r.TotalPages)
		}
		if len(r.Items) == 0 {
			break
		}
		seen = append(seen, r.Items...)
	}
	if len(seen) != 6 {
		t.Fatalf("pages must cover every item exactly once, saw %d of 6", len(seen))
	}

	full, err := BuildReconciliation(reconFixture(1, 20))
	if err != nil {
		t.Fatalf("full page: %v", err)
	}
	for i := range full.Items {
		if seen[i] != full.Items[i] {
			t.Fatalf("concatenated pages diverge at %d: %+v vs %+v", i, seen[i], full.Items[i])
		}
	}
}

func TestBuildReconciliationSummaryIndependentOfPage(t *testing.T) {
	page1, err := BuildReconciliation(reconFixture(1, 2))
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	page3, err := BuildReconciliation(reconFixture(3, 2))
	if err != nil {
		t.Fatalf("page 3: %v", err)
	}
	if len(page1.Summaries) != 2 || len(page3.Summaries) != 2 {
		t.Fatalf("expected two mode summaries on every page")
	}
	for i := range page1.Summaries {
		a, b := page1.Summaries[i], page3.Summaries[i]
		if a.AuthMode != b.AuthMode || a.Total != b.Total || a.Success != b.Success || a.Fail != b.Fail {
			t.Fatalf("summary changed between pages: %+v vs %+v", a, b)
		}
	}

	two := page1.Summaries[0]
	if two.AuthMode != aggregate.ModeTwoFactor {
		t.Fatalf("expected 0x40 summary first, got %q", two.AuthMode)
	}
	if two.Total != 36 || two.Success != 36 || two.Fail != 0 {
		t.Fatalf("unexpected two-factor summary %+v", two)
	}
	three := page1.Summaries[1]
	if three.Total != 9 || three.Success != 8 || three.Fail != 1 {
		t.Fatalf("unexpected three-factor summary %+v", three)
	}
}

func TestBuildReconciliationSummaryMergesDetails(t *testing.T) {
	r, err := BuildReconciliation(reconFixture(1, 20))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	two := r.Summaries[0]
	// "0"/success and "210001"/liveness each appear on two dates; the
	// summary must fold them into one detail line with added counts.
	if len(two.Details) != 2 {
		t.Fatalf("expected 2 merged detail lines, got %d", len(two.Details))
	}
	if two.Details[0].ResultCode != "0" || two.Details[0].Count != 30 {
		t.Fatalf("unexpected merged success detail %+v", two.Details[0])
	}
	if two.Details[1].ResultCode != "210001" || two.Details[1].Count != 6 {
		t.Fatalf("unexpected merged failure detail %+v", two.Details[1])
	}
}

func TestBuildReconciliationPagePastEnd(t *testing.T) {
	r, err := BuildReconciliation(reconFixture(50, 20))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(r.Items) != 0 {
		t.Fatalf("expected empty items past the end, got %d", len(r.Items))
	}
	if r.TotalCount != 6 {
		t.Fatalf("totals must still reflect the full list, got %d", r.TotalCount)
	}
}

func TestBuildReconciliationEmptyPeriod(t *testing.T) {
	in := reconFixture(1, 20)
	in.Buckets = nil
	r, err := BuildReconciliation(in)
	if err != nil {
		t.Fatalf("empty period must succeed, got %v", err)
	}
	if r.TotalCount != 0 || r.TotalPages != 0 || len(r.Items) != 0 || len(r.Summaries) != 0 {
		t.Fatalf("expected zeroed page, got %+v", r)
	}
}
