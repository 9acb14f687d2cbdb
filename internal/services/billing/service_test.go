package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/croftje/billingd/internal/aggregate"
	"github.com/croftje/billingd/internal/apperror"
	"github.com/croftje/billingd/internal/cache"
	"github.com/croftje/billingd/internal/logstore"
)

type fakeStore struct {
	orgs       map[string]logstore.Organization
	records    []aggregate.Record
	eventCalls int
	orgCalls   int
	fail       error
}

func (f *fakeStore) GetOrganization(ctx context.Context, orgID string) (logstore.Organization, error) {
	f.orgCalls++
	org, ok := f.orgs[orgID]
	if !ok {
		return logstore.Organization{}, apperror.NotFound("organization %s not found", orgID)
	}
	return org, nil
}

func (f *fakeStore) EventsForOrg(ctx context.Context, orgID string, start, end time.Time) ([]aggregate.Record, error) {
	f.eventCalls++
	if f.fail != nil {
		return nil, f.fail
	}
	var out []aggregate.Record
	for _, r := range f.records {
		if r.OrgID == orgID && !r.ExecStart.Before(start) && r.ExecStart.Before(end) {
			out = append(out, r)
		}
	}
	return out, nil
}

func newTestService(store *fakeStore) *Service {
	validity := aggregate.NewValidity([]string{"0", "210001"})
	return NewService(store, cache.NewStore(), validity, time.UTC, time.Hour, nil, nil)
}

func testStore() *fakeStore {
	ts := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	records := make([]aggregate.Record, 0, 1000)
	for i := 0; i < 1000; i++ {
		records = append(records, aggregate.Record{
			OrgID:         "org-1",
			OrgName:       "Acme",
			AuthMode:      aggregate.ModeTwoFactor,
			ResultCode:    "0",
			ResultMessage: "success",
			ExecStart:     ts.Add(time.Duration(i) * time.Minute),
		})
	}
	return &fakeStore{
		orgs:    map[string]logstore.Organization{"org-1": {ID: "org-1", Name: "Acme"}},
		records: records,
	}
}

func previewRequest() PreviewRequest {
	return PreviewRequest{
		OrgID:            "org-1",
		PeriodStart:      "2026-01-01",
		PeriodEnd:        "2026-01-31",
		TwoFactorPrice:   140,
		ThreeFactorPrice: 180,
	}
}

func TestPreviewBuildsStatement(t *testing.T) {
	svc := newTestService(testStore())

	b, err := svc.Preview(context.Background(), previewRequest())
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if b.OrgName != "Acme" {
		t.Fatalf("unexpected org name %q", b.OrgName)
	}
	if b.TwoFactor.ValidTotal != 1000 {
		t.Fatalf("valid total = %d, want 1000", b.TwoFactor.ValidTotal)
	}
	if got := b.TotalAmount.StringFixed(2); got != "1400.00" {
		t.Fatalf("total amount = %s, want 1400.00", got)
	}
}

func TestPreviewCachesStatement(t *testing.T) {
	store := testStore()
	svc := newTestService(store)
	ctx := context.Background()

	first, err := svc.Preview(ctx, previewRequest())
	if err != nil {
		t.Fatalf("first preview: %v", err)
	}
	second, err := svc.Preview(ctx, previewRequest())
	if err != nil {
		t.Fatalf("second preview: %v", err)
	}
	if store.eventCalls != 1 {
		t.Fatalf("expected one event fetch, got %d", store.eventCalls)
	}
	if first.ID != second.ID {
		t.Fatal("cached preview must be returned verbatim")
	}
}

func TestPreviewPriceChangeMissesCache(t *testing.T) {
	store := testStore()
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.Preview(ctx, previewRequest()); err != nil {
		t.Fatalf("first preview: %v", err)
	}
	req := previewRequest()
	req.TwoFactorPrice = 150
	b, err := svc.Preview(ctx, req)
	if err != nil {
		t.Fatalf("repriced preview: %v", err)
	}
	if store.eventCalls != 2 {
		t.Fatalf("expected repriced preview recomputed, event calls = %d", store.eventCalls)
	}
	if got := b.TotalAmount.StringFixed(2); got != "1500.00" {
		t.Fatalf("repriced amount = %s, want 1500.00", got)
	}
}

func TestPreviewUnknownOrg(t *testing.T) {
	svc := newTestService(testStore())
	req := previewRequest()
	req.OrgID = "nope"
	if _, err := svc.Preview(context.Background(), req); !apperror.Is(err, apperror.CategoryNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestPreviewInvalidInputRejectedBeforeFetch(t *testing.T) {
	store := testStore()
	svc := newTestService(store)
	ctx := context.Background()

	cases := []PreviewRequest{
		{OrgID: "", PeriodStart: "2026-01-01", PeriodEnd: "2026-01-31", TwoFactorPrice: 1, ThreeFactorPrice: 1},
		{OrgID: "org-1", PeriodStart: "not-a-date", PeriodEnd: "2026-01-31", TwoFactorPrice: 1, ThreeFactorPrice: 1},
		{OrgID: "org-1", PeriodStart: "2026-02-01", PeriodEnd: "2026-01-01", TwoFactorPrice: 1, ThreeFactorPrice: 1},
		{OrgID: "org-1", PeriodStart: "2026-01-01", PeriodEnd: "2026-01-31", TwoFactorPrice: -1, ThreeFactorPrice: 1},
	}
	for _, req := range cases {
		if _, err := svc.Preview(ctx, req); !apperror.Is(err, apperror.CategoryInvalidArgument) {
			t.Fatalf("expected invalid_argument for %+v, got %v", req, err)
		}
	}
	if store.orgCalls != 0 || store.eventCalls != 0 {
		t.Fatalf("invalid requests must not reach the store: org=%d events=%d", store.orgCalls, store.eventCalls)
	}
}

func TestPreviewUpstreamFailureNotCached(t *testing.T) {
	store := testStore()
	boom := apperror.Upstream(errors.New("connection reset"), "query auth events")
	store.fail = boom
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.Preview(ctx, previewRequest()); !apperror.Is(err, apperror.CategoryUpstreamFailure) {
		t.Fatalf("expected upstream_failure, got %v", err)
	}

	store.fail = nil
	b, err := svc.Preview(ctx, previewRequest())
	if err != nil {
		t.Fatalf("recovery preview: %v", err)
	}
	if store.eventCalls != 2 {
		t.Fatalf("failure must not be cached, event calls = %d", store.eventCalls)
	}
	if b.TwoFactor.ValidTotal != 1000 {
		t.Fatalf("unexpected recovered statement %+v", b.TwoFactor)
	}
}

func TestPreviewEmptyPeriodSucceeds(t *testing.T) {
	svc := newTestService(testStore())
	req := previewRequest()
	req.PeriodStart = "2025-06-01"
	req.PeriodEnd = "2025-06-30"

	b, err := svc.Preview(context.Background(), req)
	if err != nil {
		t.Fatalf("empty period must succeed: %v", err)
	}
	if b.TotalValidCount != 0 || len(b.TwoFactor.Items) != 0 {
		t.Fatalf("expected zeroed statement, got %+v", b)
	}
}
