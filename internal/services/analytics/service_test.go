package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/croftje/billingd/internal/aggregate"
	"github.com/croftje/billingd/internal/apperror"
	"github.com/croftje/billingd/internal/cache"
	"github.com/croftje/billingd/internal/logstore"
)

type fakeStore struct {
	orgs     []logstore.Organization
	records  []aggregate.Record
	allCalls int
	orgCalls int
}

func (f *fakeStore) ListOrganizations(ctx context.Context) ([]logstore.Organization, error) {
	return f.orgs, nil
}

func (f *fakeStore) EventsForAll(ctx context.Context, start, end time.Time) ([]aggregate.Record, error) {
	f.allCalls++
	var out []aggregate.Record
	for _, r := range f.records {
		if !r.ExecStart.Before(start) && r.ExecStart.Before(end) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) EventsForOrg(ctx context.Context, orgID string, start, end time.Time) ([]aggregate.Record, error) {
	f.orgCalls++
	var out []aggregate.Record
	for _, r := range f.records {
		if r.OrgID == orgID && !r.ExecStart.Before(start) && r.ExecStart.Before(end) {
			out = append(out, r)
		}
	}
	return out, nil
}

func testStore() *fakeStore {
	mk := func(org, name, code string, day, hour int) aggregate.Record {
		return aggregate.Record{
			OrgID: org, OrgName: name,
			AuthMode: aggregate.ModeTwoFactor, ResultCode: code, ResultMessage: "msg " + code,
			ExecStart: time.Date(2026, 3, day, hour, 0, 0, 0, time.UTC),
		}
	}
	return &fakeStore{
		orgs: []logstore.Organization{
			{ID: "org-1", Name: "Acme"},
			{ID: "org-2", Name: "Globex"},
		},
		records: []aggregate.Record{
			mk("org-1", "Acme", "0", 15, 9),
			mk("org-1", "Acme", "0", 15, 9),
			mk("org-1", "Acme", "999999", 15, 10),
			mk("org-2", "Globex", "0", 16, 11),
		},
	}
}

func newTestService(store *fakeStore) *Service {
	validity := aggregate.NewValidity([]string{"0"})
	return NewService(store, cache.NewStore(), validity, time.UTC, 10*time.Minute, nil)
}

func TestOrgStats(t *testing.T) {
	svc := newTestService(testStore())

	resp, err := svc.OrgStats(context.Background(), "month", "2026-03")
	require.NoError(t, err)
	require.Len(t, resp.Stats, 2)

	acme := resp.Stats[0]
	assert.Equal(t, "org-1", acme.OrgID, "busiest org first")
	assert.Equal(t, int64(3), acme.Total)
	assert.Equal(t, int64(2), acme.Valid)
	assert.Equal(t, int64(1), acme.Invalid)
	assert.InDelta(t, 66.66, acme.ValidPercent, 0.01)

	assert.Equal(t, "UTC", resp.Timezone)
	assert.Equal(t, "month", resp.Period)
}

func TestOrgStatsCached(t *testing.T) {
	store := testStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.OrgStats(ctx, "month", "2026-03")
	require.NoError(t, err)
	_, err = svc.OrgStats(ctx, "month", "2026-03")
	require.NoError(t, err)
	assert.Equal(t, 1, store.allCalls, "second request must be served from cache")
}

func TestCallStatsByOrg(t *testing.T) {
	store := testStore()
	svc := newTestService(store)

	resp, err := svc.CallStats(context.Background(), "month", "2026-03", "org-1")
	require.NoError(t, err)

	assert.Equal(t, int64(2), resp.TotalValid)
	assert.Equal(t, int64(1), resp.TotalInvalid)
	require.Len(t, resp.Points, 1)
	assert.Equal(t, "2026-03-15", resp.Points[0].Bucket)
	assert.Equal(t, int64(2), resp.Points[0].Valid)
	assert.Equal(t, int64(1), resp.Points[0].Invalid)

	require.Len(t, resp.TopCodes, 2)
	assert.Equal(t, "0", resp.TopCodes[0].ResultCode, "most frequent code first")
	assert.Equal(t, 1, store.orgCalls)
	assert.Equal(t, 0, store.allCalls)
}

func TestCallStatsDayPeriodBucketsByHour(t *testing.T) {
	svc := newTestService(testStore())

	resp, err := svc.CallStats(context.Background(), "day", "2026-03-15", "")
	require.NoError(t, err)
	require.Len(t, resp.Points, 2)
	assert.Equal(t, "09", resp.Points[0].Bucket)
	assert.Equal(t, "10", resp.Points[1].Bucket)
}

func TestRevenueTrendSeriesAndSummary(t *testing.T) {
	svc := newTestService(testStore())

	resp, err := svc.RevenueTrend(context.Background(), "2026-03-15", "2026-03-16")
	require.NoError(t, err)

	require.Len(t, resp.ByDate, 2)
	assert.Equal(t, "2026-03-15", resp.ByDate[0].Date)
	assert.Equal(t, int64(3), resp.ByDate[0].Count)
	assert.Equal(t, "2026-03-16", resp.ByDate[1].Date)
	assert.Equal(t, int64(1), resp.ByDate[1].Count)

	assert.Equal(t, int64(4), resp.Summary.Total)
	assert.Equal(t, int64(4), resp.Summary.Change, "no prior traffic means the whole total is growth")
	assert.InDelta(t, 100, resp.Summary.ChangePercent, 0.001)
	assert.InDelta(t, 2.0, resp.Summary.DailyAverage, 0.001)
}

func TestRevenueTrendComparesPreviousRange(t *testing.T) {
	svc := newTestService(testStore())

	// March 16 alone: one call, preceded by a one-day range with three.
	resp, err := svc.RevenueTrend(context.Background(), "2026-03-16", "2026-03-16")
	require.NoError(t, err)

	assert.Equal(t, int64(1), resp.Summary.Total)
	assert.Equal(t, int64(-2), resp.Summary.Change)
	assert.InDelta(t, -66.67, resp.Summary.ChangePercent, 0.001)
}

func TestRevenueTrendCached(t *testing.T) {
	store := testStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.RevenueTrend(ctx, "2026-03-15", "2026-03-16")
	require.NoError(t, err)
	_, err = svc.RevenueTrend(ctx, "2026-03-15", "2026-03-16")
	require.NoError(t, err)
	assert.Equal(t, 2, store.allCalls, "one computation fetches the range and its predecessor; repeats hit the cache")
}

func TestRevenueTrendInvalidRangeRejected(t *testing.T) {
	store := testStore()
	svc := newTestService(store)

	_, err := svc.RevenueTrend(context.Background(), "2026-03-16", "2026-03-15")
	assert.True(t, apperror.Is(err, apperror.CategoryInvalidArgument), "got %v", err)

	_, err = svc.RevenueTrend(context.Background(), "yesterday", "2026-03-16")
	assert.True(t, apperror.Is(err, apperror.CategoryInvalidArgument), "got %v", err)

	assert.Equal(t, 0, store.allCalls, "invalid ranges must not reach the store")
}

func TestInvalidPeriodRejected(t *testing.T) {
	svc := newTestService(testStore())

	_, err := svc.OrgStats(context.Background(), "quarter", "2026")
	assert.True(t, apperror.Is(err, apperror.CategoryInvalidArgument), "got %v", err)

	_, err = svc.CallStats(context.Background(), "month", "not-a-date", "")
	assert.True(t, apperror.Is(err, apperror.CategoryInvalidArgument), "got %v", err)
}

func TestOrganizations(t *testing.T) {
	svc := newTestService(testStore())
	orgs, err := svc.Organizations(context.Background())
	require.NoError(t, err)
	require.Len(t, orgs, 2)
}
