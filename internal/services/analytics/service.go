// Package analytics serves the dashboard aggregations: per-organization
// totals and the valid/invalid call series for a calendar period. It reuses
// the same validity allow-list as billing, so the dashboard's valid counts
// can never disagree with an invoice.
package analytics

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/croftje/billingd/internal/aggregate"
	"github.com/croftje/billingd/internal/apperror"
	"github.com/croftje/billingd/internal/cache"
	"github.com/croftje/billingd/internal/logstore"
	"github.com/croftje/billingd/internal/timeutil"
)

// Store is the slice of the log store this service reads.
type Store interface {
	ListOrganizations(ctx context.Context) ([]logstore.Organization, error)
	EventsForOrg(ctx context.Context, orgID string, start, end time.Time) ([]aggregate.Record, error)
	EventsForAll(ctx context.Context, start, end time.Time) ([]aggregate.Record, error)
}

// OrgStat is one organization's totals for the requested period.
type OrgStat struct {
	OrgID        string  `json:"org_id"`
	OrgName      string  `json:"org_name"`
	Total        int64   `json:"total"`
	Valid        int64   `json:"valid"`
	Invalid      int64   `json:"invalid"`
	ValidPercent float64 `json:"valid_percent"`
}

// OrgStatsResponse lists per-organization totals, busiest first.
type OrgStatsResponse struct {
	Period      string    `json:"period"`
	Date        string    `json:"date"`
	Timezone    string    `json:"timezone"`
	Stats       []OrgStat `json:"stats"`
	GeneratedAt string    `json:"generated_at"`
}

// SeriesPoint is one time bucket of the call series.
type SeriesPoint struct {
	Bucket  string `json:"bucket"`
	Valid   int64  `json:"valid"`
	Invalid int64  `json:"invalid"`
}

// CodeCount is one result code's share of the period.
type CodeCount struct {
	ResultCode    string `json:"result_code"`
	ResultMessage string `json:"result_message"`
	Count         int64  `json:"count"`
}

// CallStatsResponse is the call series plus its summary.
type CallStatsResponse struct {
	Period       string        `json:"period"`
	Date         string        `json:"date"`
	OrgID        string        `json:"org_id,omitempty"`
	Timezone     string        `json:"timezone"`
	Points       []SeriesPoint `json:"points"`
	TotalValid   int64         `json:"total_valid"`
	TotalInvalid int64         `json:"total_invalid"`
	TopCodes     []CodeCount   `json:"top_codes"`
	GeneratedAt  string        `json:"generated_at"`
}

// RevenuePoint is one day's call volume.
type RevenuePoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// RevenueSummary compares the requested range against the equally long range
// immediately before it.
type RevenueSummary struct {
	Total         int64   `json:"total"`
	Change        int64   `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	DailyAverage  float64 `json:"daily_average"`
}

// RevenueTrendResponse is the by-date volume series with its summary.
type RevenueTrendResponse struct {
	PeriodStart string         `json:"period_start"`
	PeriodEnd   string         `json:"period_end"`
	Timezone    string         `json:"timezone"`
	ByDate      []RevenuePoint `json:"by_date"`
	Summary     RevenueSummary `json:"summary"`
	GeneratedAt string         `json:"generated_at"`
}

const topCodeLimit = 10

// Service computes the dashboard views.
type Service struct {
	store    Store
	cache    *cache.Store
	validity aggregate.Validity
	loc      *time.Location
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(store Store, c *cache.Store, validity aggregate.Validity, loc *time.Location, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		cache:    c,
		validity: validity,
		loc:      timeutil.EnsureLocation(loc),
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// Organizations lists every known organization.
func (s *Service) Organizations(ctx context.Context) ([]logstore.Organization, error) {
	return s.store.ListOrganizations(ctx)
}

// OrgStats totals every organization's calls within the period.
func (s *Service) OrgStats(ctx context.Context, periodRaw, date string) (OrgStatsResponse, error) {
	window, period, err := s.parseWindow(periodRaw, date)
	if err != nil {
		return OrgStatsResponse{}, err
	}

	key := cache.Key("org-stats", window.Label())
	return cache.Memoize(ctx, s.cache, key, s.ttl, func(ctx context.Context) (OrgStatsResponse, error) {
		start, end := window.Bounds()
		records, err := s.store.EventsForAll(ctx, start, end)
		if err != nil {
			return OrgStatsResponse{}, err
		}

		byOrg := make(map[string]*OrgStat)
		var order []string
		for _, r := range records {
			stat, ok := byOrg[r.OrgID]
			if !ok {
				stat = &OrgStat{OrgID: r.OrgID, OrgName: r.OrgName}
				byOrg[r.OrgID] = stat
				order = append(order, r.OrgID)
			}
			stat.Total++
			if s.validity.Valid(r.ResultCode) {
				stat.Valid++
			} else {
				stat.Invalid++
			}
		}

		stats := make([]OrgStat, 0, len(order))
		for _, id := range order {
			stat := byOrg[id]
			if stat.Total > 0 {
				stat.ValidPercent = float64(stat.Valid) / float64(stat.Total) * 100
			}
			stats = append(stats, *stat)
		}
		sort.SliceStable(stats, func(i, j int) bool {
			if stats[i].Total != stats[j].Total {
				return stats[i].Total > stats[j].Total
			}
			return stats[i].OrgName < stats[j].OrgName
		})

		return OrgStatsResponse{
			Period:      string(period),
			Date:        date,
			Timezone:    window.Timezone(),
			Stats:       stats,
			GeneratedAt: s.now().UTC().Format(time.RFC3339),
		}, nil
	})
}

// CallStats buckets the period's calls into a valid/invalid series with the
// most frequent result codes. An empty orgID covers all organizations.
func (s *Service) CallStats(ctx context.Context, periodRaw, date, orgID string) (CallStatsResponse, error) {
	window, period, err := s.parseWindow(periodRaw, date)
	if err != nil {
		return CallStatsResponse{}, err
	}
	orgID = strings.TrimSpace(orgID)

	key := cache.Key("call-stats", window.Label(), orgID)
	return cache.Memoize(ctx, s.cache, key, s.ttl, func(ctx context.Context) (CallStatsResponse, error) {
		start, end := window.Bounds()
		var records []aggregate.Record
		var err error
		if orgID == "" {
			records, err = s.store.EventsForAll(ctx, start, end)
		} else {
			records, err = s.store.EventsForOrg(ctx, orgID, start, end)
		}
		if err != nil {
			return CallStatsResponse{}, err
		}

		points := make(map[string]*SeriesPoint)
		type codeKey struct {
			code string
			msg  string
		}
		codes := make(map[codeKey]int64)
		var totalValid, totalInvalid int64
		for _, r := range records {
			bucket := timeutil.BucketLabel(r.ExecStart, period, s.loc)
			p, ok := points[bucket]
			if !ok {
				p = &SeriesPoint{Bucket: bucket}
				points[bucket] = p
			}
			if s.validity.Valid(r.ResultCode) {
				p.Valid++
				totalValid++
			} else {
				p.Invalid++
				totalInvalid++
			}
			codes[codeKey{code: r.ResultCode, msg: r.ResultMessage}]++
		}

		series := make([]SeriesPoint, 0, len(points))
		for _, p := range points {
			series = append(series, *p)
		}
		sort.Slice(series, func(i, j int) bool { return series[i].Bucket < series[j].Bucket })

		top := make([]CodeCount, 0, len(codes))
		for k, count := range codes {
			top = append(top, CodeCount{ResultCode: k.code, ResultMessage: k.msg, Count: count})
		}
		sort.Slice(top, func(i, j int) bool {
			if top[i].Count != top[j].Count {
				return top[i].Count > top[j].Count
			}
			return aggregate.CompareResultCodes(top[i].ResultCode, top[j].ResultCode) < 0
		})
		if len(top) > topCodeLimit {
			top = top[:topCodeLimit]
		}

		return CallStatsResponse{
			Period:       string(period),
			Date:         date,
			OrgID:        orgID,
			Timezone:     window.Timezone(),
			Points:       series,
			TotalValid:   totalValid,
			TotalInvalid: totalInvalid,
			TopCodes:     top,
			GeneratedAt:  s.now().UTC().Format(time.RFC3339),
		}, nil
	})
}

// RevenueTrend counts daily call volume across an inclusive date range and
// compares the range against the equally long range immediately before it.
// A range with no prior traffic reports a 100 percent change.
func (s *Service) RevenueTrend(ctx context.Context, startDate, endDate string) (RevenueTrendResponse, error) {
	window, err := timeutil.ParseDateRange(startDate, endDate, s.loc)
	if err != nil {
		return RevenueTrendResponse{}, apperror.InvalidArgument("invalid period %q..%q", startDate, endDate)
	}

	key := cache.Key("revenue", window.Label())
	return cache.Memoize(ctx, s.cache, key, s.ttl, func(ctx context.Context) (RevenueTrendResponse, error) {
		start, end := window.Bounds()
		records, err := s.store.EventsForAll(ctx, start, end)
		if err != nil {
			return RevenueTrendResponse{}, err
		}
		prevRecords, err := s.store.EventsForAll(ctx, start.Add(-end.Sub(start)), start)
		if err != nil {
			return RevenueTrendResponse{}, err
		}

		counts := make(map[string]int64)
		for _, r := range records {
			counts[timeutil.DayLabel(r.ExecStart, s.loc)]++
		}
		byDate := make([]RevenuePoint, 0, len(counts))
		for date, n := range counts {
			byDate = append(byDate, RevenuePoint{Date: date, Count: n})
		}
		sort.Slice(byDate, func(i, j int) bool { return byDate[i].Date < byDate[j].Date })

		total := int64(len(records))
		previous := int64(len(prevRecords))
		change := total - previous
		changePercent := 100.0
		if previous != 0 {
			changePercent = float64(change) / float64(previous) * 100
		}
		var average float64
		if len(byDate) > 0 {
			average = float64(total) / float64(len(byDate))
		}

		return RevenueTrendResponse{
			PeriodStart: startDate,
			PeriodEnd:   endDate,
			Timezone:    window.Timezone(),
			ByDate:      byDate,
			Summary: RevenueSummary{
				Total:         total,
				Change:        change,
				ChangePercent: round2(changePercent),
				DailyAverage:  round2(average),
			},
			GeneratedAt: s.now().UTC().Format(time.RFC3339),
		}, nil
	})
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }

func (s *Service) parseWindow(periodRaw, date string) (timeutil.Window, timeutil.Period, error) {
	period, err := timeutil.ParsePeriod(periodRaw)
	if err != nil {
		return timeutil.Window{}, "", apperror.InvalidArgument("period must be year, month, or day")
	}
	window, err := timeutil.PeriodWindow(period, date, s.loc)
	if err != nil {
		return timeutil.Window{}, "", apperror.InvalidArgument("invalid date %q for period %q", date, period)
	}
	return window, period, nil
}
