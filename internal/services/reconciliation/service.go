// Package reconciliation serves the paginated day-by-day view of an
// organization's authentication results.
package reconciliation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/croftje/billingd/internal/aggregate"
	"github.com/croftje/billingd/internal/apperror"
	"github.com/croftje/billingd/internal/cache"
	"github.com/croftje/billingd/internal/logstore"
	"github.com/croftje/billingd/internal/observability"
	"github.com/croftje/billingd/internal/statement"
	"github.com/croftje/billingd/internal/timeutil"
)

// Store is the slice of the log store this service reads.
type Store interface {
	GetOrganization(ctx context.Context, orgID string) (logstore.Organization, error)
	EventsForOrg(ctx context.Context, orgID string, start, end time.Time) ([]aggregate.Record, error)
}

// PageRequest describes one reconciliation page.
type PageRequest struct {
	OrgID       string
	PeriodStart string
	PeriodEnd   string
	Page        int
	PageSize    int
}

// Service builds reconciliation pages and caches each page whole.
type Service struct {
	store       Store
	cache       *cache.Store
	validity    aggregate.Validity
	loc         *time.Location
	ttl         time.Duration
	maxPageSize int
	metrics     *observability.Provider
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(store Store, c *cache.Store, validity aggregate.Validity, loc *time.Location, ttl time.Duration, maxPageSize int, metrics *observability.Provider, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:       store,
		cache:       c,
		validity:    validity,
		loc:         timeutil.EnsureLocation(loc),
		ttl:         ttl,
		maxPageSize: maxPageSize,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// Page validates the request (pagination bounds included, before any fetch),
// fetches the period's events, and assembles the requested page. The summary
// section always covers the full period regardless of the page asked for.
func (s *Service) Page(ctx context.Context, req PageRequest) (statement.Reconciliation, error) {
	if strings.TrimSpace(req.OrgID) == "" {
		return statement.Reconciliation{}, apperror.InvalidArgument("org_id is required")
	}
	if req.Page < 1 {
		return statement.Reconciliation{}, apperror.InvalidArgument("page must be >= 1, got %d", req.Page)
	}
	if req.PageSize < 1 || req.PageSize > s.maxPageSize {
		return statement.Reconciliation{}, apperror.InvalidArgument("page_size must be between 1 and %d, got %d", s.maxPageSize, req.PageSize)
	}
	window, err := timeutil.ParseDateRange(req.PeriodStart, req.PeriodEnd, s.loc)
	if err != nil {
		return statement.Reconciliation{}, apperror.InvalidArgument("invalid period %q..%q", req.PeriodStart, req.PeriodEnd)
	}

	org, err := s.store.GetOrganization(ctx, req.OrgID)
	if err != nil {
		return statement.Reconciliation{}, err
	}

	key := cache.Key("reconciliation", org.ID, window.Label(), req.Page, req.PageSize)
	return cache.Memoize(ctx, s.cache, key, s.ttl, func(ctx context.Context) (statement.Reconciliation, error) {
		start, end := window.Bounds()
		records, err := s.store.EventsForOrg(ctx, org.ID, start, end)
		if err != nil {
			return statement.Reconciliation{}, err
		}

		buckets := aggregate.Group(records, aggregate.Options{ByDate: true, Location: s.loc})
		page, err := statement.BuildReconciliation(statement.ReconciliationInput{
			OrgID:       org.ID,
			OrgName:     org.Name,
			PeriodStart: req.PeriodStart,
			PeriodEnd:   req.PeriodEnd,
			Buckets:     buckets,
			Validity:    s.validity,
			Page:        req.Page,
			PageSize:    req.PageSize,
			MaxPageSize: s.maxPageSize,
			Now:         s.now(),
		})
		if err != nil {
			return statement.Reconciliation{}, err
		}

		s.metrics.RecordStatement("reconciliation")
		s.logger.Info("reconciliation page built",
			slog.String("org_id", org.ID),
			slog.String("period", window.Label()),
			slog.Int("page", page.Page),
			slog.Int("total_count", page.TotalCount))
		return page, nil
	})
}
