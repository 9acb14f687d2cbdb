// Package billing turns an organization's event log into a priced billing
// statement for a requested period.
package billing

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

// PreviewRequest describes one billing preview. Prices are per valid call in
// minor currency units.
type PreviewRequest struct {
	OrgID            string
	PeriodStart      string
	PeriodEnd        string
	TwoFactorPrice   int64
	ThreeFactorPrice int64
}

// Service builds billing statements and caches them whole.
type Service struct {
	store    Store
	cache    *cache.Store
	validity aggregate.Validity
	loc      *time.Location
	ttl      time.Duration
	metrics  *observability.Provider
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(store Store, c *cache.Store, validity aggregate.Validity, loc *time.Location, ttl time.Duration, metrics *observability.Provider, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		cache:    c,
		validity: validity,
		loc:      timeutil.EnsureLocation(loc),
		ttl:      ttl,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Preview validates the request, fetches the organization's events for the
// period, and builds the statement. Finished statements are cached under a
// key that includes the prices, so a price change is never answered from a
// stale entry.
func (s *Service) Preview(ctx context.Context, req PreviewRequest) (statement.Billing, error) {
	if strings.TrimSpace(req.OrgID) == "" {
		return statement.Billing{}, apperror.InvalidArgument("org_id is required")
	}
	if req.TwoFactorPrice < 0 || req.ThreeFactorPrice < 0 {
		return statement.Billing{}, apperror.InvalidArgument("prices must be >= 0")
	}
	window, err := timeutil.ParseDateRange(req.PeriodStart, req.PeriodEnd, s.loc)
	if err != nil {
		return statement.Billing{}, apperror.InvalidArgument("invalid period %q..%q", req.PeriodStart, req.PeriodEnd)
	}

	org, err := s.store.GetOrganization(ctx, req.OrgID)
	if err != nil {
		return statement.Billing{}, err
	}

	key := cache.Key("bill-preview", org.ID, window.Label(), req.TwoFactorPrice, req.ThreeFactorPrice)
	return cache.Memoize(ctx, s.cache, key, s.ttl, func(ctx context.Context) (statement.Billing, error) {
		start, end := window.Bounds()
		records, err := s.store.EventsForOrg(ctx, org.ID, start, end)
		if err != nil {
			return statement.Billing{}, err
		}

		buckets := aggregate.Group(records, aggregate.Options{})
		built := statement.BuildBilling(statement.BillingInput{
			OrgID:            org.ID,
			OrgName:          org.Name,
			PeriodStart:      req.PeriodStart,
			PeriodEnd:        req.PeriodEnd,
			Buckets:          buckets,
			Validity:         s.validity,
			TwoFactorPrice:   req.TwoFactorPrice,
			ThreeFactorPrice: req.ThreeFactorPrice,
			Now:              s.now(),
		})

		s.metrics.RecordStatement("billing")
		s.logger.Info("billing preview built",
			slog.String("org_id", org.ID),
			slog.String("period", window.Label()),
			slog.Int64("valid_count", built.TotalValidCount),
			slog.String("total_amount", built.TotalAmount.StringFixed(2)))
		return built, nil
	})
}
