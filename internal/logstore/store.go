// Package logstore reads organizations and authentication events from
// Postgres. Row fetches are memoized through the shared TTL cache so repeated
// dashboard queries within a window hit the database once.
package logstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/croftje/billingd/internal/aggregate"
	"github.com/croftje/billingd/internal/apperror"
	"github.com/croftje/billingd/internal/cache"
)

// Organization is one billable customer.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// identifierPattern mirrors the config-level check. The events table name is
// the only identifier spliced into SQL text, so it is re-validated here too.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store runs the row queries behind the reporting pipeline.
type Store struct {
	pool        *pgxpool.Pool
	cache       *cache.Store
	queryTTL    time.Duration
	eventsTable string

	// OnQuery, when set, observes every database round trip.
	OnQuery func(elapsed time.Duration, err error)
}

// NewStore validates the configurable events table name and returns a store.
func NewStore(pool *pgxpool.Pool, c *cache.Store, eventsTable string, queryTTL time.Duration) (*Store, error) {
	if !identifierPattern.MatchString(eventsTable) {
		return nil, fmt.Errorf("events table %q is not a plain SQL identifier", eventsTable)
	}
	return &Store{
		pool:        pool,
		cache:       c,
		queryTTL:    queryTTL,
		eventsTable: eventsTable,
	}, nil
}

// GetOrganization looks up one organization by id.
func (s *Store) GetOrganization(ctx context.Context, orgID string) (Organization, error) {
	const q = `SELECT org_id, org_name FROM organizations WHERE org_id = $1`

	var org Organization
	err := s.observe(func() error {
		return s.pool.QueryRow(ctx, q, orgID).Scan(&org.ID, &org.Name)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Organization{}, apperror.NotFound("organization %s not found", orgID)
		}
		return Organization{}, classify(err, "query organization")
	}
	return org, nil
}

// ListOrganizations returns all organizations ordered by name, memoized under
// the query TTL.
func (s *Store) ListOrganizations(ctx context.Context) ([]Organization, error) {
	const q = `SELECT org_id, org_name FROM organizations ORDER BY org_name, org_id`

	return cache.Memoize(ctx, s.cache, cache.Key("orgs", "list"), s.queryTTL, func(ctx context.Context) ([]Organization, error) {
		var orgs []Organization
		err := s.observe(func() error {
			rows, err := s.pool.Query(ctx, q)
			if err != nil {
				return err
			}
			defer rows.Close()
			for rows.Next() {
				var org Organization
				if err := rows.Scan(&org.ID, &org.Name); err != nil {
					return err
				}
				orgs = append(orgs, org)
			}
			return rows.Err()
		})
		if err != nil {
			return nil, classify(err, "query organizations")
		}
		return orgs, nil
	})
}

// EventsForOrg returns one organization's events within [start, end),
// memoized under the query TTL.
func (s *Store) EventsForOrg(ctx context.Context, orgID string, start, end time.Time) ([]aggregate.Record, error) {
	q := fmt.Sprintf(`SELECT e.org_id, o.org_name, e.auth_mode, e.result_code, e.result_msg, e.exec_start_time
FROM %s e
JOIN organizations o ON o.org_id = e.org_id
WHERE e.org_id = $1 AND e.exec_start_time >= $2 AND e.exec_start_time < $3
ORDER BY e.exec_start_time`, s.eventsTable)

	key := cache.Key("events", orgID, start.Unix(), end.Unix())
	return cache.Memoize(ctx, s.cache, key, s.queryTTL, func(ctx context.Context) ([]aggregate.Record, error) {
		return s.queryEvents(ctx, q, orgID, start, end)
	})
}

// EventsForAll returns every organization's events within [start, end),
// memoized under the query TTL. Used by the dashboard aggregations.
func (s *Store) EventsForAll(ctx context.Context, start, end time.Time) ([]aggregate.Record, error) {
	q := fmt.Sprintf(`SELECT e.org_id, o.org_name, e.auth_mode, e.result_code, e.result_msg, e.exec_start_time
FROM %s e
JOIN organizations o ON o.org_id = e.org_id
WHERE e.exec_start_time >= $1 AND e.exec_start_time < $2
ORDER BY e.exec_start_time`, s.eventsTable)

	key := cache.Key("events", "all", start.Unix(), end.Unix())
	return cache.Memoize(ctx, s.cache, key, s.queryTTL, func(ctx context.Context) ([]aggregate.Record, error) {
		return s.queryEvents(ctx, q, start, end)
	})
}

func (s *Store) queryEvents(ctx context.Context, q string, args ...any) ([]aggregate.Record, error) {
	var records []aggregate.Record
	err := s.observe(func() error {
		rows, err := s.pool.Query(ctx, q, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r aggregate.Record
			if err := rows.Scan(&r.OrgID, &r.OrgName, &r.AuthMode, &r.ResultCode, &r.ResultMessage, &r.ExecStart); err != nil {
				return err
			}
			records = append(records, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, classify(err, "query auth events")
	}
	return records, nil
}

func (s *Store) observe(fn func() error) error {
	start := time.Now()
	err := fn()
	if s.OnQuery != nil {
		s.OnQuery(time.Since(start), err)
	}
	return err
}

// classify tags database failures as upstream so handlers answer 502 and the
// memoizer never caches them.
func classify(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return apperror.Upstream(err, "%s (sqlstate %s)", op, pgErr.Code)
	}
	return apperror.Upstream(err, "%s", op)
}
