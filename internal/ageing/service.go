package ageing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/ledgerline/ledgerline/internal/authz"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Service computes ageing reports. The dashboard summary is cached in redis
// with a short TTL and recomputed behind singleflight so a burst of
// dashboard loads costs one snapshot query.
type Service struct {
	repo  Repository
	cache *redis.Client
	ttl   time.Duration
	group singleflight.Group
}

// NewService constructs a Service. cache may be nil, in which case every
// summary is recomputed.
func NewService(repo Repository, cache *redis.Client, ttl time.Duration) *Service {
	return &Service{repo: repo, cache: cache, ttl: ttl}
}

func summaryKey(side Side, asOf time.Time) string {
	return fmt.Sprintf("ageing:summary:%s:%s", side, asOf.Format("2006-01-02"))
}

// Summary returns the global bucket totals of one side as of today.
func (s *Service) Summary(ctx context.Context, actor authz.Principal, side Side) (Report, error) {
	if err := authz.Require(actor.Role, authz.OpAgeingView); err != nil {
		return Report{}, err
	}
	if !side.Valid() {
		return Report{}, shared.Validationf("unknown ageing side %q", side)
	}
	return s.summary(ctx, side, time.Now())
}

// Warm precomputes and caches both summaries. The scheduled job calls it;
// results are discarded, only the cache fill matters.
func (s *Service) Warm(ctx context.Context) error {
	now := time.Now()
	for _, side := range []Side{SideReceivable, SidePayable} {
		if _, err := s.summary(ctx, side, now); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) summary(ctx context.Context, side Side, asOf time.Time) (Report, error) {
	key := summaryKey(side, asOf)

	if s.cache != nil {
		payload, err := s.cache.Get(ctx, key).Bytes()
		if err == nil {
			var cached Report
			if err := json.Unmarshal(payload, &cached); err == nil {
				return cached, nil
			}
		} else if err != redis.Nil {
			return Report{}, err
		}
	}

	value, err, _ := s.group.Do(key, func() (any, error) {
		rows, err := s.repo.OpenRows(ctx, side)
		if err != nil {
			return nil, err
		}
		report := BuildReport(side, rows, asOf)
		if s.cache != nil {
			if raw, err := json.Marshal(report); err == nil {
				_ = s.cache.Set(ctx, key, raw, s.ttl).Err()
			}
		}
		return report, nil
	})
	if err != nil {
		return Report{}, err
	}
	return value.(Report), nil
}

// Ledger returns per-counterparty ageing of one side, computed fresh from
// the snapshot.
func (s *Service) Ledger(ctx context.Context, actor authz.Principal, side Side) ([]CounterpartyAgeing, error) {
	if err := authz.Require(actor.Role, authz.OpAgeingView); err != nil {
		return nil, err
	}
	if !side.Valid() {
		return nil, shared.Validationf("unknown ageing side %q", side)
	}
	rows, err := s.repo.OpenRows(ctx, side)
	if err != nil {
		return nil, err
	}
	return BuildLedger(side, rows, time.Now()), nil
}
