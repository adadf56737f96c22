package customers

import (
	"context"
	"strconv"

	"github.com/ledgerline/ledgerline/internal/authz"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Service wraps customer master business rules.
type Service struct {
	repo  Repository
	audit *shared.AuditLogger
}

// NewService constructs a Service.
func NewService(repo Repository, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, audit: audit}
}

func (s *Service) List(ctx context.Context, actor authz.Principal, filters ListFilters) ([]Customer, int, error) {
	if err := authz.Require(actor.Role, authz.OpMasterView); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, actor authz.Principal, id int64) (Customer, error) {
	if err := authz.Require(actor.Role, authz.OpMasterView); err != nil {
		return Customer{}, err
	}
	if id <= 0 {
		return Customer{}, shared.Validationf("invalid customer id")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, actor authz.Principal, c Customer) (Customer, error) {
	if err := authz.Require(actor.Role, authz.OpMasterEdit); err != nil {
		return Customer{}, err
	}
	if err := s.validate(c); err != nil {
		return Customer{}, err
	}
	created, err := s.repo.Create(ctx, c)
	if err != nil {
		return Customer{}, err
	}
	s.recordAudit(ctx, actor, "customer.create", created.ID)
	return created, nil
}

func (s *Service) Update(ctx context.Context, actor authz.Principal, id int64, c Customer) error {
	if err := authz.Require(actor.Role, authz.OpMasterEdit); err != nil {
		return err
	}
	if id <= 0 {
		return shared.Validationf("invalid customer id")
	}
	if err := s.validate(c); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, id, c); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "customer.update", id)
	return nil
}

// Deactivate retires a customer; refused while outstanding bills remain.
func (s *Service) Deactivate(ctx context.Context, actor authz.Principal, id int64) error {
	if err := authz.Require(actor.Role, authz.OpMasterEdit); err != nil {
		return err
	}
	count, err := s.repo.OutstandingBillCount(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return shared.Conflictf("customer %d has %d outstanding bills", id, count)
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "customer.deactivate", id)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actor authz.Principal, action string, id int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   "customer",
		EntityID: strconv.FormatInt(id, 10),
	})
}
