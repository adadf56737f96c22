package vendors

import (
	"context"
	"strconv"

	"github.com/ledgerline/ledgerline/internal/authz"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Service wraps vendor master business rules.
type Service struct {
	repo  Repository
	audit *shared.AuditLogger
}

// NewService constructs a Service.
func NewService(repo Repository, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, audit: audit}
}

func (s *Service) List(ctx context.Context, actor authz.Principal, filters ListFilters) ([]Vendor, int, error) {
	if err := authz.Require(actor.Role, authz.OpMasterView); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, actor authz.Principal, id int64) (Vendor, error) {
	if err := authz.Require(actor.Role, authz.OpMasterView); err != nil {
		return Vendor{}, err
	}
	if id <= 0 {
		return Vendor{}, shared.Validationf("invalid vendor id")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, actor authz.Principal, v Vendor) (Vendor, error) {
	if err := authz.Require(actor.Role, authz.OpMasterEdit); err != nil {
		return Vendor{}, err
	}
	if err := s.validate(v); err != nil {
		return Vendor{}, err
	}
	created, err := s.repo.Create(ctx, v)
	if err != nil {
		return Vendor{}, err
	}
	s.recordAudit(ctx, actor, "vendor.create", created.ID, nil)
	return created, nil
}

func (s *Service) Update(ctx context.Context, actor authz.Principal, id int64, v Vendor) error {
	if err := authz.Require(actor.Role, authz.OpMasterEdit); err != nil {
		return err
	}
	if id <= 0 {
		return shared.Validationf("invalid vendor id")
	}
	if err := s.validate(v); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, id, v); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "vendor.update", id, nil)
	return nil
}

// Deactivate retires a vendor. Refused while the vendor still has active,
// not fully settled bills.
func (s *Service) Deactivate(ctx context.Context, actor authz.Principal, id int64) error {
	if err := authz.Require(actor.Role, authz.OpMasterEdit); err != nil {
		return err
	}
	count, err := s.repo.OutstandingBillCount(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return shared.Conflictf("vendor %d has %d outstanding bills", id, count)
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "vendor.deactivate", id, nil)
	return nil
}

// Reactivate re-enables a previously deactivated vendor.
func (s *Service) Reactivate(ctx context.Context, actor authz.Principal, id int64) error {
	if err := authz.Require(actor.Role, authz.OpMasterEdit); err != nil {
		return err
	}
	if err := s.repo.SetActive(ctx, id, true); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "vendor.reactivate", id, nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actor authz.Principal, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   "vendor",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}
