package vendors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/authz"
	"github.com/ledgerline/ledgerline/internal/shared"
)

type memoryRepo struct {
	vendors     map[int64]Vendor
	outstanding map[int64]int
	nextID      int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{vendors: map[int64]Vendor{}, outstanding: map[int64]int{}, nextID: 1}
}

func (r *memoryRepo) List(ctx context.Context, filters ListFilters) ([]Vendor, int, error) {
	out := make([]Vendor, 0, len(r.vendors))
	for _, v := range r.vendors {
		if filters.ActiveOnly && !v.IsActive {
			continue
		}
		out = append(out, v)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Vendor, error) {
	v, ok := r.vendors[id]
	if !ok {
		return Vendor{}, shared.NotFoundf("vendor %d not found", id)
	}
	return v, nil
}

func (r *memoryRepo) Create(ctx context.Context, v Vendor) (Vendor, error) {
	v.ID = r.nextID
	r.nextID++
	v.IsActive = true
	r.vendors[v.ID] = v
	return v, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, v Vendor) error {
	cur, ok := r.vendors[id]
	if !ok {
		return shared.NotFoundf("vendor %d not found", id)
	}
	v.ID = cur.ID
	v.IsActive = cur.IsActive
	r.vendors[id] = v
	return nil
}

func (r *memoryRepo) SetActive(ctx context.Context, id int64, active bool) error {
	v, ok := r.vendors[id]
	if !ok {
		return shared.NotFoundf("vendor %d not found", id)
	}
	v.IsActive = active
	r.vendors[id] = v
	return nil
}

func (r *memoryRepo) OutstandingBillCount(ctx context.Context, id int64) (int, error) {
	return r.outstanding[id], nil
}

var (
	owner  = authz.Principal{UserID: 1, Role: authz.RoleOwner}
	godown = authz.Principal{UserID: 40, Role: authz.RoleGodown}
)

func TestCreateValidatesRequiredFields(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.Create(context.Background(), owner, Vendor{Code: "", Name: "", CreditDays: 400})
	require.True(t, shared.IsKind(err, shared.KindValidation))

	created, err := svc.Create(context.Background(), owner, Vendor{Code: "VND-001", Name: "Shree Traders", CreditDays: 30})
	require.NoError(t, err)
	require.True(t, created.IsActive)
	require.NotZero(t, created.ID)
}

func TestCreateRequiresOwner(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.Create(context.Background(), godown, Vendor{Code: "VND-001", Name: "Shree Traders"})
	require.True(t, shared.IsKind(err, shared.KindAuthorization))
}

func TestDeactivateRefusedWithOutstandingBills(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	created, err := svc.Create(context.Background(), owner, Vendor{Code: "VND-001", Name: "Shree Traders"})
	require.NoError(t, err)

	repo.outstanding[created.ID] = 2
	err = svc.Deactivate(context.Background(), owner, created.ID)
	require.True(t, shared.IsKind(err, shared.KindConflict))

	repo.outstanding[created.ID] = 0
	require.NoError(t, svc.Deactivate(context.Background(), owner, created.ID))

	got, err := svc.Get(context.Background(), owner, created.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)

	require.NoError(t, svc.Reactivate(context.Background(), owner, created.ID))
	got, err = svc.Get(context.Background(), owner, created.ID)
	require.NoError(t, err)
	require.True(t, got.IsActive)
}
