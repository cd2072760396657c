// Package registry is the catalog of allocatable units: the fixed numbered
// ticket range and the named continuous resources.
package registry

import (
	"context"
	"time"

	"github.com/garageops/reserva/internal/domain"
	"github.com/garageops/reserva/internal/ledger"
)

type Registry struct {
	ledger        ledger.Ledger
	inventorySize int
}

// New builds a registry over the given ledger. inventorySize is the fixed
// upper bound of the ticket range [1, N], read once from configuration.
func New(led ledger.Ledger, inventorySize int) *Registry {
	return &Registry{ledger: led, inventorySize: inventorySize}
}

func (r *Registry) InventorySize() int {
	return r.inventorySize
}

// TicketInRange reports whether n is a mintable ticket number.
func (r *Registry) TicketInRange(n int) bool {
	return n >= 1 && n <= r.inventorySize
}

func (r *Registry) ListResources(ctx context.Context) ([]domain.Resource, error) {
	return r.ledger.ListResources(ctx)
}

func (r *Registry) Resource(ctx context.Context, id string) (domain.Resource, error) {
	return r.ledger.GetResource(ctx, id)
}

func (r *Registry) CreateResource(ctx context.Context, res domain.Resource) (domain.Resource, error) {
	if res.ID == "" || res.Name == "" {
		return domain.Resource{}, domain.Validationf("resource id and name required")
	}
	if res.Status != "" {
		if err := validStatus(res.Status); err != nil {
			return domain.Resource{}, err
		}
	}
	return r.ledger.CreateResource(ctx, res)
}

func (r *Registry) UpdateResource(ctx context.Context, res domain.Resource) (domain.Resource, error) {
	if res.ID == "" {
		return domain.Resource{}, domain.Validationf("resource id required")
	}
	if err := validStatus(res.Status); err != nil {
		return domain.Resource{}, err
	}
	return r.ledger.UpdateResource(ctx, res)
}

func validStatus(s domain.ResourceStatus) error {
	switch s {
	case domain.ResourceStatusAvailable, domain.ResourceStatusUnavailable, domain.ResourceStatusRetired:
		return nil
	}
	return domain.Validationf("invalid resource status %q", s)
}

// ArchiveResource retires a resource. Existing claims stay on record; new
// allocations and grid cells treat it as blocked.
func (r *Registry) ArchiveResource(ctx context.Context, id string) (domain.Resource, error) {
	res, err := r.ledger.GetResource(ctx, id)
	if err != nil {
		return domain.Resource{}, err
	}
	res.Status = domain.ResourceStatusRetired
	return r.ledger.UpdateResource(ctx, res)
}

// AdministrativelyUnavailable reports whether the resource is manually
// blocked on the given day. The manual block interval is CLOSED on both
// ends, unlike booking intervals: a block with from == until == D blocks
// exactly day D. An unavailable resource with no interval set is blocked on
// every day, and a retired resource is always blocked.
func AdministrativelyUnavailable(res domain.Resource, day time.Time) bool {
	switch res.Status {
	case domain.ResourceStatusRetired:
		return true
	case domain.ResourceStatusUnavailable:
	default:
		return false
	}

	if res.UnavailableFrom == nil && res.UnavailableUntil == nil {
		return true
	}

	d := truncateToDay(day)
	if res.UnavailableFrom != nil && d.Before(truncateToDay(*res.UnavailableFrom)) {
		return false
	}
	if res.UnavailableUntil != nil && d.After(truncateToDay(*res.UnavailableUntil)) {
		return false
	}
	return true
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
