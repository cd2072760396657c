// Package ledger is the durable record of claims. The storage layer owns the
// uniqueness and overlap invariants; Commit is the only operation that can
// take a unit, and it reports domain.ErrClaimConflict when another actor
// already holds it.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/garageops/reserva/internal/domain"
)

type Ledger interface {
	// TicketTaken reports whether a non-cancelled claim references ticketNo.
	TicketTaken(ctx context.Context, ticketNo int) (bool, error)

	// Overlapping returns non-cancelled booking claims on resourceID whose
	// half-open intervals intersect [start, end).
	Overlapping(ctx context.Context, resourceID string, start, end time.Time) ([]domain.Claim, error)

	// Commit atomically records a claim. It returns domain.ErrClaimConflict
	// when the unit or interval is already held, distinguishable from every
	// other failure.
	Commit(ctx context.Context, claim domain.Claim) (domain.Claim, error)

	// CancelClaim releases a claim's unit. Cancelling an already-cancelled
	// claim is a no-op returning the current record.
	CancelClaim(ctx context.Context, id uuid.UUID) (domain.Claim, error)

	// DeleteClaim removes a claim and its history. Administrative override,
	// distinct from cancellation.
	DeleteClaim(ctx context.Context, id uuid.UUID) error

	GetClaim(ctx context.Context, id uuid.UUID) (domain.Claim, error)
	ListTicketClaims(ctx context.Context) ([]domain.Claim, error)

	// BookingsInRange returns non-cancelled booking claims overlapping
	// [from, to), across all resources. Feed for the availability grid.
	BookingsInRange(ctx context.Context, from, to time.Time) ([]domain.Claim, error)

	ListResources(ctx context.Context) ([]domain.Resource, error)
	GetResource(ctx context.Context, id string) (domain.Resource, error)
	CreateResource(ctx context.Context, res domain.Resource) (domain.Resource, error)
	UpdateResource(ctx context.Context, res domain.Resource) (domain.Resource, error)

	Ping(ctx context.Context) error
}
