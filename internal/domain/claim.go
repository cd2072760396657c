package domain

import (
	"time"

	"github.com/google/uuid"
)

type ClaimKind string

const (
	// ClaimKindTicket references one numbered ticket from the fixed inventory.
	ClaimKindTicket ClaimKind = "ticket"
	// ClaimKindBooking references a half-open time interval on a named resource.
	ClaimKindBooking ClaimKind = "booking"
)

type ClaimStatus string

const (
	ClaimStatusPending   ClaimStatus = "pending"
	ClaimStatusConfirmed ClaimStatus = "confirmed"
	ClaimStatusActive    ClaimStatus = "active"
	ClaimStatusCompleted ClaimStatus = "completed"
	ClaimStatusCancelled ClaimStatus = "cancelled"
)

// Claimant identifies who a claim was made for. Name plus at least one
// contact method is required before a workflow may commit.
type Claimant struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

func (c Claimant) HasContact() bool {
	return c.Email != "" || c.Phone != ""
}

// Claim is a recorded allocation of one ticket number or one
// (resource, interval) pair. Only cancelled claims release the unit;
// every other status blocks it.
type Claim struct {
	ID       uuid.UUID `json:"id"`
	Kind     ClaimKind `json:"kind"`
	TicketNo int       `json:"ticketNo,omitempty"`

	ResourceID string    `json:"resourceId,omitempty"`
	Start      time.Time `json:"start,omitempty"`
	End        time.Time `json:"end,omitempty"`

	Claimant Claimant `json:"claimant"`

	// Amount is fixed at commit time from the batch quantity and never
	// recomputed afterwards.
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`

	Status    ClaimStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Blocks reports whether the claim currently holds its unit.
func (c Claim) Blocks() bool {
	return c.Status != ClaimStatusCancelled
}
