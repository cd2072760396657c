package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/garageops/reserva/internal/domain"
)

// MemoryLedger is an in-memory Ledger for tests and acceptance flows. Its
// mutex keeps the map consistent within one process; it stands in for the
// storage constraint, not for cross-process exclusivity.
type MemoryLedger struct {
	mu        sync.RWMutex
	claims    map[uuid.UUID]domain.Claim
	resources map[string]domain.Resource
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		claims:    map[uuid.UUID]domain.Claim{},
		resources: map[string]domain.Resource{},
	}
}

func (m *MemoryLedger) Ping(ctx context.Context) error { return nil }

func (m *MemoryLedger) TicketTaken(ctx context.Context, ticketNo int) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ticketTakenLocked(ticketNo), nil
}

func (m *MemoryLedger) ticketTakenLocked(ticketNo int) bool {
	for _, c := range m.claims {
		if c.Kind == domain.ClaimKindTicket && c.TicketNo == ticketNo && c.Blocks() {
			return true
		}
	}
	return false
}

func (m *MemoryLedger) Overlapping(ctx context.Context, resourceID string, start, end time.Time) ([]domain.Claim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.overlappingLocked(resourceID, start, end), nil
}

func (m *MemoryLedger) overlappingLocked(resourceID string, start, end time.Time) []domain.Claim {
	var out []domain.Claim
	for _, c := range m.claims {
		if c.Kind != domain.ClaimKindBooking || !c.Blocks() || c.ResourceID != resourceID {
			continue
		}
		if c.Start.Before(end) && start.Before(c.End) {
			out = append(out, c)
		}
	}
	sortByStart(out)
	return out
}

func (m *MemoryLedger) Commit(ctx context.Context, claim domain.Claim) (domain.Claim, error) {
	if err := ctx.Err(); err != nil {
		return domain.Claim{}, err
	}
	if claim.ID == uuid.Nil {
		claim.ID = uuid.New()
	}
	if claim.CreatedAt.IsZero() {
		claim.CreatedAt = time.Now().UTC()
	}
	if claim.Status == "" {
		claim.Status = domain.ClaimStatusConfirmed
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch claim.Kind {
	case domain.ClaimKindTicket:
		if m.ticketTakenLocked(claim.TicketNo) {
			return domain.Claim{}, domain.ErrClaimConflict
		}
	case domain.ClaimKindBooking:
		if len(m.overlappingLocked(claim.ResourceID, claim.Start, claim.End)) > 0 {
			return domain.Claim{}, domain.ErrClaimConflict
		}
	}

	m.claims[claim.ID] = claim
	return claim, nil
}

func (m *MemoryLedger) CancelClaim(ctx context.Context, id uuid.UUID) (domain.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[id]
	if !ok {
		return domain.Claim{}, domain.ErrClaimNotFound
	}
	if c.Status != domain.ClaimStatusCancelled {
		c.Status = domain.ClaimStatusCancelled
		m.claims[id] = c
	}
	return c, nil
}

func (m *MemoryLedger) DeleteClaim(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.claims[id]; !ok {
		return domain.ErrClaimNotFound
	}
	delete(m.claims, id)
	return nil
}

func (m *MemoryLedger) GetClaim(ctx context.Context, id uuid.UUID) (domain.Claim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.claims[id]
	if !ok {
		return domain.Claim{}, domain.ErrClaimNotFound
	}
	return c, nil
}

func (m *MemoryLedger) ListTicketClaims(ctx context.Context) ([]domain.Claim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Claim
	for _, c := range m.claims {
		if c.Kind == domain.ClaimKindTicket {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TicketNo < out[j].TicketNo })
	return out, nil
}

func (m *MemoryLedger) BookingsInRange(ctx context.Context, from, to time.Time) ([]domain.Claim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Claim
	for _, c := range m.claims {
		if c.Kind != domain.ClaimKindBooking || !c.Blocks() {
			continue
		}
		if c.Start.Before(to) && from.Before(c.End) {
			out = append(out, c)
		}
	}
	sortByStart(out)
	return out, nil
}

func (m *MemoryLedger) ListResources(ctx context.Context) ([]domain.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Resource, 0, len(m.resources))
	for _, r := range m.resources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryLedger) GetResource(ctx context.Context, id string) (domain.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.resources[id]
	if !ok {
		return domain.Resource{}, domain.ErrResourceNotFound
	}
	return r, nil
}

func (m *MemoryLedger) CreateResource(ctx context.Context, res domain.Resource) (domain.Resource, error) {
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC()
	}
	if res.Status == "" {
		res.Status = domain.ResourceStatusAvailable
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resources[res.ID] = res
	return res, nil
}

func (m *MemoryLedger) UpdateResource(ctx context.Context, res domain.Resource) (domain.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.resources[res.ID]
	if !ok {
		return domain.Resource{}, domain.ErrResourceNotFound
	}
	res.CreatedAt = existing.CreatedAt
	m.resources[res.ID] = res
	return res, nil
}

func sortByStart(claims []domain.Claim) {
	sort.Slice(claims, func(i, j int) bool { return claims[i].Start.Before(claims[j].Start) })
}
