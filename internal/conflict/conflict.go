// Package conflict decides whether a candidate claim collides with existing
// ledger entries. It is a pre-check only: exclusivity is guaranteed by the
// ledger's commit-time constraint, never by this package.
package conflict

import (
	"context"
	"strings"
	"time"

	"github.com/garageops/reserva/internal/domain"
)

// Overlaps reports whether two half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching at a boundary is not an overlap: a
// booking ending at instant T leaves the resource free for one starting at T.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Ledger is the read surface the detector needs.
type Ledger interface {
	TicketTaken(ctx context.Context, ticketNo int) (bool, error)
	Overlapping(ctx context.Context, resourceID string, start, end time.Time) ([]domain.Claim, error)
}

type Detector struct {
	ledger Ledger
}

func New(ledger Ledger) *Detector {
	return &Detector{ledger: ledger}
}

// TicketFree reports whether no non-cancelled claim references the number.
func (d *Detector) TicketFree(ctx context.Context, ticketNo int) (bool, error) {
	taken, err := d.ledger.TicketTaken(ctx, ticketNo)
	if err != nil {
		return false, err
	}
	return !taken, nil
}

// IntervalConflicts returns the non-cancelled claims on resourceID whose
// intervals overlap [start, end).
func (d *Detector) IntervalConflicts(ctx context.Context, resourceID string, start, end time.Time) ([]domain.Claim, error) {
	return d.ledger.Overlapping(ctx, resourceID, start, end)
}

// MatchResource links a free-form display name to a resource. Exact match on
// the normalized name wins. When none matches exactly, a substring fallback
// (either direction) is tried; it exists for display and grouping only and
// must never gate a commit. More than one fallback candidate is surfaced as
// an AmbiguousMatchError for the administrator to resolve.
func MatchResource(resources []domain.Resource, name string) (*domain.Resource, error) {
	want := normalize(name)
	if want == "" {
		return nil, domain.Validationf("empty resource name")
	}

	for i := range resources {
		if normalize(resources[i].Name) == want || normalize(resources[i].ID) == want {
			return &resources[i], nil
		}
	}

	var hits []*domain.Resource
	for i := range resources {
		got := normalize(resources[i].Name)
		if strings.Contains(got, want) || strings.Contains(want, got) {
			hits = append(hits, &resources[i])
		}
	}
	switch len(hits) {
	case 0:
		return nil, domain.ErrResourceNotFound
	case 1:
		return hits[0], nil
	default:
		names := make([]string, len(hits))
		for i, h := range hits {
			names[i] = h.Name
		}
		return nil, &domain.AmbiguousMatchError{Query: name, Candidates: names}
	}
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}
