// Package availability derives the calendar grid (resource × day → status)
// from the ledger. It is a pure read view and never creates or mutates
// claims.
package availability

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/garageops/reserva/internal/conflict"
	"github.com/garageops/reserva/internal/domain"
	"github.com/garageops/reserva/internal/ledger"
	"github.com/garageops/reserva/internal/registry"
)

type CellStatus string

const (
	StatusAvailable CellStatus = "available"
	StatusClaimed   CellStatus = "claimed"
	StatusBlocked   CellStatus = "administratively_blocked"
)

// Cell is one (resource, day) entry. ClaimIDs carries the overlapping claims
// for inspection when the cell is claimed; clicking through never mutates.
type Cell struct {
	Status   CellStatus  `json:"status"`
	ClaimIDs []uuid.UUID `json:"claimIds,omitempty"`
}

type Row struct {
	Resource domain.Resource `json:"resource"`
	Cells    []Cell          `json:"cells"`
}

type Grid struct {
	Days []time.Time `json:"days"`
	Rows []Row       `json:"rows"`
}

type Builder struct {
	ledger ledger.Ledger
}

func NewBuilder(led ledger.Ledger) *Builder {
	return &Builder{ledger: led}
}

// Grid builds the availability matrix for [from, to] at day granularity.
// Per cell the administrative block is evaluated first (closed-interval day
// rule); otherwise any booking overlapping [day 00:00, day+1 00:00) marks the
// cell claimed.
func (b *Builder) Grid(ctx context.Context, resources []domain.Resource, from, to time.Time) (Grid, error) {
	first := truncateToDay(from)
	last := truncateToDay(to)
	if last.Before(first) {
		return Grid{}, domain.Validationf("grid range end precedes start")
	}

	var days []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}

	// One range read feeds every cell.
	bookings, err := b.ledger.BookingsInRange(ctx, first, last.AddDate(0, 0, 1))
	if err != nil {
		return Grid{}, err
	}
	byResource := map[string][]domain.Claim{}
	for _, c := range bookings {
		byResource[c.ResourceID] = append(byResource[c.ResourceID], c)
	}

	grid := Grid{Days: days, Rows: make([]Row, 0, len(resources))}
	for _, res := range resources {
		row := Row{Resource: res, Cells: make([]Cell, len(days))}
		for i, day := range days {
			row.Cells[i] = buildCell(res, byResource[res.ID], day)
		}
		grid.Rows = append(grid.Rows, row)
	}
	return grid, nil
}

func buildCell(res domain.Resource, bookings []domain.Claim, day time.Time) Cell {
	if registry.AdministrativelyUnavailable(res, day) {
		return Cell{Status: StatusBlocked}
	}
	dayStart := day
	dayEnd := day.AddDate(0, 0, 1)
	var ids []uuid.UUID
	for _, c := range bookings {
		if conflict.Overlaps(dayStart, dayEnd, c.Start, c.End) {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) > 0 {
		return Cell{Status: StatusClaimed, ClaimIDs: ids}
	}
	return Cell{Status: StatusAvailable}
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
