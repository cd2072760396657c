package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garageops/reserva/internal/domain"
	"github.com/garageops/reserva/internal/ledger"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func TestTicketInRange(t *testing.T) {
	r := New(ledger.NewMemoryLedger(), 2000)

	assert.True(t, r.TicketInRange(1))
	assert.True(t, r.TicketInRange(2000))
	assert.False(t, r.TicketInRange(0))
	assert.False(t, r.TicketInRange(2001))
	assert.False(t, r.TicketInRange(-3))
}

func TestAdministrativelyUnavailableClosedInterval(t *testing.T) {
	from, until := date("2024-02-10"), date("2024-02-12")
	res := domain.Resource{
		ID:               "car-a",
		Name:             "Car-A",
		Status:           domain.ResourceStatusUnavailable,
		UnavailableFrom:  &from,
		UnavailableUntil: &until,
	}

	// Both boundary days block; contrast with bookings, whose end day is free.
	assert.True(t, AdministrativelyUnavailable(res, date("2024-02-10")))
	assert.True(t, AdministrativelyUnavailable(res, date("2024-02-11")))
	assert.True(t, AdministrativelyUnavailable(res, date("2024-02-12")))
	assert.False(t, AdministrativelyUnavailable(res, date("2024-02-09")))
	assert.False(t, AdministrativelyUnavailable(res, date("2024-02-13")))
}

func TestAdministrativelyUnavailableSingleDay(t *testing.T) {
	d := date("2024-02-10")
	res := domain.Resource{
		Status:           domain.ResourceStatusUnavailable,
		UnavailableFrom:  &d,
		UnavailableUntil: &d,
	}
	assert.True(t, AdministrativelyUnavailable(res, date("2024-02-10")))
	assert.False(t, AdministrativelyUnavailable(res, date("2024-02-11")))
}

func TestAdministrativelyUnavailableNoIntervalBlocksAllDays(t *testing.T) {
	res := domain.Resource{Status: domain.ResourceStatusUnavailable}
	assert.True(t, AdministrativelyUnavailable(res, date("2024-02-10")))
	assert.True(t, AdministrativelyUnavailable(res, date("2030-12-31")))
}

func TestAvailableResourceNeverAdminBlocked(t *testing.T) {
	from := date("2024-02-10")
	res := domain.Resource{Status: domain.ResourceStatusAvailable, UnavailableFrom: &from}
	assert.False(t, AdministrativelyUnavailable(res, date("2024-02-10")))
}

func TestRetiredResourceAlwaysBlocked(t *testing.T) {
	res := domain.Resource{Status: domain.ResourceStatusRetired}
	assert.True(t, AdministrativelyUnavailable(res, date("2024-02-10")))
}

func TestResourceCRUD(t *testing.T) {
	ctx := context.Background()
	r := New(ledger.NewMemoryLedger(), 100)

	_, err := r.CreateResource(ctx, domain.Resource{Name: "Car-A"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	created, err := r.CreateResource(ctx, domain.Resource{ID: "car-a", Name: "Car-A"})
	require.NoError(t, err)
	assert.Equal(t, domain.ResourceStatusAvailable, created.Status)

	_, err = r.UpdateResource(ctx, domain.Resource{ID: "car-a", Name: "Car-A", Status: "broken"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	archived, err := r.ArchiveResource(ctx, "car-a")
	require.NoError(t, err)
	assert.Equal(t, domain.ResourceStatusRetired, archived.Status)

	_, err = r.ArchiveResource(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrResourceNotFound)
}
