package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garageops/reserva/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/reserva")
	t.Setenv("TICKET_INVENTORY_SIZE", "")
	t.Setenv("TICKET_GRID_SIZE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, defaultAddr, cfg.Addr)
	assert.Equal(t, defaultInventorySize, cfg.TicketInventorySize)
	assert.Equal(t, "EUR", cfg.Currency)
	assert.Equal(t, defaultCommitTimeout, cfg.CommitTimeout)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("RESERVA_DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestInventorySizeMismatchIsFatal(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/reserva")
	t.Setenv("TICKET_INVENTORY_SIZE", "350000")
	t.Setenv("TICKET_GRID_SIZE", "2000")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInventoryMismatch)
}

func TestInventorySizeAgreement(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/reserva")
	t.Setenv("TICKET_INVENTORY_SIZE", "2000")
	t.Setenv("TICKET_GRID_SIZE", "2000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2000, cfg.TicketInventorySize)
}

func TestInventorySizeLegacyOnly(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/reserva")
	t.Setenv("TICKET_GRID_SIZE", "500")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.TicketInventorySize)
}

func TestInventorySizeRejectsGarbage(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/reserva")
	t.Setenv("TICKET_INVENTORY_SIZE", "lots")

	_, err := Load()
	assert.Error(t, err)
}
