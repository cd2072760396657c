package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garageops/reserva/internal/clock"
	"github.com/garageops/reserva/internal/domain"
	"github.com/garageops/reserva/internal/ledger"
	"github.com/garageops/reserva/internal/pricing"
	"github.com/garageops/reserva/internal/registry"
	"github.com/garageops/reserva/internal/workflow"
)

func newTestServer(t *testing.T) (*Server, *ledger.MemoryLedger) {
	t.Helper()
	led := ledger.NewMemoryLedger()
	srv := New(Options{
		Ledger:   led,
		Registry: registry.New(led, 2000),
		Pricer:   pricing.Default(),
		Clock:    clock.NewFixed(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)),
		Currency: "EUR",
		Log:      zerolog.Nop(),
	})
	return srv, led
}

func doJSON(t *testing.T, handler http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestSellTicketsReportsBreakdown(t *testing.T) {
	srv, led := newTestServer(t)
	router := srv.Router()

	// One number already sold by another admin.
	_, err := led.Commit(context.Background(), domain.Claim{
		Kind: domain.ClaimKindTicket, TicketNo: 2,
		Claimant: domain.Claimant{Name: "Rival", Email: "rival@example.com"},
	})
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodPost, "/claims/tickets", map[string]any{
		"numbers":  []int{1, 2, 3},
		"claimant": map[string]string{"name": "Ana", "phone": "600111222"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var report workflow.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, workflow.StateConflicted, report.State)
	assert.Len(t, report.Committed, 2)
	require.Len(t, report.Conflicted, 1)
	assert.Equal(t, 2, report.Conflicted[0].TicketNo)
	assert.Empty(t, report.Failed)
}

func TestSellTicketsValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/claims/tickets", map[string]any{
		"numbers":  []int{},
		"claimant": map[string]string{"name": "Ana", "phone": "600111222"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/claims/tickets", map[string]any{
		"numbers":  []int{1},
		"claimant": map[string]string{"name": "Ana"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookingFlow(t *testing.T) {
	srv, led := newTestServer(t)
	router := srv.Router()
	_, err := led.CreateResource(context.Background(), domain.Resource{ID: "car-a", Name: "Car-A"})
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodPost, "/claims/bookings", map[string]any{
		"resourceId": "car-a",
		"start":      "2024-01-10",
		"end":        "2024-01-15",
		"claimant":   map[string]string{"name": "Ana", "email": "ana@example.com"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var report workflow.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, workflow.StateCommitted, report.State)

	// Overlap comes back as a conflicted report, not a transport error.
	rec = doJSON(t, router, http.MethodPost, "/claims/bookings", map[string]any{
		"resourceId": "car-a",
		"start":      "2024-01-14",
		"end":        "2024-01-16",
		"claimant":   map[string]string{"name": "Bea", "phone": "600999888"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, workflow.StateConflicted, report.State)
}

func TestCancelAndDeleteClaim(t *testing.T) {
	srv, led := newTestServer(t)
	router := srv.Router()

	c, err := led.Commit(context.Background(), domain.Claim{
		Kind: domain.ClaimKindTicket, TicketNo: 10,
		Claimant: domain.Claimant{Name: "Ana", Phone: "600111222"},
	})
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodPost, "/claims/"+c.ID.String()+"/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.Claim
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, domain.ClaimStatusCancelled, got.Status)

	// Cancel again: still 200, still cancelled.
	rec = doJSON(t, router, http.MethodPost, "/claims/"+c.ID.String()+"/cancel", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/claims/"+c.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/claims/"+c.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAvailabilityEndpoint(t *testing.T) {
	srv, led := newTestServer(t)
	router := srv.Router()
	ctx := context.Background()

	_, err := led.CreateResource(ctx, domain.Resource{ID: "car-a", Name: "Car-A"})
	require.NoError(t, err)
	_, err = led.Commit(ctx, domain.Claim{
		Kind:       domain.ClaimKindBooking,
		ResourceID: "car-a",
		Start:      time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC),
		Claimant:   domain.Claimant{Name: "Ana", Phone: "600111222"},
	})
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodGet, "/availability?from=2024-01-09&to=2024-01-12", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var grid struct {
		Rows []struct {
			Cells []struct {
				Status string `json:"status"`
			} `json:"cells"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grid))
	require.Len(t, grid.Rows, 1)
	want := []string{"available", "claimed", "claimed", "available"}
	for i, cell := range grid.Rows[0].Cells {
		assert.Equal(t, want[i], cell.Status)
	}
}

func TestResourceAdminEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, http.MethodPost, "/resources", map[string]string{
		"id": "car-a", "name": "Car-A",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPatch, "/resources/car-a", map[string]string{
		"name":             "Car-A",
		"status":           "unavailable",
		"unavailableFrom":  "2024-02-10",
		"unavailableUntil": "2024-02-12",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/resources/car-a/archive", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res domain.Resource
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, domain.ResourceStatusRetired, res.Status)

	rec = doJSON(t, router, http.MethodPost, "/resources/ghost/archive", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMatchResourceAmbiguity(t *testing.T) {
	srv, led := newTestServer(t)
	router := srv.Router()
	ctx := context.Background()

	for _, r := range []domain.Resource{
		{ID: "car-a", Name: "Car-A"},
		{ID: "car-b", Name: "Car-B"},
	} {
		_, err := led.CreateResource(ctx, r)
		require.NoError(t, err)
	}

	rec := doJSON(t, router, http.MethodGet, "/resources/match?name=car", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	var body struct {
		Candidates []string `json:"candidates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.ElementsMatch(t, []string{"Car-A", "Car-B"}, body.Candidates)

	rec = doJSON(t, router, http.MethodGet, "/resources/match?name=car-a", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
