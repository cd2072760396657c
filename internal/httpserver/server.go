package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/garageops/reserva/internal/availability"
	"github.com/garageops/reserva/internal/clock"
	"github.com/garageops/reserva/internal/conflict"
	"github.com/garageops/reserva/internal/domain"
	"github.com/garageops/reserva/internal/ledger"
	"github.com/garageops/reserva/internal/pricing"
	"github.com/garageops/reserva/internal/registry"
	"github.com/garageops/reserva/internal/workflow"
)

type Server struct {
	ledger        ledger.Ledger
	registry      *registry.Registry
	builder       *availability.Builder
	pricer        pricing.Engine
	clock         clock.Clock
	currency      string
	commitTimeout time.Duration
	hooks         []workflow.Hook
	log           zerolog.Logger
}

type Options struct {
	Ledger        ledger.Ledger
	Registry      *registry.Registry
	Pricer        pricing.Engine
	Clock         clock.Clock
	Currency      string
	CommitTimeout time.Duration
	Hooks         []workflow.Hook
	Log           zerolog.Logger
}

func New(opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = clock.NewSystem()
	}
	return &Server{
		ledger:        opts.Ledger,
		registry:      opts.Registry,
		builder:       availability.NewBuilder(opts.Ledger),
		pricer:        opts.Pricer,
		clock:         opts.Clock,
		currency:      opts.Currency,
		commitTimeout: opts.CommitTimeout,
		hooks:         opts.Hooks,
		log:           opts.Log,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Post("/claims/tickets", s.handleSellTickets)
	r.Post("/claims/bookings", s.handleBook)
	r.Get("/claims/{id}", s.handleGetClaim)
	r.Post("/claims/{id}/cancel", s.handleCancelClaim)
	r.Delete("/claims/{id}", s.handleDeleteClaim)

	r.Get("/tickets", s.handleListTickets)
	r.Get("/availability", s.handleAvailability)

	r.Get("/resources", s.handleListResources)
	r.Post("/resources", s.handleCreateResource)
	r.Get("/resources/match", s.handleMatchResource)
	r.Patch("/resources/{id}", s.handleUpdateResource)
	r.Post("/resources/{id}/archive", s.handleArchiveResource)

	r.Get("/healthz", s.handleHealth)

	return r
}

func (s *Server) newWorkflow() *workflow.Workflow {
	return workflow.New(workflow.Deps{
		Ledger:        s.ledger,
		Detector:      conflict.New(s.ledger),
		Registry:      s.registry,
		Pricer:        s.pricer,
		Clock:         s.clock,
		Currency:      s.currency,
		CommitTimeout: s.commitTimeout,
		Hooks:         s.hooks,
		Log:           s.log,
	})
}

type sellTicketsBody struct {
	Numbers  []int           `json:"numbers"`
	Claimant domain.Claimant `json:"claimant"`
}

func (s *Server) handleSellTickets(w http.ResponseWriter, r *http.Request) {
	var body sellTicketsBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	wf := s.newWorkflow()
	if err := wf.SelectTickets(body.Numbers); err != nil {
		s.respondDomainError(w, err)
		return
	}
	if err := wf.SetClaimant(body.Claimant); err != nil {
		s.respondDomainError(w, err)
		return
	}
	report, err := wf.Run(r.Context())
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

type bookBody struct {
	ResourceID string          `json:"resourceId"`
	Start      string          `json:"start"`
	End        string          `json:"end"`
	Claimant   domain.Claimant `json:"claimant"`
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	var body bookBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	start, err := parseTime(body.Start)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid start: "+err.Error())
		return
	}
	end, err := parseTime(body.End)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid end: "+err.Error())
		return
	}

	wf := s.newWorkflow()
	if err := wf.SelectInterval(r.Context(), body.ResourceID, start, end); err != nil {
		s.respondDomainError(w, err)
		return
	}
	if err := wf.SetClaimant(body.Claimant); err != nil {
		s.respondDomainError(w, err)
		return
	}
	report, err := wf.Run(r.Context())
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleGetClaim(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	claim, err := s.ledger.GetClaim(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, claim)
}

func (s *Server) handleCancelClaim(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	claim, err := s.ledger.CancelClaim(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, claim)
}

func (s *Server) handleDeleteClaim(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.ledger.DeleteClaim(r.Context(), id); err != nil {
		s.respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	claims, err := s.ledger.ListTicketClaims(r.Context())
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"inventorySize": s.registry.InventorySize(),
		"claims":        claims,
	})
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	from, err := parseTime(r.URL.Query().Get("from"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid from: "+err.Error())
		return
	}
	to, err := parseTime(r.URL.Query().Get("to"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid to: "+err.Error())
		return
	}
	resources, err := s.registry.ListResources(r.Context())
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	grid, err := s.builder.Grid(r.Context(), resources, from, to)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, grid)
}

func (s *Server) handleListResources(w http.ResponseWriter, r *http.Request) {
	resources, err := s.registry.ListResources(r.Context())
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"resources": resources})
}

type resourceBody struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Status           string `json:"status"`
	UnavailableFrom  string `json:"unavailableFrom"`
	UnavailableUntil string `json:"unavailableUntil"`
}

func (b resourceBody) toDomain() (domain.Resource, error) {
	res := domain.Resource{
		ID:     b.ID,
		Name:   b.Name,
		Status: domain.ResourceStatus(b.Status),
	}
	if b.UnavailableFrom != "" {
		t, err := parseTime(b.UnavailableFrom)
		if err != nil {
			return domain.Resource{}, domain.Validationf("invalid unavailableFrom: %v", err)
		}
		res.UnavailableFrom = &t
	}
	if b.UnavailableUntil != "" {
		t, err := parseTime(b.UnavailableUntil)
		if err != nil {
			return domain.Resource{}, domain.Validationf("invalid unavailableUntil: %v", err)
		}
		res.UnavailableUntil = &t
	}
	return res, nil
}

func (s *Server) handleCreateResource(w http.ResponseWriter, r *http.Request) {
	var body resourceBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := body.toDomain()
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	created, err := s.registry.CreateResource(r.Context(), res)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateResource(w http.ResponseWriter, r *http.Request) {
	var body resourceBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	body.ID = chi.URLParam(r, "id")
	res, err := body.toDomain()
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	updated, err := s.registry.UpdateResource(r.Context(), res)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleArchiveResource(w http.ResponseWriter, r *http.Request) {
	res, err := s.registry.ArchiveResource(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// handleMatchResource exposes the display-only fuzzy matcher. Ambiguity is a
// 409 listing the candidates for the administrator; it is never resolved
// automatically and never feeds a commit.
func (s *Server) handleMatchResource(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	resources, err := s.registry.ListResources(r.Context())
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	match, err := conflict.MatchResource(resources, name)
	if err != nil {
		var amb *domain.AmbiguousMatchError
		if errors.As(err, &amb) {
			respondJSON(w, http.StatusConflict, map[string]any{
				"error":      "ambiguous match",
				"query":      amb.Query,
				"candidates": amb.Candidates,
			})
			return
		}
		s.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, match)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "ledger unreachable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrClaimNotFound), errors.Is(err, domain.ErrResourceNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrClaimConflict):
		respondError(w, http.StatusConflict, err.Error())
	default:
		s.log.Error().Err(err).Msg("internal error")
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// parseTime accepts RFC3339 or a bare date (interpreted as UTC midnight).
func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
