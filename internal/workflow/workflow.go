// Package workflow drives a multi-step claim: select units, attach the
// claimant, price the batch, then commit each unit against the ledger. The
// workflow owns one authoritative state, passed explicitly between steps.
package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/garageops/reserva/internal/clock"
	"github.com/garageops/reserva/internal/conflict"
	"github.com/garageops/reserva/internal/domain"
	"github.com/garageops/reserva/internal/ledger"
	"github.com/garageops/reserva/internal/metrics"
	"github.com/garageops/reserva/internal/pricing"
	"github.com/garageops/reserva/internal/registry"
)

type State string

const (
	StateCollectingUnits    State = "collecting_units"
	StateCollectingClaimant State = "collecting_claimant"
	StatePricing            State = "pricing"
	StateCommitting         State = "committing"
	StateCommitted          State = "committed"
	StateConflicted         State = "conflicted"
	StateFailed             State = "failed"
)

// Hook runs once per committed claim, after the commit. Failures are logged
// and never roll the claim back.
type Hook interface {
	ClaimCommitted(ctx context.Context, claim domain.Claim) error
}

// UnitRef names one unit of a batch in a report.
type UnitRef struct {
	TicketNo   int       `json:"ticketNo,omitempty"`
	ResourceID string    `json:"resourceId,omitempty"`
	Start      time.Time `json:"start,omitempty"`
	End        time.Time `json:"end,omitempty"`
}

type UnitFailure struct {
	Unit  UnitRef `json:"unit"`
	Cause string  `json:"cause"`
}

// Report is the terminal outcome of a batch: always the three-way breakdown,
// never a single pass/fail. Partial success is a designed result.
type Report struct {
	State      State          `json:"state"`
	Committed  []domain.Claim `json:"committed"`
	Conflicted []UnitRef      `json:"conflicted"`
	Failed     []UnitFailure  `json:"failed"`
	Total      int64          `json:"total"`
	Currency   string         `json:"currency"`
}

type Deps struct {
	Ledger        ledger.Ledger
	Detector      *conflict.Detector
	Registry      *registry.Registry
	Pricer        pricing.Engine
	Clock         clock.Clock
	Currency      string
	CommitTimeout time.Duration
	Hooks         []Hook
	Log           zerolog.Logger
}

const defaultCommitTimeout = 5 * time.Second

type Workflow struct {
	deps  Deps
	state State

	tickets    []int
	resourceID string
	start, end time.Time
	claimant   domain.Claimant

	total   int64
	perUnit []int64
}

func New(deps Deps) *Workflow {
	if deps.CommitTimeout <= 0 {
		deps.CommitTimeout = defaultCommitTimeout
	}
	if deps.Clock == nil {
		deps.Clock = clock.NewSystem()
	}
	if deps.Currency == "" {
		deps.Currency = "EUR"
	}
	return &Workflow{deps: deps, state: StateCollectingUnits}
}

func (w *Workflow) State() State {
	return w.state
}

// SelectTickets records the discrete unit selection. Numbers are deduplicated
// preserving order; all must fall inside the configured inventory range.
func (w *Workflow) SelectTickets(numbers []int) error {
	if w.state != StateCollectingUnits {
		return domain.Validationf("cannot select units in state %s", w.state)
	}
	if len(numbers) == 0 {
		return domain.Validationf("empty ticket selection")
	}
	seen := make(map[int]struct{}, len(numbers))
	deduped := make([]int, 0, len(numbers))
	for _, n := range numbers {
		if !w.deps.Registry.TicketInRange(n) {
			return domain.Validationf("ticket %d outside inventory range [1, %d]", n, w.deps.Registry.InventorySize())
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		deduped = append(deduped, n)
	}
	w.tickets = deduped
	w.state = StateCollectingClaimant
	return nil
}

// SelectInterval records a single interval selection on a named resource.
func (w *Workflow) SelectInterval(ctx context.Context, resourceID string, start, end time.Time) error {
	if w.state != StateCollectingUnits {
		return domain.Validationf("cannot select units in state %s", w.state)
	}
	if resourceID == "" {
		return domain.Validationf("resource id required")
	}
	if !start.Before(end) {
		return domain.Validationf("interval start must precede end")
	}
	res, err := w.deps.Registry.Resource(ctx, resourceID)
	if err != nil {
		return err
	}
	if res.Status == domain.ResourceStatusRetired {
		return domain.Validationf("resource %s is retired", resourceID)
	}
	w.resourceID = resourceID
	w.start, w.end = start.UTC(), end.UTC()
	w.state = StateCollectingClaimant
	return nil
}

// SetClaimant attaches claimant identity and runs the automatic pricing
// transition. After it returns, the workflow is ready to commit.
func (w *Workflow) SetClaimant(c domain.Claimant) error {
	if w.state != StateCollectingClaimant {
		return domain.Validationf("cannot set claimant in state %s", w.state)
	}
	if c.Name == "" {
		return domain.Validationf("claimant name required")
	}
	if !c.HasContact() {
		return domain.Validationf("claimant needs at least one contact method")
	}
	w.claimant = c

	// Pricing is deterministic; the state passes straight through.
	w.state = StatePricing
	quantity := len(w.tickets)
	if quantity == 0 {
		quantity = 1 // single interval
	}
	w.total = w.deps.Pricer.Total(quantity)
	w.perUnit = pricing.Split(w.total, quantity)
	w.state = StateCommitting
	return nil
}

// Run commits the batch: one independent atomic commit per unit, with a
// bounded timeout each. Conflicts and failures are collected and reported
// itemized; a conflicted unit is never retried automatically.
func (w *Workflow) Run(ctx context.Context) (Report, error) {
	if w.state != StateCommitting {
		return Report{}, domain.Validationf("cannot commit in state %s", w.state)
	}

	report := Report{
		Committed:  []domain.Claim{},
		Conflicted: []UnitRef{},
		Failed:     []UnitFailure{},
		Total:      w.total,
		Currency:   w.deps.Currency,
	}

	if len(w.tickets) > 0 {
		for i, n := range w.tickets {
			w.commitUnit(ctx, &report,
				UnitRef{TicketNo: n},
				domain.Claim{
					Kind:     domain.ClaimKindTicket,
					TicketNo: n,
					Claimant: w.claimant,
					Amount:   w.perUnit[i],
					Currency: w.deps.Currency,
				})
		}
	} else {
		w.commitUnit(ctx, &report,
			UnitRef{ResourceID: w.resourceID, Start: w.start, End: w.end},
			domain.Claim{
				Kind:       domain.ClaimKindBooking,
				ResourceID: w.resourceID,
				Start:      w.start,
				End:        w.end,
				Claimant:   w.claimant,
				Amount:     w.perUnit[0],
				Currency:   w.deps.Currency,
			})
	}

	switch {
	case len(report.Failed) > 0:
		w.state = StateFailed
	case len(report.Conflicted) > 0:
		w.state = StateConflicted
	default:
		w.state = StateCommitted
	}
	report.State = w.state
	return report, nil
}

func (w *Workflow) commitUnit(ctx context.Context, report *Report, ref UnitRef, claim domain.Claim) {
	// Pre-check is a fast-path courtesy only; the ledger constraint is the
	// sole exclusivity guarantee. Pre-check read errors fall through to the
	// commit attempt.
	if taken := w.precheckTaken(ctx, ref); taken {
		metrics.CommitsTotal.WithLabelValues("conflicted").Inc()
		report.Conflicted = append(report.Conflicted, ref)
		return
	}

	claim.Status = domain.ClaimStatusConfirmed
	claim.CreatedAt = w.deps.Clock.Now()

	commitCtx, cancel := context.WithTimeout(ctx, w.deps.CommitTimeout)
	start := time.Now()
	committed, err := w.deps.Ledger.Commit(commitCtx, claim)
	// Drivers surface an expired deadline in their own error shapes (lib/pq
	// reports a query cancellation), so the context is the reliable witness.
	deadlineHit := commitCtx.Err() == context.DeadlineExceeded
	cancel()
	metrics.CommitDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.CommitsTotal.WithLabelValues("committed").Inc()
		report.Committed = append(report.Committed, committed)
		w.notify(ctx, committed)
	case errors.Is(err, domain.ErrClaimConflict):
		metrics.CommitsTotal.WithLabelValues("conflicted").Inc()
		report.Conflicted = append(report.Conflicted, ref)
	case errors.Is(err, context.DeadlineExceeded) || deadlineHit:
		// The commit may still land in the ledger; we only stop waiting.
		metrics.CommitsTotal.WithLabelValues("failed").Inc()
		report.Failed = append(report.Failed, UnitFailure{Unit: ref, Cause: "timeout"})
	default:
		metrics.CommitsTotal.WithLabelValues("failed").Inc()
		report.Failed = append(report.Failed, UnitFailure{Unit: ref, Cause: err.Error()})
	}
}

func (w *Workflow) precheckTaken(ctx context.Context, ref UnitRef) bool {
	if w.deps.Detector == nil {
		return false
	}
	if ref.TicketNo > 0 {
		free, err := w.deps.Detector.TicketFree(ctx, ref.TicketNo)
		if err != nil {
			w.deps.Log.Warn().Err(err).Int("ticket", ref.TicketNo).Msg("precheck failed, attempting commit anyway")
			return false
		}
		return !free
	}
	hits, err := w.deps.Detector.IntervalConflicts(ctx, ref.ResourceID, ref.Start, ref.End)
	if err != nil {
		w.deps.Log.Warn().Err(err).Str("resource", ref.ResourceID).Msg("precheck failed, attempting commit anyway")
		return false
	}
	return len(hits) > 0
}

func (w *Workflow) notify(ctx context.Context, claim domain.Claim) {
	for _, h := range w.deps.Hooks {
		if err := h.ClaimCommitted(ctx, claim); err != nil {
			w.deps.Log.Error().Err(err).
				Str("claim", claim.ID.String()).
				Msg("post-commit hook failed")
		}
	}
}
