package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/garageops/reserva/internal/domain"
)

// PGLedger persists claims and resources in Postgres. A partial unique index
// on ticket numbers and an exclusion constraint on booking intervals enforce
// the invariants; PGLedger only translates constraint violations into
// domain.ErrClaimConflict.
type PGLedger struct {
	db *sql.DB
}

func NewPGLedger(db *sql.DB) *PGLedger {
	return &PGLedger{db: db}
}

func (l *PGLedger) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

const claimColumns = `id, kind, ticket_no, resource_id, starts_at, ends_at,
	claimant_name, claimant_email, claimant_phone, amount, currency, status, created_at`

func (l *PGLedger) TicketTaken(ctx context.Context, ticketNo int) (bool, error) {
	const q = `SELECT EXISTS (
		SELECT 1 FROM claims WHERE kind = 'ticket' AND ticket_no = $1 AND status <> 'cancelled'
	)`
	var taken bool
	if err := l.db.QueryRowContext(ctx, q, ticketNo).Scan(&taken); err != nil {
		return false, fmt.Errorf("ticket taken: %w", err)
	}
	return taken, nil
}

func (l *PGLedger) Overlapping(ctx context.Context, resourceID string, start, end time.Time) ([]domain.Claim, error) {
	q := fmt.Sprintf(`SELECT %s FROM claims
		WHERE kind = 'booking' AND resource_id = $1 AND status <> 'cancelled'
		  AND starts_at < $3 AND $2 < ends_at
		ORDER BY starts_at`, claimColumns)
	rows, err := l.db.QueryContext(ctx, q, resourceID, start, end)
	if err != nil {
		return nil, fmt.Errorf("overlapping: %w", err)
	}
	defer rows.Close()
	return scanClaims(rows)
}

func (l *PGLedger) Commit(ctx context.Context, claim domain.Claim) (domain.Claim, error) {
	if claim.ID == uuid.Nil {
		claim.ID = uuid.New()
	}
	if claim.CreatedAt.IsZero() {
		claim.CreatedAt = time.Now().UTC()
	}
	if claim.Status == "" {
		claim.Status = domain.ClaimStatusConfirmed
	}

	const q = `INSERT INTO claims
		(id, kind, ticket_no, resource_id, starts_at, ends_at,
		 claimant_name, claimant_email, claimant_phone, amount, currency, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err := l.db.ExecContext(ctx, q,
		claim.ID,
		claim.Kind,
		nullInt(claim.TicketNo),
		nullString(claim.ResourceID),
		nullTime(claim.Start),
		nullTime(claim.End),
		claim.Claimant.Name,
		claim.Claimant.Email,
		claim.Claimant.Phone,
		claim.Amount,
		claim.Currency,
		claim.Status,
		claim.CreatedAt,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return domain.Claim{}, domain.ErrClaimConflict
		}
		return domain.Claim{}, fmt.Errorf("%w: insert claim: %v", domain.ErrStorage, err)
	}
	return claim, nil
}

func (l *PGLedger) CancelClaim(ctx context.Context, id uuid.UUID) (domain.Claim, error) {
	// No-op when already cancelled; the WHERE clause makes the update
	// idempotent without a read-modify-write race.
	const q = `UPDATE claims SET status = 'cancelled' WHERE id = $1 AND status <> 'cancelled'`
	if _, err := l.db.ExecContext(ctx, q, id); err != nil {
		return domain.Claim{}, fmt.Errorf("cancel claim: %w", err)
	}
	return l.GetClaim(ctx, id)
}

func (l *PGLedger) DeleteClaim(ctx context.Context, id uuid.UUID) error {
	res, err := l.db.ExecContext(ctx, `DELETE FROM claims WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete claim: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrClaimNotFound
	}
	return nil
}

func (l *PGLedger) GetClaim(ctx context.Context, id uuid.UUID) (domain.Claim, error) {
	q := fmt.Sprintf(`SELECT %s FROM claims WHERE id = $1`, claimColumns)
	c, err := scanClaim(l.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Claim{}, domain.ErrClaimNotFound
		}
		return domain.Claim{}, fmt.Errorf("get claim: %w", err)
	}
	return c, nil
}

func (l *PGLedger) ListTicketClaims(ctx context.Context) ([]domain.Claim, error) {
	q := fmt.Sprintf(`SELECT %s FROM claims WHERE kind = 'ticket' ORDER BY ticket_no`, claimColumns)
	rows, err := l.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list ticket claims: %w", err)
	}
	defer rows.Close()
	return scanClaims(rows)
}

func (l *PGLedger) BookingsInRange(ctx context.Context, from, to time.Time) ([]domain.Claim, error) {
	q := fmt.Sprintf(`SELECT %s FROM claims
		WHERE kind = 'booking' AND status <> 'cancelled'
		  AND starts_at < $2 AND $1 < ends_at
		ORDER BY resource_id, starts_at`, claimColumns)
	rows, err := l.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, fmt.Errorf("bookings in range: %w", err)
	}
	defer rows.Close()
	return scanClaims(rows)
}

const resourceColumns = `id, name, status, unavailable_from, unavailable_until, created_at`

func (l *PGLedger) ListResources(ctx context.Context) ([]domain.Resource, error) {
	q := fmt.Sprintf(`SELECT %s FROM resources ORDER BY name`, resourceColumns)
	rows, err := l.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	var out []domain.Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (l *PGLedger) GetResource(ctx context.Context, id string) (domain.Resource, error) {
	q := fmt.Sprintf(`SELECT %s FROM resources WHERE id = $1`, resourceColumns)
	res, err := scanResource(l.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Resource{}, domain.ErrResourceNotFound
		}
		return domain.Resource{}, fmt.Errorf("get resource: %w", err)
	}
	return res, nil
}

func (l *PGLedger) CreateResource(ctx context.Context, res domain.Resource) (domain.Resource, error) {
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC()
	}
	if res.Status == "" {
		res.Status = domain.ResourceStatusAvailable
	}
	const q = `INSERT INTO resources (id, name, status, unavailable_from, unavailable_until, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := l.db.ExecContext(ctx, q, res.ID, res.Name, res.Status,
		nullTimePtr(res.UnavailableFrom), nullTimePtr(res.UnavailableUntil), res.CreatedAt)
	if err != nil {
		return domain.Resource{}, fmt.Errorf("create resource: %w", err)
	}
	return res, nil
}

func (l *PGLedger) UpdateResource(ctx context.Context, res domain.Resource) (domain.Resource, error) {
	const q = `UPDATE resources SET name = $2, status = $3, unavailable_from = $4, unavailable_until = $5
		WHERE id = $1`
	out, err := l.db.ExecContext(ctx, q, res.ID, res.Name, res.Status,
		nullTimePtr(res.UnavailableFrom), nullTimePtr(res.UnavailableUntil))
	if err != nil {
		return domain.Resource{}, fmt.Errorf("update resource: %w", err)
	}
	if n, err := out.RowsAffected(); err == nil && n == 0 {
		return domain.Resource{}, domain.ErrResourceNotFound
	}
	return l.GetResource(ctx, res.ID)
}

// isConstraintViolation matches the two constraint classes the schema uses:
// 23505 unique_violation (ticket numbers) and 23P01 exclusion_violation
// (booking intervals).
func isConstraintViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "23505" || pqErr.Code == "23P01"
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner) (domain.Claim, error) {
	var (
		c        domain.Claim
		ticketNo sql.NullInt64
		resID    sql.NullString
		start    sql.NullTime
		end      sql.NullTime
	)
	err := row.Scan(&c.ID, &c.Kind, &ticketNo, &resID, &start, &end,
		&c.Claimant.Name, &c.Claimant.Email, &c.Claimant.Phone,
		&c.Amount, &c.Currency, &c.Status, &c.CreatedAt)
	if err != nil {
		return domain.Claim{}, err
	}
	if ticketNo.Valid {
		c.TicketNo = int(ticketNo.Int64)
	}
	if resID.Valid {
		c.ResourceID = resID.String
	}
	if start.Valid {
		c.Start = start.Time
	}
	if end.Valid {
		c.End = end.Time
	}
	return c, nil
}

func scanClaims(rows *sql.Rows) ([]domain.Claim, error) {
	var out []domain.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanResource(row rowScanner) (domain.Resource, error) {
	var (
		res  domain.Resource
		from sql.NullTime
		till sql.NullTime
	)
	if err := row.Scan(&res.ID, &res.Name, &res.Status, &from, &till, &res.CreatedAt); err != nil {
		return domain.Resource{}, err
	}
	if from.Valid {
		t := from.Time
		res.UnavailableFrom = &t
	}
	if till.Valid {
		t := till.Time
		res.UnavailableUntil = &t
	}
	return res, nil
}

func nullInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v != 0}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullTime(v time.Time) sql.NullTime {
	return sql.NullTime{Time: v, Valid: !v.IsZero()}
}

func nullTimePtr(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}
