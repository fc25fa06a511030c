package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"evidapi/internal/model"
	"evidapi/internal/repository"
)

// EvidencePostgres is a PostgreSQL implementation of
// repository.EvidenceRepository. State changes and their custody events
// share one transaction; the evidence row is locked with SELECT ... FOR
// UPDATE so operations on a single item are serialized while different
// items proceed in parallel.
type EvidencePostgres struct {
	db *sql.DB
}

// NewEvidencePostgres creates a new EvidencePostgres repository.
func NewEvidencePostgres(db *sql.DB) *EvidencePostgres {
	return &EvidencePostgres{db: db}
}

var _ repository.EvidenceRepository = (*EvidencePostgres)(nil)

const evidenceColumns = `id, case_id, evidence_type, description, notes, original_filename,
		storage_path, file_size, content_type, content_digest, status, custodian,
		custodian_name, integrity_verified, ledger_reference, created_at, updated_at`

const eventColumns = `id, evidence_id, seq, event, actor_role, actor_name, details,
		ledger_reference, occurred_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvidence(row rowScanner) (*model.Evidence, error) {
	var ev model.Evidence
	if err := row.Scan(
		&ev.ID,
		&ev.CaseID,
		&ev.EvidenceType,
		&ev.Description,
		&ev.Notes,
		&ev.OriginalFilename,
		&ev.StoragePath,
		&ev.FileSize,
		&ev.ContentType,
		&ev.ContentDigest,
		&ev.Status,
		&ev.Custodian,
		&ev.CustodianName,
		&ev.IntegrityVerified,
		&ev.LedgerReference,
		&ev.CreatedAt,
		&ev.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ev, nil
}

func scanEvent(row rowScanner) (*model.CustodyEvent, error) {
	var e model.CustodyEvent
	if err := row.Scan(
		&e.ID,
		&e.EvidenceID,
		&e.Seq,
		&e.Event,
		&e.ActorRole,
		&e.ActorName,
		&e.Details,
		&e.LedgerReference,
		&e.Timestamp,
	); err != nil {
		return nil, err
	}
	return &e, nil
}

// NextSequence advances the per-year identifier counter.
func (r *EvidencePostgres) NextSequence(ctx context.Context, year int) (int64, error) {
	const q = `
		INSERT INTO evidence_id_counters (year, next)
		VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET next = evidence_id_counters.next + 1
		RETURNING next
	`
	var next int64
	if err := r.db.QueryRowContext(ctx, q, year).Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}

// appendEvent inserts a custody event, assigning the next per-evidence
// sequence number. Callers hold the evidence row lock, so the MAX(seq)
// subquery cannot race for the same item.
func appendEvent(ctx context.Context, tx *sql.Tx, e *model.CustodyEvent) (*model.CustodyEvent, error) {
	const q = `
		INSERT INTO custody_events (id, evidence_id, seq, event, actor_role, actor_name, details, ledger_reference, occurred_at)
		VALUES ($1, $2,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM custody_events WHERE evidence_id = $2),
			$3, $4, $5, $6, $7, $8)
		RETURNING ` + eventColumns
	row := tx.QueryRowContext(ctx, q,
		e.ID,
		e.EvidenceID,
		e.Event,
		e.ActorRole,
		e.ActorName,
		e.Details,
		e.LedgerReference,
		e.Timestamp,
	)
	return scanEvent(row)
}

func lockEvidence(ctx context.Context, tx *sql.Tx, id string) (*model.Evidence, error) {
	q := `SELECT ` + evidenceColumns + ` FROM evidence WHERE id = $1 FOR UPDATE`
	return scanEvidence(tx.QueryRowContext(ctx, q, id))
}

// Create inserts the evidence record and its first custody event in one
// transaction.
func (r *EvidencePostgres) Create(ctx context.Context, ev *model.Evidence, first *model.CustodyEvent) (*model.Evidence, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	q := `
		INSERT INTO evidence (` + evidenceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING ` + evidenceColumns
	row := tx.QueryRowContext(ctx, q,
		ev.ID,
		ev.CaseID,
		ev.EvidenceType,
		ev.Description,
		ev.Notes,
		ev.OriginalFilename,
		ev.StoragePath,
		ev.FileSize,
		ev.ContentType,
		ev.ContentDigest,
		ev.Status,
		ev.Custodian,
		ev.CustodianName,
		ev.IntegrityVerified,
		ev.LedgerReference,
		ev.CreatedAt,
		ev.UpdatedAt,
	)
	stored, err := scanEvidence(row)
	if err != nil {
		return nil, err
	}

	if _, err := appendEvent(ctx, tx, first); err != nil {
		return nil, fmt.Errorf("append created event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return stored, nil
}

// FindByID fetches a single evidence record by its ID.
func (r *EvidencePostgres) FindByID(ctx context.Context, id string) (*model.Evidence, error) {
	q := `SELECT ` + evidenceColumns + ` FROM evidence WHERE id = $1`
	return scanEvidence(r.db.QueryRowContext(ctx, q, id))
}

// List returns evidence ordered by created_at descending with optional
// case and status filters.
func (r *EvidencePostgres) List(ctx context.Context, lq repository.ListQuery) (*repository.PageResult[model.Evidence], error) {
	where := ` WHERE ($1 = '' OR case_id = $1) AND ($2 = '' OR status = $2)`

	qCount := `SELECT COUNT(*) FROM evidence` + where
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, lq.CaseID, string(lq.Status)).Scan(&total); err != nil {
		return nil, err
	}

	qList := `SELECT ` + evidenceColumns + ` FROM evidence` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`
	rows, err := r.db.QueryContext(ctx, qList, lq.CaseID, string(lq.Status), lq.Limit, lq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Evidence, 0)
	for rows.Next() {
		ev, err := scanEvidence(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Evidence]{Items: items, Total: total}, nil
}

// Transfer applies a custody transfer as a single all-or-nothing unit.
func (r *EvidencePostgres) Transfer(ctx context.Context, p repository.TransferParams) (*model.Evidence, *model.CustodyEvent, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	current, err := lockEvidence(ctx, tx, p.EvidenceID)
	if err != nil {
		return nil, nil, err
	}
	if current.Status.Terminal() {
		return nil, nil, repository.ErrArchived
	}
	if current.Custodian != p.FromRole {
		return nil, nil, repository.ErrStaleCustodian
	}

	q := `
		UPDATE evidence
		SET custodian = $2, custodian_name = $3, status = $4, updated_at = $5
		WHERE id = $1
		RETURNING ` + evidenceColumns
	row := tx.QueryRowContext(ctx, q,
		p.EvidenceID,
		p.ToRole,
		p.ToName,
		model.StatusTransferred,
		p.Event.Timestamp,
	)
	updated, err := scanEvidence(row)
	if err != nil {
		return nil, nil, err
	}

	event, err := appendEvent(ctx, tx, &p.Event)
	if err != nil {
		return nil, nil, fmt.Errorf("append transferred event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}
	return updated, event, nil
}

// RecordVerification persists the outcome of an integrity check. The
// stored content digest column is never touched.
func (r *EvidencePostgres) RecordVerification(ctx context.Context, p repository.VerificationParams) (*model.Evidence, *model.CustodyEvent, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	current, err := lockEvidence(ctx, tx, p.EvidenceID)
	if err != nil {
		return nil, nil, err
	}
	if current.Status.Terminal() {
		return nil, nil, repository.ErrArchived
	}

	status := current.Status
	if p.Match {
		status = model.StatusVerified
	}
	q := `
		UPDATE evidence
		SET integrity_verified = $2, status = $3, updated_at = $4
		WHERE id = $1
		RETURNING ` + evidenceColumns
	row := tx.QueryRowContext(ctx, q,
		p.EvidenceID,
		p.Match,
		status,
		p.Event.Timestamp,
	)
	updated, err := scanEvidence(row)
	if err != nil {
		return nil, nil, err
	}

	event, err := appendEvent(ctx, tx, &p.Event)
	if err != nil {
		return nil, nil, fmt.Errorf("append verified event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}
	return updated, event, nil
}

// SetStatus moves the record to an explicit lifecycle status and appends
// the supplied event.
func (r *EvidencePostgres) SetStatus(ctx context.Context, p repository.StatusParams) (*model.Evidence, *model.CustodyEvent, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	current, err := lockEvidence(ctx, tx, p.EvidenceID)
	if err != nil {
		return nil, nil, err
	}
	if current.Status.Terminal() {
		return nil, nil, repository.ErrArchived
	}

	now := time.Now().UTC()
	if p.Event != nil {
		now = p.Event.Timestamp
	}
	q := `
		UPDATE evidence
		SET status = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + evidenceColumns
	row := tx.QueryRowContext(ctx, q, p.EvidenceID, p.Status, now)
	updated, err := scanEvidence(row)
	if err != nil {
		return nil, nil, err
	}

	var event *model.CustodyEvent
	if p.Event != nil {
		event, err = appendEvent(ctx, tx, p.Event)
		if err != nil {
			return nil, nil, fmt.Errorf("append %s event: %w", p.Event.Event, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}
	return updated, event, nil
}

// SetEventAnchor records the external ledger reference on an event after a
// successful anchor call, and mirrors it onto the evidence record as the
// most recent anchoring token.
func (r *EvidencePostgres) SetEventAnchor(ctx context.Context, eventID, ref string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	const q = `UPDATE custody_events SET ledger_reference = $2 WHERE id = $1 RETURNING evidence_id`
	var evidenceID string
	if err := tx.QueryRowContext(ctx, q, eventID, ref).Scan(&evidenceID); err != nil {
		return err
	}

	const qEv = `UPDATE evidence SET ledger_reference = $2 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, qEv, evidenceID, ref); err != nil {
		return err
	}

	return tx.Commit()
}

// History returns all custody events for an evidence item oldest first.
// The per-evidence seq column gives the exact recorded order even when
// timestamps collide.
func (r *EvidencePostgres) History(ctx context.Context, evidenceID string) ([]model.CustodyEvent, error) {
	q := `SELECT ` + eventColumns + ` FROM custody_events WHERE evidence_id = $1 ORDER BY seq ASC`
	rows, err := r.db.QueryContext(ctx, q, evidenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]model.CustodyEvent, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
