package repository

import (
	"context"
	"errors"

	"evidapi/internal/model"
)

// Sentinel errors surfaced by transactional methods when an in-transaction
// re-check fails. The service layer translates these into its own error
// taxonomy (Conflict / InvalidState).
var (
	// ErrStaleCustodian means the row's custodian no longer matches the
	// caller's from_role: a concurrent transfer won the race.
	ErrStaleCustodian = errors.New("custodian changed concurrently")
	// ErrArchived means the record reached its terminal state and accepts
	// no further custody-affecting operations.
	ErrArchived = errors.New("evidence is archived")
)

// EvidenceRepository defines persistence for evidence records and their
// append-only custody ledger. Every state-changing method runs in a single
// database transaction that also appends the matching custody event:
// either both persist or neither does. No update or delete of past events
// exists anywhere on this interface.
type EvidenceRepository interface {
	// NextSequence atomically advances and returns the per-year counter
	// used to mint EV-<year>-<sequence> identifiers.
	NextSequence(ctx context.Context, year int) (int64, error)

	// Create inserts the evidence record together with its first custody
	// event (always "created") in one transaction.
	Create(ctx context.Context, ev *model.Evidence, first *model.CustodyEvent) (*model.Evidence, error)

	// FindByID returns an evidence record. sql.ErrNoRows if unknown.
	FindByID(ctx context.Context, id string) (*model.Evidence, error)

	// List returns evidence ordered by created_at descending.
	List(ctx context.Context, q ListQuery) (*PageResult[model.Evidence], error)

	// Transfer locks the evidence row, re-checks that it is not archived
	// and that the custodian still equals FromRole, then updates custody
	// and appends the transferred event. Returns ErrArchived or
	// ErrStaleCustodian when a re-check fails; the row is left untouched.
	Transfer(ctx context.Context, p TransferParams) (*model.Evidence, *model.CustodyEvent, error)

	// RecordVerification locks the evidence row and applies the outcome of
	// an integrity check: the integrity flag, a status move to verified on
	// a match, and the verified event. The stored content digest is never
	// written by this method.
	RecordVerification(ctx context.Context, p VerificationParams) (*model.Evidence, *model.CustodyEvent, error)

	// SetStatus moves the record to the given lifecycle status (used for
	// in_analysis and archived) and appends the supplied event when one is
	// given. The in_analysis move carries no event: the ledger event set
	// is fixed to custody-affecting actions.
	SetStatus(ctx context.Context, p StatusParams) (*model.Evidence, *model.CustodyEvent, error)

	// SetEventAnchor fills in the external ledger reference on an already
	// appended event. This is the only post-append write events receive,
	// and it never alters what happened, only where it is anchored.
	SetEventAnchor(ctx context.Context, eventID, ref string) error

	// History returns every custody event for the evidence item in the
	// exact order recorded, oldest first.
	History(ctx context.Context, evidenceID string) ([]model.CustodyEvent, error)
}

// ListQuery holds pagination and optional filters for List.
type ListQuery struct {
	Limit  int
	Offset int
	CaseID string
	Status model.Status
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}

// TransferParams carries a validated custody transfer into the repository.
// Event is fully prepared by the caller (id, actor, details, timestamp);
// the repository assigns only its ledger sequence number.
type TransferParams struct {
	EvidenceID string
	FromRole   string
	ToRole     string
	ToName     string
	Event      model.CustodyEvent
}

// VerificationParams carries the outcome of a digest comparison.
type VerificationParams struct {
	EvidenceID string
	Match      bool
	Event      model.CustodyEvent
}

// StatusParams carries an explicit lifecycle status change. Event may be
// nil for moves that do not produce a ledger entry.
type StatusParams struct {
	EvidenceID string
	Status     model.Status
	Event      *model.CustodyEvent
}
