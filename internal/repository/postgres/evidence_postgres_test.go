package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"evidapi/internal/model"
	"evidapi/internal/repository"
)

var evidenceCols = []string{
	"id", "case_id", "evidence_type", "description", "notes", "original_filename",
	"storage_path", "file_size", "content_type", "content_digest", "status", "custodian",
	"custodian_name", "integrity_verified", "ledger_reference", "created_at", "updated_at",
}

var eventCols = []string{
	"id", "evidence_id", "seq", "event", "actor_role", "actor_name", "details",
	"ledger_reference", "occurred_at",
}

func evidenceRow(ev *model.Evidence) *sqlmock.Rows {
	return sqlmock.NewRows(evidenceCols).AddRow(
		ev.ID, ev.CaseID, ev.EvidenceType, ev.Description, ev.Notes, ev.OriginalFilename,
		ev.StoragePath, ev.FileSize, ev.ContentType, ev.ContentDigest, ev.Status, ev.Custodian,
		ev.CustodianName, ev.IntegrityVerified, ev.LedgerReference, ev.CreatedAt, ev.UpdatedAt,
	)
}

func eventRow(e *model.CustodyEvent) *sqlmock.Rows {
	return sqlmock.NewRows(eventCols).AddRow(
		e.ID, e.EvidenceID, e.Seq, e.Event, e.ActorRole, e.ActorName, e.Details,
		e.LedgerReference, e.Timestamp,
	)
}

func sampleEvidence() *model.Evidence {
	now := time.Now().UTC()
	return &model.Evidence{
		ID:               "EV-2024-001",
		CaseID:           "CASE-42",
		EvidenceType:     model.TypeDocument,
		OriginalFilename: "report.pdf",
		StoragePath:      "evidence/abc.pdf",
		FileSize:         2048,
		ContentType:      "application/pdf",
		ContentDigest:    "d2a84f4b8b650937ec8f73cd8be2c74add5a911ba64df27458ed8229da804a26",
		Status:           model.StatusRegistered,
		Custodian:        "police",
		CustodianName:    "Officer John Smith",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func sampleEvent(ev *model.Evidence, typ model.EventType, seq int64) *model.CustodyEvent {
	return &model.CustodyEvent{
		ID:         "01HV0000000000000000000001",
		EvidenceID: ev.ID,
		Seq:        seq,
		Event:      typ,
		ActorRole:  "police",
		ActorName:  "Officer John Smith",
		Details:    "detail",
		Timestamp:  time.Now().UTC(),
	}
}

func newMock(t *testing.T) (*EvidencePostgres, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	return NewEvidencePostgres(db), mock, func() { db.Close() }
}

func TestEvidencePostgres_NextSequence(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery("INSERT INTO evidence_id_counters").
		WithArgs(2024).
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(3))

	next, err := repo.NextSequence(context.Background(), 2024)

	assert.NoError(t, err)
	assert.Equal(t, int64(3), next)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvidencePostgres_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("record and first event in one tx", func(t *testing.T) {
		repo, mock, done := newMock(t)
		defer done()

		ev := sampleEvidence()
		first := sampleEvent(ev, model.EventCreated, 1)

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO evidence").WillReturnRows(evidenceRow(ev))
		mock.ExpectQuery("INSERT INTO custody_events").WillReturnRows(eventRow(first))
		mock.ExpectCommit()

		stored, err := repo.Create(ctx, ev, first)

		assert.NoError(t, err)
		assert.Equal(t, ev.ID, stored.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("event insert failure rolls everything back", func(t *testing.T) {
		repo, mock, done := newMock(t)
		defer done()

		ev := sampleEvidence()
		first := sampleEvent(ev, model.EventCreated, 1)

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO evidence").WillReturnRows(evidenceRow(ev))
		mock.ExpectQuery("INSERT INTO custody_events").WillReturnError(errors.New("constraint violation"))
		mock.ExpectRollback()

		_, err := repo.Create(ctx, ev, first)

		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEvidencePostgres_FindByID(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		ev := sampleEvidence()
		mock.ExpectQuery("SELECT (.+) FROM evidence WHERE id = ?").
			WithArgs(ev.ID).
			WillReturnRows(evidenceRow(ev))

		got, err := repo.FindByID(ctx, ev.ID)

		assert.NoError(t, err)
		assert.Equal(t, ev.ID, got.ID)
		assert.Equal(t, ev.ContentDigest, got.ContentDigest)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM evidence WHERE id = ?").
			WithArgs("EV-2024-999").
			WillReturnError(sql.ErrNoRows)

		got, err := repo.FindByID(ctx, "EV-2024-999")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, got)
	})
}

func TestEvidencePostgres_List(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()
	ctx := context.Background()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM evidence").
		WithArgs("CASE-42", "").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM evidence (.+) ORDER BY created_at DESC").
		WithArgs("CASE-42", "", 20, 0).
		WillReturnRows(evidenceRow(sampleEvidence()))

	res, err := repo.List(ctx, repository.ListQuery{Limit: 20, Offset: 0, CaseID: "CASE-42"})

	assert.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Len(t, res.Items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvidencePostgres_Transfer(t *testing.T) {
	ctx := context.Background()

	params := func(ev *model.Evidence) repository.TransferParams {
		return repository.TransferParams{
			EvidenceID: ev.ID,
			FromRole:   "police",
			ToRole:     "forensic_lab",
			ToName:     "Dr. Sarah Johnson",
			Event:      *sampleEvent(ev, model.EventTransferred, 2),
		}
	}

	t.Run("success", func(t *testing.T) {
		repo, mock, done := newMock(t)
		defer done()

		ev := sampleEvidence()
		p := params(ev)

		updated := *ev
		updated.Custodian = "forensic_lab"
		updated.CustodianName = "Dr. Sarah Johnson"
		updated.Status = model.StatusTransferred

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM evidence WHERE id = (.+) FOR UPDATE").
			WithArgs(ev.ID).
			WillReturnRows(evidenceRow(ev))
		mock.ExpectQuery("UPDATE evidence").
			WithArgs(ev.ID, "forensic_lab", "Dr. Sarah Johnson", model.StatusTransferred, p.Event.Timestamp).
			WillReturnRows(evidenceRow(&updated))
		mock.ExpectQuery("INSERT INTO custody_events").WillReturnRows(eventRow(&p.Event))
		mock.ExpectCommit()

		got, event, err := repo.Transfer(ctx, p)

		assert.NoError(t, err)
		assert.Equal(t, "forensic_lab", got.Custodian)
		assert.Equal(t, model.EventTransferred, event.Event)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("custodian changed under us", func(t *testing.T) {
		repo, mock, done := newMock(t)
		defer done()

		ev := sampleEvidence()
		ev.Custodian = "prosecutor"

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM evidence WHERE id = (.+) FOR UPDATE").
			WithArgs(ev.ID).
			WillReturnRows(evidenceRow(ev))
		mock.ExpectRollback()

		_, _, err := repo.Transfer(ctx, params(sampleEvidence()))

		assert.ErrorIs(t, err, repository.ErrStaleCustodian)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("archived item", func(t *testing.T) {
		repo, mock, done := newMock(t)
		defer done()

		ev := sampleEvidence()
		ev.Status = model.StatusArchived

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM evidence WHERE id = (.+) FOR UPDATE").
			WithArgs(ev.ID).
			WillReturnRows(evidenceRow(ev))
		mock.ExpectRollback()

		_, _, err := repo.Transfer(ctx, params(sampleEvidence()))

		assert.ErrorIs(t, err, repository.ErrArchived)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown id", func(t *testing.T) {
		repo, mock, done := newMock(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM evidence WHERE id = (.+) FOR UPDATE").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, _, err := repo.Transfer(ctx, params(sampleEvidence()))

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEvidencePostgres_RecordVerification(t *testing.T) {
	ctx := context.Background()

	t.Run("match promotes status to verified", func(t *testing.T) {
		repo, mock, done := newMock(t)
		defer done()

		ev := sampleEvidence()
		event := sampleEvent(ev, model.EventVerified, 2)
		p := repository.VerificationParams{EvidenceID: ev.ID, Match: true, Event: *event}

		updated := *ev
		updated.IntegrityVerified = true
		updated.Status = model.StatusVerified

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM evidence WHERE id = (.+) FOR UPDATE").
			WithArgs(ev.ID).
			WillReturnRows(evidenceRow(ev))
		mock.ExpectQuery("UPDATE evidence").
			WithArgs(ev.ID, true, model.StatusVerified, event.Timestamp).
			WillReturnRows(evidenceRow(&updated))
		mock.ExpectQuery("INSERT INTO custody_events").WillReturnRows(eventRow(event))
		mock.ExpectCommit()

		got, _, err := repo.RecordVerification(ctx, p)

		assert.NoError(t, err)
		assert.True(t, got.IntegrityVerified)
		assert.Equal(t, model.StatusVerified, got.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("mismatch keeps current status", func(t *testing.T) {
		repo, mock, done := newMock(t)
		defer done()

		ev := sampleEvidence()
		ev.Status = model.StatusTransferred
		event := sampleEvent(ev, model.EventVerified, 3)
		p := repository.VerificationParams{EvidenceID: ev.ID, Match: false, Event: *event}

		updated := *ev
		updated.IntegrityVerified = false

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM evidence WHERE id = (.+) FOR UPDATE").
			WithArgs(ev.ID).
			WillReturnRows(evidenceRow(ev))
		mock.ExpectQuery("UPDATE evidence").
			WithArgs(ev.ID, false, model.StatusTransferred, event.Timestamp).
			WillReturnRows(evidenceRow(&updated))
		mock.ExpectQuery("INSERT INTO custody_events").WillReturnRows(eventRow(event))
		mock.ExpectCommit()

		got, _, err := repo.RecordVerification(ctx, p)

		assert.NoError(t, err)
		assert.False(t, got.IntegrityVerified)
		assert.Equal(t, model.StatusTransferred, got.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEvidencePostgres_SetStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("with event", func(t *testing.T) {
		repo, mock, done := newMock(t)
		defer done()

		ev := sampleEvidence()
		event := sampleEvent(ev, model.EventArchived, 4)

		updated := *ev
		updated.Status = model.StatusArchived

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM evidence WHERE id = (.+) FOR UPDATE").
			WithArgs(ev.ID).
			WillReturnRows(evidenceRow(ev))
		mock.ExpectQuery("UPDATE evidence").
			WithArgs(ev.ID, model.StatusArchived, event.Timestamp).
			WillReturnRows(evidenceRow(&updated))
		mock.ExpectQuery("INSERT INTO custody_events").WillReturnRows(eventRow(event))
		mock.ExpectCommit()

		got, gotEvent, err := repo.SetStatus(ctx, repository.StatusParams{
			EvidenceID: ev.ID, Status: model.StatusArchived, Event: event,
		})

		assert.NoError(t, err)
		assert.Equal(t, model.StatusArchived, got.Status)
		assert.NotNil(t, gotEvent)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("without event", func(t *testing.T) {
		repo, mock, done := newMock(t)
		defer done()

		ev := sampleEvidence()
		ev.Status = model.StatusTransferred

		updated := *ev
		updated.Status = model.StatusInAnalysis

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM evidence WHERE id = (.+) FOR UPDATE").
			WithArgs(ev.ID).
			WillReturnRows(evidenceRow(ev))
		mock.ExpectQuery("UPDATE evidence").
			WithArgs(ev.ID, model.StatusInAnalysis, sqlmock.AnyArg()).
			WillReturnRows(evidenceRow(&updated))
		mock.ExpectCommit()

		got, gotEvent, err := repo.SetStatus(ctx, repository.StatusParams{
			EvidenceID: ev.ID, Status: model.StatusInAnalysis,
		})

		assert.NoError(t, err)
		assert.Equal(t, model.StatusInAnalysis, got.Status)
		assert.Nil(t, gotEvent)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEvidencePostgres_SetEventAnchor(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE custody_events SET ledger_reference").
		WithArgs("01HV0000000000000000000001", "0xdeadbeef01234567").
		WillReturnRows(sqlmock.NewRows([]string{"evidence_id"}).AddRow("EV-2024-001"))
	mock.ExpectExec("UPDATE evidence SET ledger_reference").
		WithArgs("EV-2024-001", "0xdeadbeef01234567").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.SetEventAnchor(context.Background(), "01HV0000000000000000000001", "0xdeadbeef01234567")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvidencePostgres_History(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	ev := sampleEvidence()
	rows := sqlmock.NewRows(eventCols)
	for seq, typ := range []model.EventType{model.EventCreated, model.EventTransferred, model.EventVerified} {
		rows.AddRow("01HV000000000000000000000"+string(rune('1'+seq)), ev.ID, int64(seq+1), typ,
			"police", "Officer John Smith", "", "", time.Now().UTC())
	}
	mock.ExpectQuery("SELECT (.+) FROM custody_events WHERE evidence_id = (.+) ORDER BY seq ASC").
		WithArgs(ev.ID).
		WillReturnRows(rows)

	events, err := repo.History(context.Background(), ev.ID)

	assert.NoError(t, err)
	assert.Len(t, events, 3)
	assert.Equal(t, model.EventCreated, events[0].Event)
	assert.Equal(t, int64(3), events[2].Seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}
