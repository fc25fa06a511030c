package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"evidapi/internal/anchor"
	"evidapi/internal/auth"
	"evidapi/internal/fingerprint"
	"evidapi/internal/ids"
	"evidapi/internal/model"
	"evidapi/internal/repository"
	"evidapi/internal/storage"
)

// Error taxonomy returned to callers. Every error from this package wraps
// exactly one of these sentinels; the HTTP layer maps them to status codes
// with errors.Is. StorageUnavailable and Conflict are the only kinds a
// client should retry.
var (
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("evidence not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidState       = errors.New("operation not allowed in current state")
	ErrStorageUnavailable = errors.New("evidence content unavailable")
	ErrConflict           = errors.New("concurrent modification conflict")
)

// Roles allowed to perform each restricted operation. Flat membership
// checks, no hierarchy.
var (
	registerRoles = []auth.Role{auth.RolePolice, auth.RoleForensicLab}
	analysisRoles = []auth.Role{auth.RoleForensicLab}
	archiveRoles  = []auth.Role{auth.RoleProsecutor, auth.RoleJudge}
)

// RegisterRequest is the metadata accompanying an evidence upload.
type RegisterRequest struct {
	CaseID       string
	Description  string
	EvidenceType string
	Notes        string
}

// TransferRequest describes a custody handoff. It is transient: it exists
// only to produce a custody event and is never persisted itself.
type TransferRequest struct {
	ToRole string
	ToName string
	Reason string
	Notes  string
}

// TransferResult pairs the updated record with the custody event the
// transfer appended.
type TransferResult struct {
	Evidence *model.Evidence     `json:"evidence"`
	Event    *model.CustodyEvent `json:"event"`
}

// VerificationResult is the transient outcome of an integrity check.
type VerificationResult struct {
	EvidenceID       string `json:"evidence_id"`
	Filename         string `json:"filename"`
	Verified         bool   `json:"verified"`
	Message          string `json:"message"`
	RecordedDigest   string `json:"recorded_digest"`
	RecomputedDigest string `json:"recomputed_digest"`
	LedgerReference  string `json:"ledger_reference,omitempty"`
}

// EvidenceListResult is the service-level DTO for paginated evidence.
type EvidenceListResult struct {
	Items []model.Evidence `json:"data"`
	Total int              `json:"total"`
}

// CustodyHistory is the ordered event timeline for one evidence item.
type CustodyHistory struct {
	EvidenceID string               `json:"evidence_id"`
	Timeline   []model.CustodyEvent `json:"timeline"`
}

// ListQuery carries pagination and optional filters into List.
type ListQuery struct {
	Limit  int
	Offset int
	CaseID string
	Status string
}

// EvidenceService defines the core chain-of-custody use cases. Every
// method takes the acting Actor explicitly; nothing here reads ambient
// session state.
type EvidenceService interface {
	// Register fingerprints and stores an uploaded artifact, allocates an
	// EV-<year>-<sequence> id and records the created event.
	Register(ctx context.Context, r io.Reader, filename, contentType string, size int64, meta RegisterRequest, actor *auth.Actor) (*model.Evidence, error)

	// Get returns a single evidence record by its ID.
	Get(ctx context.Context, id string) (*model.Evidence, error)

	// List returns evidence ordered newest first.
	List(ctx context.Context, q ListQuery) (*EvidenceListResult, error)

	// Transfer hands custody to another role. Only the current custodian
	// may initiate it.
	Transfer(ctx context.Context, id string, req TransferRequest, actor *auth.Actor) (*TransferResult, error)

	// Verify recomputes the content digest and compares it to the one
	// recorded at registration. A mismatch is a reportable outcome, not an
	// error; unreachable content is ErrStorageUnavailable and leaves the
	// integrity flag untouched.
	Verify(ctx context.Context, id string, actor *auth.Actor) (*VerificationResult, error)

	// History returns the full custody timeline, oldest event first.
	History(ctx context.Context, id string) (*CustodyHistory, error)

	// DownloadURL returns a presigned, time-limited URL for the artifact bytes.
	DownloadURL(ctx context.Context, id string) (string, error)

	// BeginAnalysis moves a verified or transferred item into analysis.
	BeginAnalysis(ctx context.Context, id string, actor *auth.Actor) (*model.Evidence, error)

	// Archive applies retention closure. Terminal: no further transfers or
	// verifications are accepted afterwards.
	Archive(ctx context.Context, id, reason string, actor *auth.Actor) (*model.Evidence, error)
}

// evidenceService is the concrete implementation of EvidenceService.
type evidenceService struct {
	store         storage.Storage
	repo          repository.EvidenceRepository
	anchor        anchor.Anchor
	anchorTimeout time.Duration
}

// NewEvidenceService constructs an EvidenceService. anc may be nil to
// disable external anchoring entirely.
func NewEvidenceService(store storage.Storage, repo repository.EvidenceRepository, anc anchor.Anchor, anchorTimeout time.Duration) EvidenceService {
	if anchorTimeout <= 0 {
		anchorTimeout = 2 * time.Second
	}
	return &evidenceService{store: store, repo: repo, anchor: anc, anchorTimeout: anchorTimeout}
}

func (s *evidenceService) Register(ctx context.Context, r io.Reader, filename, contentType string, size int64, meta RegisterRequest, actor *auth.Actor) (*model.Evidence, error) {
	if actor == nil {
		return nil, fmt.Errorf("%w: actor is required", ErrForbidden)
	}
	if !actor.Role.In(registerRoles...) {
		return nil, fmt.Errorf("%w: only police and forensic lab can register evidence", ErrForbidden)
	}
	if r == nil {
		return nil, fmt.Errorf("%w: file content is required", ErrValidation)
	}
	if strings.TrimSpace(meta.CaseID) == "" {
		return nil, fmt.Errorf("%w: case_id is required", ErrValidation)
	}
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrValidation)
	}
	evidenceType := model.EvidenceType(strings.TrimSpace(strings.ToLower(meta.EvidenceType)))
	if !evidenceType.Valid() {
		return nil, fmt.Errorf("%w: unknown evidence_type %q", ErrValidation, meta.EvidenceType)
	}

	// Stream to object storage and fingerprint in a single pass.
	hasher := fingerprint.NewHasher()
	tee := io.TeeReader(r, hasher)
	key := filepath.ToSlash(filepath.Join("evidence", uuid.New().String()+filepath.Ext(filename)))

	objInfo, err := s.store.Put(ctx, key, tee, storage.PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": filename,
			"case-id":           meta.CaseID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}
	digest := hasher.Digest()

	now := time.Now().UTC()
	id, err := s.nextEvidenceID(ctx, now)
	if err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("allocate id failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("allocate id: %w", err)
	}

	ev := &model.Evidence{
		ID:               id,
		CaseID:           strings.TrimSpace(meta.CaseID),
		EvidenceType:     evidenceType,
		Description:      strings.TrimSpace(meta.Description),
		Notes:            strings.TrimSpace(meta.Notes),
		OriginalFilename: filename,
		StoragePath:      objInfo.Key,
		FileSize:         objInfo.Size,
		ContentType:      objInfo.ContentType,
		ContentDigest:    digest,
		Status:           model.StatusRegistered,
		Custodian:        string(actor.Role),
		CustodianName:    actor.Name,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	created := &model.CustodyEvent{
		ID:         ids.New(),
		EvidenceID: id,
		Event:      model.EventCreated,
		ActorRole:  string(actor.Role),
		ActorName:  actor.Name,
		Details:    fmt.Sprintf("Evidence uploaded: %s", filename),
		Timestamp:  now,
	}

	stored, err := s.repo.Create(ctx, ev, created)
	if err != nil {
		// Rollback: the object must not outlive a failed registration.
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	if ref := s.anchorEvent(ctx, created); ref != "" {
		stored.LedgerReference = ref
	}
	return stored, nil
}

func (s *evidenceService) Get(ctx context.Context, id string) (*model.Evidence, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: id is required", ErrValidation)
	}
	ev, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	return ev, nil
}

func (s *evidenceService) List(ctx context.Context, q ListQuery) (*EvidenceListResult, error) {
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	var status model.Status
	if q.Status != "" {
		status = model.Status(q.Status)
		if !status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, q.Status)
		}
	}

	res, err := s.repo.List(ctx, repository.ListQuery{
		Limit:  q.Limit,
		Offset: q.Offset,
		CaseID: strings.TrimSpace(q.CaseID),
		Status: status,
	})
	if err != nil {
		return nil, err
	}
	return &EvidenceListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *evidenceService) Transfer(ctx context.Context, id string, req TransferRequest, actor *auth.Actor) (*TransferResult, error) {
	if actor == nil {
		return nil, fmt.Errorf("%w: actor is required", ErrForbidden)
	}
	toRole, err := auth.ParseRole(req.ToRole)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if strings.TrimSpace(req.ToName) == "" {
		return nil, fmt.Errorf("%w: to_name is required", ErrValidation)
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrValidation)
	}

	ev, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ev.Status.Terminal() {
		return nil, fmt.Errorf("%w: evidence %s is archived", ErrInvalidState, id)
	}
	if string(actor.Role) != ev.Custodian {
		return nil, fmt.Errorf("%w: only current custodian (%s) can transfer custody", ErrForbidden, ev.Custodian)
	}
	if string(toRole) == ev.Custodian {
		return nil, fmt.Errorf("%w: cannot transfer custody to the current custodian role", ErrValidation)
	}

	now := time.Now().UTC()
	details := fmt.Sprintf("Custody transferred from %s to %s: %s", ev.Custodian, toRole, strings.TrimSpace(req.Reason))
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		details += " (" + notes + ")"
	}
	event := model.CustodyEvent{
		ID:         ids.New(),
		EvidenceID: ev.ID,
		Event:      model.EventTransferred,
		ActorRole:  string(actor.Role),
		ActorName:  actor.Name,
		Details:    details,
		Timestamp:  now,
	}

	updated, stored, err := s.repo.Transfer(ctx, repository.TransferParams{
		EvidenceID: ev.ID,
		FromRole:   string(actor.Role),
		ToRole:     string(toRole),
		ToName:     strings.TrimSpace(req.ToName),
		Event:      event,
	})
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		case errors.Is(err, repository.ErrArchived):
			return nil, fmt.Errorf("%w: evidence %s is archived", ErrInvalidState, id)
		case errors.Is(err, repository.ErrStaleCustodian):
			return nil, fmt.Errorf("%w: custody changed concurrently, refresh and retry", ErrConflict)
		}
		return nil, err
	}

	if ref := s.anchorEvent(ctx, stored); ref != "" {
		stored.LedgerReference = ref
		updated.LedgerReference = ref
	}
	return &TransferResult{Evidence: updated, Event: stored}, nil
}

func (s *evidenceService) Verify(ctx context.Context, id string, actor *auth.Actor) (*VerificationResult, error) {
	if actor == nil {
		return nil, fmt.Errorf("%w: actor is required", ErrForbidden)
	}
	ev, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ev.Status.Terminal() {
		return nil, fmt.Errorf("%w: evidence %s is archived", ErrInvalidState, id)
	}

	// The content read and digest recomputation run without any exclusion:
	// hashing a large artifact must not block transfers. Only the final
	// compare-and-set below takes the row lock.
	rc, _, err := s.store.Get(ctx, ev.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	recomputed, err := fingerprint.Sum(rc)
	rc.Close()
	if err != nil {
		// A half-read stream proves nothing about tampering; the prior
		// integrity flag stays as it was and no event is appended.
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	match := recomputed == ev.ContentDigest
	outcome := "PASSED"
	if !match {
		outcome = "FAILED"
	}
	now := time.Now().UTC()
	event := model.CustodyEvent{
		ID:         ids.New(),
		EvidenceID: ev.ID,
		Event:      model.EventVerified,
		ActorRole:  string(actor.Role),
		ActorName:  actor.Name,
		Details:    fmt.Sprintf("Integrity verification: %s", outcome),
		Timestamp:  now,
	}

	_, stored, err := s.repo.RecordVerification(ctx, repository.VerificationParams{
		EvidenceID: ev.ID,
		Match:      match,
		Event:      event,
	})
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		case errors.Is(err, repository.ErrArchived):
			return nil, fmt.Errorf("%w: evidence %s is archived", ErrInvalidState, id)
		}
		return nil, err
	}

	result := &VerificationResult{
		EvidenceID:       ev.ID,
		Filename:         ev.OriginalFilename,
		Verified:         match,
		RecordedDigest:   ev.ContentDigest,
		RecomputedDigest: recomputed,
	}
	if match {
		result.Message = "Hash matches. No tampering detected."
	} else {
		result.Message = "Hash mismatch — possible tampering."
	}
	if ref := s.anchorEvent(ctx, stored); ref != "" {
		result.LedgerReference = ref
	}
	return result, nil
}

func (s *evidenceService) History(ctx context.Context, id string) (*CustodyHistory, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	events, err := s.repo.History(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CustodyHistory{EvidenceID: id, Timeline: events}, nil
}

func (s *evidenceService) DownloadURL(ctx context.Context, id string) (string, error) {
	ev, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	url, err := s.store.PresignGet(ctx, ev.StoragePath, 15*time.Minute)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return url, nil
}

func (s *evidenceService) BeginAnalysis(ctx context.Context, id string, actor *auth.Actor) (*model.Evidence, error) {
	if actor == nil || !actor.Role.In(analysisRoles...) {
		return nil, fmt.Errorf("%w: only the forensic lab can begin analysis", ErrForbidden)
	}
	ev, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ev.Status != model.StatusVerified && ev.Status != model.StatusTransferred {
		return nil, fmt.Errorf("%w: analysis requires a verified or transferred item, got %s", ErrInvalidState, ev.Status)
	}
	if string(actor.Role) != ev.Custodian {
		return nil, fmt.Errorf("%w: only current custodian (%s) can begin analysis", ErrForbidden, ev.Custodian)
	}

	updated, _, err := s.repo.SetStatus(ctx, repository.StatusParams{
		EvidenceID: ev.ID,
		Status:     model.StatusInAnalysis,
	})
	if err != nil {
		return nil, s.mapStatusErr(err, id)
	}
	return updated, nil
}

func (s *evidenceService) Archive(ctx context.Context, id, reason string, actor *auth.Actor) (*model.Evidence, error) {
	if actor == nil || !actor.Role.In(archiveRoles...) {
		return nil, fmt.Errorf("%w: only prosecutor or judge can archive evidence", ErrForbidden)
	}
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrValidation)
	}
	ev, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ev.Status.Terminal() {
		return nil, fmt.Errorf("%w: evidence %s is already archived", ErrInvalidState, id)
	}

	now := time.Now().UTC()
	event := &model.CustodyEvent{
		ID:         ids.New(),
		EvidenceID: ev.ID,
		Event:      model.EventArchived,
		ActorRole:  string(actor.Role),
		ActorName:  actor.Name,
		Details:    fmt.Sprintf("Evidence archived: %s", strings.TrimSpace(reason)),
		Timestamp:  now,
	}
	updated, stored, err := s.repo.SetStatus(ctx, repository.StatusParams{
		EvidenceID: ev.ID,
		Status:     model.StatusArchived,
		Event:      event,
	})
	if err != nil {
		return nil, s.mapStatusErr(err, id)
	}
	if ref := s.anchorEvent(ctx, stored); ref != "" {
		updated.LedgerReference = ref
	}
	return updated, nil
}

func (s *evidenceService) mapStatusErr(err error, id string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	case errors.Is(err, repository.ErrArchived):
		return fmt.Errorf("%w: evidence %s is archived", ErrInvalidState, id)
	}
	return err
}

// nextEvidenceID mints the next EV-<year>-<sequence> identifier.
func (s *evidenceService) nextEvidenceID(ctx context.Context, now time.Time) (string, error) {
	seq, err := s.repo.NextSequence(ctx, now.Year())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("EV-%d-%03d", now.Year(), seq), nil
}

// anchorEvent mirrors the event to the external ledger, best-effort. The
// local append already committed; anchor or bookkeeping failures are
// logged and otherwise ignored so ledger availability never gates custody
// operations.
func (s *evidenceService) anchorEvent(ctx context.Context, event *model.CustodyEvent) string {
	if s.anchor == nil || event == nil {
		return ""
	}
	actx, cancel := context.WithTimeout(ctx, s.anchorTimeout)
	defer cancel()

	ref, err := s.anchor.Anchor(actx, event)
	if err != nil {
		log.Printf(`{"level":"warn","msg":"anchor failed","event_id":%q,"error":%q}`, event.ID, err.Error())
		return ""
	}
	if err := s.repo.SetEventAnchor(ctx, event.ID, ref); err != nil {
		log.Printf(`{"level":"warn","msg":"record anchor reference failed","event_id":%q,"error":%q}`, event.ID, err.Error())
		return ref
	}
	event.LedgerReference = ref
	return ref
}
