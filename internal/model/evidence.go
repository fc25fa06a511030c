package model

import "time"

// EvidenceType classifies the kind of digital artifact a record tracks.
type EvidenceType string

const (
	TypeDocument        EvidenceType = "document"
	TypeImage           EvidenceType = "image"
	TypeVideo           EvidenceType = "video"
	TypeAudio           EvidenceType = "audio"
	TypeDigitalArtifact EvidenceType = "digital_artifact"
)

// Valid reports whether t is one of the known evidence types.
func (t EvidenceType) Valid() bool {
	switch t {
	case TypeDocument, TypeImage, TypeVideo, TypeAudio, TypeDigitalArtifact:
		return true
	}
	return false
}

// Status is the lifecycle state of an evidence record.
type Status string

const (
	StatusRegistered  Status = "registered"
	StatusInAnalysis  Status = "in_analysis"
	StatusVerified    Status = "verified"
	StatusTransferred Status = "transferred"
	StatusArchived    Status = "archived"
)

// Valid reports whether s is a known lifecycle status.
func (s Status) Valid() bool {
	switch s {
	case StatusRegistered, StatusInAnalysis, StatusVerified, StatusTransferred, StatusArchived:
		return true
	}
	return false
}

// Terminal reports whether the status accepts no further transfers or
// verifications. Archived is the only terminal state.
func (s Status) Terminal() bool {
	return s == StatusArchived
}

// Evidence represents a registered digital artifact together with its
// integrity and custody metadata. This is a pure domain model with no
// database-specific dependencies or tags; it is shared across the HTTP,
// service and repository layers.
//
// ContentDigest is set exactly once at registration and never recomputed
// in place: verification produces a fresh digest for comparison only.
type Evidence struct {
	ID                string       `json:"id"`
	CaseID            string       `json:"case_id"`
	EvidenceType      EvidenceType `json:"evidence_type"`
	Description       string       `json:"description"`
	Notes             string       `json:"notes,omitempty"`
	OriginalFilename  string       `json:"original_filename"`
	StoragePath       string       `json:"storage_path"`
	FileSize          int64        `json:"file_size"`
	ContentType       string       `json:"content_type"`
	ContentDigest     string       `json:"content_digest"`
	Status            Status       `json:"status"`
	Custodian         string       `json:"custodian"`
	CustodianName     string       `json:"custodian_name"`
	IntegrityVerified bool         `json:"integrity_verified"`
	LedgerReference   string       `json:"ledger_reference,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}
