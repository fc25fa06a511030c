package model

import "time"

// EventType names a custody-affecting action recorded on the ledger.
type EventType string

const (
	EventCreated     EventType = "created"
	EventTransferred EventType = "transferred"
	EventVerified    EventType = "verified"
	EventArchived    EventType = "archived"
)

// Valid reports whether e is a known custody event type.
func (e EventType) Valid() bool {
	switch e {
	case EventCreated, EventTransferred, EventVerified, EventArchived:
		return true
	}
	return false
}

// CustodyEvent is one immutable ledger entry for an evidence record. The
// ledger is append-only: events are never updated or deleted, and Seq is a
// per-evidence monotonically increasing number assigned at insert time,
// giving a total order even when timestamps collide.
type CustodyEvent struct {
	ID              string    `json:"id"`
	EvidenceID      string    `json:"evidence_id"`
	Seq             int64     `json:"seq"`
	Event           EventType `json:"event"`
	ActorRole       string    `json:"actor_role"`
	ActorName       string    `json:"actor_name"`
	Details         string    `json:"details,omitempty"`
	LedgerReference string    `json:"ledger_reference,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}
