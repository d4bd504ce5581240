package events

import (
	"time"

	"github.com/spec-kit/support-sync/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestCreated      EventType = "request_created"
	EventIssuesImported      EventType = "issues_imported"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventNoteAdded           EventType = "note_added"
	EventIssueRemoved        EventType = "issue_removed"
	EventSyncFailed          EventType = "sync_failed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type    domain.SubjectType `json:"type"`
	UserID  *string            `json:"user_id,omitempty"`
	AdminID *string            `json:"admin_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// RequestCreatedPayload payload.
type RequestCreatedPayload struct {
	UserEmail string  `json:"user_email"`
	RepoRef   *string `json:"repo_ref,omitempty"`
}

// IssuesImportedPayload payload.
type IssuesImportedPayload struct {
	InstallationRef string  `json:"installation_ref"`
	Repository      string  `json:"repository"`
	RequestedIDs    []int64 `json:"requested_ids"`
	ImportedCount   int     `json:"imported_count"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	Origin    domain.Origin `json:"origin"`
	OldStatus string        `json:"old_status"`
	NewStatus string        `json:"new_status"`
}

// NoteAddedPayload payload.
type NoteAddedPayload struct {
	Origin   domain.Origin   `json:"origin"`
	NoteID   string          `json:"note_id"`
	Role     domain.NoteRole `json:"role"`
	Internal bool            `json:"internal"`
}

// IssueRemovedPayload payload.
type IssueRemovedPayload struct {
	Repository      string `json:"repository"`
	ExternalIssueID int64  `json:"external_issue_id"`
	ClosedOnTracker bool   `json:"closed_on_tracker"`
}

// SyncFailedPayload payload.
type SyncFailedPayload struct {
	InstallationRef string `json:"installation_ref"`
	Repository      string `json:"repository"`
	Operation       string `json:"operation"`
	ErrorCode       string `json:"error_code"`
	Reason          string `json:"reason"`
}
