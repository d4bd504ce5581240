package domain

import "time"

// RequestStatus enumerates lifecycle states for internally authored support requests.
type RequestStatus string

const (
	RequestStatusNew           RequestStatus = "new"
	RequestStatusInProgress    RequestStatus = "in_progress"
	RequestStatusWaitingOnUser RequestStatus = "waiting_on_user"
	RequestStatusResolved      RequestStatus = "resolved"
	RequestStatusClosed        RequestStatus = "closed"
)

// KnownRequestStatus reports whether the given value belongs to the internal vocabulary.
func KnownRequestStatus(s RequestStatus) bool {
	switch s {
	case RequestStatusNew, RequestStatusInProgress, RequestStatusWaitingOnUser,
		RequestStatusResolved, RequestStatusClosed:
		return true
	}
	return false
}

// NoteRole indicates who authored a note on a ticket thread.
type NoteRole string

const (
	NoteRoleAdmin    NoteRole = "admin"
	NoteRoleCustomer NoteRole = "customer"
)

// SupportRequest is the aggregate for support tickets created inside the portal.
// Notes are append-only; requests are never hard-deleted by this subsystem.
type SupportRequest struct {
	ID        string
	UserID    string
	UserName  string
	UserEmail string
	Message   string
	RepoRef   *string
	Status    RequestStatus
	Notes     []RequestNote
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RequestNote is one entry in a support request's thread.
type RequestNote struct {
	ID          string
	RequestID   string
	AuthorID    string
	AuthorName  string
	AuthorEmail string
	Message     string
	Role        NoteRole
	CreatedAt   time.Time
}
