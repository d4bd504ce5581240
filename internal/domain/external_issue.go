package domain

import "time"

// IssueStatus enumerates the externally evolved issue vocabulary.
type IssueStatus string

const (
	IssueStatusOpen          IssueStatus = "open"
	IssueStatusInProgress    IssueStatus = "in_progress"
	IssueStatusWaitingOnUser IssueStatus = "waiting_on_user"
	IssueStatusResolved      IssueStatus = "resolved"
	IssueStatusClosed        IssueStatus = "closed"
)

// KnownIssueStatus reports whether the given value belongs to the external vocabulary.
func KnownIssueStatus(s IssueStatus) bool {
	switch s {
	case IssueStatusOpen, IssueStatusInProgress, IssueStatusWaitingOnUser,
		IssueStatusResolved, IssueStatusClosed:
		return true
	}
	return false
}

// ExternalIssue is a tracker issue imported into the internal store. It is
// created only by the sync flow; status and notes are mutated locally after
// that. ExternalCreatedAt/ExternalUpdatedAt mirror the tracker's own clocks.
type ExternalIssue struct {
	ID                string
	ExternalIssueID   int64
	ExternalURL       string
	Title             string
	Body              string
	Status            IssueStatus
	Repository        string
	InstallationRef   string
	UserID            string
	UserName          string
	UserEmail         string
	Labels            []string
	Assignees         []string
	Notes             []IssueNote
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ExternalCreatedAt *time.Time
	ExternalUpdatedAt *time.Time
}

// IssueNote is one entry in an imported issue's thread. Internal notes are
// visible to admins only.
type IssueNote struct {
	ID          string
	IssueID     string
	AuthorID    string
	AuthorName  string
	AuthorEmail string
	Message     string
	Internal    bool
	Role        NoteRole
	CreatedAt   time.Time
}
