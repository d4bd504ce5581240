package tracker

import "context"

// CandidateIssue is a tracker issue eligible for import. Timestamps are
// already normalized to canonical epoch-milliseconds; zero means the tracker
// payload carried nothing parseable.
type CandidateIssue struct {
	ID              int64
	Title           string
	Body            string
	URL             string
	State           string
	Labels          []string
	Assignees       []string
	CreatedAtMillis int64
	UpdatedAtMillis int64
}

// RemoteClient is the HTTP/auth boundary to the external tracker. Everything
// behind it is an external collaborator; the sync subsystem only depends on
// this contract.
type RemoteClient interface {
	// ListOpenIssues returns the open issues of a repository. Safe to call
	// repeatedly.
	ListOpenIssues(ctx context.Context, installationRef, repository string) ([]CandidateIssue, error)

	// CloseIssue closes one issue on the tracker. Closing an already closed
	// issue is not an error.
	CloseIssue(ctx context.Context, installationRef, repository string, externalIssueID int64) error

	// CreateComment appends a comment to a tracker issue.
	CreateComment(ctx context.Context, installationRef, repository string, externalIssueID int64, body string) error
}

// TokenSource resolves an installation reference to a working delegated
// credential. Minting and refreshing tokens is the credential issuer's job.
type TokenSource interface {
	InstallationToken(ctx context.Context, installationRef string) (string, error)
}
