package dto

import (
	"github.com/spec-kit/support-sync/internal/service"
	"github.com/spec-kit/support-sync/internal/tracker"
)

// SyncScope identifies one sync flow.
type SyncScope struct {
	InstallationRef string `json:"installation_ref"`
	Repository      string `json:"repository"`
}

// SyncLoadRequest starts candidate discovery. The attribution fields name the
// user the imported issues will belong to.
type SyncLoadRequest struct {
	SyncScope
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
}

// SyncSelectRequest replaces the current selection for a flow.
type SyncSelectRequest struct {
	SyncScope
	ExternalIssueIDs []int64 `json:"external_issue_ids"`
}

// SyncRunRequest triggers the import of the selected subset.
type SyncRunRequest struct {
	SyncScope
}

// CandidateIssueResponse is one selectable remote issue.
type CandidateIssueResponse struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	URL       string   `json:"url,omitempty"`
	State     string   `json:"state"`
	Labels    []string `json:"labels,omitempty"`
	Assignees []string `json:"assignees,omitempty"`
	CreatedAt int64    `json:"created_at,omitempty"`
	UpdatedAt int64    `json:"updated_at,omitempty"`
}

// SyncStateResponse is the pollable flow snapshot.
type SyncStateResponse struct {
	State         string                   `json:"state"`
	Candidates    []CandidateIssueResponse `json:"candidates"`
	Selected      []int64                  `json:"selected"`
	ImportedCount int                      `json:"imported_count"`
	ErrorCode     string                   `json:"error_code,omitempty"`
	ErrorMessage  string                   `json:"error_message,omitempty"`
}

// FromSyncSnapshot maps the controller snapshot onto the wire shape.
func FromSyncSnapshot(snapshot service.SyncSnapshot) SyncStateResponse {
	candidates := make([]CandidateIssueResponse, 0, len(snapshot.Candidates))
	for _, candidate := range snapshot.Candidates {
		candidates = append(candidates, fromCandidate(candidate))
	}
	selected := snapshot.Selected
	if selected == nil {
		selected = []int64{}
	}
	return SyncStateResponse{
		State:         string(snapshot.State),
		Candidates:    candidates,
		Selected:      selected,
		ImportedCount: snapshot.ImportedCount,
		ErrorCode:     snapshot.ErrorCode,
		ErrorMessage:  snapshot.ErrorMessage,
	}
}

func fromCandidate(candidate tracker.CandidateIssue) CandidateIssueResponse {
	return CandidateIssueResponse{
		ID:        candidate.ID,
		Title:     candidate.Title,
		URL:       candidate.URL,
		State:     candidate.State,
		Labels:    candidate.Labels,
		Assignees: candidate.Assignees,
		CreatedAt: candidate.CreatedAtMillis,
		UpdatedAt: candidate.UpdatedAtMillis,
	}
}
