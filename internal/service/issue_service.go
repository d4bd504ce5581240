package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-sync/internal/domain"
	"github.com/spec-kit/support-sync/internal/events"
	"github.com/spec-kit/support-sync/internal/observability"
	"github.com/spec-kit/support-sync/internal/repository"
	"github.com/spec-kit/support-sync/internal/tracker"
	apperrors "github.com/spec-kit/support-sync/pkg/util"
)

// IssueService is the contract wrapper around the external tracker: it
// composes the remote client with the local store so candidate listing,
// import, and removal stay consistent on both sides.
type IssueService struct {
	remote     tracker.RemoteClient
	issues     repository.ExternalIssueRepository
	notes      repository.IssueNoteRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// IssueDependencies bundles collaborators for the issue service.
type IssueDependencies struct {
	Remote     tracker.RemoteClient
	IssueRepo  repository.ExternalIssueRepository
	NoteRepo   repository.IssueNoteRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// ImportAttribution identifies the portal user imported issues belong to.
// Denormalized onto the record so the unified read model can filter by email
// without consulting the identity store.
type ImportAttribution struct {
	UserID    string
	UserName  string
	UserEmail string
}

// IssueNoteInput describes a note append payload.
type IssueNoteInput struct {
	AuthorID    string
	AuthorName  string
	AuthorEmail string
	Message     string
	Internal    bool
	Role        domain.NoteRole
}

// NewIssueService constructs the service.
func NewIssueService(deps IssueDependencies) *IssueService {
	return &IssueService{
		remote:     deps.Remote,
		issues:     deps.IssueRepo,
		notes:      deps.NoteRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
	}
}

// ListCandidateIssues returns tracker issues not yet imported for the given
// repository. Safe to call repeatedly.
func (s *IssueService) ListCandidateIssues(ctx context.Context, installationRef, repository string) ([]tracker.CandidateIssue, error) {
	remote, err := s.remote.ListOpenIssues(ctx, installationRef, repository)
	if err != nil {
		return nil, err
	}
	importedIDs, err := s.issues.ListExternalIDs(ctx, repository)
	if err != nil {
		return nil, err
	}
	imported := make(map[int64]struct{}, len(importedIDs))
	for _, id := range importedIDs {
		imported[id] = struct{}{}
	}

	candidates := make([]tracker.CandidateIssue, 0, len(remote))
	for _, issue := range remote {
		if _, exists := imported[issue.ID]; exists {
			continue
		}
		candidates = append(candidates, issue)
	}
	return candidates, nil
}

// ImportIssues imports exactly the given subset. Idempotent by external id:
// re-running with the same ids creates no duplicate records, and the returned
// count reflects only rows actually created.
func (s *IssueService) ImportIssues(ctx context.Context, installationRef, repository string, forUser ImportAttribution, externalIssueIDs []int64) (int, error) {
	if len(externalIssueIDs) == 0 {
		return 0, apperrors.NewValidationError("no issues selected", nil)
	}
	remote, err := s.remote.ListOpenIssues(ctx, installationRef, repository)
	if err != nil {
		return 0, err
	}
	byID := make(map[int64]tracker.CandidateIssue, len(remote))
	for _, issue := range remote {
		byID[issue.ID] = issue
	}

	imported := 0
	for _, id := range externalIssueIDs {
		candidate, exists := byID[id]
		if !exists {
			// Selected issue vanished from the tracker between load and sync.
			s.logger.Warn("selected issue no longer on tracker",
				zap.String("repository", repository),
				zap.Int64("external_issue_id", id))
			continue
		}
		issue := s.toExternalIssue(candidate, installationRef, repository, forUser)
		inserted, err := s.issues.Insert(ctx, issue)
		if err != nil {
			return imported, apperrors.MapError(err)
		}
		if inserted {
			imported++
		}
	}

	s.metrics.RecordImportedIssues(imported)
	s.publishEvent(ctx, events.Event{
		Type:  events.EventIssuesImported,
		Actor: events.Actor{Type: domain.SubjectTypeAdmin},
		Payload: events.IssuesImportedPayload{
			InstallationRef: installationRef,
			Repository:      repository,
			RequestedIDs:    externalIssueIDs,
			ImportedCount:   imported,
		},
	})
	return imported, nil
}

// SetStatus updates an imported issue's status within the external
// vocabulary. The tracker itself is not touched.
func (s *IssueService) SetStatus(ctx context.Context, ticketID string, status domain.IssueStatus) error {
	if !domain.KnownIssueStatus(status) {
		return apperrors.NewValidationError("unknown issue status", map[string]any{"status": status})
	}
	issue, err := s.issues.GetByID(ctx, ticketID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if err := s.issues.UpdateStatus(ctx, ticketID, status); err != nil {
		return apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticketID,
		Actor:    events.Actor{Type: domain.SubjectTypeAdmin},
		Payload: events.TicketStatusChangedPayload{
			Origin:    domain.OriginExternal,
			OldStatus: string(issue.Status),
			NewStatus: string(status),
		},
	})
	return nil
}

// AppendNote appends a note to an imported issue's thread. Customer-visible
// notes are mirrored onto the tracker issue as a comment; internal notes stay
// local.
func (s *IssueService) AppendNote(ctx context.Context, ticketID string, input IssueNoteInput) (*domain.IssueNote, error) {
	if strings.TrimSpace(input.Message) == "" {
		return nil, apperrors.NewValidationError("message required", nil)
	}
	issue, err := s.issues.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	role := input.Role
	if role != domain.NoteRoleAdmin {
		role = domain.NoteRoleCustomer
	}
	note := &domain.IssueNote{
		IssueID:     ticketID,
		AuthorID:    input.AuthorID,
		AuthorName:  input.AuthorName,
		AuthorEmail: input.AuthorEmail,
		Message:     strings.TrimSpace(input.Message),
		Internal:    input.Internal,
		Role:        role,
	}
	if err := s.notes.Append(ctx, note); err != nil {
		return nil, err
	}
	if !note.Internal {
		// Best effort: the local note is the source of truth, a tracker
		// hiccup must not roll it back.
		if err := s.remote.CreateComment(ctx, issue.InstallationRef, issue.Repository, issue.ExternalIssueID, commentBody(note)); err != nil {
			s.logger.Warn("note not mirrored to tracker",
				zap.String("ticket_id", ticketID),
				zap.Int64("external_issue_id", issue.ExternalIssueID),
				zap.Error(err))
		}
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventNoteAdded,
		TicketID: ticketID,
		Actor:    noteActor(note),
		Payload: events.NoteAddedPayload{
			Origin:   domain.OriginExternal,
			NoteID:   note.ID,
			Role:     note.Role,
			Internal: note.Internal,
		},
	})
	return note, nil
}

func commentBody(note *domain.IssueNote) string {
	if note.AuthorName == "" {
		return note.Message
	}
	return note.AuthorName + ": " + note.Message
}

func noteActor(note *domain.IssueNote) events.Actor {
	if note.Role == domain.NoteRoleAdmin {
		return adminActor(note.AuthorID)
	}
	return userActor(note.AuthorID)
}

// ClosePermanently closes the issue on the external tracker and removes the
// internal record. Irreversible. A tracker-side not-found is tolerated: the
// issue is already gone there, only the local cleanup remains.
func (s *IssueService) ClosePermanently(ctx context.Context, ticketID, installationRef, repository string, externalIssueID int64) error {
	if err := s.remote.CloseIssue(ctx, installationRef, repository, externalIssueID); err != nil && !apperrors.IsNotFound(err) {
		return err
	}
	if err := s.issues.Delete(ctx, ticketID); err != nil {
		return apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventIssueRemoved,
		TicketID: ticketID,
		Actor:    events.Actor{Type: domain.SubjectTypeAdmin},
		Payload: events.IssueRemovedPayload{
			Repository:      repository,
			ExternalIssueID: externalIssueID,
			ClosedOnTracker: true,
		},
	})
	return nil
}

// RemoveFromView removes only the internal record; the tracker issue is
// untouched and can be re-imported later.
func (s *IssueService) RemoveFromView(ctx context.Context, ticketID string) error {
	issue, err := s.issues.GetByID(ctx, ticketID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if err := s.issues.Delete(ctx, ticketID); err != nil {
		return apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventIssueRemoved,
		TicketID: ticketID,
		Actor:    events.Actor{Type: domain.SubjectTypeAdmin},
		Payload: events.IssueRemovedPayload{
			Repository:      issue.Repository,
			ExternalIssueID: issue.ExternalIssueID,
			ClosedOnTracker: false,
		},
	})
	return nil
}

// List returns imported issues with their note threads populated.
func (s *IssueService) List(ctx context.Context, filter repository.IssueFilter) ([]domain.ExternalIssue, error) {
	issues, err := s.issues.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range issues {
		notes, err := s.notes.ListByIssue(ctx, issues[i].ID)
		if err != nil {
			return nil, err
		}
		issues[i].Notes = notes
	}
	return issues, nil
}

// GetWithNotes fetches one imported issue and its thread.
func (s *IssueService) GetWithNotes(ctx context.Context, ticketID string) (*domain.ExternalIssue, error) {
	issue, err := s.issues.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	notes, err := s.notes.ListByIssue(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	issue.Notes = notes
	return issue, nil
}

func (s *IssueService) toExternalIssue(candidate tracker.CandidateIssue, installationRef, repository string, forUser ImportAttribution) *domain.ExternalIssue {
	status := domain.IssueStatus(candidate.State)
	if !domain.KnownIssueStatus(status) {
		status = domain.IssueStatusOpen
	}
	issue := &domain.ExternalIssue{
		ExternalIssueID: candidate.ID,
		ExternalURL:     candidate.URL,
		Title:           candidate.Title,
		Body:            candidate.Body,
		Status:          status,
		Repository:      repository,
		InstallationRef: installationRef,
		UserID:          forUser.UserID,
		UserName:        forUser.UserName,
		UserEmail:       forUser.UserEmail,
		Labels:          candidate.Labels,
		Assignees:       candidate.Assignees,
	}
	if candidate.CreatedAtMillis > 0 {
		t := time.UnixMilli(candidate.CreatedAtMillis).UTC()
		issue.ExternalCreatedAt = &t
	}
	if candidate.UpdatedAtMillis > 0 {
		t := time.UnixMilli(candidate.UpdatedAtMillis).UTC()
		issue.ExternalUpdatedAt = &t
	}
	return issue
}

func (s *IssueService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
