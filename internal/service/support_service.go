package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/support-sync/internal/domain"
	"github.com/spec-kit/support-sync/internal/events"
	"github.com/spec-kit/support-sync/internal/repository"
	apperrors "github.com/spec-kit/support-sync/pkg/util"
)

// SupportService coordinates internally authored support requests.
type SupportService struct {
	requests   repository.SupportRequestRepository
	notes      repository.RequestNoteRepository
	dispatcher events.Dispatcher
}

// SupportDependencies bundles repositories for the support service.
type SupportDependencies struct {
	RequestRepo repository.SupportRequestRepository
	NoteRepo    repository.RequestNoteRepository
	Dispatcher  events.Dispatcher
}

// CreateRequestInput describes request creation payload.
type CreateRequestInput struct {
	UserID    string
	UserName  string
	UserEmail string
	Message   string
	RepoRef   *string
}

// RequestNoteInput describes a note append payload.
type RequestNoteInput struct {
	AuthorID    string
	AuthorName  string
	AuthorEmail string
	Message     string
	Role        domain.NoteRole
}

// NewSupportService constructs the service.
func NewSupportService(deps SupportDependencies) *SupportService {
	return &SupportService{
		requests:   deps.RequestRepo,
		notes:      deps.NoteRepo,
		dispatcher: deps.Dispatcher,
	}
}

// CreateRequest creates a support request for a user.
func (s *SupportService) CreateRequest(ctx context.Context, input CreateRequestInput) (*domain.SupportRequest, error) {
	if input.UserID == "" {
		return nil, apperrors.NewValidationError("user id required", nil)
	}
	if strings.TrimSpace(input.Message) == "" {
		return nil, apperrors.NewValidationError("message required", nil)
	}

	req := &domain.SupportRequest{
		UserID:    input.UserID,
		UserName:  input.UserName,
		UserEmail: input.UserEmail,
		Message:   strings.TrimSpace(input.Message),
		RepoRef:   input.RepoRef,
		Status:    domain.RequestStatusNew,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventRequestCreated,
		TicketID: req.ID,
		Actor:    userActor(input.UserID),
		Payload: events.RequestCreatedPayload{
			UserEmail: req.UserEmail,
			RepoRef:   req.RepoRef,
		},
	})
	return req, nil
}

// AppendNote appends a note to a request thread. Appends are single-row
// inserts, safe under concurrent admin and customer writes.
func (s *SupportService) AppendNote(ctx context.Context, requestID string, input RequestNoteInput) (*domain.RequestNote, error) {
	if strings.TrimSpace(input.Message) == "" {
		return nil, apperrors.NewValidationError("message required", nil)
	}
	if _, err := s.requests.GetByID(ctx, requestID); err != nil {
		return nil, apperrors.MapError(err)
	}

	role := input.Role
	if role != domain.NoteRoleAdmin {
		role = domain.NoteRoleCustomer
	}
	note := &domain.RequestNote{
		RequestID:   requestID,
		AuthorID:    input.AuthorID,
		AuthorName:  input.AuthorName,
		AuthorEmail: input.AuthorEmail,
		Message:     strings.TrimSpace(input.Message),
		Role:        role,
	}
	if err := s.notes.Append(ctx, note); err != nil {
		return nil, err
	}
	actor := userActor(input.AuthorID)
	if note.Role == domain.NoteRoleAdmin {
		actor = adminActor(input.AuthorID)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventNoteAdded,
		TicketID: requestID,
		Actor:    actor,
		Payload: events.NoteAddedPayload{
			Origin: domain.OriginInternal,
			NoteID: note.ID,
			Role:   note.Role,
		},
	})
	return note, nil
}

// SetStatus updates a request's status within the internal vocabulary.
func (s *SupportService) SetStatus(ctx context.Context, requestID string, status domain.RequestStatus) error {
	if !domain.KnownRequestStatus(status) {
		return apperrors.NewValidationError("unknown request status", map[string]any{"status": status})
	}
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if err := s.requests.UpdateStatus(ctx, requestID, status); err != nil {
		return apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: requestID,
		Actor:    events.Actor{Type: domain.SubjectTypeAdmin},
		Payload: events.TicketStatusChangedPayload{
			Origin:    domain.OriginInternal,
			OldStatus: string(req.Status),
			NewStatus: string(status),
		},
	})
	return nil
}

// CloseAsUser closes a request when the user owns it and it is waiting on them
// or already resolved.
func (s *SupportService) CloseAsUser(ctx context.Context, userID, requestID string) error {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if req.UserID != userID {
		return apperrors.NewUnauthorized("access denied")
	}
	if req.Status != domain.RequestStatusResolved && req.Status != domain.RequestStatusWaitingOnUser {
		return apperrors.NewValidationError("request cannot be closed in current status", map[string]any{"status": req.Status})
	}
	if err := s.requests.UpdateStatus(ctx, requestID, domain.RequestStatusClosed); err != nil {
		return apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: requestID,
		Actor:    userActor(userID),
		Payload: events.TicketStatusChangedPayload{
			Origin:    domain.OriginInternal,
			OldStatus: string(req.Status),
			NewStatus: string(domain.RequestStatusClosed),
		},
	})
	return nil
}

// List returns requests with their note threads populated.
func (s *SupportService) List(ctx context.Context, filter repository.RequestFilter) ([]domain.SupportRequest, error) {
	requests, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range requests {
		notes, err := s.notes.ListByRequest(ctx, requests[i].ID)
		if err != nil {
			return nil, err
		}
		requests[i].Notes = notes
	}
	return requests, nil
}

// GetWithNotes fetches one request and its thread.
func (s *SupportService) GetWithNotes(ctx context.Context, requestID string) (*domain.SupportRequest, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	notes, err := s.notes.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	req.Notes = notes
	return req, nil
}

func (s *SupportService) publishEvent(ctx context.Context, event events.Event) {
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

func userActor(userID string) events.Actor {
	return events.Actor{
		Type:   domain.SubjectTypeUser,
		UserID: &userID,
	}
}

func adminActor(adminID string) events.Actor {
	return events.Actor{
		Type:    domain.SubjectTypeAdmin,
		AdminID: &adminID,
	}
}
