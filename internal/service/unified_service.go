package service

import (
	"context"
	"strings"

	"github.com/spec-kit/support-sync/internal/domain"
	"github.com/spec-kit/support-sync/internal/repository"
	apperrors "github.com/spec-kit/support-sync/pkg/util"
)

// UnifiedService exposes the merged read model and routes cross-domain
// actions on unified ids to the owning domain service.
type UnifiedService struct {
	support    *SupportService
	issues     *IssueService
	aggregator *Aggregator
}

// NewUnifiedService constructs the service.
func NewUnifiedService(support *SupportService, issues *IssueService, aggregator *Aggregator) *UnifiedService {
	return &UnifiedService{support: support, issues: issues, aggregator: aggregator}
}

// ListForUser returns the customer view: the user's own tickets from both
// origins, internal-only notes excluded.
func (s *UnifiedService) ListForUser(ctx context.Context, userID string) ([]domain.UnifiedTicket, error) {
	requests, err := s.support.List(ctx, repository.RequestFilter{UserID: &userID})
	if err != nil {
		return nil, err
	}
	issues, err := s.issues.List(ctx, repository.IssueFilter{UserID: &userID})
	if err != nil {
		return nil, err
	}
	return s.aggregator.Aggregate(requests, issues, AggregateFilter{}), nil
}

// ListForAdmin returns the admin view across all users, optionally filtered
// by user email. Internal notes are included.
func (s *UnifiedService) ListForAdmin(ctx context.Context, userEmails []string) ([]domain.UnifiedTicket, error) {
	requests, err := s.support.List(ctx, repository.RequestFilter{UserEmails: userEmails})
	if err != nil {
		return nil, err
	}
	issues, err := s.issues.List(ctx, repository.IssueFilter{})
	if err != nil {
		return nil, err
	}
	return s.aggregator.Aggregate(requests, issues, AggregateFilter{
		UserEmails:      userEmails,
		IncludeInternal: true,
	}), nil
}

// SetStatus applies a status in the internal vocabulary to either origin.
// For external tickets the value is translated through the taxonomy mapper;
// this is the only place cross-domain coercion happens.
func (s *UnifiedService) SetStatus(ctx context.Context, unifiedID string, status domain.RequestStatus) error {
	origin, rawID, err := SplitUnifiedID(unifiedID)
	if err != nil {
		return err
	}
	switch origin {
	case domain.OriginInternal:
		return s.support.SetStatus(ctx, rawID, status)
	default:
		return s.issues.SetStatus(ctx, rawID, domain.ToExternalStatus(status))
	}
}

// UnifiedNoteInput describes a note append against a unified id.
type UnifiedNoteInput struct {
	AuthorID    string
	AuthorName  string
	AuthorEmail string
	Message     string
	Internal    bool
	Role        domain.NoteRole
}

// AppendNote appends a note to either origin's thread. The internal flag is
// only meaningful for external tickets; internal requests have no
// admin-only notes.
func (s *UnifiedService) AppendNote(ctx context.Context, unifiedID string, input UnifiedNoteInput) error {
	origin, rawID, err := SplitUnifiedID(unifiedID)
	if err != nil {
		return err
	}
	switch origin {
	case domain.OriginInternal:
		_, err := s.support.AppendNote(ctx, rawID, RequestNoteInput{
			AuthorID:    input.AuthorID,
			AuthorName:  input.AuthorName,
			AuthorEmail: input.AuthorEmail,
			Message:     input.Message,
			Role:        input.Role,
		})
		return err
	default:
		_, err := s.issues.AppendNote(ctx, rawID, IssueNoteInput{
			AuthorID:    input.AuthorID,
			AuthorName:  input.AuthorName,
			AuthorEmail: input.AuthorEmail,
			Message:     input.Message,
			Internal:    input.Internal,
			Role:        input.Role,
		})
		return err
	}
}

// AppendNoteForUser appends a customer note after verifying the caller owns
// the ticket. Customer notes never carry the internal flag.
func (s *UnifiedService) AppendNoteForUser(ctx context.Context, userID, unifiedID string, input UnifiedNoteInput) error {
	origin, rawID, err := SplitUnifiedID(unifiedID)
	if err != nil {
		return err
	}
	switch origin {
	case domain.OriginInternal:
		req, err := s.support.GetWithNotes(ctx, rawID)
		if err != nil {
			return err
		}
		if req.UserID != userID {
			return apperrors.NewPermissionError("not your ticket", nil)
		}
	default:
		issue, err := s.issues.GetWithNotes(ctx, rawID)
		if err != nil {
			return err
		}
		if issue.UserID != userID {
			return apperrors.NewPermissionError("not your ticket", nil)
		}
	}
	input.Internal = false
	input.Role = domain.NoteRoleCustomer
	return s.AppendNote(ctx, unifiedID, input)
}

// CloseAsUser lets a user close their own internal request. External tickets
// are administered on the tracker side and cannot be closed here.
func (s *UnifiedService) CloseAsUser(ctx context.Context, userID, unifiedID string) error {
	origin, rawID, err := SplitUnifiedID(unifiedID)
	if err != nil {
		return err
	}
	if origin != domain.OriginInternal {
		return apperrors.NewPermissionError("external tickets are closed by an administrator", nil)
	}
	return s.support.CloseAsUser(ctx, userID, rawID)
}

// SplitUnifiedID resolves a unified ticket id into its origin and the raw
// domain id behind it.
func SplitUnifiedID(unifiedID string) (domain.Origin, string, error) {
	switch {
	case strings.HasPrefix(unifiedID, domain.UnifiedIDPrefixInternal):
		return domain.OriginInternal, strings.TrimPrefix(unifiedID, domain.UnifiedIDPrefixInternal), nil
	case strings.HasPrefix(unifiedID, domain.UnifiedIDPrefixExternal):
		return domain.OriginExternal, strings.TrimPrefix(unifiedID, domain.UnifiedIDPrefixExternal), nil
	default:
		return "", "", apperrors.NewValidationError("malformed unified ticket id", map[string]any{"id": unifiedID})
	}
}
