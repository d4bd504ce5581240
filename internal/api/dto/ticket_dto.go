package dto

import (
	"github.com/spec-kit/support-sync/internal/domain"
)

// CreateRequestPayload creates a support request.
type CreateRequestPayload struct {
	Message string  `json:"message"`
	RepoRef *string `json:"repo_ref,omitempty"`
}

// AppendNotePayload appends a note to a unified ticket thread.
type AppendNotePayload struct {
	Message  string `json:"message"`
	Internal bool   `json:"internal,omitempty"`
}

// SetStatusPayload sets a unified ticket's status (internal vocabulary).
type SetStatusPayload struct {
	Status domain.RequestStatus `json:"status"`
}

// UnifiedNoteResponse is one thread entry.
type UnifiedNoteResponse struct {
	ID          string          `json:"id,omitempty"`
	AuthorID    string          `json:"author_id"`
	AuthorName  string          `json:"author_name"`
	AuthorEmail string          `json:"author_email,omitempty"`
	Message     string          `json:"message"`
	Role        domain.NoteRole `json:"role"`
	CreatedAt   int64           `json:"created_at"`
}

// UnifiedTicketResponse is the merged read model exposed to both UIs.
type UnifiedTicketResponse struct {
	ID          string                `json:"id"`
	Origin      domain.Origin         `json:"origin"`
	Title       string                `json:"title"`
	Body        string                `json:"body"`
	Status      string                `json:"status"`
	CreatedAt   int64                 `json:"created_at"`
	UserID      string                `json:"user_id"`
	UserName    string                `json:"user_name,omitempty"`
	UserEmail   string                `json:"user_email,omitempty"`
	Notes       []UnifiedNoteResponse `json:"notes"`
	Repository  string                `json:"repository,omitempty"`
	ExternalURL string                `json:"external_url,omitempty"`
	RepoRef     string                `json:"repo_ref,omitempty"`
}

// FromUnifiedTicket maps the domain projection onto the wire shape.
func FromUnifiedTicket(ticket domain.UnifiedTicket) UnifiedTicketResponse {
	notes := make([]UnifiedNoteResponse, 0, len(ticket.Notes))
	for _, note := range ticket.Notes {
		notes = append(notes, UnifiedNoteResponse{
			ID:          note.ID,
			AuthorID:    note.AuthorID,
			AuthorName:  note.AuthorName,
			AuthorEmail: note.AuthorEmail,
			Message:     note.Message,
			Role:        note.Role,
			CreatedAt:   note.CreatedAt,
		})
	}
	return UnifiedTicketResponse{
		ID:          ticket.ID,
		Origin:      ticket.Origin,
		Title:       ticket.Title,
		Body:        ticket.Body,
		Status:      ticket.Status,
		CreatedAt:   ticket.CreatedAt,
		UserID:      ticket.UserID,
		UserName:    ticket.UserName,
		UserEmail:   ticket.UserEmail,
		Notes:       notes,
		Repository:  ticket.Repository,
		ExternalURL: ticket.ExternalURL,
		RepoRef:     ticket.RepoRef,
	}
}

// FromUnifiedTickets maps a list.
func FromUnifiedTickets(tickets []domain.UnifiedTicket) []UnifiedTicketResponse {
	items := make([]UnifiedTicketResponse, 0, len(tickets))
	for _, ticket := range tickets {
		items = append(items, FromUnifiedTicket(ticket))
	}
	return items
}
