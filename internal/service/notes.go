package service

import (
	"github.com/spec-kit/support-sync/internal/domain"
	"github.com/spec-kit/support-sync/pkg/timestamp"
)

// The two ticket domains grew distinct note shapes. These projections fold
// both into the canonical UnifiedNote so admin and customer UIs render one
// thread format regardless of origin. Input order is preserved, it is
// chronological as authored.

// UnifyRequestNotes projects a support request thread.
func UnifyRequestNotes(notes []domain.RequestNote) []domain.UnifiedNote {
	unified := make([]domain.UnifiedNote, 0, len(notes))
	for _, note := range notes {
		unified = append(unified, domain.UnifiedNote{
			ID:          note.ID,
			AuthorID:    note.AuthorID,
			AuthorName:  note.AuthorName,
			AuthorEmail: note.AuthorEmail,
			Message:     note.Message,
			Role:        noteRole(note.Role),
			CreatedAt:   noteMillis(note.CreatedAt),
		})
	}
	return unified
}

// UnifyIssueNotes projects an imported issue thread. Internal notes are kept
// only when includeInternal is set (the admin view); the customer view never
// sees them.
func UnifyIssueNotes(notes []domain.IssueNote, includeInternal bool) []domain.UnifiedNote {
	unified := make([]domain.UnifiedNote, 0, len(notes))
	for _, note := range notes {
		if note.Internal && !includeInternal {
			continue
		}
		unified = append(unified, domain.UnifiedNote{
			ID:          note.ID,
			AuthorID:    note.AuthorID,
			AuthorName:  note.AuthorName,
			AuthorEmail: note.AuthorEmail,
			Message:     note.Message,
			Role:        noteRole(note.Role),
			CreatedAt:   noteMillis(note.CreatedAt),
		})
	}
	return unified
}

// noteRole defaults to customer unless the source note is explicitly
// admin-tagged.
func noteRole(role domain.NoteRole) domain.NoteRole {
	if role == domain.NoteRoleAdmin {
		return domain.NoteRoleAdmin
	}
	return domain.NoteRoleCustomer
}

func noteMillis(raw any) int64 {
	ms, _ := timestamp.Normalize(raw)
	return ms
}
