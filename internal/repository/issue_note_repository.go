package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-sync/internal/domain"
)

// IssueNoteRepository manages imported issue threads. Same append-only,
// row-per-note scheme as request notes.
type IssueNoteRepository interface {
	Append(ctx context.Context, note *domain.IssueNote) error
	ListByIssue(ctx context.Context, issueID string) ([]domain.IssueNote, error)
}

type issueNoteRepository struct {
	pool *pgxpool.Pool
}

// NewIssueNoteRepository builds repository.
func NewIssueNoteRepository(pool *pgxpool.Pool) IssueNoteRepository {
	return &issueNoteRepository{pool: pool}
}

func (r *issueNoteRepository) Append(ctx context.Context, note *domain.IssueNote) error {
	const query = `
        INSERT INTO issue_notes (issue_id, author_id, author_name, author_email, message, internal, role)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		note.IssueID,
		note.AuthorID,
		note.AuthorName,
		note.AuthorEmail,
		note.Message,
		note.Internal,
		note.Role,
	).Scan(&note.ID, &note.CreatedAt)
}

func (r *issueNoteRepository) ListByIssue(ctx context.Context, issueID string) ([]domain.IssueNote, error) {
	const query = `
        SELECT id, issue_id, author_id, author_name, author_email, message, internal, role, created_at
        FROM issue_notes WHERE issue_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.IssueNote
	for rows.Next() {
		var note domain.IssueNote
		if err := rows.Scan(
			&note.ID,
			&note.IssueID,
			&note.AuthorID,
			&note.AuthorName,
			&note.AuthorEmail,
			&note.Message,
			&note.Internal,
			&note.Role,
			&note.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, note)
	}
	return result, rows.Err()
}
