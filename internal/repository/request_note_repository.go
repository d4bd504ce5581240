package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-sync/internal/domain"
)

// RequestNoteRepository manages support request threads. Notes are stored as
// rows, one INSERT per append, so two actors appending concurrently can never
// overwrite each other's note the way a whole-array rewrite could.
type RequestNoteRepository interface {
	Append(ctx context.Context, note *domain.RequestNote) error
	ListByRequest(ctx context.Context, requestID string) ([]domain.RequestNote, error)
}

type requestNoteRepository struct {
	pool *pgxpool.Pool
}

// NewRequestNoteRepository builds repository.
func NewRequestNoteRepository(pool *pgxpool.Pool) RequestNoteRepository {
	return &requestNoteRepository{pool: pool}
}

func (r *requestNoteRepository) Append(ctx context.Context, note *domain.RequestNote) error {
	const query = `
        INSERT INTO request_notes (request_id, author_id, author_name, author_email, message, role)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		note.RequestID,
		note.AuthorID,
		note.AuthorName,
		note.AuthorEmail,
		note.Message,
		note.Role,
	).Scan(&note.ID, &note.CreatedAt)
}

func (r *requestNoteRepository) ListByRequest(ctx context.Context, requestID string) ([]domain.RequestNote, error) {
	const query = `
        SELECT id, request_id, author_id, author_name, author_email, message, role, created_at
        FROM request_notes WHERE request_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RequestNote
	for rows.Next() {
		var note domain.RequestNote
		if err := rows.Scan(
			&note.ID,
			&note.RequestID,
			&note.AuthorID,
			&note.AuthorName,
			&note.AuthorEmail,
			&note.Message,
			&note.Role,
			&note.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, note)
	}
	return result, rows.Err()
}
