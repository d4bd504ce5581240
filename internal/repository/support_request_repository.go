package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-sync/internal/domain"
)

// RequestFilter captures listing parameters for support requests.
type RequestFilter struct {
	UserID     *string
	UserEmails []string
	Statuses   []domain.RequestStatus
	Limit      int
	Offset     int
}

// SupportRequestRepository encapsulates support request persistence.
type SupportRequestRepository interface {
	Create(ctx context.Context, req *domain.SupportRequest) error
	UpdateStatus(ctx context.Context, id string, status domain.RequestStatus) error
	GetByID(ctx context.Context, id string) (*domain.SupportRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]domain.SupportRequest, error)
}

type supportRequestRepository struct {
	pool *pgxpool.Pool
}

// NewSupportRequestRepository instantiates repository.
func NewSupportRequestRepository(pool *pgxpool.Pool) SupportRequestRepository {
	return &supportRequestRepository{pool: pool}
}

func (r *supportRequestRepository) Create(ctx context.Context, req *domain.SupportRequest) error {
	const query = `
        INSERT INTO support_requests (user_id, user_name, user_email, message, repo_ref, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		req.UserID,
		req.UserName,
		req.UserEmail,
		req.Message,
		req.RepoRef,
		req.Status,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
}

func (r *supportRequestRepository) UpdateStatus(ctx context.Context, id string, status domain.RequestStatus) error {
	const query = `UPDATE support_requests SET status=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *supportRequestRepository) GetByID(ctx context.Context, id string) (*domain.SupportRequest, error) {
	const query = `
        SELECT id, user_id, user_name, user_email, message, repo_ref, status, created_at, updated_at
        FROM support_requests WHERE id=$1`
	var req domain.SupportRequest
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&req.ID,
		&req.UserID,
		&req.UserName,
		&req.UserEmail,
		&req.Message,
		&req.RepoRef,
		&req.Status,
		&req.CreatedAt,
		&req.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *supportRequestRepository) List(ctx context.Context, filter RequestFilter) ([]domain.SupportRequest, error) {
	base := `SELECT id, user_id, user_name, user_email, message, repo_ref, status, created_at, updated_at
             FROM support_requests`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if len(filter.UserEmails) > 0 {
		placeholders := make([]string, len(filter.UserEmails))
		for i, email := range filter.UserEmails {
			args = append(args, email)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("user_email IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SupportRequest
	for rows.Next() {
		var req domain.SupportRequest
		if err := rows.Scan(
			&req.ID,
			&req.UserID,
			&req.UserName,
			&req.UserEmail,
			&req.Message,
			&req.RepoRef,
			&req.Status,
			&req.CreatedAt,
			&req.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, req)
	}
	return result, rows.Err()
}
