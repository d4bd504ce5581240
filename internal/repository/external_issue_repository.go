package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-sync/internal/domain"
)

// IssueFilter captures listing parameters for imported issues.
type IssueFilter struct {
	UserID     *string
	Repository *string
	Statuses   []domain.IssueStatus
	Limit      int
	Offset     int
}

// ExternalIssueRepository encapsulates imported issue persistence.
type ExternalIssueRepository interface {
	// Insert persists an imported issue. The (repository, external_issue_id)
	// unique index makes the import idempotent; inserted reports whether a
	// new row was actually created.
	Insert(ctx context.Context, issue *domain.ExternalIssue) (inserted bool, err error)
	UpdateStatus(ctx context.Context, id string, status domain.IssueStatus) error
	GetByID(ctx context.Context, id string) (*domain.ExternalIssue, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter IssueFilter) ([]domain.ExternalIssue, error)
	ListExternalIDs(ctx context.Context, repository string) ([]int64, error)
}

type externalIssueRepository struct {
	pool *pgxpool.Pool
}

// NewExternalIssueRepository instantiates repository.
func NewExternalIssueRepository(pool *pgxpool.Pool) ExternalIssueRepository {
	return &externalIssueRepository{pool: pool}
}

const issueColumns = `id, external_issue_id, external_url, title, body, status, repository,
               installation_ref, user_id, user_name, user_email, labels, assignees,
               created_at, updated_at, external_created_at, external_updated_at`

func (r *externalIssueRepository) Insert(ctx context.Context, issue *domain.ExternalIssue) (bool, error) {
	const query = `
        INSERT INTO external_issues (external_issue_id, external_url, title, body, status, repository,
                                     installation_ref, user_id, user_name, user_email, labels, assignees,
                                     external_created_at, external_updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        ON CONFLICT (repository, external_issue_id) DO NOTHING
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		issue.ExternalIssueID,
		issue.ExternalURL,
		issue.Title,
		issue.Body,
		issue.Status,
		issue.Repository,
		issue.InstallationRef,
		issue.UserID,
		issue.UserName,
		issue.UserEmail,
		issue.Labels,
		issue.Assignees,
		issue.ExternalCreatedAt,
		issue.ExternalUpdatedAt,
	).Scan(&issue.ID, &issue.CreatedAt, &issue.UpdatedAt)
	if err == pgx.ErrNoRows {
		// Conflict: this external id is already imported.
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *externalIssueRepository) UpdateStatus(ctx context.Context, id string, status domain.IssueStatus) error {
	const query = `UPDATE external_issues SET status=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *externalIssueRepository) GetByID(ctx context.Context, id string) (*domain.ExternalIssue, error) {
	query := fmt.Sprintf(`SELECT %s FROM external_issues WHERE id=$1`, issueColumns)
	var issue domain.ExternalIssue
	if err := r.pool.QueryRow(ctx, query, id).Scan(issueFields(&issue)...); err != nil {
		return nil, err
	}
	return &issue, nil
}

func (r *externalIssueRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM external_issues WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *externalIssueRepository) List(ctx context.Context, filter IssueFilter) ([]domain.ExternalIssue, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if filter.Repository != nil {
		args = append(args, *filter.Repository)
		clauses = append(clauses, fmt.Sprintf("repository=$%d", len(args)))
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

	query := fmt.Sprintf(`SELECT %s FROM external_issues WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		issueColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ExternalIssue
	for rows.Next() {
		var issue domain.ExternalIssue
		if err := rows.Scan(issueFields(&issue)...); err != nil {
			return nil, err
		}
		result = append(result, issue)
	}
	return result, rows.Err()
}

func (r *externalIssueRepository) ListExternalIDs(ctx context.Context, repository string) ([]int64, error) {
	const query = `SELECT external_issue_id FROM external_issues WHERE repository=$1`
	rows, err := r.pool.Query(ctx, query, repository)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func issueFields(issue *domain.ExternalIssue) []any {
	return []any{
		&issue.ID,
		&issue.ExternalIssueID,
		&issue.ExternalURL,
		&issue.Title,
		&issue.Body,
		&issue.Status,
		&issue.Repository,
		&issue.InstallationRef,
		&issue.UserID,
		&issue.UserName,
		&issue.UserEmail,
		&issue.Labels,
		&issue.Assignees,
		&issue.CreatedAt,
		&issue.UpdatedAt,
		&issue.ExternalCreatedAt,
		&issue.ExternalUpdatedAt,
	}
}
