package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"algoverse/internal/common"
	"algoverse/internal/domain/model"
)

type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error
	GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error)
	// UpdateVerdict writes the terminal verdict onto a Pending submission.
	// It is the sole mutation after creation; a submission that already
	// reached a terminal status is left untouched and ErrConflict returned.
	UpdateVerdict(ctx context.Context, submissionID string, verdict model.Verdict) error
	ListSubmissionsByUser(ctx context.Context, userID string, limit, offset int) ([]model.Submission, int, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

func (r *pgSubmissionRepository) CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error {
	query := `INSERT INTO submissions (id, user_id, problem_id, language_id, code, status, total_test_cases)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, sub.ID, sub.UserID, sub.ProblemID, sub.LanguageID, sub.Code, sub.Status, sub.TotalTestCases)
	} else {
		_, err = r.db.ExecContext(ctx, query, sub.ID, sub.UserID, sub.ProblemID, sub.LanguageID, sub.Code, sub.Status, sub.TotalTestCases)
	}
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	query := `SELECT id, user_id, problem_id, language_id, code, status, runtime_ms, memory_kb,
	                 execution_logs, passed_test_cases, total_test_cases, created_at, updated_at
	          FROM submissions WHERE id = $1`
	sub := &model.Submission{}
	var logs sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&sub.ID, &sub.UserID, &sub.ProblemID, &sub.LanguageID, &sub.Code, &sub.Status,
		&sub.RuntimeMs, &sub.MemoryKb, &logs, &sub.PassedTestCases, &sub.TotalTestCases,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.GetSubmissionByID: %w", err)
	}
	sub.ExecutionLogs = logs.String
	return sub, nil
}

func (r *pgSubmissionRepository) UpdateVerdict(ctx context.Context, submissionID string, verdict model.Verdict) error {
	query := `UPDATE submissions SET
	              status = $1, runtime_ms = $2, memory_kb = $3, execution_logs = $4,
	              passed_test_cases = $5, total_test_cases = $6, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $7 AND status = 'Pending'`
	res, err := r.db.ExecContext(ctx, query,
		verdict.Status, verdict.RuntimeMs, verdict.MemoryKb, verdict.ExecutionLogs,
		verdict.PassedTestCases, verdict.TotalTestCases, submissionID)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.UpdateVerdict: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.UpdateVerdict: %w", err)
	}
	if affected == 0 {
		// Either the submission does not exist or it is already terminal.
		if _, getErr := r.GetSubmissionByID(ctx, submissionID); getErr != nil {
			return getErr
		}
		return fmt.Errorf("submission %s already has a terminal status: %w", submissionID, common.ErrConflict)
	}
	return nil
}

func (r *pgSubmissionRepository) ListSubmissionsByUser(ctx context.Context, userID string, limit, offset int) ([]model.Submission, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListSubmissionsByUser count: %w", err)
	}

	// Listings exclude the code body.
	query := `SELECT id, user_id, problem_id, language_id, status, runtime_ms, memory_kb,
	                 passed_test_cases, total_test_cases, created_at, updated_at
	          FROM submissions WHERE user_id = $1
	          ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListSubmissionsByUser: %w", err)
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		var s model.Submission
		if err := rows.Scan(&s.ID, &s.UserID, &s.ProblemID, &s.LanguageID, &s.Status, &s.RuntimeMs, &s.MemoryKb,
			&s.PassedTestCases, &s.TotalTestCases, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("pgSubmissionRepository.ListSubmissionsByUser scan: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, total, rows.Err()
}
