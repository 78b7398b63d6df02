package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"algoverse/internal/common"
	"algoverse/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type ProblemRepository interface {
	CreateProblem(ctx context.Context, tx *sql.Tx, problem *model.Problem) error
	FindProblemByID(ctx context.Context, id string) (*model.Problem, error)
	FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error)
	// FindRandomPublished picks one published problem uniformly at random.
	FindRandomPublished(ctx context.Context) (*model.Problem, error)
	ListProblems(ctx context.Context, limit, offset int, difficulty model.ProblemDifficulty, tag, searchTerm string) ([]model.Problem, int, error)

	AddTestCasesToProblem(ctx context.Context, tx *sql.Tx, problemID string, testCases []model.TestCase) error
	GetTestCasesByProblemID(ctx context.Context, problemID string) ([]model.TestCase, error) // For judging/admin
	AddTagsToProblem(ctx context.Context, tx *sql.Tx, problemID string, tags []string) error
	GetTagsByProblemID(ctx context.Context, problemID string) ([]string, error)

	GetLanguageByID(ctx context.Context, id int) (*model.Language, error)
	ListLanguages(ctx context.Context) ([]model.Language, error)
}

type pgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) ProblemRepository {
	return &pgProblemRepository{db: db}
}

func (r *pgProblemRepository) CreateProblem(ctx context.Context, tx *sql.Tx, p *model.Problem) error {
	query := `INSERT INTO problems (id, title, slug, description, difficulty, time_limit_ms, memory_limit_kb, is_published, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, p.ID, p.Title, p.Slug, p.Description, p.Difficulty, p.TimeLimitMs, p.MemoryLimitKb, p.IsPublished, p.CreatedByID)
	} else {
		_, err = r.db.ExecContext(ctx, query, p.ID, p.Title, p.Slug, p.Description, p.Difficulty, p.TimeLimitMs, p.MemoryLimitKb, p.IsPublished, p.CreatedByID)
	}

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint for slug
			return fmt.Errorf("problem with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgProblemRepository.CreateProblem: %w", err)
	}
	return nil
}

const problemSelectColumns = `
        SELECT p.id, p.title, p.slug, p.description, p.difficulty,
               p.time_limit_ms, p.memory_limit_kb, p.is_published,
               p.created_by, cb_user.username as created_by_username,
               p.created_at, p.updated_at
        FROM problems p
        LEFT JOIN users cb_user ON p.created_by = cb_user.id`

func (r *pgProblemRepository) FindProblemByID(ctx context.Context, id string) (*model.Problem, error) {
	return r.findProblem(ctx, problemSelectColumns+` WHERE p.id = $1`, id)
}

func (r *pgProblemRepository) FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error) {
	return r.findProblem(ctx, problemSelectColumns+` WHERE p.slug = $1`, slug)
}

func (r *pgProblemRepository) FindRandomPublished(ctx context.Context) (*model.Problem, error) {
	query := problemSelectColumns + ` WHERE p.is_published = TRUE ORDER BY random() LIMIT 1`
	return r.findProblem(ctx, query)
}

func (r *pgProblemRepository) findProblem(ctx context.Context, query string, args ...interface{}) (*model.Problem, error) {
	problem := &model.Problem{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&problem.ID, &problem.Title, &problem.Slug, &problem.Description, &problem.Difficulty,
		&problem.TimeLimitMs, &problem.MemoryLimitKb, &problem.IsPublished,
		&problem.CreatedByID, &problem.CreatedByUsername,
		&problem.CreatedAt, &problem.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.findProblem: %w", err)
	}
	return problem, nil
}

func (r *pgProblemRepository) ListProblems(ctx context.Context, limit, offset int, difficulty model.ProblemDifficulty, tag, searchTerm string) ([]model.Problem, int, error) {
	conditions := []string{"p.is_published = TRUE"}
	args := []interface{}{}
	argIdx := 1

	if difficulty != "" {
		conditions = append(conditions, fmt.Sprintf("p.difficulty = $%d", argIdx))
		args = append(args, difficulty)
		argIdx++
	}
	if tag != "" {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM problem_tags pt WHERE pt.problem_id = p.id AND pt.tag = $%d)", argIdx))
		args = append(args, tag)
		argIdx++
	}
	if searchTerm != "" {
		conditions = append(conditions, fmt.Sprintf("p.title ILIKE $%d", argIdx))
		args = append(args, "%"+searchTerm+"%")
		argIdx++
	}
	whereClause := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM problems p` + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems count: %w", err)
	}

	// Listings exclude the heavy description field.
	query := fmt.Sprintf(`
        SELECT p.id, p.title, p.slug, p.difficulty, p.time_limit_ms, p.memory_limit_kb, p.is_published, p.created_at, p.updated_at
        FROM problems p %s
        ORDER BY p.created_at DESC LIMIT $%d OFFSET $%d`, whereClause, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems: %w", err)
	}
	defer rows.Close()

	var problems []model.Problem
	for rows.Next() {
		var p model.Problem
		if err := rows.Scan(&p.ID, &p.Title, &p.Slug, &p.Difficulty, &p.TimeLimitMs, &p.MemoryLimitKb, &p.IsPublished, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("pgProblemRepository.ListProblems scan: %w", err)
		}
		problems = append(problems, p)
	}
	return problems, total, rows.Err()
}

func (r *pgProblemRepository) AddTestCasesToProblem(ctx context.Context, tx *sql.Tx, problemID string, testCases []model.TestCase) error {
	query := `INSERT INTO test_cases (id, problem_id, input, expected_output, sort_order)
	          VALUES ($1, $2, $3, $4, $5)`
	for _, tc := range testCases {
		var err error
		if tx != nil {
			_, err = tx.ExecContext(ctx, query, tc.ID, problemID, tc.Input, tc.ExpectedOutput, tc.SortOrder)
		} else {
			_, err = r.db.ExecContext(ctx, query, tc.ID, problemID, tc.Input, tc.ExpectedOutput, tc.SortOrder)
		}
		if err != nil {
			return fmt.Errorf("pgProblemRepository.AddTestCasesToProblem: %w", err)
		}
	}
	return nil
}

func (r *pgProblemRepository) GetTestCasesByProblemID(ctx context.Context, problemID string) ([]model.TestCase, error) {
	query := `SELECT id, problem_id, input, expected_output, sort_order, created_at
	          FROM test_cases WHERE problem_id = $1 ORDER BY sort_order ASC`
	rows, err := r.db.QueryContext(ctx, query, problemID)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetTestCasesByProblemID: %w", err)
	}
	defer rows.Close()

	var testCases []model.TestCase
	for rows.Next() {
		var tc model.TestCase
		if err := rows.Scan(&tc.ID, &tc.ProblemID, &tc.Input, &tc.ExpectedOutput, &tc.SortOrder, &tc.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.GetTestCasesByProblemID scan: %w", err)
		}
		testCases = append(testCases, tc)
	}
	return testCases, rows.Err()
}

func (r *pgProblemRepository) AddTagsToProblem(ctx context.Context, tx *sql.Tx, problemID string, tags []string) error {
	query := `INSERT INTO problem_tags (problem_id, tag) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	for _, tag := range tags {
		var err error
		if tx != nil {
			_, err = tx.ExecContext(ctx, query, problemID, tag)
		} else {
			_, err = r.db.ExecContext(ctx, query, problemID, tag)
		}
		if err != nil {
			return fmt.Errorf("pgProblemRepository.AddTagsToProblem: %w", err)
		}
	}
	return nil
}

func (r *pgProblemRepository) GetTagsByProblemID(ctx context.Context, problemID string) ([]string, error) {
	query := `SELECT tag FROM problem_tags WHERE problem_id = $1 ORDER BY tag ASC`
	rows, err := r.db.QueryContext(ctx, query, problemID)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.GetTagsByProblemID: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.GetTagsByProblemID scan: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (r *pgProblemRepository) GetLanguageByID(ctx context.Context, id int) (*model.Language, error) {
	query := `SELECT id, name, slug, is_active FROM languages WHERE id = $1`
	language := &model.Language{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&language.ID, &language.Name, &language.Slug, &language.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.GetLanguageByID: %w", err)
	}
	return language, nil
}

func (r *pgProblemRepository) ListLanguages(ctx context.Context) ([]model.Language, error) {
	query := `SELECT id, name, slug, is_active FROM languages WHERE is_active = TRUE ORDER BY name ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.ListLanguages: %w", err)
	}
	defer rows.Close()

	var languages []model.Language
	for rows.Next() {
		var l model.Language
		if err := rows.Scan(&l.ID, &l.Name, &l.Slug, &l.IsActive); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.ListLanguages scan: %w", err)
		}
		languages = append(languages, l)
	}
	return languages, rows.Err()
}
