package service

import (
	"context"
	"database/sql"

	"algoverse/internal/common"
	"algoverse/internal/domain/model"
	"algoverse/internal/domain/repository"
	"algoverse/internal/platform/config"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type ProblemService struct {
	problemRepo repository.ProblemRepository
	db          *sql.DB // For transactions
}

func NewProblemService(problemRepo repository.ProblemRepository, db *sql.DB) *ProblemService {
	return &ProblemService{problemRepo: problemRepo, db: db}
}

type CreateProblemRequest struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Difficulty    string   `json:"difficulty"`
	TimeLimitMs   int      `json:"time_limit_ms"`
	MemoryLimitKb int      `json:"memory_limit_kb"`
	IsPublished   bool     `json:"is_published"`
	Tags          []string `json:"tags"`
	TestCases     []struct {
		Input          string `json:"input"`
		ExpectedOutput string `json:"expected_output"`
	} `json:"test_cases"`
}

func (s *ProblemService) CreateProblem(ctx context.Context, creatorID string, req CreateProblemRequest) (*model.Problem, error) {
	if req.Title == "" || req.Description == "" {
		return nil, common.Errorf("title and description are required: %w", common.ErrBadRequest)
	}
	difficulty := model.ProblemDifficulty(req.Difficulty)
	switch difficulty {
	case model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
	default:
		return nil, common.Errorf("unknown difficulty %q: %w", req.Difficulty, common.ErrBadRequest)
	}
	if len(req.TestCases) == 0 {
		return nil, common.Errorf("at least one test case is required: %w", common.ErrBadRequest)
	}
	if req.TimeLimitMs <= 0 {
		req.TimeLimitMs = config.AppConfig.DefaultTimeLimitMs
	}
	if req.MemoryLimitKb <= 0 {
		req.MemoryLimitKb = config.AppConfig.DefaultMemoryLimitKb
	}

	problem := &model.Problem{
		ID:            uuid.NewString(),
		Title:         req.Title,
		Slug:          slug.Make(req.Title),
		Description:   req.Description,
		Difficulty:    difficulty,
		TimeLimitMs:   req.TimeLimitMs,
		MemoryLimitKb: req.MemoryLimitKb,
		IsPublished:   req.IsPublished,
		CreatedByID:   &creatorID,
		Tags:          req.Tags,
	}

	testCases := make([]model.TestCase, 0, len(req.TestCases))
	for i, tc := range req.TestCases {
		testCases = append(testCases, model.TestCase{
			ID:             uuid.NewString(),
			ProblemID:      problem.ID,
			Input:          tc.Input,
			ExpectedOutput: tc.ExpectedOutput,
			SortOrder:      i,
		})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.problemRepo.CreateProblem(ctx, tx, problem); err != nil {
		return nil, err
	}
	if err := s.problemRepo.AddTestCasesToProblem(ctx, tx, problem.ID, testCases); err != nil {
		return nil, err
	}
	if len(req.Tags) > 0 {
		if err := s.problemRepo.AddTagsToProblem(ctx, tx, problem.ID, req.Tags); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit transaction: %w", err)
	}
	return problem, nil
}

// GetProblem resolves by id first, then by slug. Hidden test cases are
// stripped unless the caller is an admin.
func (s *ProblemService) GetProblem(ctx context.Context, idOrSlug string, isAdmin bool) (*model.Problem, error) {
	problem, err := s.problemRepo.FindProblemByID(ctx, idOrSlug)
	if err != nil {
		problem, err = s.problemRepo.FindProblemBySlug(ctx, idOrSlug)
		if err != nil {
			return nil, err
		}
	}
	if !problem.IsPublished && !isAdmin {
		return nil, common.ErrNotFound
	}

	tags, err := s.problemRepo.GetTagsByProblemID(ctx, problem.ID)
	if err != nil {
		return nil, err
	}
	problem.Tags = tags

	if isAdmin {
		testCases, err := s.problemRepo.GetTestCasesByProblemID(ctx, problem.ID)
		if err != nil {
			return nil, err
		}
		problem.TestCases = testCases
	}
	return problem, nil
}

type ListProblemsResult struct {
	Problems []model.Problem `json:"problems"`
	Total    int             `json:"total"`
}

func (s *ProblemService) ListProblems(ctx context.Context, limit, offset int, difficulty, tag, search string) (*ListProblemsResult, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	problems, total, err := s.problemRepo.ListProblems(ctx, limit, offset, model.ProblemDifficulty(difficulty), tag, search)
	if err != nil {
		return nil, err
	}
	return &ListProblemsResult{Problems: problems, Total: total}, nil
}

func (s *ProblemService) ListLanguages(ctx context.Context) ([]model.Language, error) {
	return s.problemRepo.ListLanguages(ctx)
}
