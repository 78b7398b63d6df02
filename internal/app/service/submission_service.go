package service

import (
	"context"
	"database/sql"
	"log"

	"algoverse/internal/common"
	"algoverse/internal/domain/model"
	"algoverse/internal/domain/repository"
	"algoverse/internal/platform/queue"

	"github.com/google/uuid"
)

type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
	problemRepo    repository.ProblemRepository
	jobs           *queue.JobQueue
	db             *sql.DB // For transactions
}

func NewSubmissionService(
	subRepo repository.SubmissionRepository,
	probRepo repository.ProblemRepository,
	jobs *queue.JobQueue,
	db *sql.DB,
) *SubmissionService {
	return &SubmissionService{
		submissionRepo: subRepo,
		problemRepo:    probRepo,
		jobs:           jobs,
		db:             db,
	}
}

type CreateSubmissionRequest struct {
	ProblemID  string `json:"problem_id"`
	LanguageID int    `json:"language_id"`
	Code       string `json:"code"`
}

// CreateSubmission accepts code synchronously: it writes a Pending record
// and enqueues the judging job, copying the problem's hidden test cases
// into the payload. The worker performs the record's only other write.
func (s *SubmissionService) CreateSubmission(ctx context.Context, userID string, req CreateSubmissionRequest) (*model.Submission, error) {
	if req.Code == "" {
		return nil, common.Errorf("code is required: %w", common.ErrBadRequest)
	}

	problem, err := s.problemRepo.FindProblemByID(ctx, req.ProblemID)
	if err != nil {
		return nil, common.Errorf("problem not found: %w", err)
	}
	if !problem.IsPublished {
		return nil, common.Errorf("problem is not published: %w", common.ErrForbidden)
	}

	language, err := s.problemRepo.GetLanguageByID(ctx, req.LanguageID)
	if err != nil || !language.IsActive {
		return nil, common.Errorf("language not found or inactive: %w", common.ErrBadRequest)
	}

	testCases, err := s.problemRepo.GetTestCasesByProblemID(ctx, problem.ID)
	if err != nil {
		return nil, common.Errorf("failed to load test cases: %w", err)
	}
	if len(testCases) == 0 {
		return nil, common.Errorf("problem has no test cases: %w", common.ErrInternalServer)
	}

	submission := &model.Submission{
		ID:             uuid.NewString(),
		UserID:         userID,
		ProblemID:      problem.ID,
		LanguageID:     language.ID,
		Code:           req.Code,
		Status:         model.StatusPending,
		TotalTestCases: len(testCases),
	}

	job := &model.SubmissionJob{
		SubmissionID:  submission.ID,
		Code:          req.Code,
		LanguageID:    language.ID,
		TimeLimitMs:   problem.TimeLimitMs,
		MemoryLimitKb: problem.MemoryLimitKb,
	}
	for _, tc := range testCases {
		job.TestCases = append(job.TestCases, model.JobTestCase{
			Input:          tc.Input,
			ExpectedOutput: tc.ExpectedOutput,
		})
	}

	// The Pending record is committed before the job is visible to any
	// worker, so a queued job always references an existing submission.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.submissionRepo.CreateSubmission(ctx, tx, submission); err != nil {
		return nil, common.Errorf("failed to create submission: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit transaction: %w", err)
	}

	if err := s.jobs.Enqueue(ctx, job); err != nil {
		// The record stays Pending with no job behind it; the client sees an
		// error and may resubmit. Logged as a pipeline fault.
		log.Printf("ERROR: Failed to enqueue job for submission %s: %v", submission.ID, err)
		return nil, common.Errorf("failed to enqueue submission job: %w", common.ErrServiceUnavailable)
	}

	log.Printf("Submission %s created and queued (%d test cases).", submission.ID, len(testCases))
	return submission, nil
}

func (s *SubmissionService) GetSubmission(ctx context.Context, userID, submissionID string, isAdmin bool) (*model.Submission, error) {
	submission, err := s.submissionRepo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if submission.UserID != userID && !isAdmin {
		return nil, common.ErrForbidden
	}
	return submission, nil
}

type ListSubmissionsResult struct {
	Submissions []model.Submission `json:"submissions"`
	Total       int                `json:"total"`
}

func (s *SubmissionService) ListMySubmissions(ctx context.Context, userID string, limit, offset int) (*ListSubmissionsResult, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	subs, total, err := s.submissionRepo.ListSubmissionsByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &ListSubmissionsResult{Submissions: subs, Total: total}, nil
}
