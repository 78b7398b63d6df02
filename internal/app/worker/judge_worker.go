package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"algoverse/internal/domain/model"
	"algoverse/internal/domain/repository"

	"github.com/redis/go-redis/v9"
)

// engineUnavailableMsg distinguishes infrastructure failures from verdicts
// the sandbox itself reported.
const engineUnavailableMsg = "execution engine unavailable"

// JobSource is the slice of the job queue a worker drives.
type JobSource interface {
	RecoverPending(ctx context.Context) (int, error)
	Claim(ctx context.Context, timeout time.Duration) (*model.SubmissionJob, string, error)
	Ack(ctx context.Context, token string) error
	PublishCompletion(ctx context.Context, submissionID string) error
}

// JudgeWorker turns one SubmissionJob into one terminal submission status.
// It is the sole error boundary for judging: any failure while talking to
// the sandbox becomes a RuntimeError verdict, never a crash.
type JudgeWorker struct {
	jobs           JobSource
	sandbox        SandboxClient
	submissionRepo repository.SubmissionRepository
}

func NewJudgeWorker(jobs JobSource, sandbox SandboxClient, subRepo repository.SubmissionRepository) *JudgeWorker {
	return &JudgeWorker{
		jobs:           jobs,
		sandbox:        sandbox,
		submissionRepo: subRepo,
	}
}

func (w *JudgeWorker) Start(ctx context.Context) {
	if recovered, err := w.jobs.RecoverPending(ctx); err != nil {
		log.Printf("ERROR: Failed to recover in-flight jobs: %v", err)
	} else if recovered > 0 {
		log.Printf("INFO: Re-queued %d in-flight job(s) from a previous run.", recovered)
	}

	log.Println("Judge worker started, waiting for jobs...")
	for {
		select {
		case <-ctx.Done():
			log.Println("Judge worker stopping...")
			return
		default:
			job, token, err := w.jobs.Claim(ctx, 5*time.Second)
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue // claim timed out, nothing queued
				}
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					continue
				}
				log.Printf("ERROR: Failed to claim job: %v", err)
				time.Sleep(5 * time.Second) // Wait before retrying on other errors
				continue
			}

			log.Printf("Worker picked up job for submission %s (%d test cases)", job.SubmissionID, len(job.TestCases))
			if err := w.processJob(ctx, job); err != nil {
				// Shutdown interrupted the job. Leaving it unacked keeps it
				// in the processing list, so RecoverPending redelivers it.
				log.Printf("WARN: Job for submission %s interrupted, left for redelivery: %v", job.SubmissionID, err)
				continue
			}

			if err := w.jobs.Ack(ctx, token); err != nil {
				log.Printf("ERROR: Failed to ack job for submission %s: %v", job.SubmissionID, err)
			}
		}
	}
}

// processJob runs the test cases sequentially and persists exactly one
// terminal verdict. Sandbox failures are absorbed here; the only error
// returned is a shutdown interruption, which the caller must not ack.
func (w *JudgeWorker) processJob(ctx context.Context, job *model.SubmissionJob) error {
	verdict, err := w.judge(ctx, job)
	if err != nil {
		return err
	}

	if err := w.submissionRepo.UpdateVerdict(ctx, job.SubmissionID, verdict); err != nil {
		// Known gap: if the persistence write itself fails, the submission
		// can stay Pending. Logged, not retried.
		log.Printf("ERROR: Failed to persist verdict for submission %s: %v", job.SubmissionID, err)
		return nil
	}
	log.Printf("Submission %s judged: %s (%d/%d passed)", job.SubmissionID, verdict.Status, verdict.PassedTestCases, verdict.TotalTestCases)

	if err := w.jobs.PublishCompletion(ctx, job.SubmissionID); err != nil {
		log.Printf("ERROR: Failed to publish completion for submission %s: %v", job.SubmissionID, err)
	}
	return nil
}

// judge evaluates the test cases in order, failing fast on the first
// non-accepted verdict. PassedTestCases counts the cases that passed before
// the failing one. A non-nil error means the worker is shutting down
// mid-job; no verdict may be written in that case, since the job will be
// redelivered and judged again.
func (w *JudgeWorker) judge(ctx context.Context, job *model.SubmissionJob) (model.Verdict, error) {
	total := len(job.TestCases)
	verdict := model.Verdict{
		Status:         model.StatusAccepted,
		TotalTestCases: total,
	}

	maxTimeMs := 0
	maxMemoryKb := 0

	for i, tc := range job.TestCases {
		result, err := w.sandbox.Run(ctx, SandboxRequest{
			Code:           job.Code,
			LanguageID:     job.LanguageID,
			Stdin:          tc.Input,
			ExpectedOutput: tc.ExpectedOutput,
			CPUTimeLimit:   float64(job.TimeLimitMs) / 1000.0,
			MemoryLimitKb:  job.MemoryLimitKb,
		})
		if err != nil {
			if ctx.Err() != nil {
				return verdict, ctx.Err()
			}
			log.Printf("ERROR: %s for submission %s, test case %d: %v", engineUnavailableMsg, job.SubmissionID, i+1, err)
			verdict.Status = model.StatusRuntimeError
			verdict.ExecutionLogs = fmt.Sprintf("%s: %v", engineUnavailableMsg, err)
			return verdict, nil
		}

		if !result.Passed() {
			verdict.Status = categorize(result.StatusID)
			if result.CompileOutput != "" {
				verdict.ExecutionLogs = result.CompileOutput
			} else {
				verdict.ExecutionLogs = result.Description
			}
			return verdict, nil
		}

		verdict.PassedTestCases++
		if result.TimeMs > maxTimeMs {
			maxTimeMs = result.TimeMs
		}
		if result.MemoryKb > maxMemoryKb {
			maxMemoryKb = result.MemoryKb
		}
	}

	verdict.RuntimeMs = maxTimeMs
	verdict.MemoryKb = maxMemoryKb
	verdict.ExecutionLogs = "All test cases passed"
	return verdict, nil
}

// categorize maps a sandbox failure status id onto a submission status.
// Unknown ids (internal errors, box errors, unhandled signals) all count as
// runtime errors.
func categorize(statusID int) model.SubmissionStatus {
	switch statusID {
	case 4:
		return model.StatusWrongAnswer
	case 5:
		return model.StatusTimeLimitExceeded
	case 6:
		return model.StatusCompilationError
	default:
		return model.StatusRuntimeError
	}
}
