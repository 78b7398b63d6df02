package model

import "time"

type SubmissionStatus string

const (
	StatusPending           SubmissionStatus = "Pending"
	StatusAccepted          SubmissionStatus = "Accepted"
	StatusWrongAnswer       SubmissionStatus = "WrongAnswer"
	StatusTimeLimitExceeded SubmissionStatus = "TimeLimitExceeded"
	StatusCompilationError  SubmissionStatus = "CompilationError"
	StatusRuntimeError      SubmissionStatus = "RuntimeError"
)

// IsTerminal reports whether a submission in this status will never change again.
func (s SubmissionStatus) IsTerminal() bool {
	return s != StatusPending
}

type Submission struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	ProblemID       string           `json:"problem_id"`
	LanguageID      int              `json:"language_id"`
	Code            string           `json:"code"` // Might omit from general listings
	Status          SubmissionStatus `json:"status"`
	RuntimeMs       int              `json:"runtime_ms"`
	MemoryKb        int              `json:"memory_kb"`
	ExecutionLogs   string           `json:"execution_logs,omitempty"`
	PassedTestCases int              `json:"passed_test_cases"`
	TotalTestCases  int              `json:"total_test_cases"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Verdict is the final outcome a worker writes onto a Pending submission.
// Written exactly once; UpdateVerdict refuses to touch a terminal record.
type Verdict struct {
	Status          SubmissionStatus
	RuntimeMs       int
	MemoryKb        int
	ExecutionLogs   string
	PassedTestCases int
	TotalTestCases  int
}
