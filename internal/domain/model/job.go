package model

// SubmissionJob is the unit of judging work a worker claims from the queue.
// Transient: it exists only as a queue payload and always refers to exactly
// one pre-existing Pending submission. Test cases are copied in at enqueue
// time so the payload is self-contained.
type SubmissionJob struct {
	SubmissionID  string        `json:"submission_id"`
	Code          string        `json:"code"`
	LanguageID    int           `json:"language_id"`
	TestCases     []JobTestCase `json:"test_cases"`
	TimeLimitMs   int           `json:"time_limit_ms"`
	MemoryLimitKb int           `json:"memory_limit_kb"`
}

type JobTestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
}
