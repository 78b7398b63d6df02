package model

import (
	"time"
)

type ProblemDifficulty string

const (
	DifficultyEasy   ProblemDifficulty = "Easy"
	DifficultyMedium ProblemDifficulty = "Medium"
	DifficultyHard   ProblemDifficulty = "Hard"
)

type Problem struct {
	ID                string            `json:"id"`
	Title             string            `json:"title"`
	Slug              string            `json:"slug"`
	Description       string            `json:"description"`
	Difficulty        ProblemDifficulty `json:"difficulty"`
	TimeLimitMs       int               `json:"time_limit_ms"`
	MemoryLimitKb     int               `json:"memory_limit_kb"`
	IsPublished       bool              `json:"is_published"`
	CreatedByID       *string           `json:"created_by_id,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	Tags              []string          `json:"tags,omitempty"`
	TestCases         []TestCase        `json:"test_cases,omitempty"` // Hidden, admin only view
	CreatedByUsername *string           `json:"created_by_username,omitempty"`
}

// TestCase is a hidden judge case. Immutable once attached to a problem;
// copied into SubmissionJobs so the worker never reads the catalog mid-run.
type TestCase struct {
	ID             string    `json:"id"`
	ProblemID      string    `json:"problem_id"`
	Input          string    `json:"input"`
	ExpectedOutput string    `json:"expected_output"`
	SortOrder      int       `json:"sort_order"`
	CreatedAt      time.Time `json:"created_at"`
}
