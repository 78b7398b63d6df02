package worker_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"algoverse/internal/app/worker"
	"algoverse/internal/common"
	"algoverse/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

type fakeSandbox struct {
	mu       sync.Mutex
	verdicts []worker.SandboxVerdict
	errs     []error
	calls    []worker.SandboxRequest
}

func (f *fakeSandbox) Run(ctx context.Context, req worker.SandboxRequest) (*worker.SandboxVerdict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.calls)
	f.calls = append(f.calls, req)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i >= len(f.verdicts) {
		return nil, errors.New("unexpected sandbox call")
	}
	v := f.verdicts[i]
	return &v, nil
}

func (f *fakeSandbox) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeSubmissionRepo struct {
	mu       sync.Mutex
	verdicts map[string][]model.Verdict
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{verdicts: make(map[string][]model.Verdict)}
}

func (f *fakeSubmissionRepo) CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error {
	return nil
}

func (f *fakeSubmissionRepo) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	return nil, common.ErrNotFound
}

func (f *fakeSubmissionRepo) UpdateVerdict(ctx context.Context, submissionID string, verdict model.Verdict) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.verdicts[submissionID]) > 0 {
		return common.ErrConflict // already terminal
	}
	f.verdicts[submissionID] = append(f.verdicts[submissionID], verdict)
	return nil
}

func (f *fakeSubmissionRepo) ListSubmissionsByUser(ctx context.Context, userID string, limit, offset int) ([]model.Submission, int, error) {
	return nil, 0, nil
}

func (f *fakeSubmissionRepo) verdictFor(submissionID string) (model.Verdict, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	vs := f.verdicts[submissionID]
	if len(vs) == 0 {
		return model.Verdict{}, false
	}
	return vs[0], true
}

// fakeJobSource hands out a fixed list of jobs, then reports empty.
type fakeJobSource struct {
	mu          sync.Mutex
	jobs        []*model.SubmissionJob
	acked       int
	completions []string
	drained     chan struct{}
	once        sync.Once
}

func newFakeJobSource(jobs ...*model.SubmissionJob) *fakeJobSource {
	return &fakeJobSource{jobs: jobs, drained: make(chan struct{})}
}

func (f *fakeJobSource) RecoverPending(ctx context.Context) (int, error) { return 0, nil }

func (f *fakeJobSource) Claim(ctx context.Context, timeout time.Duration) (*model.SubmissionJob, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.jobs) == 0 {
		f.once.Do(func() { close(f.drained) })
		return nil, "", redis.Nil
	}
	job := f.jobs[0]
	f.jobs = f.jobs[1:]
	return job, job.SubmissionID, nil
}

func (f *fakeJobSource) Ack(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked++
	return nil
}

func (f *fakeJobSource) PublishCompletion(ctx context.Context, submissionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completions = append(f.completions, submissionID)
	return nil
}

func runWorker(t *testing.T, jobs *fakeJobSource, sandbox *fakeSandbox, repo *fakeSubmissionRepo) {
	t.Helper()
	w := worker.NewJudgeWorker(jobs, sandbox, repo)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	select {
	case <-jobs.drained:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not drain the job source in time")
	}
	cancel()
	<-done
}

func passVerdict(timeMs, memoryKb int) worker.SandboxVerdict {
	return worker.SandboxVerdict{StatusID: 3, Description: "Accepted", TimeMs: timeMs, MemoryKb: memoryKb}
}

func testJob(submissionID string, cases int) *model.SubmissionJob {
	job := &model.SubmissionJob{
		SubmissionID:  submissionID,
		Code:          "print(input())",
		LanguageID:    71,
		TimeLimitMs:   2000,
		MemoryLimitKb: 128000,
	}
	for i := 0; i < cases; i++ {
		job.TestCases = append(job.TestCases, model.JobTestCase{Input: "2 7 11 15", ExpectedOutput: "0 1"})
	}
	return job
}

func TestAllCasesPassingYieldsAccepted(t *testing.T) {
	sandbox := &fakeSandbox{verdicts: []worker.SandboxVerdict{passVerdict(10, 5000)}}
	repo := newFakeSubmissionRepo()
	jobs := newFakeJobSource(testJob("sub-1", 1))

	runWorker(t, jobs, sandbox, repo)

	verdict, ok := repo.verdictFor("sub-1")
	if !ok {
		t.Fatal("no verdict persisted")
	}
	if verdict.Status != model.StatusAccepted {
		t.Fatalf("expected Accepted, got %s", verdict.Status)
	}
	if verdict.PassedTestCases != 1 || verdict.TotalTestCases != 1 {
		t.Fatalf("expected 1/1 passed, got %d/%d", verdict.PassedTestCases, verdict.TotalTestCases)
	}
	if jobs.completions[0] != "sub-1" {
		t.Fatalf("expected completion for sub-1, got %v", jobs.completions)
	}
}

func TestAcceptedAggregatesMaxTimeAndMemory(t *testing.T) {
	sandbox := &fakeSandbox{verdicts: []worker.SandboxVerdict{
		passVerdict(10, 9000),
		passVerdict(120, 4000),
		passVerdict(40, 7000),
	}}
	repo := newFakeSubmissionRepo()
	jobs := newFakeJobSource(testJob("sub-2", 3))

	runWorker(t, jobs, sandbox, repo)

	verdict, _ := repo.verdictFor("sub-2")
	if verdict.RuntimeMs != 120 {
		t.Fatalf("expected max runtime 120ms, got %d", verdict.RuntimeMs)
	}
	if verdict.MemoryKb != 9000 {
		t.Fatalf("expected max memory 9000kb, got %d", verdict.MemoryKb)
	}
	if verdict.PassedTestCases != 3 {
		t.Fatalf("expected 3 passed, got %d", verdict.PassedTestCases)
	}
}

func TestFailFastStopsAtFirstFailingCase(t *testing.T) {
	sandbox := &fakeSandbox{verdicts: []worker.SandboxVerdict{
		passVerdict(10, 5000),
		{StatusID: 4, Description: "Wrong Answer"},
		passVerdict(10, 5000), // must never be reached
	}}
	repo := newFakeSubmissionRepo()
	jobs := newFakeJobSource(testJob("sub-3", 3))

	runWorker(t, jobs, sandbox, repo)

	if sandbox.callCount() != 2 {
		t.Fatalf("expected evaluation to stop after case 2, sandbox called %d times", sandbox.callCount())
	}
	verdict, _ := repo.verdictFor("sub-3")
	if verdict.Status != model.StatusWrongAnswer {
		t.Fatalf("expected WrongAnswer, got %s", verdict.Status)
	}
	if verdict.PassedTestCases != 1 {
		t.Fatalf("expected 1 case passed before failure, got %d", verdict.PassedTestCases)
	}
	if verdict.ExecutionLogs != "Wrong Answer" {
		t.Fatalf("expected category description in logs, got %q", verdict.ExecutionLogs)
	}
}

func TestCompilationErrorUsesCompileOutput(t *testing.T) {
	sandbox := &fakeSandbox{verdicts: []worker.SandboxVerdict{
		{StatusID: 6, Description: "Compilation Error", CompileOutput: "main.c:1: error: expected ';'"},
	}}
	repo := newFakeSubmissionRepo()
	jobs := newFakeJobSource(testJob("sub-4", 2))

	runWorker(t, jobs, sandbox, repo)

	verdict, _ := repo.verdictFor("sub-4")
	if verdict.Status != model.StatusCompilationError {
		t.Fatalf("expected CompilationError, got %s", verdict.Status)
	}
	if !strings.Contains(verdict.ExecutionLogs, "expected ';'") {
		t.Fatalf("expected compiler output in logs, got %q", verdict.ExecutionLogs)
	}
	if sandbox.callCount() != 1 {
		t.Fatalf("expected a single sandbox call, got %d", sandbox.callCount())
	}
}

func TestTimeLimitExceededMapping(t *testing.T) {
	sandbox := &fakeSandbox{verdicts: []worker.SandboxVerdict{
		{StatusID: 5, Description: "Time Limit Exceeded"},
	}}
	repo := newFakeSubmissionRepo()
	jobs := newFakeJobSource(testJob("sub-5", 1))

	runWorker(t, jobs, sandbox, repo)

	verdict, _ := repo.verdictFor("sub-5")
	if verdict.Status != model.StatusTimeLimitExceeded {
		t.Fatalf("expected TimeLimitExceeded, got %s", verdict.Status)
	}
}

func TestSandboxFailureBecomesRuntimeErrorAndWorkerContinues(t *testing.T) {
	sandbox := &fakeSandbox{
		errs:     []error{errors.New("dial tcp: connection refused")},
		verdicts: []worker.SandboxVerdict{{}, passVerdict(15, 6000)},
	}
	repo := newFakeSubmissionRepo()
	jobs := newFakeJobSource(testJob("sub-6", 1), testJob("sub-7", 1))

	runWorker(t, jobs, sandbox, repo)

	verdict, ok := repo.verdictFor("sub-6")
	if !ok {
		t.Fatal("no verdict persisted for failed job")
	}
	if verdict.Status != model.StatusRuntimeError {
		t.Fatalf("expected RuntimeError, got %s", verdict.Status)
	}
	if !strings.Contains(verdict.ExecutionLogs, "execution engine unavailable") {
		t.Fatalf("expected engine unavailable marker in logs, got %q", verdict.ExecutionLogs)
	}

	// The next job must still be consumed and judged normally.
	next, ok := repo.verdictFor("sub-7")
	if !ok {
		t.Fatal("worker stopped consuming after a failed job")
	}
	if next.Status != model.StatusAccepted {
		t.Fatalf("expected Accepted for next job, got %s", next.Status)
	}
	if jobs.acked != 2 {
		t.Fatalf("expected both jobs acked, got %d", jobs.acked)
	}
}

// blockingSandbox holds every call until the context is cancelled, the way
// a real in-flight HTTP call fails when the worker shuts down.
type blockingSandbox struct {
	started chan struct{}
	once    sync.Once
}

func (b *blockingSandbox) Run(ctx context.Context, req worker.SandboxRequest) (*worker.SandboxVerdict, error) {
	b.once.Do(func() { close(b.started) })
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestShutdownMidJobWritesNoVerdictAndLeavesJobUnacked(t *testing.T) {
	sandbox := &blockingSandbox{started: make(chan struct{})}
	repo := newFakeSubmissionRepo()
	jobs := newFakeJobSource(testJob("sub-9", 1))

	w := worker.NewJudgeWorker(jobs, sandbox, repo)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	select {
	case <-sandbox.started:
	case <-time.After(2 * time.Second):
		t.Fatal("sandbox was never called")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}

	// The interrupted job must stay judgeable: no terminal verdict, no ack,
	// no completion signal. Redelivery picks it up on the next start.
	if _, ok := repo.verdictFor("sub-9"); ok {
		t.Fatal("an interrupted job must not receive a verdict")
	}
	if jobs.acked != 0 {
		t.Fatalf("an interrupted job must stay unacked, got %d acks", jobs.acked)
	}
	if len(jobs.completions) != 0 {
		t.Fatalf("no completion may be published for an interrupted job, got %v", jobs.completions)
	}
}

func TestRuntimeErrorMappingForUnknownStatus(t *testing.T) {
	sandbox := &fakeSandbox{verdicts: []worker.SandboxVerdict{
		{StatusID: 11, Description: "Runtime Error (SIGSEGV)"},
	}}
	repo := newFakeSubmissionRepo()
	jobs := newFakeJobSource(testJob("sub-8", 1))

	runWorker(t, jobs, sandbox, repo)

	verdict, _ := repo.verdictFor("sub-8")
	if verdict.Status != model.StatusRuntimeError {
		t.Fatalf("expected RuntimeError, got %s", verdict.Status)
	}
}
