package notifier_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"algoverse/internal/app/notifier"
	"algoverse/internal/common"
	"algoverse/internal/domain/model"
)

type chanCompletions struct {
	ch chan string
}

func (c *chanCompletions) SubscribeCompletions(ctx context.Context) <-chan string {
	return c.ch
}

type stubSubmissionRepo struct {
	submissions map[string]*model.Submission
}

func (s *stubSubmissionRepo) CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error {
	return nil
}

func (s *stubSubmissionRepo) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	sub, ok := s.submissions[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return sub, nil
}

func (s *stubSubmissionRepo) UpdateVerdict(ctx context.Context, submissionID string, verdict model.Verdict) error {
	return nil
}

func (s *stubSubmissionRepo) ListSubmissionsByUser(ctx context.Context, userID string, limit, offset int) ([]model.Submission, int, error) {
	return nil, 0, nil
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	calls  []broadcastCall
	notify chan struct{}
}

type broadcastCall struct {
	topic string
	event string
	data  interface{}
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{notify: make(chan struct{}, 16)}
}

func (b *recordingBroadcaster) Broadcast(topic, event string, data interface{}) {
	b.mu.Lock()
	b.calls = append(b.calls, broadcastCall{topic: topic, event: event, data: data})
	b.mu.Unlock()
	b.notify <- struct{}{}
}

func (b *recordingBroadcaster) snapshot() []broadcastCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]broadcastCall(nil), b.calls...)
}

func TestNotifierPublishesPersistedVerdict(t *testing.T) {
	completions := &chanCompletions{ch: make(chan string, 1)}
	repo := &stubSubmissionRepo{submissions: map[string]*model.Submission{
		"sub-1": {ID: "sub-1", Status: model.StatusAccepted, PassedTestCases: 3, TotalTestCases: 3},
	}}
	hub := newRecordingBroadcaster()
	n := notifier.NewResultNotifier(completions, repo, hub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.Run(ctx)
		close(done)
	}()

	completions.ch <- "sub-1"

	select {
	case <-hub.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("verdict was never broadcast")
	}

	calls := hub.snapshot()
	if len(calls) != 1 {
		t.Fatalf("expected one broadcast, got %d", len(calls))
	}
	if calls[0].topic != notifier.SubmissionTopic("sub-1") {
		t.Fatalf("broadcast to %q, want %q", calls[0].topic, notifier.SubmissionTopic("sub-1"))
	}
	if calls[0].event != "submissionResult" {
		t.Fatalf("unexpected event name %q", calls[0].event)
	}
	sub, ok := calls[0].data.(*model.Submission)
	if !ok || sub.Status != model.StatusAccepted {
		t.Fatalf("expected the persisted submission in the payload, got %v", calls[0].data)
	}

	cancel()
	close(completions.ch)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("notifier did not stop after its stream closed")
	}
}

func TestNotifierSkipsUnknownSubmissions(t *testing.T) {
	completions := &chanCompletions{ch: make(chan string, 2)}
	repo := &stubSubmissionRepo{submissions: map[string]*model.Submission{
		"sub-2": {ID: "sub-2", Status: model.StatusWrongAnswer},
	}}
	hub := newRecordingBroadcaster()
	n := notifier.NewResultNotifier(completions, repo, hub)

	go n.Run(context.Background())

	// An id with no persisted record must be skipped, not stop the loop.
	completions.ch <- "sub-missing"
	completions.ch <- "sub-2"

	select {
	case <-hub.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("notifier stopped after an unknown submission id")
	}

	calls := hub.snapshot()
	if len(calls) != 1 || calls[0].topic != notifier.SubmissionTopic("sub-2") {
		t.Fatalf("expected a single broadcast for sub-2, got %+v", calls)
	}
	close(completions.ch)
}
