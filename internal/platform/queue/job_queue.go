package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"algoverse/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

// JobQueue is the durable submission job queue. Delivery is at-least-once:
// a claim moves the payload into a per-queue processing list (BLMOVE), and
// only Ack removes it. A worker that dies mid-job leaves the payload in the
// processing list, where RecoverPending finds it on the next startup.
type JobQueue struct {
	rdb           *redis.Client
	queueName     string
	resultChannel string
}

func NewJobQueue(rdb *redis.Client, queueName, resultChannel string) *JobQueue {
	return &JobQueue{rdb: rdb, queueName: queueName, resultChannel: resultChannel}
}

func (q *JobQueue) processingName() string {
	return q.queueName + ":processing"
}

// Enqueue pushes the full job payload. The queue never interprets it.
func (q *JobQueue) Enqueue(ctx context.Context, job *model.SubmissionJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal submission job: %w", err)
	}
	if err := q.rdb.LPush(ctx, q.queueName, payload).Err(); err != nil {
		return fmt.Errorf("failed to push job to Redis queue: %w", err)
	}
	return nil
}

// Claim blocks until a job is available and moves its payload into the
// processing list. The returned raw payload is the ack token for Ack.
func (q *JobQueue) Claim(ctx context.Context, timeout time.Duration) (*model.SubmissionJob, string, error) {
	raw, err := q.rdb.BLMove(ctx, q.queueName, q.processingName(), "RIGHT", "LEFT", timeout).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, "", redis.Nil
		}
		return nil, "", fmt.Errorf("failed to claim job from Redis queue '%s': %w", q.queueName, err)
	}

	var job model.SubmissionJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		// Malformed payload: drop it from processing so it cannot loop forever.
		q.rdb.LRem(ctx, q.processingName(), 1, raw)
		return nil, "", fmt.Errorf("malformed job payload dropped: %w", err)
	}
	return &job, raw, nil
}

// Ack removes a claimed payload from the processing list.
func (q *JobQueue) Ack(ctx context.Context, token string) error {
	if err := q.rdb.LRem(ctx, q.processingName(), 1, token).Err(); err != nil {
		return fmt.Errorf("failed to ack job: %w", err)
	}
	return nil
}

// RecoverPending moves any payloads a crashed worker left in the processing
// list back onto the queue. Called once on worker startup; jobs may as a
// result be delivered more than once, which the terminal-once submission
// update absorbs.
func (q *JobQueue) RecoverPending(ctx context.Context) (int, error) {
	recovered := 0
	for {
		_, err := q.rdb.LMove(ctx, q.processingName(), q.queueName, "RIGHT", "LEFT").Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return recovered, nil
			}
			return recovered, fmt.Errorf("failed to recover in-flight jobs: %w", err)
		}
		recovered++
	}
}

// PublishCompletion fires the completion signal for a judged submission.
// Fire-and-forget: if nobody is subscribed, the event is simply unobserved.
func (q *JobQueue) PublishCompletion(ctx context.Context, submissionID string) error {
	if err := q.rdb.Publish(ctx, q.resultChannel, submissionID).Err(); err != nil {
		return fmt.Errorf("failed to publish completion for submission %s: %w", submissionID, err)
	}
	return nil
}

// SubscribeCompletions returns a stream of judged submission IDs. The
// channel closes when ctx is cancelled.
func (q *JobQueue) SubscribeCompletions(ctx context.Context) <-chan string {
	sub := q.rdb.Subscribe(ctx, q.resultChannel)
	out := make(chan string)

	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len reports the number of jobs waiting (not in-flight).
func (q *JobQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.rdb.LLen(ctx, q.queueName).Result()
	if err != nil {
		log.Printf("ERROR: Failed to read queue length for '%s': %v", q.queueName, err)
		return 0, err
	}
	return n, nil
}
