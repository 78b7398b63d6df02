// Package notifier bridges job completion to the waiting realtime client.
package notifier

import (
	"context"
	"log"

	"algoverse/internal/domain/repository"
)

// Broadcaster is the slice of the realtime hub the notifier needs.
type Broadcaster interface {
	Broadcast(topic, event string, data interface{})
}

// CompletionSource is the slice of the job queue the notifier consumes.
type CompletionSource interface {
	SubscribeCompletions(ctx context.Context) <-chan string
}

// SubmissionTopic names the realtime topic a client subscribes to when it
// wants a submission's verdict pushed.
func SubmissionTopic(submissionID string) string {
	return "submission:" + submissionID
}

// ResultNotifier reads the persisted verdict for each completed job and
// publishes it once to the submission's topic. At-most-once: if nobody is
// subscribed when the event fires, nothing is delivered — late clients poll
// the durable record instead.
type ResultNotifier struct {
	completions    CompletionSource
	submissionRepo repository.SubmissionRepository
	hub            Broadcaster
}

func NewResultNotifier(completions CompletionSource, subRepo repository.SubmissionRepository, hub Broadcaster) *ResultNotifier {
	return &ResultNotifier{
		completions:    completions,
		submissionRepo: subRepo,
		hub:            hub,
	}
}

func (n *ResultNotifier) Run(ctx context.Context) {
	log.Println("Result notifier started.")
	for submissionID := range n.completions.SubscribeCompletions(ctx) {
		// Verdicts are only published after the worker has persisted them,
		// so this read never observes a partial result.
		submission, err := n.submissionRepo.GetSubmissionByID(ctx, submissionID)
		if err != nil {
			log.Printf("ERROR: Notifier failed to load submission %s: %v", submissionID, err)
			continue
		}
		n.hub.Broadcast(SubmissionTopic(submissionID), "submissionResult", submission)
	}
	log.Println("Result notifier stopped.")
}
