package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"algoverse/internal/app/worker"
	"algoverse/internal/domain/repository"
	"algoverse/internal/platform/config"
	"algoverse/internal/platform/database"
	"algoverse/internal/platform/queue"
)

// The judge worker runs standalone so judging capacity scales by process
// count; the queue broker keeps two workers from claiming the same job.
func main() {
	config.Load()
	fmt.Println("Configuration loaded.")

	database.Connect()
	defer database.Close()

	queue.ConnectRedis()
	defer queue.CloseRedis()

	submissionRepo := repository.NewPgSubmissionRepository(database.DB)
	jobQueue := queue.NewJobQueue(queue.RDB, config.AppConfig.SubmissionQueueName, config.AppConfig.ResultChannelName)
	sandbox := worker.NewHTTPSandboxClient(
		config.AppConfig.SandboxURL,
		config.AppConfig.SandboxAuthToken,
		time.Duration(config.AppConfig.SandboxTimeoutSec)*time.Second,
	)

	judgeWorker := worker.NewJudgeWorker(jobQueue, sandbox, submissionRepo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		judgeWorker.Start(ctx)
		close(done)
	}()

	<-stop
	log.Println("Shutting down worker...")
	cancel()
	<-done
	log.Println("Worker stopped gracefully.")
}
