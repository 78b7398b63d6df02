package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"algoverse/internal/api"
	"algoverse/internal/app/duel"
	"algoverse/internal/app/notifier"
	"algoverse/internal/app/service"
	"algoverse/internal/common/security"
	"algoverse/internal/domain/repository"
	"algoverse/internal/platform/config"
	"algoverse/internal/platform/database"
	"algoverse/internal/platform/queue"
	"algoverse/internal/realtime"
)

func main() {
	// 1. Load Configuration
	config.Load()
	fmt.Println("Configuration loaded.")

	// 2. Initialize JWT
	security.InitJWT()
	fmt.Println("JWT initialized.")

	// 3. Initialize Database
	database.Connect()
	defer database.Close()

	// 4. Initialize Redis
	queue.ConnectRedis()
	defer queue.CloseRedis()

	// 5. Initialize Repositories
	userRepo := repository.NewPgUserRepository(database.DB)
	problemRepo := repository.NewPgProblemRepository(database.DB)
	submissionRepo := repository.NewPgSubmissionRepository(database.DB)

	// 6. Initialize Queue, Realtime, Services
	jobQueue := queue.NewJobQueue(queue.RDB, config.AppConfig.SubmissionQueueName, config.AppConfig.ResultChannelName)
	hub := realtime.NewHub()

	authService := service.NewAuthService(userRepo)
	problemService := service.NewProblemService(problemRepo, database.DB)
	submissionService := service.NewSubmissionService(submissionRepo, problemRepo, jobQueue, database.DB)

	duelManager := duel.NewManager(hub, problemRepo, time.Duration(config.AppConfig.BattleCountdownSec)*time.Second)

	// 7. Start the Result Notifier (as a goroutine)
	resultNotifier := notifier.NewResultNotifier(jobQueue, submissionRepo, hub)
	notifierCtx, notifierCancel := context.WithCancel(context.Background())
	defer notifierCancel()
	go resultNotifier.Run(notifierCtx)
	fmt.Println("Result notifier started.")

	// 8. Initialize Router & HTTP Server
	router := api.NewRouter(authService, problemService, submissionService, hub, duelManager)

	server := &http.Server{
		Addr:        ":" + config.AppConfig.APIPort,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	// 9. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", config.AppConfig.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", config.AppConfig.APIPort, err)
		}
	}()
	log.Println("Server started successfully.")

	<-stop // Wait for interrupt signal

	log.Println("Shutting down server...")
	notifierCancel() // Signal notifier to stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Println("Server stopped gracefully.")
}
