package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	config "procurement-backend/config"
	"procurement-backend/events"
	"procurement-backend/guard"
	"procurement-backend/seeds"
	"procurement-backend/transitions"
	"procurement-backend/utils"
	"procurement-backend/workflow"

	// Repositories
	users_repositories "procurement-backend/users/repositories"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables, then the Zap logger
	err := config.Bootstrap(".env")
	defer config.Logger.Sync()
	if err != nil {
		config.Logger.Fatal("Error loading .env file", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database and configs
	db := config.ConfigureDatabase()
	cfg := config.LoadWorkflowConfig()

	//------ Seed the default procurement roster ------ //
	if config.GetEnvBool("SEED_PROCUREMENT_USERS", false) {
		if _, err := seeds.SeedProcurementUsers(db); err != nil {
			config.Logger.Error("Database seeding failed", zap.Error(err))
		}
	}

	// Per-document guard
	var docGuard guard.Guard
	switch cfg.GuardBackend {
	case config.GuardBackendRedis:
		redisClient := config.InitRedisServer(ctx)
		defer redisClient.Close()
		docGuard = guard.NewRedis(redisClient, cfg.LockTTL, cfg.LockWait, config.Logger.Named("guard"))
	default:
		docGuard = guard.NewLocal()
	}
	config.Logger.Info("Document guard ready", zap.String("backend", cfg.GuardBackend))

	// Reject policy and lifecycle graphs
	policy := transitions.DefaultRejectPolicy()
	if cfg.RejectPolicyFile != "" {
		loaded, err := transitions.LoadRejectPolicy(cfg.RejectPolicyFile)
		if err != nil {
			config.Logger.Fatal("Cannot load reject policy", zap.String("file", cfg.RejectPolicyFile), zap.Error(err))
		}
		policy = loaded
	}
	graphs, err := transitions.BuildGraphs(policy)
	if err != nil {
		config.Logger.Fatal("Invalid reject policy", zap.Error(err))
	}

	// Asynq client for workflow events
	asynqRedisOpt := config.AsynqRedisOpt()
	asynqClient := asynq.NewClient(asynqRedisOpt)
	defer asynqClient.Close()

	engine := workflow.NewEngine(db, workflow.Options{
		Config:    cfg,
		Guard:     docGuard,
		Publisher: events.NewAsynqPublisher(asynqClient, config.Logger.Named("events")),
		Directory: users_repositories.NewUserRepository(db),
		Graphs:    graphs,
		Logger:    config.Logger,
	})

	// Background overdue sweep
	sweeper, err := utils.StartScheduledSweep(ctx, cfg.OverdueSweepSchedule, "overdue-canvass-sweep", engine.MarkOverdueCanvasses, config.Logger.Named("scheduler"))
	if err != nil {
		config.Logger.Fatal("Cannot schedule overdue sweep", zap.Error(err))
	}
	defer sweeper.Stop()

	// Task worker
	srv := asynq.NewServer(asynqRedisOpt, asynq.Config{
		Concurrency:     cfg.WorkerConcurrency,
		Queues:          map[string]int{events.QueueWorkflow: 1},
		ShutdownTimeout: 10 * time.Second,
		Logger:          config.Logger.Named("asynq").Sugar(),
	})
	mux := asynq.NewServeMux()
	engine.RegisterHandlers(mux)

	if err := srv.Start(mux); err != nil {
		config.Logger.Fatal("Worker failed to start", zap.Error(err))
	}
	config.Logger.Info("Workflow worker started",
		zap.Int("concurrency", cfg.WorkerConcurrency),
		zap.String("overdue_schedule", cfg.OverdueSweepSchedule))

	<-ctx.Done()
	config.Logger.Info("Shutting down workflow worker")
	srv.Shutdown()
}
