package config

import "time"

const (
	GuardBackendLocal = "local"
	GuardBackendRedis = "redis"
)

// WorkflowConfig carries the tunables of the approval workflow engine.
type WorkflowConfig struct {
	MaxApprovers     int
	RetryAttempts    int
	RetryDelay       time.Duration
	GuardBackend     string
	LockTTL          time.Duration
	LockWait         time.Duration
	RejectPolicyFile string

	OverdueSweepSchedule string
	WorkerConcurrency    int
}

// DefaultWorkflowConfig returns the values used when nothing is configured.
func DefaultWorkflowConfig() WorkflowConfig {
	return WorkflowConfig{
		MaxApprovers:         10,
		RetryAttempts:        3,
		RetryDelay:           50 * time.Millisecond,
		GuardBackend:         GuardBackendLocal,
		LockTTL:              30 * time.Second,
		LockWait:             10 * time.Second,
		OverdueSweepSchedule: "*/15 * * * *",
		WorkerConcurrency:    10,
	}
}

// LoadWorkflowConfig reads the WORKFLOW_* variables over the defaults.
func LoadWorkflowConfig() WorkflowConfig {
	d := DefaultWorkflowConfig()
	cfg := WorkflowConfig{
		MaxApprovers:         GetEnvInt("WORKFLOW_MAX_APPROVERS", d.MaxApprovers),
		RetryAttempts:        GetEnvInt("WORKFLOW_RETRY_ATTEMPTS", d.RetryAttempts),
		RetryDelay:           GetEnvDuration("WORKFLOW_RETRY_DELAY", d.RetryDelay),
		GuardBackend:         GetEnvDefault("WORKFLOW_GUARD", d.GuardBackend),
		LockTTL:              GetEnvDuration("WORKFLOW_LOCK_TTL", d.LockTTL),
		LockWait:             GetEnvDuration("WORKFLOW_LOCK_WAIT", d.LockWait),
		RejectPolicyFile:     GetEnv("WORKFLOW_REJECT_POLICY_FILE"),
		OverdueSweepSchedule: GetEnvDefault("OVERDUE_SWEEP_SCHEDULE", d.OverdueSweepSchedule),
		WorkerConcurrency:    GetEnvInt("WORKFLOW_WORKER_CONCURRENCY", d.WorkerConcurrency),
	}
	if cfg.MaxApprovers < 1 {
		cfg.MaxApprovers = d.MaxApprovers
	}
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	if cfg.GuardBackend != GuardBackendRedis {
		cfg.GuardBackend = GuardBackendLocal
	}
	return cfg
}
