package background

import (
	"context"
	"log/slog"
	"time"
)

// Pruner drops expired in-memory state and reports how many entries went away
type Pruner interface {
	Prune() int
}

// Task is one named pruning job
type Task struct {
	Name   string
	Pruner Pruner
}

// CleanupManager periodically evicts idle visitors and expired rate-limit windows
type CleanupManager struct {
	tasks    []Task
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(logger *slog.Logger, interval time.Duration, tasks ...Task) *CleanupManager {
	return &CleanupManager{
		tasks:    tasks,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.RunOnce()

	for {
		select {
		case <-ticker.C:
			cm.RunOnce()
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// RunOnce runs every task a single time
func (cm *CleanupManager) RunOnce() {
	for _, task := range cm.tasks {
		removed := cm.run(task)
		if removed > 0 {
			cm.logger.Info("cleanup completed", slog.String("task", task.Name), slog.Int("removed", removed))
		}
	}
}

func (cm *CleanupManager) run(task Task) (removed int) {
	defer func() {
		if r := recover(); r != nil {
			cm.logger.Error("cleanup task panicked", slog.String("task", task.Name), slog.Any("panic", r))
			removed = 0
		}
	}()
	return task.Pruner.Prune()
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
