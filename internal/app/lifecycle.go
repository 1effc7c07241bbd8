package app

import (
	"fmt"

	"chartvault.io/vault/internal/pkg/logger"
)

// Start starts background services. Currently that is the retention
// scheduler; a disabled cleanup configuration makes this a no-op.
func (a *Application) Start() error {
	if err := a.Scheduler.Start(a.Pools); err != nil {
		return fmt.Errorf("start cleanup scheduler: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down all application components. Pool shutdown
// cancels the scheduler's context and waits for an in-flight cleanup run.
func (a *Application) Shutdown() {
	if a.Pools != nil {
		a.Pools.Shutdown()
	}
	if a.DB != nil {
		a.DB.Close()
	}
	logger.Info("Application shut down")
}
