package guardian

import (
	"time"

	"github.com/asa-tools/asa-supervisor/pkg/logging"
	"github.com/asa-tools/asa-supervisor/pkg/supervisor"
)

// RestartConfig tunes the watchdog's restart attempts after a crash.
type RestartConfig struct {
	// MaxRetries is how many restart attempts are made per crash.
	MaxRetries int

	// RetryDelay is the wait before the first attempt.
	RetryDelay time.Duration

	// BackoffRate multiplies the delay after each failed attempt.
	BackoffRate float64
}

func (c RestartConfig) withDefaults() RestartConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 5 * time.Second
	}
	if c.BackoffRate < 1 {
		c.BackoffRate = 2
	}
	return c
}

// RestartFunc brings a crashed server back up. The watchdog does not know
// launch specifics; the wiring layer closes over them.
type RestartFunc func(serverID int64) error

// Watchdog consumes supervisor events, keeps the guardian registry current
// and restarts crashed servers whose auto-restart preference is enabled.
type Watchdog struct {
	registry *Registry
	restart  RestartFunc
	config   RestartConfig
	logger   logging.Logger
}

func NewWatchdog(registry *Registry, restart RestartFunc, config RestartConfig, logger logging.Logger) *Watchdog {
	return &Watchdog{
		registry: registry,
		restart:  restart,
		config:   config.withDefaults(),
		logger:   logger,
	}
}

// Run consumes events until the channel is closed or stop fires. Restart
// attempts run inline so a crash storm across servers is handled one
// recovery at a time.
func (w *Watchdog) Run(events <-chan supervisor.Event, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			w.handle(event)
		}
	}
}

func (w *Watchdog) handle(event supervisor.Event) {
	switch event.Type {
	case supervisor.EventProcessStarted:
		w.registry.RegisterPID(event.ServerID, event.PID)

	case supervisor.EventProcessStopped:
		w.registry.UnregisterPID(event.ServerID)
		if !event.Unplanned {
			return
		}
		autoRestart := w.registry.IsAutoRestartEnabled(event.ServerID)
		w.registry.LogCrash(event.ServerID, w.registry.ServerName(event.ServerID),
			"process exited unexpectedly", autoRestart)
		if autoRestart {
			w.recover(event.ServerID)
		}
	}
}

func (w *Watchdog) recover(serverID int64) {
	delay := w.config.RetryDelay

	for attempt := 1; attempt <= w.config.MaxRetries; attempt++ {
		w.logger.Infof("Auto-restart attempt %d/%d for server %d in %v",
			attempt, w.config.MaxRetries, serverID, delay)
		time.Sleep(delay)

		if err := w.restart(serverID); err != nil {
			w.logger.Errorf("Auto-restart attempt %d failed, server: %d, error: %v",
				attempt, serverID, err)
			delay = time.Duration(float64(delay) * w.config.BackoffRate)
			continue
		}

		w.registry.MarkRestarted(serverID)
		w.logger.Infof("Server %d auto-restarted", serverID)
		return
	}

	w.logger.Errorf("Giving up on auto-restarting server %d after %d attempts",
		serverID, w.config.MaxRetries)
}
