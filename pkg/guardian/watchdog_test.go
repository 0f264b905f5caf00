package guardian

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asa-tools/asa-supervisor/pkg/errors"
	"github.com/asa-tools/asa-supervisor/pkg/supervisor"
)

func fastRestartConfig() RestartConfig {
	return RestartConfig{
		MaxRetries:  3,
		RetryDelay:  10 * time.Millisecond,
		BackoffRate: 1,
	}
}

func runWatchdog(t *testing.T, w *Watchdog) chan<- supervisor.Event {
	t.Helper()

	events := make(chan supervisor.Event)
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(events, nil)
	}()
	t.Cleanup(func() {
		close(events)
		<-done
	})

	return events
}

func TestWatchdogRegistersStartedServers(t *testing.T) {
	registry := NewRegistry(testLogger())
	watchdog := NewWatchdog(registry, func(int64) error { return nil }, fastRestartConfig(), testLogger())
	events := runWatchdog(t, watchdog)

	events <- supervisor.Event{Type: supervisor.EventProcessStarted, ServerID: 1, PID: 1234}

	require.Eventually(t, func() bool {
		snapshot, ok := registry.Health(1)
		return ok && snapshot.PID == 1234
	}, time.Second, 10*time.Millisecond)
}

func TestWatchdogRestartsCrashedServer(t *testing.T) {
	registry := NewRegistry(testLogger())
	registry.Register(1, "Island")
	registry.SetAutoRestart(1, true)

	var restarts atomic.Int32
	watchdog := NewWatchdog(registry, func(serverID int64) error {
		assert.Equal(t, int64(1), serverID)
		restarts.Add(1)
		return nil
	}, fastRestartConfig(), testLogger())
	events := runWatchdog(t, watchdog)

	events <- supervisor.Event{Type: supervisor.EventProcessStopped, ServerID: 1, Unplanned: true}

	require.Eventually(t, func() bool {
		return restarts.Load() == 1
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, registry.CrashCount(1))

	entries := registry.CrashLog()
	require.Len(t, entries, 1)
	assert.Equal(t, "Island", entries[0].ServerName)
	assert.True(t, entries[0].AutoRestarted)

	snapshot, ok := registry.Health(1)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), snapshot.LastRestart, 5*time.Second)
}

func TestWatchdogRetriesUntilSuccess(t *testing.T) {
	registry := NewRegistry(testLogger())
	registry.SetAutoRestart(1, true)

	var attempts atomic.Int32
	watchdog := NewWatchdog(registry, func(int64) error {
		if attempts.Add(1) < 3 {
			return errors.NewProcessError("still failing", nil)
		}
		return nil
	}, fastRestartConfig(), testLogger())
	events := runWatchdog(t, watchdog)

	events <- supervisor.Event{Type: supervisor.EventProcessStopped, ServerID: 1, Unplanned: true}

	require.Eventually(t, func() bool {
		return attempts.Load() == 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatchdogGivesUpAfterMaxRetries(t *testing.T) {
	registry := NewRegistry(testLogger())
	registry.SetAutoRestart(1, true)

	var attempts atomic.Int32
	watchdog := NewWatchdog(registry, func(int64) error {
		attempts.Add(1)
		return errors.NewProcessError("permanently broken", nil)
	}, fastRestartConfig(), testLogger())
	events := runWatchdog(t, watchdog)

	events <- supervisor.Event{Type: supervisor.EventProcessStopped, ServerID: 1, Unplanned: true}

	require.Eventually(t, func() bool {
		return attempts.Load() == 3
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestWatchdogIgnoresPlannedStops(t *testing.T) {
	registry := NewRegistry(testLogger())
	registry.SetAutoRestart(1, true)

	var restarts atomic.Int32
	watchdog := NewWatchdog(registry, func(int64) error {
		restarts.Add(1)
		return nil
	}, fastRestartConfig(), testLogger())
	events := runWatchdog(t, watchdog)

	events <- supervisor.Event{Type: supervisor.EventProcessStopped, ServerID: 1, Unplanned: false}

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), restarts.Load())
	assert.Equal(t, 0, registry.CrashCount(1))
}

func TestWatchdogIgnoresCrashWithoutAutoRestart(t *testing.T) {
	registry := NewRegistry(testLogger())

	var restarts atomic.Int32
	watchdog := NewWatchdog(registry, func(int64) error {
		restarts.Add(1)
		return nil
	}, fastRestartConfig(), testLogger())
	events := runWatchdog(t, watchdog)

	events <- supervisor.Event{Type: supervisor.EventProcessStopped, ServerID: 1, Unplanned: true}

	require.Eventually(t, func() bool {
		return registry.CrashCount(1) == 1
	}, time.Second, 10*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), restarts.Load())
}
