package supervisor

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/asa-tools/asa-supervisor/pkg/errors"
	"github.com/asa-tools/asa-supervisor/pkg/logging"
	"github.com/asa-tools/asa-supervisor/pkg/process"
	"github.com/asa-tools/asa-supervisor/pkg/processstate"
	"github.com/asa-tools/asa-supervisor/pkg/rcon"
)

// Options tunes supervisor timing. Zero values fall back to defaults.
type Options struct {
	// GracePeriod is how long Start waits after spawning before declaring
	// the launch successful. An exit inside this window is reported
	// synchronously as an immediate-exit failure.
	GracePeriod time.Duration

	// PollInterval is the reconciliation loop tick.
	PollInterval time.Duration

	// GracefulTimeout bounds how long GracefulShutdown waits for the server
	// to exit on its own before falling back to a forceful stop.
	GracefulTimeout time.Duration

	// RestartDelay is the pause between stop and start during Restart,
	// letting the OS release the bound ports.
	RestartDelay time.Duration

	// LogWaitTimeout bounds how long the readiness watcher waits for the
	// server log file to be created.
	LogWaitTimeout time.Duration

	// LogPollInterval is the tail polling interval of the readiness watcher.
	LogPollInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.GracePeriod <= 0 {
		o.GracePeriod = 3 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.GracefulTimeout <= 0 {
		o.GracefulTimeout = 12 * time.Second
	}
	if o.RestartDelay <= 0 {
		o.RestartDelay = 2 * time.Second
	}
	if o.LogWaitTimeout <= 0 {
		o.LogWaitTimeout = 30 * time.Second
	}
	if o.LogPollInterval <= 0 {
		o.LogPollInterval = 100 * time.Millisecond
	}
	return o
}

// ConsoleCredentials locate a server's remote console for graceful shutdown.
type ConsoleCredentials struct {
	Address  string
	Port     int
	Password string
}

// serverHandle tracks one live game-server process. It is created by Start,
// owned by the registry, and discarded on removal.
type serverHandle struct {
	id  int64
	pid int

	// done is closed once the process has been reaped; exitResult is valid
	// after that.
	done       chan struct{}
	exitResult process.ExitResult

	// stopRequested is the cancellation flag shared with the readiness
	// watcher. The first party to set it (explicit stop, graceful shutdown,
	// reconciliation) owns emitting the stopped notification.
	stopRequested atomic.Bool

	// planned marks the coming exit as operator-intended, so a reconciled
	// exit after a graceful DoExit is not reported as a crash.
	planned atomic.Bool

	// ready is set at most once by the readiness watcher.
	ready atomic.Bool
}

func (h *serverHandle) exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Supervisor owns the registry of logical server id to live OS process and
// reconciles it against actual process liveness. The registry is the single
// source of truth for "is this server running".
type Supervisor struct {
	options Options
	logger  logging.Logger
	sink    EventSink
	console *rcon.Client
	hider   process.ConsoleHider

	mu      sync.Mutex
	servers map[int64]*serverHandle

	// opLocks serialize lifecycle operations per server id. The registry
	// lock protects only the map; sequences like stop-then-start must not
	// interleave.
	opMu    sync.Mutex
	opLocks map[int64]*sync.Mutex

	stopReconcile chan struct{}
	wg            sync.WaitGroup
}

// New creates a supervisor and starts its background reconciliation loop.
// Call Close to stop it.
func New(options Options, console *rcon.Client, sink EventSink, logger logging.Logger) *Supervisor {
	s := &Supervisor{
		options:       options.withDefaults(),
		logger:        logger,
		sink:          sink,
		console:       console,
		hider:         process.NewConsoleHider(),
		servers:       make(map[int64]*serverHandle),
		opLocks:       make(map[int64]*sync.Mutex),
		stopReconcile: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.reconcileLoop()

	return s
}

func (s *Supervisor) operationLock(serverID int64) *sync.Mutex {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	lock, ok := s.opLocks[serverID]
	if !ok {
		lock = &sync.Mutex{}
		s.opLocks[serverID] = lock
	}
	return lock
}

func (s *Supervisor) publish(event Event) {
	event.At = time.Now()
	s.sink.Publish(event)
}

// Start launches the server described by spec under the given logical id.
// It fails fast when a port is already bound or the executable is missing,
// and reports an exit inside the grace period synchronously. On success the
// server is registered, a readiness watcher is tailing its log, and a
// process-started event has been published.
func (s *Supervisor) Start(serverID int64, spec LaunchSpec) error {
	lock := s.operationLock(serverID)
	lock.Lock()
	defer lock.Unlock()

	return s.startLocked(serverID, spec)
}

func (s *Supervisor) startLocked(serverID int64, spec LaunchSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	_, exists := s.servers[serverID]
	s.mu.Unlock()
	if exists {
		return errors.NewConflictError("server is already running", nil).
			WithContext("server_id", serverID)
	}

	for _, port := range []int{spec.GamePort, spec.QueryPort, spec.RCONPort} {
		if !process.IsPortAvailable(port) {
			return errors.NewPortInUseError(port).WithContext("server_id", serverID)
		}
	}

	executable := spec.ExecutablePath()
	if _, err := os.Stat(executable); err != nil {
		return errors.NewNotFoundError("server executable not found", err).
			WithContext("server_id", serverID).WithContext("executable_path", executable)
	}

	args := buildLaunchArgs(spec)
	s.logger.Infof("Starting server %d: %s %v", serverID, executable, args)

	proc, waitCh, err := process.Spawn(process.SpawnConfig{
		ExecutablePath:   executable,
		Args:             args,
		WorkingDirectory: filepath.Dir(executable),
	}, s.logger)
	if err != nil {
		return err
	}

	handle := &serverHandle{
		id:   serverID,
		pid:  proc.Pid,
		done: make(chan struct{}),
	}
	go func() {
		handle.exitResult = <-waitCh
		close(handle.done)
	}()

	// Grace period: catch bad configuration, missing assets and corrupt
	// installs synchronously instead of waiting for the reconciliation loop.
	select {
	case <-handle.done:
		status := exitStatusString(handle.exitResult)
		s.logger.Errorf("Server %d exited during grace period, status: %s", serverID, status)
		return errors.NewImmediateExitError(status, handle.exitResult.Err).
			WithContext("server_id", serverID)
	case <-time.After(s.options.GracePeriod):
	}

	s.mu.Lock()
	s.servers[serverID] = handle
	s.mu.Unlock()

	s.wg.Add(1)
	go s.watchReadiness(handle, spec.LogPath())

	// The game server opens its own console window on Windows; hide it once
	// it shows up. Best-effort, no-op elsewhere.
	go func() {
		time.Sleep(3 * time.Second)
		s.hider.HideProcessWindows(handle.pid)
		time.Sleep(5 * time.Second)
		s.hider.HideProcessWindows(handle.pid)
	}()

	s.logger.Infof("Server %d running, PID: %d", serverID, handle.pid)
	s.publish(Event{Type: EventProcessStarted, ServerID: serverID, PID: handle.pid})

	return nil
}

// Stop forcefully terminates the server and removes it from the registry.
// Stopping a server that is not registered is a no-op, not an error: it may
// already have exited and been reconciled away.
func (s *Supervisor) Stop(serverID int64) error {
	lock := s.operationLock(serverID)
	lock.Lock()
	defer lock.Unlock()

	return s.stopLocked(serverID)
}

func (s *Supervisor) stopLocked(serverID int64) error {
	s.mu.Lock()
	handle, ok := s.servers[serverID]
	if ok {
		delete(s.servers, serverID)
	}
	s.mu.Unlock()

	if !ok {
		return nil
	}

	handle.planned.Store(true)
	first := !handle.stopRequested.Swap(true)

	if err := process.KillTree(handle.pid); err != nil {
		// Best-effort: the registry entry is already gone so a stuck kill
		// cannot wedge the supervisor in a permanent "running" state.
		s.logger.Warnf("Failed to kill process tree, server: %d, PID: %d, error: %v",
			serverID, handle.pid, err)
	}

	select {
	case <-handle.done:
	case <-time.After(5 * time.Second):
		alive, _ := processstate.IsProcessRunning(handle.pid)
		s.logger.Warnf("Server %d did not reap within 5s after kill, PID: %d, still alive: %v",
			serverID, handle.pid, alive)
	}

	if first {
		s.logger.Infof("Server %d stopped", serverID)
		s.publish(Event{Type: EventProcessStopped, ServerID: serverID, Unplanned: false})
	}
	return nil
}

// IsRunning reports whether the server is registered and its process alive.
// A detected exit is reconciled here exactly as the background loop would:
// the entry is removed, the cancellation flag flipped and a stopped event
// published, so manual polling and the loop never disagree.
func (s *Supervisor) IsRunning(serverID int64) bool {
	s.mu.Lock()
	handle, ok := s.servers[serverID]
	s.mu.Unlock()

	if !ok {
		return false
	}
	if !handle.exited() {
		return true
	}

	s.reapExited(handle)
	return false
}

// reapExited removes a handle whose process has exited. Safe to call from
// multiple goroutines: removal is idempotent and only the first caller
// publishes the stopped event.
func (s *Supervisor) reapExited(handle *serverHandle) {
	s.mu.Lock()
	current, ok := s.servers[handle.id]
	if ok && current == handle {
		delete(s.servers, handle.id)
	}
	s.mu.Unlock()

	first := !handle.stopRequested.Swap(true)
	if !first {
		return
	}

	unplanned := !handle.planned.Load()
	status := exitStatusString(handle.exitResult)
	if unplanned {
		s.logger.Warnf("Server %d exited unexpectedly, PID: %d, status: %s", handle.id, handle.pid, status)
	} else {
		s.logger.Infof("Server %d exited, PID: %d, status: %s", handle.id, handle.pid, status)
	}
	s.publish(Event{Type: EventProcessStopped, ServerID: handle.id, Unplanned: unplanned})
}

// GracefulShutdown asks the server to save and exit through its remote
// console, falling back to a forceful Stop when the console is unreachable
// or the process outlives the timeout. On return the server is guaranteed
// to no longer be registered.
func (s *Supervisor) GracefulShutdown(serverID int64, credentials ConsoleCredentials) error {
	lock := s.operationLock(serverID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	handle, ok := s.servers[serverID]
	s.mu.Unlock()
	if !ok {
		return nil
	}

	if err := s.requestConsoleExit(serverID, handle, credentials); err != nil {
		s.logger.Warnf("Graceful shutdown via remote console failed, server: %d, error: %v; falling back to kill",
			serverID, err)
		return s.stopLocked(serverID)
	}

	deadline := time.Now().Add(s.options.GracefulTimeout)
	for time.Now().Before(deadline) {
		if !s.IsRunning(serverID) {
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}

	s.logger.Warnf("Server %d still running after graceful timeout, falling back to kill", serverID)
	return s.stopLocked(serverID)
}

func (s *Supervisor) requestConsoleExit(serverID int64, handle *serverHandle, credentials ConsoleCredentials) error {
	if err := s.console.Connect(serverID, credentials.Address, credentials.Port, credentials.Password); err != nil {
		return err
	}
	defer s.console.Disconnect(serverID)

	if _, err := s.console.SaveWorld(serverID); err != nil {
		return err
	}

	// Give the world save a moment to hit disk before asking for exit.
	time.Sleep(2 * time.Second)

	// Mark the coming exit as intended so reconciliation does not report
	// a crash when DoExit lands.
	handle.planned.Store(true)

	if _, err := s.console.Exit(serverID); err != nil {
		return err
	}
	return nil
}

// Restart stops the server if running, waits for the OS to release its
// ports, and starts it with the given spec. Lifecycle operations for the
// same id are serialized by the per-server operation lock.
func (s *Supervisor) Restart(serverID int64, spec LaunchSpec) error {
	lock := s.operationLock(serverID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	_, running := s.servers[serverID]
	s.mu.Unlock()

	if running {
		if err := s.stopLocked(serverID); err != nil {
			return err
		}
	}

	time.Sleep(s.options.RestartDelay)

	return s.startLocked(serverID, spec)
}

// RegisteredIDs returns the ids currently in the registry.
func (s *Supervisor) RegisteredIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.servers))
	for id := range s.servers {
		ids = append(ids, id)
	}
	return ids
}

// PID returns the OS process id for a registered server.
func (s *Supervisor) PID(serverID int64) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	handle, ok := s.servers[serverID]
	if !ok {
		return 0, false
	}
	return handle.pid, true
}

// IsReady reports whether the readiness watcher has seen a readiness marker
// for the server since it was started.
func (s *Supervisor) IsReady(serverID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	handle, ok := s.servers[serverID]
	return ok && handle.ready.Load()
}

// reconcileLoop is the shared background poller detecting process exits not
// caused by an explicit stop. An intentional stop removes the entry before
// the process is reaped, so the loop only ever observes unplanned exits
// (and graceful exits pre-marked as planned).
func (s *Supervisor) reconcileLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.options.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopReconcile:
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		handles := make([]*serverHandle, 0, len(s.servers))
		for _, handle := range s.servers {
			handles = append(handles, handle)
		}
		s.mu.Unlock()

		for _, handle := range handles {
			if handle.exited() {
				s.reapExited(handle)
			}
		}
	}
}

// Close stops the reconciliation loop, force-stops every registered server
// and waits for all watchers to finish.
func (s *Supervisor) Close() {
	close(s.stopReconcile)

	for _, id := range s.RegisteredIDs() {
		lock := s.operationLock(id)
		lock.Lock()
		if err := s.stopLocked(id); err != nil {
			s.logger.Errorf("Failed to stop server %d during close: %v", id, err)
		}
		lock.Unlock()
	}

	s.wg.Wait()
}

func exitStatusString(result process.ExitResult) string {
	if result.State != nil {
		return result.State.String()
	}
	if result.Err != nil {
		return result.Err.Error()
	}
	return "unknown"
}
