// Package guardian tracks the health of supervised game servers: which OS
// process backs each server, how often it crashed, whether it should be
// restarted automatically, and resource usage snapshots for operators.
package guardian

import (
	"sync"
	"time"

	gopsprocess "github.com/shirou/gopsutil/v3/process"

	"github.com/asa-tools/asa-supervisor/pkg/logging"
)

// maxCrashEntries caps the retained crash history per registry.
const maxCrashEntries = 100

// CrashEntry records one unexpected server exit.
type CrashEntry struct {
	ServerID      int64     `json:"serverId"`
	ServerName    string    `json:"serverName"`
	At            time.Time `json:"at"`
	Reason        string    `json:"reason"`
	AutoRestarted bool      `json:"autoRestarted"`
}

// HealthSnapshot is a point-in-time view of one tracked server.
type HealthSnapshot struct {
	ServerID    int64     `json:"serverId"`
	PID         int       `json:"pid"`
	Alive       bool      `json:"alive"`
	LastSeen    time.Time `json:"lastSeen"`
	CrashCount  int       `json:"crashCount"`
	MemoryMB    float64   `json:"memoryMb"`
	CPUPercent  float64   `json:"cpuPercent"`
	AutoRestart bool      `json:"autoRestart"`
	LastRestart time.Time `json:"lastRestart,omitempty"`
}

type trackedServer struct {
	name        string
	pid         int
	lastSeen    time.Time
	crashCount  int
	autoRestart bool
	lastRestart time.Time
}

// Registry is the guardian's bookkeeping: server id to tracked state plus a
// bounded crash history. All methods are safe for concurrent use.
type Registry struct {
	logger logging.Logger

	mu      sync.Mutex
	servers map[int64]*trackedServer
	crashes []CrashEntry
}

func NewRegistry(logger logging.Logger) *Registry {
	return &Registry{
		logger:  logger,
		servers: make(map[int64]*trackedServer),
	}
}

// Register records the server's display name for crash reporting. Calling
// it again updates the name and keeps all other bookkeeping.
func (r *Registry) Register(serverID int64, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tracked, ok := r.servers[serverID]
	if !ok {
		tracked = &trackedServer{}
		r.servers[serverID] = tracked
	}
	tracked.name = name
}

// ServerName returns the registered display name, empty if unknown.
func (r *Registry) ServerName(serverID int64) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tracked, ok := r.servers[serverID]; ok {
		return tracked.name
	}
	return ""
}

// RegisterPID starts health tracking for a server. Re-registering an id
// (after a restart) keeps its crash count and auto-restart preference.
func (r *Registry) RegisterPID(serverID int64, pid int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tracked, ok := r.servers[serverID]
	if !ok {
		tracked = &trackedServer{}
		r.servers[serverID] = tracked
	}
	tracked.pid = pid
	tracked.lastSeen = time.Now()
}

// UnregisterPID drops the PID association but keeps the server's history so
// crash counts survive restarts.
func (r *Registry) UnregisterPID(serverID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tracked, ok := r.servers[serverID]; ok {
		tracked.pid = 0
	}
}

// SetAutoRestart records the operator's auto-restart preference.
func (r *Registry) SetAutoRestart(serverID int64, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tracked, ok := r.servers[serverID]
	if !ok {
		tracked = &trackedServer{}
		r.servers[serverID] = tracked
	}
	tracked.autoRestart = enabled
}

func (r *Registry) IsAutoRestartEnabled(serverID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	tracked, ok := r.servers[serverID]
	return ok && tracked.autoRestart
}

// MarkRestarted records that the watchdog restarted the server just now.
func (r *Registry) MarkRestarted(serverID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tracked, ok := r.servers[serverID]; ok {
		tracked.lastRestart = time.Now()
	}
}

// LogCrash appends a crash entry and bumps the server's crash counter. The
// history is a bounded ring: the oldest entry is dropped past the cap.
func (r *Registry) LogCrash(serverID int64, serverName, reason string, autoRestarted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tracked, ok := r.servers[serverID]
	if !ok {
		tracked = &trackedServer{}
		r.servers[serverID] = tracked
	}
	tracked.crashCount++

	r.crashes = append(r.crashes, CrashEntry{
		ServerID:      serverID,
		ServerName:    serverName,
		At:            time.Now(),
		Reason:        reason,
		AutoRestarted: autoRestarted,
	})
	if len(r.crashes) > maxCrashEntries {
		r.crashes = r.crashes[len(r.crashes)-maxCrashEntries:]
	}

	r.logger.Warnf("Crash recorded, server: %d (%s), total crashes: %d, reason: %s",
		serverID, serverName, tracked.crashCount, reason)
}

// CrashLog returns a copy of the retained crash history, oldest first.
func (r *Registry) CrashLog() []CrashEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]CrashEntry, len(r.crashes))
	copy(entries, r.crashes)
	return entries
}

// CrashCount returns how many crashes were recorded for a server.
func (r *Registry) CrashCount(serverID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tracked, ok := r.servers[serverID]; ok {
		return tracked.crashCount
	}
	return 0
}

// Health samples the tracked server's process. Liveness and resource usage
// come from the OS; a server whose process has gone away is reported as not
// alive with its last known bookkeeping intact.
func (r *Registry) Health(serverID int64) (HealthSnapshot, bool) {
	r.mu.Lock()
	tracked, ok := r.servers[serverID]
	if !ok {
		r.mu.Unlock()
		return HealthSnapshot{}, false
	}
	snapshot := HealthSnapshot{
		ServerID:    serverID,
		PID:         tracked.pid,
		LastSeen:    tracked.lastSeen,
		CrashCount:  tracked.crashCount,
		AutoRestart: tracked.autoRestart,
		LastRestart: tracked.lastRestart,
	}
	r.mu.Unlock()

	if snapshot.PID > 0 {
		r.sampleProcess(&snapshot)
	}

	if snapshot.Alive {
		r.mu.Lock()
		if tracked, ok := r.servers[serverID]; ok {
			tracked.lastSeen = time.Now()
			snapshot.LastSeen = tracked.lastSeen
		}
		r.mu.Unlock()
	}

	return snapshot, true
}

// AllHealth snapshots every tracked server.
func (r *Registry) AllHealth() []HealthSnapshot {
	r.mu.Lock()
	ids := make([]int64, 0, len(r.servers))
	for id := range r.servers {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	snapshots := make([]HealthSnapshot, 0, len(ids))
	for _, id := range ids {
		if snapshot, ok := r.Health(id); ok {
			snapshots = append(snapshots, snapshot)
		}
	}
	return snapshots
}

func (r *Registry) sampleProcess(snapshot *HealthSnapshot) {
	proc, err := gopsprocess.NewProcess(int32(snapshot.PID))
	if err != nil {
		return
	}

	running, err := proc.IsRunning()
	if err != nil || !running {
		return
	}
	snapshot.Alive = true

	if memory, err := proc.MemoryInfo(); err == nil && memory != nil {
		snapshot.MemoryMB = float64(memory.RSS) / (1024 * 1024)
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		snapshot.CPUPercent = cpu
	}
}
