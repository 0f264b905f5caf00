package supervisor

import (
	"bufio"
	"io"
	"os"
	"strings"
	"time"
)

// readinessMarkers are the log lines the game server prints once it accepts
// player connections. Matching is substring-based since the lines carry
// timestamps and frame prefixes.
var readinessMarkers = []string{
	"server has successfully started",
	"Full Startup:",
}

func containsReadinessMarker(line string) bool {
	for _, marker := range readinessMarkers {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// watchReadiness tails the server log file, relays every line as an event
// and publishes a readiness event the first time a marker shows up. The
// watcher terminates when the handle's cancellation flag is set or the log
// file becomes unreadable.
func (s *Supervisor) watchReadiness(handle *serverHandle, logPath string) {
	defer s.wg.Done()

	file, ok := s.awaitLogFile(handle, logPath)
	if !ok {
		return
	}
	defer file.Close()

	// Only lines written after startup matter; the file usually holds the
	// previous session's output.
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		s.relayLogError(handle, "failed to seek server log: "+err.Error())
		return
	}

	reader := bufio.NewReader(file)
	var pending string

	for !handle.stopRequested.Load() {
		chunk, err := reader.ReadString('\n')
		switch {
		case err == nil:
			line := strings.TrimRight(pending+chunk, "\r\n")
			pending = ""
			s.handleLogLine(handle, line)
		case err == io.EOF:
			// Partial line: keep it until the rest arrives.
			pending += chunk
			time.Sleep(s.options.LogPollInterval)
		default:
			s.relayLogError(handle, "failed to read server log: "+err.Error())
			return
		}
	}
}

// awaitLogFile waits for the server to create its log file. The game server
// only creates it once its logging subsystem is up, which can take a while
// on a cold start.
func (s *Supervisor) awaitLogFile(handle *serverHandle, logPath string) (*os.File, bool) {
	deadline := time.Now().Add(s.options.LogWaitTimeout)
	for {
		if handle.stopRequested.Load() {
			return nil, false
		}

		file, err := os.Open(logPath)
		if err == nil {
			return file, true
		}
		if !os.IsNotExist(err) {
			s.relayLogError(handle, "failed to open server log: "+err.Error())
			return nil, false
		}

		if time.Now().After(deadline) {
			s.logger.Warnf("Server %d log file never appeared: %s", handle.id, logPath)
			s.relayLogError(handle, "server log file not found: "+logPath)
			return nil, false
		}
		time.Sleep(time.Second)
	}
}

func (s *Supervisor) handleLogLine(handle *serverHandle, line string) {
	if line == "" {
		return
	}

	s.publish(Event{Type: EventLogLine, ServerID: handle.id, Line: line})

	if containsReadinessMarker(line) && handle.ready.CompareAndSwap(false, true) {
		s.logger.Infof("Server %d is ready", handle.id)
		s.publish(Event{Type: EventProcessReady, ServerID: handle.id})
	}
}

func (s *Supervisor) relayLogError(handle *serverHandle, message string) {
	s.publish(Event{Type: EventLogLine, ServerID: handle.id, Line: message, IsError: true})
}
