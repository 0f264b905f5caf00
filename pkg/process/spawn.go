package process

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/asa-tools/asa-supervisor/pkg/errors"
	"github.com/asa-tools/asa-supervisor/pkg/logging"
)

// SpawnConfig describes a game-server process to launch.
type SpawnConfig struct {
	ExecutablePath   string
	Args             []string
	WorkingDirectory string
}

// ExitResult is delivered on the wait channel once the spawned process has
// been reaped.
type ExitResult struct {
	// State is the process state reported by Wait; nil if Wait itself failed.
	State *os.ProcessState
	Err   error
}

// Spawn launches the configured executable with its output discarded and
// platform-specific attributes applied (own process group on Unix, hidden
// window on Windows). It returns the live process and a channel that
// receives exactly one ExitResult when the process exits.
func Spawn(config SpawnConfig, logger logging.Logger) (*os.Process, <-chan ExitResult, error) {
	if config.ExecutablePath == "" {
		return nil, nil, errors.NewValidationError("executable path is empty", nil)
	}

	workDir := config.WorkingDirectory
	if workDir == "" {
		absPath, err := filepath.Abs(config.ExecutablePath)
		if err != nil {
			return nil, nil, errors.NewIOError("failed to resolve executable path", err).
				WithContext("executable_path", config.ExecutablePath)
		}
		workDir = filepath.Dir(absPath)
	}

	cmd := exec.Command(config.ExecutablePath, config.Args...)
	cmd.Dir = workDir
	// Stdout/Stderr stay nil: the child is wired to the null device. Server
	// output is observed through the log file, not through pipes.
	setupProcessAttributes(cmd)

	if err := cmd.Start(); err != nil {
		return nil, nil, errors.NewProcessError("failed to start process", err).
			WithContext("executable_path", config.ExecutablePath)
	}

	logger.Infof("Process spawned, PID: %d, executable: %s", cmd.Process.Pid, config.ExecutablePath)

	waitCh := make(chan ExitResult, 1)
	go func() {
		err := cmd.Wait()
		waitCh <- ExitResult{State: cmd.ProcessState, Err: err}
	}()

	return cmd.Process, waitCh, nil
}
