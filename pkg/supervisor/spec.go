package supervisor

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/asa-tools/asa-supervisor/pkg/errors"
)

// LaunchSpec is a fully-resolved description of one game-server launch.
// Defaulting is the caller's responsibility; the supervisor validates but
// never fills in fields. The spec is copied into Start and never mutated.
type LaunchSpec struct {
	InstallPath    string
	MapName        string
	SessionName    string
	GamePort       int
	QueryPort      int
	RCONPort       int
	MaxPlayers     int
	ServerPassword string // optional; empty means no join password
	AdminPassword  string
	BindAddress    string // optional -MultiHome address
	ClusterID      string // optional, paired with ClusterDir
	ClusterDir     string
	Mods           []string // ordered mod identifiers
	ExtraArgs      string   // verbatim extra arguments, whitespace separated
}

// executableRelPath is the conventional location of the server binary under
// the install directory. The dedicated server ships the Windows binary even
// for Proton/Wine hosts.
var executableRelPath = filepath.Join("ShooterGame", "Binaries", "Win64", "ArkAscendedServer.exe")

// logRelPath is where the server writes its primary log.
var logRelPath = filepath.Join("ShooterGame", "Saved", "Logs", "ShooterGame.log")

// ExecutablePath returns the server binary location for this spec.
func (s LaunchSpec) ExecutablePath() string {
	return filepath.Join(s.InstallPath, executableRelPath)
}

// LogPath returns the server log location for this spec.
func (s LaunchSpec) LogPath() string {
	return filepath.Join(s.InstallPath, logRelPath)
}

// Validate checks that the caller supplied every required field.
func (s LaunchSpec) Validate() error {
	if s.InstallPath == "" {
		return errors.NewValidationError("install path is required", nil)
	}
	if s.MapName == "" {
		return errors.NewValidationError("map name is required", nil)
	}
	if s.SessionName == "" {
		return errors.NewValidationError("session name is required", nil)
	}
	if s.AdminPassword == "" {
		return errors.NewValidationError("admin password is required", nil)
	}
	for _, port := range []int{s.GamePort, s.QueryPort, s.RCONPort} {
		if port <= 0 || port > 65535 {
			return errors.NewValidationError(fmt.Sprintf("invalid port %d", port), nil)
		}
	}
	if s.MaxPlayers <= 0 {
		return errors.NewValidationError("max players must be positive", nil)
	}
	if (s.ClusterID == "") != (s.ClusterDir == "") {
		return errors.NewValidationError("cluster id and cluster directory must be set together", nil)
	}
	return nil
}

// buildLaunchArgs assembles the argument vector the game engine expects.
// The first argument is a single connection string; its field order matters
// to the engine and is reproduced exactly. Flag arguments follow.
func buildLaunchArgs(spec LaunchSpec) []string {
	var conn strings.Builder
	conn.WriteString(spec.MapName)
	conn.WriteString("?listen")
	fmt.Fprintf(&conn, "?SessionName=%s", spec.SessionName)
	fmt.Fprintf(&conn, "?Port=%d", spec.GamePort)
	fmt.Fprintf(&conn, "?QueryPort=%d", spec.QueryPort)
	fmt.Fprintf(&conn, "?RCONPort=%d", spec.RCONPort)
	fmt.Fprintf(&conn, "?MaxPlayers=%d", spec.MaxPlayers)
	fmt.Fprintf(&conn, "?ServerAdminPassword=%s", spec.AdminPassword)
	if spec.ServerPassword != "" {
		fmt.Fprintf(&conn, "?ServerPassword=%s", spec.ServerPassword)
	}

	args := []string{conn.String(), "-log", "-NoBattlEye"}

	if spec.BindAddress != "" {
		args = append(args, fmt.Sprintf("-MultiHome=%s", spec.BindAddress))
	}
	if spec.ClusterID != "" && spec.ClusterDir != "" {
		args = append(args,
			fmt.Sprintf("-clusterid=%s", spec.ClusterID),
			fmt.Sprintf("-ClusterDirOverride=\"%s\"", spec.ClusterDir),
		)
	}
	if len(spec.Mods) > 0 {
		args = append(args, fmt.Sprintf("-mods=%s", strings.Join(spec.Mods, ",")))
	}
	if spec.ExtraArgs != "" {
		args = append(args, strings.Fields(spec.ExtraArgs)...)
	}

	return args
}
