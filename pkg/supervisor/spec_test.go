package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asa-tools/asa-supervisor/pkg/errors"
)

func validSpec() LaunchSpec {
	return LaunchSpec{
		InstallPath:   "/opt/ark/island",
		MapName:       "TheIsland_WP",
		SessionName:   "MyServer",
		GamePort:      7777,
		QueryPort:     27015,
		RCONPort:      27020,
		MaxPlayers:    70,
		AdminPassword: "admin",
	}
}

func TestLaunchSpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*LaunchSpec)
		wantErr bool
	}{
		{
			name:   "valid minimal spec",
			mutate: func(s *LaunchSpec) {},
		},
		{
			name: "valid full spec",
			mutate: func(s *LaunchSpec) {
				s.ServerPassword = "join"
				s.BindAddress = "10.0.0.5"
				s.ClusterID = "cluster1"
				s.ClusterDir = "/opt/ark/cluster"
				s.Mods = []string{"927090", "731604991"}
				s.ExtraArgs = "-ForceAllowCaveFlyers"
			},
		},
		{
			name:    "missing install path",
			mutate:  func(s *LaunchSpec) { s.InstallPath = "" },
			wantErr: true,
		},
		{
			name:    "missing map",
			mutate:  func(s *LaunchSpec) { s.MapName = "" },
			wantErr: true,
		},
		{
			name:    "missing session name",
			mutate:  func(s *LaunchSpec) { s.SessionName = "" },
			wantErr: true,
		},
		{
			name:    "missing admin password",
			mutate:  func(s *LaunchSpec) { s.AdminPassword = "" },
			wantErr: true,
		},
		{
			name:    "zero game port",
			mutate:  func(s *LaunchSpec) { s.GamePort = 0 },
			wantErr: true,
		},
		{
			name:    "port out of range",
			mutate:  func(s *LaunchSpec) { s.RCONPort = 70000 },
			wantErr: true,
		},
		{
			name:    "zero max players",
			mutate:  func(s *LaunchSpec) { s.MaxPlayers = 0 },
			wantErr: true,
		},
		{
			name:    "cluster id without directory",
			mutate:  func(s *LaunchSpec) { s.ClusterID = "cluster1" },
			wantErr: true,
		},
		{
			name:    "cluster directory without id",
			mutate:  func(s *LaunchSpec) { s.ClusterDir = "/opt/ark/cluster" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			tt.mutate(&spec)
			err := spec.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsValidationError(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildLaunchArgsMinimal(t *testing.T) {
	args := buildLaunchArgs(validSpec())

	require.NotEmpty(t, args)
	assert.Equal(t,
		"TheIsland_WP?listen?SessionName=MyServer?Port=7777?QueryPort=27015?RCONPort=27020?MaxPlayers=70?ServerAdminPassword=admin",
		args[0])
	assert.Equal(t, []string{"-log", "-NoBattlEye"}, args[1:])
}

func TestBuildLaunchArgsFull(t *testing.T) {
	spec := validSpec()
	spec.ServerPassword = "join"
	spec.BindAddress = "10.0.0.5"
	spec.ClusterID = "cluster1"
	spec.ClusterDir = "/opt/ark/cluster"
	spec.Mods = []string{"927090", "731604991"}
	spec.ExtraArgs = "-ForceAllowCaveFlyers -crossplay"

	args := buildLaunchArgs(spec)

	assert.Equal(t,
		"TheIsland_WP?listen?SessionName=MyServer?Port=7777?QueryPort=27015?RCONPort=27020?MaxPlayers=70?ServerAdminPassword=admin?ServerPassword=join",
		args[0])
	assert.Equal(t, []string{
		"-log",
		"-NoBattlEye",
		"-MultiHome=10.0.0.5",
		"-clusterid=cluster1",
		`-ClusterDirOverride="/opt/ark/cluster"`,
		"-mods=927090,731604991",
		"-ForceAllowCaveFlyers",
		"-crossplay",
	}, args[1:])
}

func TestBuildLaunchArgsClusterDirBackslashes(t *testing.T) {
	spec := validSpec()
	spec.ClusterID = "cluster1"
	spec.ClusterDir = `C:\ArkClusters\main`

	args := buildLaunchArgs(spec)

	// The directory must pass through verbatim inside plain quotes;
	// Windows path separators must not be escaped.
	assert.Contains(t, args, `-ClusterDirOverride="C:\ArkClusters\main"`)
}

func TestLaunchSpecPaths(t *testing.T) {
	spec := validSpec()

	executable := spec.ExecutablePath()
	assert.Contains(t, executable, "ArkAscendedServer.exe")
	assert.Contains(t, executable, spec.InstallPath)

	logPath := spec.LogPath()
	assert.Contains(t, logPath, "ShooterGame.log")
	assert.Contains(t, logPath, spec.InstallPath)
}
