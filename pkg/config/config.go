// Package config loads the supervisor daemon configuration from YAML.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/asa-tools/asa-supervisor/pkg/errors"
	"github.com/asa-tools/asa-supervisor/pkg/guardian"
	"github.com/asa-tools/asa-supervisor/pkg/supervisor"
)

// LogConfig controls daemon logging output.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// SupervisorConfig tunes process lifecycle timing.
type SupervisorConfig struct {
	GracePeriod     time.Duration `yaml:"grace_period"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	GracefulTimeout time.Duration `yaml:"graceful_timeout"`
	RestartDelay    time.Duration `yaml:"restart_delay"`
}

// AutoRestartConfig tunes crash recovery.
type AutoRestartConfig struct {
	MaxRetries  int           `yaml:"max_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	BackoffRate float64       `yaml:"backoff_rate"`
}

// ServerConfig describes one managed game server.
type ServerConfig struct {
	ID          int64  `yaml:"id"`
	Name        string `yaml:"name"`
	InstallPath string `yaml:"install_path"`
	Map         string `yaml:"map"`
	SessionName string `yaml:"session_name"`

	GamePort   int `yaml:"game_port"`
	QueryPort  int `yaml:"query_port"`
	RCONPort   int `yaml:"rcon_port"`
	MaxPlayers int `yaml:"max_players"`

	ServerPassword string `yaml:"server_password"`
	AdminPassword  string `yaml:"admin_password"`
	BindAddress    string `yaml:"bind_address"`

	ClusterID  string   `yaml:"cluster_id"`
	ClusterDir string   `yaml:"cluster_dir"`
	Mods       []string `yaml:"mods"`
	ExtraArgs  string   `yaml:"extra_args"`

	RCONAddress string `yaml:"rcon_address"`
	AutoRestart bool   `yaml:"auto_restart"`
}

// Config is the root daemon configuration.
type Config struct {
	Log         LogConfig         `yaml:"log"`
	Supervisor  SupervisorConfig  `yaml:"supervisor"`
	AutoRestart AutoRestartConfig `yaml:"auto_restart"`
	Servers     []ServerConfig    `yaml:"servers"`
}

// Load reads, parses and validates a configuration file, filling defaults
// for anything omitted.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError("failed to read config file", err).
			WithContext("path", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.NewValidationError("failed to parse config file", err).
			WithContext("path", path)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 50
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = 5
	}

	for i := range c.Servers {
		server := &c.Servers[i]
		if server.RCONAddress == "" {
			server.RCONAddress = "127.0.0.1"
		}
		if server.MaxPlayers <= 0 {
			server.MaxPlayers = 70
		}
	}
}

func (c *Config) validate() error {
	seen := make(map[int64]bool, len(c.Servers))
	for i := range c.Servers {
		server := &c.Servers[i]
		if server.ID <= 0 {
			return errors.NewValidationError("server id must be positive", nil).
				WithContext("index", i)
		}
		if seen[server.ID] {
			return errors.NewValidationError("duplicate server id", nil).
				WithContext("server_id", server.ID)
		}
		seen[server.ID] = true

		if server.Name == "" {
			return errors.NewValidationError("server name is required", nil).
				WithContext("server_id", server.ID)
		}
		if err := server.LaunchSpec().Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Server looks up a server entry by id.
func (c *Config) Server(serverID int64) (*ServerConfig, bool) {
	for i := range c.Servers {
		if c.Servers[i].ID == serverID {
			return &c.Servers[i], true
		}
	}
	return nil, false
}

// LaunchSpec converts the config entry into the supervisor's launch shape.
func (s *ServerConfig) LaunchSpec() supervisor.LaunchSpec {
	return supervisor.LaunchSpec{
		InstallPath:    s.InstallPath,
		MapName:        s.Map,
		SessionName:    s.SessionName,
		GamePort:       s.GamePort,
		QueryPort:      s.QueryPort,
		RCONPort:       s.RCONPort,
		MaxPlayers:     s.MaxPlayers,
		ServerPassword: s.ServerPassword,
		AdminPassword:  s.AdminPassword,
		BindAddress:    s.BindAddress,
		ClusterID:      s.ClusterID,
		ClusterDir:     s.ClusterDir,
		Mods:           s.Mods,
		ExtraArgs:      s.ExtraArgs,
	}
}

// ConsoleCredentials returns remote console connection details for graceful
// shutdown and operator commands.
func (s *ServerConfig) ConsoleCredentials() supervisor.ConsoleCredentials {
	return supervisor.ConsoleCredentials{
		Address:  s.RCONAddress,
		Port:     s.RCONPort,
		Password: s.AdminPassword,
	}
}

// SupervisorOptions converts the timing section into supervisor options.
func (c *Config) SupervisorOptions() supervisor.Options {
	return supervisor.Options{
		GracePeriod:     c.Supervisor.GracePeriod,
		PollInterval:    c.Supervisor.PollInterval,
		GracefulTimeout: c.Supervisor.GracefulTimeout,
		RestartDelay:    c.Supervisor.RestartDelay,
	}
}

// RestartConfig converts the crash recovery section for the watchdog.
func (c *Config) RestartConfig() guardian.RestartConfig {
	return guardian.RestartConfig{
		MaxRetries:  c.AutoRestart.MaxRetries,
		RetryDelay:  c.AutoRestart.RetryDelay,
		BackoffRate: c.AutoRestart.BackoffRate,
	}
}
