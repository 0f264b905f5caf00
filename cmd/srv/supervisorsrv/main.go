package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flags "github.com/jessevdk/go-flags"

	"github.com/asa-tools/asa-supervisor/pkg/config"
	"github.com/asa-tools/asa-supervisor/pkg/guardian"
	"github.com/asa-tools/asa-supervisor/pkg/logging"
	"github.com/asa-tools/asa-supervisor/pkg/rcon"
	"github.com/asa-tools/asa-supervisor/pkg/supervisor"
)

type flagOptions struct {
	Config string `short:"c" long:"config" description:"path to the configuration file" required:"true"`
}

func logPrefix(module string) string {
	return fmt.Sprintf("module: %s , ", module)
}

func main() {
	var opts flagOptions
	var argv []string = os.Args[1:]
	var parser = flags.NewParser(&opts, flags.HelpFlag)
	var err error
	_, err = parser.ParseArgs(argv)
	if err != nil {
		fmt.Printf("Command line flags parsing failed: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	rootLogger, flush := logging.NewZapLogger(logging.ZapOptions{
		Level:      cfg.Log.Level,
		FilePath:   cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	defer flush()

	supervisorLogger := logging.NewPrefixLogger(logPrefix("supervisor"), rootLogger)
	guardianLogger := logging.NewPrefixLogger(logPrefix("guardian"), rootLogger)
	consoleLogger := logging.NewPrefixLogger(logPrefix("rcon"), rootLogger)

	rootLogger.Infof("Starting, %d server(s) configured", len(cfg.Servers))

	sink := supervisor.NewChannelSink(256)
	console := rcon.NewClient(consoleLogger)
	sup := supervisor.New(cfg.SupervisorOptions(), console, sink, supervisorLogger)
	registry := guardian.NewRegistry(guardianLogger)

	restart := func(serverID int64) error {
		server, ok := cfg.Server(serverID)
		if !ok {
			return fmt.Errorf("server %d is not configured", serverID)
		}
		return sup.Restart(serverID, server.LaunchSpec())
	}
	watchdog := guardian.NewWatchdog(registry, restart, cfg.RestartConfig(), guardianLogger)

	watchdogStop := make(chan struct{})
	watchdogDone := make(chan struct{})
	go func() {
		defer close(watchdogDone)
		watchdog.Run(sink.Events(), watchdogStop)
	}()

	for _, server := range cfg.Servers {
		registry.Register(server.ID, server.Name)
		registry.SetAutoRestart(server.ID, server.AutoRestart)
		if err := sup.Start(server.ID, server.LaunchSpec()); err != nil {
			rootLogger.Errorf("Failed to start server %d (%s): %v", server.ID, server.Name, err)
		}
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	received := <-signals
	rootLogger.Infof("Received signal %v, shutting down", received)

	for _, id := range sup.RegisteredIDs() {
		server, ok := cfg.Server(id)
		if !ok {
			continue
		}
		if err := sup.GracefulShutdown(id, server.ConsoleCredentials()); err != nil {
			rootLogger.Errorf("Failed to shut down server %d: %v", id, err)
		}
	}

	sup.Close()
	console.Close()
	close(watchdogStop)
	<-watchdogDone

	rootLogger.Infof("Shutdown complete")
}
