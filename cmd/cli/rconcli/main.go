package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	flags "github.com/jessevdk/go-flags"

	"github.com/asa-tools/asa-supervisor/pkg/logging"
	"github.com/asa-tools/asa-supervisor/pkg/rcon"
)

type flagOptions struct {
	Address  string `short:"a" long:"address" default:"127.0.0.1" description:"server address"`
	Port     int    `short:"p" long:"port" required:"true" description:"remote console port"`
	Password string `short:"P" long:"password" required:"true" description:"admin password"`
}

const usage = `commands:
  save-world
  exit
  broadcast <message>
  message <steam-id> <message>
  kick <steam-id> [reason]
  ban <steam-id>
  unban <steam-id>
  destroy-wild-dinos
  set-time <hh:mm>
  players
  raw <command...>`

func main() {
	var opts flagOptions
	parser := flags.NewParser(&opts, flags.HelpFlag)
	args, err := parser.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Printf("Command line flags parsing failed: %v\n", err)
		os.Exit(1)
	}
	if len(args) == 0 {
		fmt.Println(usage)
		os.Exit(1)
	}

	logger := logging.NewLogger("", logging.LogFuncs{})
	client := rcon.NewClient(logger)
	defer client.Close()

	const serverID = 0
	if err := client.Connect(serverID, opts.Address, opts.Port, opts.Password); err != nil {
		fmt.Printf("Failed to connect: %v\n", err)
		os.Exit(1)
	}

	output, err := run(client, serverID, args[0], args[1:])
	if err != nil {
		fmt.Printf("Command failed: %v\n", err)
		os.Exit(1)
	}
	if output != "" {
		fmt.Println(output)
	}
}

func run(client *rcon.Client, serverID int64, command string, args []string) (string, error) {
	switch command {
	case "save-world":
		return client.SaveWorld(serverID)
	case "exit":
		return client.Exit(serverID)
	case "broadcast":
		if len(args) < 1 {
			return "", fmt.Errorf("broadcast requires a message")
		}
		return client.Broadcast(serverID, strings.Join(args, " "))
	case "message":
		if len(args) < 2 {
			return "", fmt.Errorf("message requires a steam id and a message")
		}
		return client.MessagePlayer(serverID, args[0], strings.Join(args[1:], " "))
	case "kick":
		if len(args) < 1 {
			return "", fmt.Errorf("kick requires a steam id")
		}
		reason := strings.Join(args[1:], " ")
		return client.KickPlayer(serverID, args[0], reason)
	case "ban":
		if len(args) < 1 {
			return "", fmt.Errorf("ban requires a steam id")
		}
		return client.BanPlayer(serverID, args[0])
	case "unban":
		if len(args) < 1 {
			return "", fmt.Errorf("unban requires a steam id")
		}
		return client.UnbanPlayer(serverID, args[0])
	case "destroy-wild-dinos":
		return client.DestroyWildDinos(serverID)
	case "set-time":
		if len(args) < 1 {
			return "", fmt.Errorf("set-time requires hh:mm")
		}
		hour, minute, err := parseClock(args[0])
		if err != nil {
			return "", err
		}
		return client.SetTime(serverID, hour, minute)
	case "players":
		players, err := client.ListPlayers(serverID)
		if err != nil {
			return "", err
		}
		if len(players) == 0 {
			return "no players connected", nil
		}
		var sb strings.Builder
		for _, player := range players {
			fmt.Fprintf(&sb, "%d. %s (%s)\n", player.ID, player.Name, player.SteamID)
		}
		return strings.TrimRight(sb.String(), "\n"), nil
	case "raw":
		if len(args) < 1 {
			return "", fmt.Errorf("raw requires a command")
		}
		return client.SendCommand(serverID, strings.Join(args, " "))
	default:
		return "", fmt.Errorf("unknown command: %s\n%s", command, usage)
	}
}

func parseClock(value string) (int, int, error) {
	hourStr, minuteStr, ok := strings.Cut(value, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid time %q, expected hh:mm", value)
	}
	hour, err := strconv.Atoi(hourStr)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour %q", hourStr)
	}
	minute, err := strconv.Atoi(minuteStr)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute %q", minuteStr)
	}
	return hour, minute, nil
}
