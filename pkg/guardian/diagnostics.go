package guardian

import (
	"bufio"
	"os"
	"strings"
	"time"
)

// crashIndicators are substrings the game server writes to its log when it
// goes down hard.
var crashIndicators = []string{"CRASH", "FATAL", "EXCEPTION"}

// recentWindow is how far back a log modification still counts as evidence
// of a live crash.
const recentWindow = 60 * time.Second

// DetectRecentCrash inspects a server log file for signs of a crash within
// the last minute: the file must have been written recently and its tail
// must contain a crash indicator. A missing or unreadable log is treated as
// no evidence.
func DetectRecentCrash(logPath string) bool {
	info, err := os.Stat(logPath)
	if err != nil {
		return false
	}
	if time.Since(info.ModTime()) > recentWindow {
		return false
	}

	file, err := os.Open(logPath)
	if err != nil {
		return false
	}
	defer file.Close()

	// Only the tail matters; a long-running server accumulates megabytes of
	// chatter before anything goes wrong.
	const tailBytes = 64 * 1024
	if info.Size() > tailBytes {
		if _, err := file.Seek(info.Size()-tailBytes, 0); err != nil {
			return false
		}
	}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.ToUpper(scanner.Text())
		for _, indicator := range crashIndicators {
			if strings.Contains(line, indicator) {
				return true
			}
		}
	}
	return false
}
