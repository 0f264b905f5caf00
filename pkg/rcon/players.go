package rcon

import (
	"strconv"
	"strings"
)

// Player is one row of the ListPlayers response.
type Player struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	SteamID string `json:"steam_id"`
}

const noPlayersSentinel = "No Players Connected"

// ParsePlayerList parses the textual player table, one player per line in
// the form "<index>. <name>, <identifier>". The "no players" sentinel yields
// an empty list, and lines that do not match the expected shape are skipped.
func ParsePlayerList(data string) []Player {
	players := []Player{}

	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == noPlayersSentinel {
			continue
		}

		dot := strings.Index(line, ".")
		if dot < 0 {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(line[:dot]), 10, 64)
		if err != nil {
			continue
		}

		rest := strings.TrimSpace(line[dot+1:])
		name, steamID, ok := strings.Cut(rest, ",")
		if !ok {
			continue
		}

		players = append(players, Player{
			ID:      id,
			Name:    strings.TrimSpace(name),
			SteamID: strings.TrimSpace(steamID),
		})
	}

	return players
}
