package rcon

import "fmt"

// Semantic helpers over SendCommand. Each is a thin formatter around the
// game server's console command vocabulary.

// SaveWorld forces an immediate world save.
func (c *Client) SaveWorld(serverID int64) (string, error) {
	return c.SendCommand(serverID, "SaveWorld")
}

// Exit asks the server to shut itself down. Callers normally SaveWorld
// first; see the supervisor's graceful shutdown.
func (c *Client) Exit(serverID int64) (string, error) {
	return c.SendCommand(serverID, "DoExit")
}

// Broadcast sends a chat message to every connected player.
func (c *Client) Broadcast(serverID int64, message string) (string, error) {
	return c.SendCommand(serverID, fmt.Sprintf("ServerChat %s", message))
}

// MessagePlayer sends a direct chat message to one player.
func (c *Client) MessagePlayer(serverID int64, steamID, message string) (string, error) {
	return c.SendCommand(serverID, fmt.Sprintf("ServerChatTo %s %s", steamID, message))
}

// KickPlayer disconnects a player, with an optional reason.
func (c *Client) KickPlayer(serverID int64, steamID, reason string) (string, error) {
	if reason != "" {
		return c.SendCommand(serverID, fmt.Sprintf("KickPlayer %s %s", steamID, reason))
	}
	return c.SendCommand(serverID, fmt.Sprintf("KickPlayer %s", steamID))
}

// BanPlayer bans a player by identifier.
func (c *Client) BanPlayer(serverID int64, steamID string) (string, error) {
	return c.SendCommand(serverID, fmt.Sprintf("BanPlayer %s", steamID))
}

// UnbanPlayer lifts a ban.
func (c *Client) UnbanPlayer(serverID int64, steamID string) (string, error) {
	return c.SendCommand(serverID, fmt.Sprintf("UnbanPlayer %s", steamID))
}

// DestroyWildDinos removes all untamed creatures, forcing a respawn wave.
func (c *Client) DestroyWildDinos(serverID int64) (string, error) {
	return c.SendCommand(serverID, "DestroyWildDinos")
}

// SetTime sets the in-game time of day.
func (c *Client) SetTime(serverID int64, hour, minute int) (string, error) {
	return c.SendCommand(serverID, fmt.Sprintf("SetTimeOfDay %02d:%02d", hour, minute))
}

// ListPlayers returns the connected players parsed from the server's
// textual player table.
func (c *Client) ListPlayers(serverID int64) ([]Player, error) {
	response, err := c.SendCommand(serverID, "ListPlayers")
	if err != nil {
		return nil, err
	}
	return ParsePlayerList(response), nil
}
