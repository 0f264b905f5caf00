package rcon

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/asa-tools/asa-supervisor/pkg/errors"
	"github.com/asa-tools/asa-supervisor/pkg/logging"
)

const defaultTimeout = 5 * time.Second

// session is one authenticated remote-console connection. Its own mutex
// serializes command exchanges so concurrent helpers on the same server
// cannot interleave frames; the client map lock is never held across I/O.
type session struct {
	mu     sync.Mutex
	conn   net.Conn
	nextID int32
}

func (s *session) exchange(command string, timeout time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID

	deadline := time.Now().Add(timeout)
	if err := s.conn.SetDeadline(deadline); err != nil {
		return "", err
	}

	if err := writePacket(s.conn, packet{ID: id, Type: packetTypeExecCommand, Body: command}); err != nil {
		return "", err
	}

	// The game server answers with a single response frame. Frames with a
	// stale id (late responses to a previous command) are skipped.
	for {
		response, err := readPacket(s.conn)
		if err != nil {
			return "", err
		}
		if response.ID == id {
			return response.Body, nil
		}
	}
}

func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.Close()
}

// Client maintains at most one authenticated remote-console session per
// logical server id.
type Client struct {
	mu       sync.Mutex
	sessions map[int64]*session
	timeout  time.Duration
	logger   logging.Logger
}

func NewClient(logger logging.Logger) *Client {
	return &Client{
		sessions: make(map[int64]*session),
		timeout:  defaultTimeout,
		logger:   logger,
	}
}

// Connect dials the remote console, authenticates, and stores the session
// under the server id. A later Connect for the same id replaces (and closes)
// the former session. Failures are returned without retry.
func (c *Client) Connect(serverID int64, address string, port int, password string) error {
	addr := net.JoinHostPort(address, fmt.Sprintf("%d", port))

	conn, err := net.DialTimeout("tcp", addr, c.timeout)
	if err != nil {
		return errors.NewNetworkError("failed to connect to remote console", err).
			WithContext("address", addr)
	}

	if err := authenticate(conn, password, c.timeout); err != nil {
		conn.Close()
		return err
	}

	c.logger.Infof("Remote console connected, server: %d, address: %s", serverID, addr)

	c.mu.Lock()
	previous := c.sessions[serverID]
	c.sessions[serverID] = &session{conn: conn}
	c.mu.Unlock()

	if previous != nil {
		previous.close()
	}
	return nil
}

func authenticate(conn net.Conn, password string, timeout time.Duration) error {
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}

	const authID = 1
	if err := writePacket(conn, packet{ID: authID, Type: packetTypeAuth, Body: password}); err != nil {
		return errors.NewRCONError("failed to send auth request", err)
	}

	// Some servers send an empty response frame ahead of the auth response;
	// read until the auth response arrives.
	for {
		response, err := readPacket(conn)
		if err != nil {
			return errors.NewRCONError("failed to read auth response", err)
		}
		if response.Type != packetTypeAuthResponse {
			continue
		}
		if response.ID == -1 {
			return errors.NewRCONError("authentication rejected (wrong password)", nil)
		}
		return nil
	}
}

// Disconnect closes and removes the session for the server id.
func (c *Client) Disconnect(serverID int64) error {
	c.mu.Lock()
	sess, ok := c.sessions[serverID]
	delete(c.sessions, serverID)
	c.mu.Unlock()

	if !ok {
		return errors.NewNotFoundError("no active remote console session", nil).
			WithContext("server_id", serverID)
	}
	sess.close()
	c.logger.Infof("Remote console disconnected, server: %d", serverID)
	return nil
}

// IsConnected reports whether a session exists for the server id.
func (c *Client) IsConnected(serverID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.sessions[serverID]
	return ok
}

// SendCommand executes a raw command on an existing session and returns the
// textual response.
func (c *Client) SendCommand(serverID int64, command string) (string, error) {
	c.mu.Lock()
	sess, ok := c.sessions[serverID]
	c.mu.Unlock()

	if !ok {
		return "", errors.NewNotFoundError("no active remote console session", nil).
			WithContext("server_id", serverID)
	}

	response, err := sess.exchange(command, c.timeout)
	if err != nil {
		return "", errors.NewRCONError("command failed", err).
			WithContext("server_id", serverID).WithContext("command", command)
	}
	return response, nil
}

// Close tears down every session.
func (c *Client) Close() {
	c.mu.Lock()
	sessions := c.sessions
	c.sessions = make(map[int64]*session)
	c.mu.Unlock()

	for _, sess := range sessions {
		sess.close()
	}
}
