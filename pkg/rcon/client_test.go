package rcon

import (
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asa-tools/asa-supervisor/pkg/logging"
)

// fakeConsole is a minimal Source-style remote console endpoint: it
// authenticates against a fixed password and answers commands through the
// respond callback.
type fakeConsole struct {
	listener net.Listener
	password string
	respond  func(command string) string
}

func newFakeConsole(t *testing.T, password string, respond func(command string) string) *fakeConsole {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	fake := &fakeConsole{
		listener: listener,
		password: password,
		respond:  respond,
	}
	go fake.serve()
	t.Cleanup(func() { listener.Close() })

	return fake
}

func (f *fakeConsole) port() int {
	return f.listener.Addr().(*net.TCPAddr).Port
}

func (f *fakeConsole) serve() {
	for {
		conn, err := f.listener.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func (f *fakeConsole) handle(conn net.Conn) {
	defer conn.Close()
	for {
		request, err := readPacket(conn)
		if err != nil {
			return
		}
		switch request.Type {
		case packetTypeAuth:
			id := request.ID
			if request.Body != f.password {
				id = -1
			}
			// Real servers precede the auth response with an empty
			// response frame.
			writePacket(conn, packet{ID: request.ID, Type: packetTypeResponse})
			writePacket(conn, packet{ID: id, Type: packetTypeAuthResponse})
			if id == -1 {
				return
			}
		case packetTypeExecCommand:
			body := ""
			if f.respond != nil {
				body = f.respond(request.Body)
			}
			writePacket(conn, packet{ID: request.ID, Type: packetTypeResponse, Body: body})
		}
	}
}

func testLogger() logging.Logger {
	return logging.NewLogger("", logging.LogFuncs{})
}

func TestClientConnectAndCommand(t *testing.T) {
	fake := newFakeConsole(t, "secret", func(command string) string {
		return "echo: " + command
	})

	client := NewClient(testLogger())
	defer client.Close()

	require.NoError(t, client.Connect(1, "127.0.0.1", fake.port(), "secret"))
	assert.True(t, client.IsConnected(1))

	response, err := client.SendCommand(1, "ListPlayers")
	require.NoError(t, err)
	assert.Equal(t, "echo: ListPlayers", response)

	require.NoError(t, client.Disconnect(1))
	assert.False(t, client.IsConnected(1))
}

func TestClientAuthRejected(t *testing.T) {
	fake := newFakeConsole(t, "secret", nil)

	client := NewClient(testLogger())
	defer client.Close()

	err := client.Connect(1, "127.0.0.1", fake.port(), "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
	assert.False(t, client.IsConnected(1))
}

func TestClientConnectRefused(t *testing.T) {
	// Grab a port and close it so nothing is listening there.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	client := NewClient(testLogger())
	defer client.Close()

	err = client.Connect(1, "127.0.0.1", port, "secret")
	require.Error(t, err)
}

func TestClientSendCommandWithoutSession(t *testing.T) {
	client := NewClient(testLogger())
	defer client.Close()

	_, err := client.SendCommand(42, "SaveWorld")
	require.Error(t, err)
}

func TestClientCommandHelpers(t *testing.T) {
	var mu sync.Mutex
	var received []string
	fake := newFakeConsole(t, "secret", func(command string) string {
		mu.Lock()
		received = append(received, command)
		mu.Unlock()
		if command == "ListPlayers" {
			return "0. Alice, 111\n1. Bob, 222"
		}
		return "ok"
	})

	client := NewClient(testLogger())
	defer client.Close()
	require.NoError(t, client.Connect(1, "127.0.0.1", fake.port(), "secret"))

	_, err := client.SaveWorld(1)
	require.NoError(t, err)
	_, err = client.Broadcast(1, "restarting soon")
	require.NoError(t, err)
	_, err = client.MessagePlayer(1, "111", "hello")
	require.NoError(t, err)
	_, err = client.KickPlayer(1, "111", "afk")
	require.NoError(t, err)
	_, err = client.KickPlayer(1, "222", "")
	require.NoError(t, err)
	_, err = client.BanPlayer(1, "111")
	require.NoError(t, err)
	_, err = client.UnbanPlayer(1, "111")
	require.NoError(t, err)
	_, err = client.DestroyWildDinos(1)
	require.NoError(t, err)
	_, err = client.SetTime(1, 9, 5)
	require.NoError(t, err)

	players, err := client.ListPlayers(1)
	require.NoError(t, err)
	assert.Equal(t, []Player{
		{ID: 0, Name: "Alice", SteamID: "111"},
		{ID: 1, Name: "Bob", SteamID: "222"},
	}, players)

	mu.Lock()
	defer mu.Unlock()
	expected := []string{
		"SaveWorld",
		"ServerChat restarting soon",
		"ServerChatTo 111 hello",
		"KickPlayer 111 afk",
		"KickPlayer 222",
		"BanPlayer 111",
		"UnbanPlayer 111",
		"DestroyWildDinos",
		"SetTimeOfDay 09:05",
		"ListPlayers",
	}
	assert.Equal(t, expected, received)
}

func TestClientReconnectReplacesSession(t *testing.T) {
	fake := newFakeConsole(t, "secret", func(command string) string { return "ok" })

	client := NewClient(testLogger())
	defer client.Close()

	require.NoError(t, client.Connect(1, "127.0.0.1", fake.port(), "secret"))
	require.NoError(t, client.Connect(1, "127.0.0.1", fake.port(), "secret"))

	response, err := client.SendCommand(1, "SaveWorld")
	require.NoError(t, err)
	assert.Equal(t, "ok", response)
}

func TestPacketRoundTrip(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, writePacket(&buf, packet{ID: 7, Type: packetTypeExecCommand, Body: "SaveWorld"}))

	decoded, err := readPacket(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, int32(7), decoded.ID)
	assert.Equal(t, int32(packetTypeExecCommand), decoded.Type)
	assert.Equal(t, "SaveWorld", decoded.Body)
}

func TestReadPacketRejectsOversizedFrame(t *testing.T) {
	frame := []byte{0xff, 0xff, 0xff, 0x7f}
	_, err := readPacket(strings.NewReader(string(frame)))
	require.Error(t, err)
}
