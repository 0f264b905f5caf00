package process

import (
	"fmt"
	"net"
	"testing"

	"github.com/phayes/freeport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPortAvailable(t *testing.T) {
	port, err := freeport.GetFreePort()
	require.NoError(t, err)

	assert.True(t, IsPortAvailable(port))

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	require.NoError(t, err)
	defer listener.Close()

	assert.False(t, IsPortAvailable(port))
}

func TestSuggestPort(t *testing.T) {
	port, err := freeport.GetFreePort()
	require.NoError(t, err)

	// Free port suggests itself.
	assert.Equal(t, port, SuggestPort(port))

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	require.NoError(t, err)
	defer listener.Close()

	suggested := SuggestPort(port)
	assert.NotEqual(t, port, suggested)
	assert.Greater(t, suggested, port)
	assert.True(t, IsPortAvailable(suggested))
}
