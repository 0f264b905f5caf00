package process

import (
	"fmt"
	"net"
)

// IsPortAvailable reports whether the given TCP port can be bound on the
// loopback interface. Used as a launch precondition: starting a server on a
// port something else already owns fails fast instead of producing a
// half-dead game process.
func IsPortAvailable(port int) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return false
	}
	listener.Close()
	return true
}

// SuggestPort returns the first available port at or above preferred.
// Returns preferred unchanged if nothing below 65535 is free.
func SuggestPort(preferred int) int {
	port := preferred
	for !IsPortAvailable(port) && port < 65535 {
		port++
	}
	return port
}
