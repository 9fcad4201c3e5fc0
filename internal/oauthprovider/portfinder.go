package oauthprovider

import (
	"fmt"
	"net"
)

const (
	defaultStartPort = 5173
	defaultAttempts  = 10
)

// CallbackHost is the loopback address the port finder and the callback
// server both bind to; they must agree or a found-free port could collide
// with a different interface.
const CallbackHost = "127.0.0.1"

// FindFreePort probes up to attempts sequential ports starting at
// startPort, returning the first one this process can bind to on
// CallbackHost. The probe listener is closed immediately so the caller can
// bind its own listener to the same port.
func FindFreePort(startPort, attempts int) (int, error) {
	if startPort <= 0 {
		startPort = defaultStartPort
	}
	if attempts <= 0 {
		attempts = defaultAttempts
	}

	for port := startPort; port < startPort+attempts; port++ {
		addr := fmt.Sprintf("%s:%d", CallbackHost, port)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			continue
		}
		ln.Close()
		return port, nil
	}
	return 0, fmt.Errorf("oauthprovider: no free port found in range [%d, %d)", startPort, startPort+attempts)
}

// IsPortFree reports whether a specific port can currently be bound on
// CallbackHost.
func IsPortFree(port int) bool {
	addr := fmt.Sprintf("%s:%d", CallbackHost, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return false
	}
	ln.Close()
	return true
}
