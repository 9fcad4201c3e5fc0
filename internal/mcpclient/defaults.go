package mcpclient

import (
	"sync/atomic"
	"time"
)

var defaultConnectTimeout atomic.Int64 // nanoseconds; 0 means "use defaultHTTPConnectTimeout"

// SetDefaultConnectTimeout overrides the connect timeout every
// subsequently constructed HTTPClient uses, unless WithConnectTimeout is
// passed at construction. cmd/ calls this once at startup from
// SUPER_MCP_CONNECT_TIMEOUT_MS.
func SetDefaultConnectTimeout(d time.Duration) {
	defaultConnectTimeout.Store(int64(d))
}

func connectTimeoutOrDefault() time.Duration {
	if d := defaultConnectTimeout.Load(); d > 0 {
		return time.Duration(d)
	}
	return defaultHTTPConnectTimeout
}
