package oauthprovider

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"time"

	"supermcp/pkg/logging"
)

const defaultCallbackTimeout = 5 * time.Minute

// CallbackResult is what a completed /oauth/callback request yields.
type CallbackResult struct {
	Code  string
	Error string
}

// CallbackServer is a loopback-only HTTP server that waits for exactly one
// /oauth/callback request matching an expected CSRF state. It keeps
// listening until the caller calls Close.
type CallbackServer struct {
	port     int
	state    string
	server   *http.Server
	listener net.Listener
	resultCh chan CallbackResult
}

// NewCallbackServer binds a listener on 127.0.0.1:port and prepares (but
// does not yet serve) the callback handler for the given expected state.
func NewCallbackServer(port int, expectedState string) (*CallbackServer, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", CallbackHost, port))
	if err != nil {
		return nil, fmt.Errorf("oauthprovider: binding callback listener: %w", err)
	}

	cs := &CallbackServer{
		port:     port,
		state:    expectedState,
		listener: ln,
		resultCh: make(chan CallbackResult, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/callback", cs.handleCallback)
	cs.server = &http.Server{Handler: mux}
	return cs, nil
}

// Serve starts accepting the single callback request in the background.
func (cs *CallbackServer) Serve() {
	go func() {
		if err := cs.server.Serve(cs.listener); err != nil && err != http.ErrServerClosed {
			logging.Warn("oauth", "callback server stopped: %v", err)
		}
	}()
}

func (cs *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	query := r.URL.Query()
	gotState := query.Get("state")
	if subtle.ConstantTimeCompare([]byte(gotState), []byte(cs.state)) != 1 {
		w.WriteHeader(http.StatusBadRequest)
		writeCallbackPage(w, false, "State mismatch. This authorization attempt could not be verified.")
		return
	}

	if errParam := query.Get("error"); errParam != "" {
		w.WriteHeader(http.StatusOK)
		writeCallbackPage(w, false, "Authorization failed: "+errParam)
		cs.deliver(CallbackResult{Error: errParam})
		return
	}

	code := query.Get("code")
	if code == "" {
		w.WriteHeader(http.StatusBadRequest)
		writeCallbackPage(w, false, "Missing authorization code.")
		return
	}

	w.WriteHeader(http.StatusOK)
	writeCallbackPage(w, true, "You can close this window and return to your agent.")
	cs.deliver(CallbackResult{Code: code})
}

func (cs *CallbackServer) deliver(result CallbackResult) {
	select {
	case cs.resultCh <- result:
	default:
	}
}

func writeCallbackPage(w http.ResponseWriter, success bool, message string) {
	fmt.Fprint(w, renderCallbackPage(success, message))
}

// Wait blocks until the callback fires, the context is cancelled, or the
// default (or ctx-derived) timeout elapses, whichever comes first.
func (cs *CallbackServer) Wait(ctx context.Context) (CallbackResult, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultCallbackTimeout)
	defer cancel()

	select {
	case result := <-cs.resultCh:
		return result, nil
	case <-ctx.Done():
		return CallbackResult{}, ctx.Err()
	}
}

// Close force-closes the server after a brief drain delay, rather than
// performing a graceful shutdown that could take several seconds to drain
// keep-alive connections.
func (cs *CallbackServer) Close() {
	time.Sleep(50 * time.Millisecond)
	if err := cs.server.Close(); err != nil {
		logging.Warn("oauth", "error closing callback server: %v", err)
	}
}

// Port returns the bound port.
func (cs *CallbackServer) Port() int {
	return cs.port
}
