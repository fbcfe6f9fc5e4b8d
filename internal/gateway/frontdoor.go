package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/primus/primacron/internal/broadcast"
)

func (n *Node) serveHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// metricsMux serves only /metrics and /healthz, for a dedicated listener
// bound to cfg.MetricsAddr.
func (n *Node) metricsMux() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/healthz":
			n.serveHealthz(w, r)
		case "/metrics":
			n.metrics.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// mux builds the HTTP Front Door: request classification is
// done by hand rather than pure path-pattern matching, because an
// unmatched websocket upgrade attempt must be closed without a response
// body, which no http.ServeMux route can express.
//
// /healthz and /metrics are served here only when cfg.MetricsAddr is unset;
// when it is set, they are served exclusively on the dedicated listener
// started by Serve, and this mux falls through to the catch-all instead.
func (n *Node) mux() http.Handler {
	inbound := &broadcast.InboundHandler{Deliverer: n, OnError: n.onError}
	servesMetricsHere := n.cfg.MetricsAddr == ""

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case servesMetricsHere && r.URL.Path == "/healthz":
			n.serveHealthz(w, r)
		case servesMetricsHere && r.URL.Path == "/metrics":
			n.metrics.ServeHTTP(w, r)
		case r.URL.Path == n.cfg.Broadcast:
			inbound.ServeHTTP(w, r)
		case strings.HasPrefix(r.URL.Path, n.cfg.Endpoint):
			n.handleTransport(w, r)
		default:
			n.fallback(w, r)
		}
	})
}

// fallback handles any request matching none of the front door's known
// routes. A stray websocket upgrade attempt is closed without a response
// body— writing any http.ResponseWriter status implicitly
// sends a response, so the connection is hijacked and closed directly
// instead.
func (n *Node) fallback(w http.ResponseWriter, r *http.Request) {
	if isWebSocketUpgrade(r) {
		hijacker, ok := w.(http.Hijacker)
		if ok {
			if conn, _, err := hijacker.Hijack(); err == nil {
				conn.Close()
				return
			}
		}
	}

	if n.cfg.Redirect != "" {
		http.Redirect(w, r, n.cfg.Redirect, http.StatusMovedPermanently)
		return
	}
	http.Error(w, "bad request", http.StatusBadRequest)
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket") &&
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}

// Serve runs the Node's HTTP server on addr until ctx is cancelled, then
// shuts it down gracefully. If cfg.MetricsAddr is set, /metrics and
// /healthz are additionally served on their own listener bound to it.
func (n *Node) Serve(ctx context.Context, addr string) error {
	servers := []*http.Server{{Addr: addr, Handler: n.mux()}}
	if n.cfg.MetricsAddr != "" {
		servers = append(servers, &http.Server{Addr: n.cfg.MetricsAddr, Handler: n.metricsMux()})
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		srv := srv
		go func() {
			slog.Info("gateway listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
				return
			}
			errCh <- nil
		}()
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		var shutdownErr error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil && shutdownErr == nil {
				shutdownErr = err
			}
		}
		if shutdownErr != nil {
			return shutdownErr
		}
		for range servers {
			if err := <-errCh; err != nil {
				return err
			}
		}
		return nil
	case err := <-errCh:
		return err
	}
}
