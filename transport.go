package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"

	"github.com/quic-go/quic-go/http3"
	"github.com/quic-go/webtransport-go"

	"evadearena/internal/orchestrator"
)

// Server holds the WebTransport-over-QUIC listener and the orchestrator it
// dispatches accepted sessions to (spec.md §6 "Transport").
type Server struct {
	addr      string
	tlsConfig *tls.Config
	game      *orchestrator.Orchestrator

	wt           *webtransport.Server
	nextPlayerID atomic.Uint64
}

// NewServer builds a Server listening on addr. game is the already-running
// orchestrator a session handler dispatches every operation to.
func NewServer(addr string, tlsConfig *tls.Config, game *orchestrator.Orchestrator) *Server {
	return &Server{addr: addr, tlsConfig: tlsConfig, game: game}
}

// Run starts the WebTransport listener and blocks until ctx is canceled or
// the listener fails. Each accepted session is handed to runSession in its
// own goroutine (spec.md §4.4 "one task per accepted session").
func (s *Server) Run(ctx context.Context) error {
	wt := &webtransport.Server{
		H3: &http3.Server{
			Addr:      s.addr,
			TLSConfig: s.tlsConfig,
		},
	}
	s.wt = wt

	mux := http.NewServeMux()
	mux.HandleFunc("/connect", func(w http.ResponseWriter, r *http.Request) {
		sess, err := wt.Upgrade(w, r)
		if err != nil {
			log.Printf("[transport] upgrade failed: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		id := s.nextPlayerID.Add(1)
		go runSession(ctx, sess, s.game, id)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !s.game.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	wt.H3.Handler = mux

	go func() {
		<-ctx.Done()
		if err := wt.Close(); err != nil {
			log.Printf("[transport] close: %v", err)
		}
	}()

	log.Printf("[transport] listening on %s (webtransport)", s.addr)

	err := wt.ListenAndServe()
	if err == nil || err == http.ErrServerClosed {
		return nil
	}
	return fmt.Errorf("transport: listen: %w", err)
}
