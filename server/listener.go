// Package server implements the presence-and-routing core: the listener,
// per-connection sessions, the presence registry, and the message router.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"

	"chat-relay/contract"
	"chat-relay/moderation"
	"chat-relay/protocol"
)

// Config bounds the runtime behavior of the core.
type Config struct {
	Addr           string
	MaxSessions    int
	OutboundBuffer int
	HistoryLimit   int
	SearchLimit    int
}

// Server accepts connections and drives one session goroutine per
// client. The registry is the only state shared across sessions.
type Server struct {
	cfg      Config
	log      *slog.Logger
	gateway  contract.Gateway
	registry *Registry
	router   *Router

	listener net.Listener
	active   atomic.Int32
}

func New(cfg Config, gateway contract.Gateway, moderator *moderation.Moderator, log *slog.Logger) *Server {
	registry := NewRegistry()
	return &Server{
		cfg:      cfg,
		log:      log,
		gateway:  gateway,
		registry: registry,
		router:   NewRouter(registry, gateway, moderator, log),
	}
}

// Addr returns the bound listen address, valid after Listen succeeded.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// SessionCount returns the number of live connections, authenticated or
// not.
func (s *Server) SessionCount() int {
	return int(s.active.Load())
}

// Listen binds the TCP address and serves until ctx is done.
func (s *Server) Listen(ctx context.Context) error {
	if err := s.Bind(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Bind opens the TCP listener; Addr is valid afterwards.
func (s *Server) Bind() error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	s.listener = listener
	s.log.Info("listening", "addr", listener.Addr().String())
	return nil
}

// Serve accepts until ctx is done. Accept errors are logged and
// accepting continues; only cancellation ends the loop. Connections
// above MaxSessions are answered with a capacity rejection and closed
// immediately.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				s.log.Warn("transient accept failure", "err", err)
				continue
			}
			s.log.Error("accept failed", "err", err)
			continue
		}

		if int(s.active.Load()) >= s.cfg.MaxSessions {
			s.log.Warn("rejecting connection, capacity reached", "remote", conn.RemoteAddr())
			_, _ = fmt.Fprintf(conn, "%s\n", protocol.ErrServerFull)
			_ = conn.Close()
			continue
		}

		s.active.Add(1)
		sess := newSession(s, conn)
		go func() {
			defer s.active.Add(-1)
			sess.Run()
		}()
	}
}
