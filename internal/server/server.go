// Package server provides the snapshot socket of sensorlogd.
//
// A dedicated acceptor goroutine owns the listening unix socket and hands
// every accepted connection to the sampling loop through a Queue. The
// sampling loop writes one snapshot per connection and closes it; nothing
// is ever read from clients.
package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xtxerr/sensorlog/config"
	"github.com/xtxerr/sensorlog/internal/errors"
	"github.com/xtxerr/sensorlog/internal/logging"
)

var log = logging.Component("server")

// =============================================================================
// Server Configuration
// =============================================================================

// Config holds server configuration.
type Config struct {
	// Address is the filesystem path of the unix socket.
	Address string

	// AcceptBackoff is the pause after a failed accept.
	AcceptBackoff time.Duration

	// WriteTimeout bounds a single snapshot write. Zero disables it.
	WriteTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.Address == "" {
		c.Address = config.DefaultSocketPath
	}
	if c.AcceptBackoff <= 0 {
		c.AcceptBackoff = config.DefaultAcceptBackoff
	}
}

// =============================================================================
// Server
// =============================================================================

// Server accepts snapshot clients.
type Server struct {
	cfg      Config
	listener net.Listener
	conns    *Queue[net.Conn]

	closed   atomic.Bool
	shutdown chan struct{}
	wg       sync.WaitGroup

	accepted atomic.Uint64
	failures atomic.Uint64
}

// Start binds the socket and launches the acceptor. It returns once the
// socket is listening.
//
// A file left at the address by a previous run is removed first. A bind
// failure is returned wrapping errors.ErrBind.
func Start(cfg *Config) (*Server, error) {
	c := *cfg
	c.applyDefaults()

	if err := os.Remove(c.Address); err != nil && !os.IsNotExist(err) {
		log.Warn("failed to remove stale socket", "path", c.Address, "error", err)
	}

	ln, err := net.Listen("unix", c.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: listen %s: %w", errors.ErrBind, c.Address, err)
	}

	s := &Server{
		cfg:      c,
		listener: ln,
		conns:    NewQueue[net.Conn](),
		shutdown: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.acceptLoop()

	log.Info("listening", "path", c.Address)
	return s, nil
}

// Conns returns the receiving end of the handoff queue.
func (s *Server) Conns() *Queue[net.Conn] {
	return s.conns
}

// Receive takes the next queued connection, waiting up to timeout.
func (s *Server) Receive(ctx context.Context, timeout time.Duration) (net.Conn, bool) {
	return s.conns.ReceiveContext(ctx, timeout)
}

// Addr returns the socket path.
func (s *Server) Addr() string {
	return s.cfg.Address
}

// Serve writes one response to conn and closes it.
//
// Write errors are logged and returned; the connection is closed either way.
// Nothing is written when the write deadline cannot be set or the server
// is closed.
func (s *Server) Serve(conn net.Conn, write func(io.Writer) error) error {
	defer conn.Close()

	if s.closed.Load() {
		return errors.ErrClosed
	}

	if s.cfg.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
			log.Warn("cannot set write deadline", "error", err)
			return fmt.Errorf("set write deadline: %w", err)
		}
	}

	if err := write(conn); err != nil {
		log.Warn("snapshot write failed", "error", err)
		return err
	}
	return nil
}

// Close stops accepting, closes connections still queued and removes the
// socket file.
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(s.shutdown)

	err := s.listener.Close()
	s.wg.Wait()

	for {
		conn, ok := s.conns.Receive(0)
		if !ok {
			break
		}
		conn.Close()
	}

	if rmErr := os.Remove(s.cfg.Address); rmErr != nil && !os.IsNotExist(rmErr) {
		log.Warn("failed to remove socket", "path", s.cfg.Address, "error", rmErr)
		err = errors.Join(err, rmErr)
	}

	log.Info("closed", "path", s.cfg.Address,
		"accepted", s.accepted.Load(),
		"accept_failures", s.failures.Load())
	return err
}

// =============================================================================
// Acceptor
// =============================================================================

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() {
				return
			}

			s.failures.Add(1)
			log.Error("accept error", "error", err, "backoff", s.cfg.AcceptBackoff)

			select {
			case <-s.shutdown:
				return
			case <-time.After(s.cfg.AcceptBackoff):
			}
			continue
		}

		s.accepted.Add(1)
		log.Debug("connection queued", "queued", s.conns.Len()+1)
		s.conns.Push(conn)
	}
}
