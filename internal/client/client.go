// Package client fetches snapshots from a running sensorlogd.
//
// The protocol is one-way: connect, read until the server closes, done.
// Nothing is ever sent to the server.
package client

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/xtxerr/sensorlog/config"
	"github.com/xtxerr/sensorlog/internal/errors"
)

// Config holds client configuration.
type Config struct {
	// Address is the snapshot socket path.
	Address string

	// Timeout bounds the whole fetch. A snapshot is only written once the
	// daemon reaches its next drain window, so this should exceed the
	// sampling period.
	Timeout time.Duration

	// MaxBytes caps the snapshot size read. Zero means no cap.
	MaxBytes int64
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	return &Config{
		Address: config.DefaultSocketPath,
		Timeout: config.DefaultSamplePeriod + config.DefaultWriteTimeout,
	}
}

// Fetch connects to the daemon and returns one snapshot.
//
// A response not terminated by "]\n" means the server gave up mid-write
// and is reported as an error.
func Fetch(ctx context.Context, cfg *Config) ([]byte, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Address, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetReadDeadline(deadline); err != nil {
			return nil, fmt.Errorf("set read deadline: %w", err)
		}
	}

	// Unblock the read on cancellation without a deadline.
	stop := context.AfterFunc(ctx, func() {
		if err := conn.SetReadDeadline(time.Unix(1, 0)); err != nil {
			conn.Close()
		}
	})
	defer stop()

	var r io.Reader = conn
	if cfg.MaxBytes > 0 {
		r = io.LimitReader(conn, cfg.MaxBytes+1)
	}

	body, err := io.ReadAll(r)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, fmt.Errorf("read snapshot: %w: %w", errors.ErrTimeout, err)
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	if cfg.MaxBytes > 0 && int64(len(body)) > cfg.MaxBytes {
		return nil, fmt.Errorf("snapshot exceeds %d bytes", cfg.MaxBytes)
	}
	if !complete(body) {
		return nil, fmt.Errorf("truncated snapshot (%d bytes)", len(body))
	}
	return body, nil
}

func complete(body []byte) bool {
	n := len(body)
	return n >= 3 && body[0] == '[' && body[n-2] == ']' && body[n-1] == '\n'
}
