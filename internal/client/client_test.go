package client

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xtxerr/sensorlog/internal/errors"
	"github.com/xtxerr/sensorlog/internal/server"
	testutil "github.com/xtxerr/sensorlog/internal/testing"
)

func serveOnce(t *testing.T, srv *server.Server, body string) {
	t.Helper()

	conn, ok := srv.Conns().Receive(5 * time.Second)
	require.True(t, ok, "expected a client")
	srv.Serve(conn, func(w io.Writer) error {
		_, err := io.WriteString(w, body)
		return err
	})
}

func startServer(t *testing.T) *server.Server {
	t.Helper()

	srv, err := server.Start(&server.Config{Address: testutil.SocketPath(t)})
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv
}

func TestFetch(t *testing.T) {
	srv := startServer(t)

	result := make(chan []byte, 1)
	gt := testutil.NewGoroutineTest(t)
	gt.Go(func() error {
		body, err := Fetch(context.Background(), &Config{Address: srv.Addr(), Timeout: 5 * time.Second})
		if err != nil {
			return err
		}
		result <- body
		return nil
	})

	serveOnce(t, srv, `[{"timestamp":1}]`+"\n")
	gt.Wait()

	require.Equal(t, `[{"timestamp":1}]`+"\n", string(<-result))
}

func TestFetch_Truncated(t *testing.T) {
	srv := startServer(t)

	errc := make(chan error, 1)
	go func() {
		_, err := Fetch(context.Background(), &Config{Address: srv.Addr(), Timeout: 5 * time.Second})
		errc <- err
	}()

	serveOnce(t, srv, `[{"timestamp":1},`)
	require.Error(t, <-errc)
}

func TestFetch_MaxBytes(t *testing.T) {
	srv := startServer(t)

	errc := make(chan error, 1)
	go func() {
		_, err := Fetch(context.Background(), &Config{Address: srv.Addr(), Timeout: 5 * time.Second, MaxBytes: 4})
		errc <- err
	}()

	serveOnce(t, srv, `[{"timestamp":1}]`+"\n")
	require.Error(t, <-errc)
}

func TestFetch_Timeout(t *testing.T) {
	srv := startServer(t)

	// Nobody drains the queue, so the snapshot never comes.
	_, err := Fetch(context.Background(), &Config{Address: srv.Addr(), Timeout: 50 * time.Millisecond})
	require.ErrorIs(t, err, errors.ErrTimeout)
}

func TestFetch_NoServer(t *testing.T) {
	_, err := Fetch(context.Background(), &Config{Address: testutil.SocketPath(t), Timeout: time.Second})
	require.Error(t, err)
}
