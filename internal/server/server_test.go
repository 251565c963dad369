package server

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xtxerr/sensorlog/internal/errors"
	testutil "github.com/xtxerr/sensorlog/internal/testing"
)

func startServer(t *testing.T) *Server {
	t.Helper()

	srv, err := Start(&Config{
		Address:      testutil.SocketPath(t),
		WriteTimeout: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv
}

func fetch(addr string) (string, error) {
	conn, err := net.Dial("unix", addr)
	if err != nil {
		return "", fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	body, err := io.ReadAll(conn)
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}
	return string(body), nil
}

func TestServer_Handoff(t *testing.T) {
	srv := startServer(t)

	got := make(chan string, 1)
	gt := testutil.NewGoroutineTest(t)
	gt.Go(func() error {
		body, err := fetch(srv.Addr())
		if err != nil {
			return err
		}
		got <- body
		return nil
	})

	conn, ok := srv.Conns().Receive(5 * time.Second)
	require.True(t, ok, "expected a queued connection")

	err := srv.Serve(conn, func(w io.Writer) error {
		_, err := io.WriteString(w, "[{\"v\":1}]\n")
		return err
	})
	require.NoError(t, err)

	gt.Wait()
	require.Equal(t, "[{\"v\":1}]\n", <-got)
}

func TestServer_QueuesEveryConnection(t *testing.T) {
	srv := startServer(t)

	gt := testutil.NewGoroutineTest(t)
	for i := 0; i < 3; i++ {
		gt.Go(func() error {
			_, err := fetch(srv.Addr())
			return err
		})
	}

	require.NoError(t, testutil.Eventually(5*time.Second, 5*time.Millisecond, func() bool {
		return srv.Conns().Len() == 3
	}))

	for i := 0; i < 3; i++ {
		conn, ok := srv.Conns().Receive(time.Second)
		require.True(t, ok)
		require.NoError(t, srv.Serve(conn, func(w io.Writer) error {
			_, err := io.WriteString(w, "[]\n")
			return err
		}))
	}

	gt.Wait()

	_, ok := srv.Conns().Receive(10 * time.Millisecond)
	require.False(t, ok, "queue should be drained")
}

func TestServer_RebindStaleSocket(t *testing.T) {
	addr := testutil.SocketPath(t)

	// Leave a socket file behind the way a crashed run would.
	ln, err := net.Listen("unix", addr)
	require.NoError(t, err)
	ln.(*net.UnixListener).SetUnlinkOnClose(false)
	require.NoError(t, ln.Close())

	_, err = os.Stat(addr)
	require.NoError(t, err, "stale socket file should exist")

	first, err := Start(&Config{Address: addr})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Start(&Config{Address: addr})
	require.NoError(t, err)
	defer second.Close()

	gt := testutil.NewGoroutineTest(t)
	gt.Go(func() error {
		_, err := fetch(addr)
		return err
	})

	conn, ok := second.Conns().Receive(5 * time.Second)
	require.True(t, ok)
	require.NoError(t, second.Serve(conn, func(w io.Writer) error {
		_, err := io.WriteString(w, "[]\n")
		return err
	}))
	gt.Wait()
}

func TestServer_BindFailure(t *testing.T) {
	addr := filepath.Join(t.TempDir(), "missing", "s.sock")

	_, err := Start(&Config{Address: addr})
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrBind), "expected ErrBind, got %v", err)
}

func TestServer_CloseRemovesSocket(t *testing.T) {
	addr := testutil.SocketPath(t)

	srv, err := Start(&Config{Address: addr})
	require.NoError(t, err)

	require.NoError(t, srv.Close())
	require.NoError(t, srv.Close(), "second close should be a no-op")

	_, err = os.Stat(addr)
	require.True(t, os.IsNotExist(err), "socket file should be removed, got %v", err)
}

func TestServer_ServeWriteError(t *testing.T) {
	srv := startServer(t)

	client, server := net.Pipe()
	client.Close()

	err := srv.Serve(server, func(w io.Writer) error {
		_, err := io.WriteString(w, "[]\n")
		return err
	})
	require.Error(t, err)
}

func TestServer_ServeDeadlineError(t *testing.T) {
	srv := startServer(t)

	client, conn := net.Pipe()
	defer client.Close()
	conn.Close()

	called := false
	err := srv.Serve(conn, func(w io.Writer) error {
		called = true
		return nil
	})
	require.Error(t, err)
	require.ErrorIs(t, err, io.ErrClosedPipe)
	require.False(t, called, "write must not run without a deadline")
}

func TestServer_ServeAfterClose(t *testing.T) {
	srv := startServer(t)
	require.NoError(t, srv.Close())

	client, conn := net.Pipe()
	defer client.Close()

	err := srv.Serve(conn, func(w io.Writer) error {
		t.Error("write must not run on a closed server")
		return nil
	})
	require.ErrorIs(t, err, errors.ErrClosed)
}
