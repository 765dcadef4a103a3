package app

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirechat-irc/internal/config"
	"github.com/vovakirdan/wirechat-irc/internal/store/sqlite"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.ServerName = "irc.test"
	cfg.DatabasePath = filepath.Join(t.TempDir(), "ircd.db")
	cfg.ShutdownTimeout = 3 * time.Second
	return cfg
}

func readUntil(t *testing.T, conn net.Conn, r *bufio.Reader, substr string) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err, "waiting for %q", substr)
		if strings.Contains(line, substr) {
			return strings.TrimRight(line, "\r\n")
		}
	}
}

func TestRunServesAndShutsDown(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(&cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- a.Run(ctx) }()

	conn, err := net.Dial("tcp", a.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	r := bufio.NewReader(conn)

	_, err = conn.Write([]byte("NICK alice\r\nUSER alice 0 * :Alice\r\nJOIN #ops\r\n"))
	require.NoError(t, err)
	readUntil(t, conn, r, ":irc.test 001 alice")
	readUntil(t, conn, r, ":alice!alice@0 JOIN #ops")

	resp, err := http.Get("http://" + a.HTTPAddr().String() + "/stats")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.JSONEq(t, `{"users":1,"channels":[{"name":"#ops","members":1}]}`, string(body))

	cancel()
	assert.Equal(t, "ERROR :Closing Link: alice (Server shutting down)", readUntil(t, conn, r, "ERROR"))

	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}

	st, err := sqlite.New(cfg.DatabasePath)
	require.NoError(t, err)
	defer st.Close()
	sessions, err := st.ListSessions(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "alice", sessions[0].Nickname)
	assert.Equal(t, "Server shutting down", sessions[0].QuitReason)
	assert.Equal(t, "tcp", sessions[0].Transport)
	assert.NotNil(t, sessions[0].DisconnectedAt)
}

func TestHTTPDisabledByDefault(t *testing.T) {
	cfg := testConfig(t)
	cfg.HTTPAddr = ""
	cfg.DatabasePath = ""

	a, err := New(&cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, a.HTTPAddr())

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- a.Run(ctx) }()
	cancel()
	require.NoError(t, <-runErr)
}

func TestNewFailsOnBusyAddress(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := testConfig(t)
	cfg.Addr = ln.Addr().String()
	_, err = New(&cfg, nil)
	assert.Error(t, err)
}
