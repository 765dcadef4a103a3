package core

import (
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	waitTimeout  = 2 * time.Second
	quietTimeout = 100 * time.Millisecond
)

// pipeConn is an in-memory Conn. Inbound lines are fed by the test and
// outbound lines are buffered so the writer never blocks.
type pipeConn struct {
	in     chan string
	out    chan string
	closed chan struct{}
	once   sync.Once
	remote string
	// stall makes WriteLine block until the conn is closed.
	stall bool
}

func newPipeConn(remote string) *pipeConn {
	return &pipeConn{
		in:     make(chan string, 64),
		out:    make(chan string, 1024),
		closed: make(chan struct{}),
		remote: remote,
	}
}

func (c *pipeConn) ReadLine() (string, error) {
	select {
	case line := <-c.in:
		return line, nil
	case <-c.closed:
		return "", io.EOF
	}
}

func (c *pipeConn) WriteLine(line []byte) error {
	if c.stall {
		<-c.closed
		return net.ErrClosed
	}
	select {
	case <-c.closed:
		return net.ErrClosed
	default:
	}
	select {
	case c.out <- string(line):
		return nil
	case <-c.closed:
		return net.ErrClosed
	}
}

func (c *pipeConn) RemoteAddr() string { return c.remote }
func (c *pipeConn) Transport() string  { return "pipe" }

func (c *pipeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

type testClient struct {
	t    *testing.T
	conn *pipeConn
	done chan struct{}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(Config{ServerName: "server", SendQueue: 64}, nil, nil, nil)
}

func connect(t *testing.T, e *Engine) *testClient {
	t.Helper()
	return connectConn(t, e, newPipeConn("127.0.0.1:40000"))
}

func connectConn(t *testing.T, e *Engine, conn *pipeConn) *testClient {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	c := &testClient{t: t, conn: conn, done: make(chan struct{})}
	go func() {
		defer close(c.done)
		e.Serve(ctx, conn)
	}()
	t.Cleanup(func() {
		cancel()
		_ = conn.Close()
		<-c.done
	})
	return c
}

// register connects and completes NICK/USER with nick as every identity
// field, consuming the welcome.
func register(t *testing.T, e *Engine, nick string) *testClient {
	t.Helper()
	c := connect(t, e)
	c.send("NICK " + nick)
	c.send("USER " + nick + " " + nick + " " + nick + " :" + nick)
	c.expect(":server 001 " + nick + " :Welcome to the Internet Relay Network " + nick + "!" + nick + "@" + nick)
	return c
}

func (c *testClient) send(line string) {
	c.conn.in <- line + "\r\n"
}

func (c *testClient) next() (string, bool) {
	select {
	case line := <-c.conn.out:
		return strings.TrimRight(line, "\r\n"), true
	case <-time.After(waitTimeout):
		return "", false
	}
}

// expect requires the next outbound line to be want.
func (c *testClient) expect(want string) {
	c.t.Helper()
	line, ok := c.next()
	require.True(c.t, ok, "timed out waiting for %q", want)
	require.Equal(c.t, want, line)
}

// waitFor skips lines until one contains substr.
func (c *testClient) waitFor(substr string) string {
	c.t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case line := <-c.conn.out:
			line = strings.TrimRight(line, "\r\n")
			if strings.Contains(line, substr) {
				return line
			}
		case <-deadline:
			c.t.Fatalf("line containing %q not received", substr)
			return ""
		}
	}
}

// expectNothing requires that no line arrives for a short while.
func (c *testClient) expectNothing() {
	c.t.Helper()
	select {
	case line := <-c.conn.out:
		c.t.Fatalf("unexpected line %q", line)
	case <-time.After(quietTimeout):
	}
}

func (c *testClient) waitClosed() {
	c.t.Helper()
	select {
	case <-c.done:
	case <-time.After(waitTimeout):
		c.t.Fatal("session did not terminate")
	}
}
