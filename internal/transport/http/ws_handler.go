package http

import (
	"bytes"
	"context"
	"io"
	stdhttp "net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-irc/internal/core"
	"github.com/vovakirdan/wirechat-irc/internal/proto"
)

const (
	// wsReadLimit is the frame size above which the socket is dropped
	// outright. Frames between proto.MessageSize and this are skipped.
	wsReadLimit    = 4 * proto.MessageSize
	wsWriteTimeout = 10 * time.Second
)

// WSHandler upgrades HTTP connections and runs them as IRC sessions. Each
// text frame carries one line.
type WSHandler struct {
	engine *core.Engine
	log    *zerolog.Logger
	wg     sync.WaitGroup
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(engine *core.Engine, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{engine: engine, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	conn.SetReadLimit(wsReadLimit)

	h.wg.Add(1)
	defer h.wg.Done()

	h.engine.Serve(r.Context(), newWSConn(r.Context(), conn, r.RemoteAddr))
}

// Wait blocks until every session started by ServeHTTP has returned.
func (h *WSHandler) Wait() {
	h.wg.Wait()
}

// wsConn adapts a WebSocket to core.Conn.
type wsConn struct {
	ctx       context.Context
	conn      *websocket.Conn
	remote    string
	closeOnce sync.Once
}

var _ core.Conn = (*wsConn)(nil)

func newWSConn(ctx context.Context, conn *websocket.Conn, remote string) *wsConn {
	return &wsConn{ctx: ctx, conn: conn, remote: remote}
}

func (c *wsConn) ReadLine() (string, error) {
	_, data, err := c.conn.Read(c.ctx)
	if err != nil {
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			return "", io.EOF
		}
		return "", err
	}
	if len(data) > proto.MessageSize {
		return "", core.ErrLineTooLong
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func (c *wsConn) WriteLine(line []byte) error {
	ctx, cancel := context.WithTimeout(c.ctx, wsWriteTimeout)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, bytes.TrimRight(line, "\r\n"))
}

func (c *wsConn) RemoteAddr() string {
	return c.remote
}

func (c *wsConn) Transport() string {
	return "ws"
}

// Close starts the closing handshake without waiting for the peer.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		go func() { _ = c.conn.Close(websocket.StatusNormalClosure, "") }()
	})
	return nil
}
