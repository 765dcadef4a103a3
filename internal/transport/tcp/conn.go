package tcp

import (
	"bufio"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/vovakirdan/wirechat-irc/internal/core"
	"github.com/vovakirdan/wirechat-irc/internal/proto"
)

// writeTimeout bounds a single line write to a stuck peer.
const writeTimeout = 10 * time.Second

// lineConn frames a TCP stream into CRLF lines.
type lineConn struct {
	conn net.Conn
	r    *bufio.Reader
}

var _ core.Conn = (*lineConn)(nil)

func newLineConn(conn net.Conn) *lineConn {
	return &lineConn{
		conn: conn,
		r:    bufio.NewReaderSize(conn, proto.MessageSize),
	}
}

// ReadLine returns the next line without its terminator. Lines longer than
// proto.MessageSize are skipped through to their newline and reported as
// core.ErrLineTooLong.
func (c *lineConn) ReadLine() (string, error) {
	line, err := c.r.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		for errors.Is(err, bufio.ErrBufferFull) {
			_, err = c.r.ReadSlice('\n')
		}
		if err != nil {
			return "", err
		}
		return "", core.ErrLineTooLong
	}
	if err != nil {
		// An unterminated tail at EOF is dropped.
		return "", err
	}
	return strings.TrimRight(string(line), "\r\n"), nil
}

func (c *lineConn) WriteLine(line []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	_, err := c.conn.Write(line)
	return err
}

func (c *lineConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

func (c *lineConn) Transport() string {
	return "tcp"
}

func (c *lineConn) Close() error {
	return c.conn.Close()
}
