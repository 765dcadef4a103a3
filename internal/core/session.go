package core

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-irc/internal/proto"
	"github.com/vovakirdan/wirechat-irc/internal/utils"
)

// Conn is a line-oriented client transport.
type Conn interface {
	// ReadLine blocks for the next inbound line. It returns ErrLineTooLong
	// for an oversized line that was discarded.
	ReadLine() (string, error)
	// WriteLine writes one CRLF-terminated line as a single unit.
	WriteLine(line []byte) error
	RemoteAddr() string
	Transport() string
	Close() error
}

// closeLinger bounds how long a closing session waits for its queued lines
// to be written.
const closeLinger = 2 * time.Second

// Serve runs one connection until QUIT, a transport error or ctx
// cancellation. Directory cleanup runs exactly once before it returns.
func (e *Engine) Serve(ctx context.Context, conn Conn) {
	u := NewUser(utils.NewID(), conn, e.cfg.SendQueue)
	logger := e.log.With().
		Str("session_id", u.ID).
		Str("remote", u.Remote).
		Str("transport", conn.Transport()).
		Logger()

	e.dir.RegisterUser(u)
	e.metrics.ConnectionOpened(conn.Transport())
	e.recordConnect(ctx, u, conn.Transport())
	logger.Info().Msg("connection accepted")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		e.writeLoop(u, &logger)
	}()

	stop := context.AfterFunc(ctx, func() { e.evict(u, "Server shutting down") })
	reason := u.reason(e.readLoop(u, &logger))
	stop()

	e.disconnect(u, reason)
	u.closeOutbound(reason)

	select {
	case <-writerDone:
	case <-time.After(closeLinger):
		logger.Warn().Msg("outbound queue not drained in time")
	}
	_ = conn.Close()
	<-writerDone

	e.metrics.ConnectionClosed()
	e.recordDisconnect(context.WithoutCancel(ctx), u, reason)
	logger.Info().Str("nick", e.dir.Nick(u)).Str("reason", reason).Msg("connection closed")
}

func (e *Engine) readLoop(u *User, logger *zerolog.Logger) (reason string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("session aborted")
			reason = "Internal error"
		}
	}()

	for {
		line, err := u.conn.ReadLine()
		if errors.Is(err, ErrLineTooLong) {
			logger.Debug().Msg("discarding oversized line")
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "Connection closed"
			}
			logger.Debug().Err(err).Msg("read failed")
			return "Read error"
		}

		msg, err := proto.Parse(line)
		if err != nil {
			continue
		}
		logger.Debug().Str("command", msg.Name()).Msg("inbound")

		if e.Handle(u, msg) {
			return "Client Quit"
		}
	}
}

// writeLoop is the only writer of u's transport.
func (e *Engine) writeLoop(u *User, logger *zerolog.Logger) {
	for line := range u.out {
		if err := u.conn.WriteLine(line); err != nil {
			logger.Warn().Err(err).Msg("write failed")
			u.setCloseReason("Write error")
			_ = u.conn.Close()
			for range u.out {
			}
			return
		}
		e.metrics.LineSent()
	}
	_ = u.conn.Close()
}
