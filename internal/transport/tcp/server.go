package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-irc/internal/core"
	ilog "github.com/vovakirdan/wirechat-irc/internal/log"
)

// Server accepts plain TCP clients and hands each one to the engine.
type Server struct {
	ln     net.Listener
	engine *core.Engine
	log    *zerolog.Logger
	wg     sync.WaitGroup
}

// Listen binds addr. Accepting starts with Serve.
func Listen(addr string, engine *core.Engine, logger *zerolog.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return &Server{ln: ln, engine: engine, log: ilog.Component(logger, "tcp")}, nil
}

// Addr is the bound listen address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve accepts until ctx is cancelled or the listener fails. Sessions get
// ctx too, so cancelling it also tells every client the server is going
// away. Use Wait to block until they are gone.
func (s *Server) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = s.ln.Close() })
	defer stop()

	s.log.Info().Str("addr", s.ln.Addr().String()).Msg("accepting connections")

	var backoff time.Duration
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				backoff = nextBackoff(backoff)
				s.log.Warn().Err(err).Dur("retry_in", backoff).Msg("accept failed")
				time.Sleep(backoff)
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}
		backoff = 0

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.engine.Serve(ctx, newLineConn(conn))
		}()
	}
}

// Close stops accepting. Open sessions are unaffected.
func (s *Server) Close() error {
	return s.ln.Close()
}

// Wait blocks until every session started by Serve has returned.
func (s *Server) Wait() {
	s.wg.Wait()
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	d *= 2
	if d > time.Second {
		d = time.Second
	}
	return d
}
