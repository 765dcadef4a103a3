package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-irc/internal/config"
	"github.com/vovakirdan/wirechat-irc/internal/core"
	ilog "github.com/vovakirdan/wirechat-irc/internal/log"
	"github.com/vovakirdan/wirechat-irc/internal/metrics"
	"github.com/vovakirdan/wirechat-irc/internal/store"
	"github.com/vovakirdan/wirechat-irc/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/wirechat-irc/internal/transport/http"
	"github.com/vovakirdan/wirechat-irc/internal/transport/tcp"
)

const shutdownReason = "Server shutting down"

// App wires together core and transport layers.
type App struct {
	engine          *core.Engine
	tcp             *tcp.Server
	http            *transporthttp.Server
	httpLn          net.Listener
	shutdownTimeout time.Duration
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application and binds its listeners, so addresses are
// known before Run.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	appLog := ilog.Component(logger, "app")
	a := &App{
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             appLog,
	}

	var sessions store.SessionStore
	if cfg.DatabasePath != "" {
		st, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		a.store = st
		sessions = st
		appLog.Info().Str("db_path", cfg.DatabasePath).Msg("session audit enabled")
	}

	m := metrics.New()
	a.engine = core.NewEngine(core.Config{
		ServerName: cfg.ServerName,
		SendQueue:  cfg.SendQueue,
	}, sessions, m, logger)

	tcpSrv, err := tcp.Listen(cfg.Addr, a.engine, logger)
	if err != nil {
		a.cleanup()
		return nil, err
	}
	a.tcp = tcpSrv

	if cfg.HTTPAddr != "" {
		ln, err := net.Listen("tcp", cfg.HTTPAddr)
		if err != nil {
			_ = a.tcp.Close()
			a.cleanup()
			return nil, fmt.Errorf("listen %s: %w", cfg.HTTPAddr, err)
		}
		a.httpLn = ln
		a.http = transporthttp.NewServer(a.engine, sessions, m, cfg, logger)
	}

	return a, nil
}

// Addr is the bound IRC address.
func (a *App) Addr() net.Addr {
	return a.tcp.Addr()
}

// HTTPAddr is the bound admin HTTP address, or nil when disabled.
func (a *App) HTTPAddr() net.Addr {
	if a.httpLn == nil {
		return nil
	}
	return a.httpLn.Addr()
}

// Engine exposes the command engine.
func (a *App) Engine() *core.Engine {
	return a.engine
}

// Run serves until context cancellation or a fatal listener error, then
// disconnects every client and waits for their sessions to end.
func (a *App) Run(ctx context.Context) error {
	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverErr := make(chan error, 2)

	go func() {
		serverErr <- a.tcp.Serve(serveCtx)
	}()

	if a.http != nil {
		a.log.Info().Str("addr", a.httpLn.Addr().String()).Msg("http server listening")
		go func() {
			if err := a.http.Serve(a.httpLn); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				serverErr <- err
				return
			}
			serverErr <- nil
		}()
	}

	var runErr error
	select {
	case runErr = <-serverErr:
		if runErr != nil {
			a.log.Error().Err(runErr).Msg("listener failed")
		}
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down")
	cancel()
	a.engine.Shutdown(shutdownReason)

	shutdownCtx, stop := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer stop()

	if a.http != nil {
		if err := a.http.Shutdown(shutdownCtx); err != nil && runErr == nil {
			runErr = err
		}
	}
	if !waitContext(shutdownCtx, a.tcp.Wait, a.waitHTTP) {
		a.log.Warn().Msg("sessions still open after shutdown timeout")
	}

	a.cleanup()
	return runErr
}

func (a *App) waitHTTP() {
	if a.http != nil {
		a.http.Wait()
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}

// waitContext runs each wait in turn and reports whether all returned
// before ctx ended.
func waitContext(ctx context.Context, waits ...func()) bool {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, wait := range waits {
			wait()
		}
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
