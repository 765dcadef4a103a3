package core

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	ilog "github.com/vovakirdan/wirechat-irc/internal/log"
	"github.com/vovakirdan/wirechat-irc/internal/metrics"
	"github.com/vovakirdan/wirechat-irc/internal/proto"
	"github.com/vovakirdan/wirechat-irc/internal/store"
)

// Config tunes the engine.
type Config struct {
	// ServerName is the prefix of every server-authored message.
	ServerName string
	// SendQueue is the number of outbound lines buffered per user.
	SendQueue int
}

// Engine validates commands, mutates the directory and fans replies out.
type Engine struct {
	cfg     Config
	dir     *Directory
	store   store.SessionStore
	metrics *metrics.Collector
	log     *zerolog.Logger
}

// Stats is a point-in-time view of the directory.
type Stats struct {
	Users    int           `json:"users"`
	Channels []ChannelInfo `json:"channels"`
}

// NewEngine creates an engine over an empty directory. st and m may be nil.
func NewEngine(cfg Config, st store.SessionStore, m *metrics.Collector, logger *zerolog.Logger) *Engine {
	if cfg.ServerName == "" {
		cfg.ServerName = "localhost"
	}
	if cfg.SendQueue <= 0 {
		cfg.SendQueue = 256
	}
	engineLog := ilog.Component(logger, "engine")
	return &Engine{
		cfg:     cfg,
		dir:     NewDirectory(engineLog),
		store:   st,
		metrics: m,
		log:     engineLog,
	}
}

// Directory exposes the shared tables.
func (e *Engine) Directory() *Directory {
	return e.dir
}

// Stats snapshots user and channel counts.
func (e *Engine) Stats() Stats {
	return Stats{
		Users:    e.dir.UserCount(),
		Channels: e.dir.List(),
	}
}

// Shutdown tells every connected user the server is going away and closes
// their outbound queues. Sessions clean themselves up as their transports
// close.
func (e *Engine) Shutdown(reason string) {
	for _, u := range e.dir.Users() {
		e.evict(u, reason)
	}
}

// Handle runs one parsed command for u. It returns true once the session
// must close.
func (e *Engine) Handle(u *User, m *proto.Message) bool {
	e.metrics.Command(m.Command.String())

	if e.dir.State(u) != StateRegistered {
		switch m.Command {
		case proto.CommandNick, proto.CommandUser, proto.CommandQuit:
		default:
			e.replyError(u, errNotRegistered)
			return false
		}
	}

	var err error
	switch m.Command {
	case proto.CommandNick:
		err = e.handleNick(u, m)
	case proto.CommandUser:
		err = e.handleUser(u, m)
	case proto.CommandJoin:
		err = e.handleJoin(u, m)
	case proto.CommandPart:
		err = e.handlePart(u, m)
	case proto.CommandPrivMsg:
		err = e.handlePrivMsg(u, m)
	case proto.CommandList:
		e.handleList(u)
	case proto.CommandAway:
		e.handleAway(u, m)
	case proto.CommandKick:
		err = e.handleKick(u, m)
	case proto.CommandPing:
		err = e.handlePing(u, m)
	case proto.CommandPong:
	case proto.CommandQuit:
		e.handleQuit(u, m)
		return true
	default:
		err = errUnknownCommand(m.Verb)
	}

	var rerr *ReplyError
	if errors.As(err, &rerr) {
		e.replyError(u, rerr)
	} else if err != nil {
		e.log.Error().Err(err).Str("session_id", u.ID).Str("command", m.Name()).Msg("command failed")
	}
	return false
}

// disconnect tears the session out of the directory and tells everyone
// else, once.
func (e *Engine) disconnect(u *User, reason string) {
	res, ok := e.dir.Quit(u)
	if !ok {
		return
	}
	e.metrics.SetChannels(e.dir.ChannelCount())
	if res.WasRegistered {
		e.deliver(res.Recipients, proto.New(res.Prefix, proto.CommandQuit).WithTrailing(reason))
	}
}

// evict sends a final ERROR and lets the writer flush and close the transport.
func (e *Engine) evict(u *User, reason string) {
	e.send(u, e.closingLink(u, reason))
	u.closeOutbound(reason)
}

func (e *Engine) closingLink(u *User, reason string) *proto.Message {
	return proto.New(proto.Prefix{}, proto.CommandError).
		WithTrailing("Closing Link: " + e.dir.Target(u) + " (" + reason + ")")
}

func (e *Engine) deliver(recipients []*User, m *proto.Message) {
	line := m.Bytes()
	for _, r := range recipients {
		e.sendLine(r, line)
	}
}

func (e *Engine) send(u *User, m *proto.Message) {
	e.sendLine(u, m.Bytes())
}

// sendLine enqueues for one recipient. A full queue disconnects that
// recipient only; delivery to the others carries on.
func (e *Engine) sendLine(u *User, line []byte) {
	err := u.enqueue(line)
	if errors.Is(err, ErrSendQueueExceeded) {
		e.metrics.SendQueueOverflow()
		e.log.Warn().Str("session_id", u.ID).Msg("send queue exceeded, disconnecting")
		u.setCloseReason("Max SendQ exceeded")
		_ = u.conn.Close()
	}
}

func (e *Engine) reply(u *User, code proto.ReplyCode, text string, params ...string) {
	args := make([]string, 0, len(params)+1)
	args = append(args, e.dir.Target(u))
	args = append(args, params...)
	e.metrics.Reply(code.String())
	e.send(u, proto.NewReply(e.cfg.ServerName, code, args...).WithTrailing(text))
}

func (e *Engine) replyError(u *User, err *ReplyError) {
	e.reply(u, err.Code, err.Text, err.Params...)
}

func (e *Engine) recordConnect(ctx context.Context, u *User, transport string) {
	if e.store == nil {
		return
	}
	err := e.store.RecordConnect(ctx, &store.Session{
		ID:          u.ID,
		Remote:      u.Remote,
		Transport:   transport,
		ConnectedAt: time.Now(),
	})
	if err != nil {
		e.log.Warn().Err(err).Str("session_id", u.ID).Msg("record connect")
	}
}

func (e *Engine) recordDisconnect(ctx context.Context, u *User, reason string) {
	if e.store == nil {
		return
	}
	if err := e.store.RecordDisconnect(ctx, u.ID, e.dir.Nick(u), reason, time.Now()); err != nil {
		e.log.Warn().Err(err).Str("session_id", u.ID).Msg("record disconnect")
	}
}
