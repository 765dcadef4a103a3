package core

import (
	"strconv"

	"github.com/vovakirdan/wirechat-irc/internal/proto"
)

func (e *Engine) handleNick(u *User, m *proto.Message) error {
	nick := m.Arg(0)
	if nick == "" {
		return errNoNicknameGiven
	}
	if !ValidNickname(nick) {
		return errErroneousNickname(nick)
	}

	res, err := e.dir.SetNickname(u, nick)
	if err != nil {
		return err
	}
	if res.Unchanged {
		return nil
	}
	if len(res.Recipients) > 0 {
		e.deliver(res.Recipients, proto.New(res.Old, proto.CommandNick, nick))
	}
	if res.Welcome {
		e.welcome(u)
	}
	return nil
}

// USER <username> <hostname> <servername> :<realname>
func (e *Engine) handleUser(u *User, m *proto.Message) error {
	args := m.Args()
	if len(args) < 4 || args[0] == "" || args[1] == "" {
		return errNeedMoreParams("USER")
	}

	welcome, err := e.dir.SetUser(u, args[0], args[1], args[len(args)-1])
	if err != nil {
		return err
	}
	if welcome {
		e.welcome(u)
	}
	return nil
}

func (e *Engine) welcome(u *User) {
	prefix := e.dir.Prefix(u)
	e.log.Info().Str("session_id", u.ID).Str("nick", prefix.Name).Msg("registered")
	e.reply(u, proto.RplWelcome, "Welcome to the Internet Relay Network "+prefix.String())
}

func (e *Engine) handleJoin(u *User, m *proto.Message) error {
	name := m.Arg(0)
	if name == "" {
		return errNeedMoreParams("JOIN")
	}
	if !ValidChannelName(name) {
		return errNoSuchChannel(name)
	}

	res := e.dir.Join(u, name)
	if res.Already {
		return nil
	}
	if res.Parted != "" {
		e.deliver(res.PartedRecipients, proto.New(res.Prefix, proto.CommandPart, res.Parted))
	}
	if res.Created {
		e.log.Debug().Str("channel", name).Str("operator", res.Prefix.Name).Msg("channel created")
	}
	e.metrics.SetChannels(e.dir.ChannelCount())
	e.deliver(res.Recipients, proto.New(res.Prefix, proto.CommandJoin, name))
	return nil
}

func (e *Engine) handlePart(u *User, m *proto.Message) error {
	res, err := e.dir.Part(u, m.Arg(0))
	if err != nil {
		return err
	}
	e.metrics.SetChannels(e.dir.ChannelCount())

	msg := proto.New(res.Prefix, proto.CommandPart, res.Channel)
	if reason := m.Arg(1); reason != "" {
		msg.WithTrailing(reason)
	}
	e.deliver(res.Recipients, msg)
	return nil
}

func (e *Engine) handlePrivMsg(u *User, m *proto.Message) error {
	args := m.Args()
	if len(args) == 0 || args[0] == "" {
		return errNoRecipient
	}
	if len(args) < 2 || args[1] == "" {
		return errNoTextToSend
	}
	target, text := args[0], args[1]

	recipients, away, err := e.dir.Route(u, target)
	if err != nil {
		return err
	}
	if away != "" {
		e.reply(u, proto.RplAway, away, target)
	}
	e.deliver(recipients, proto.New(e.dir.Prefix(u), proto.CommandPrivMsg, target).WithTrailing(text))
	return nil
}

func (e *Engine) handleList(u *User) {
	for _, ch := range e.dir.List() {
		e.reply(u, proto.RplList, "", ch.Name, strconv.Itoa(ch.Members))
	}
	e.reply(u, proto.RplListEnd, "End of LIST")
}

func (e *Engine) handleAway(u *User, m *proto.Message) {
	message := m.Arg(0)
	res := e.dir.SetAway(u, message)

	notice := proto.New(res.Prefix, proto.CommandAway)
	if message != "" {
		notice.WithTrailing(message)
		e.reply(u, proto.RplNowAway, "You have been marked as being away")
	} else {
		e.reply(u, proto.RplUnaway, "You are no longer marked as being away")
	}
	e.deliver(res.Recipients, notice)
}

func (e *Engine) handleKick(u *User, m *proto.Message) error {
	args := m.Args()
	if len(args) < 2 || args[0] == "" || args[1] == "" {
		return errNeedMoreParams("KICK")
	}

	res, err := e.dir.Kick(u, args[0], args[1])
	if err != nil {
		return err
	}
	e.metrics.SetChannels(e.dir.ChannelCount())

	reason := m.Arg(2)
	if reason == "" {
		reason = res.Prefix.Name
	}
	e.deliver(res.Recipients, proto.New(res.Prefix, proto.CommandKick, res.Channel, res.Target).WithTrailing(reason))
	return nil
}

func (e *Engine) handlePing(u *User, m *proto.Message) error {
	token := m.Arg(0)
	if token == "" {
		return errNoOrigin
	}
	server := e.cfg.ServerName
	e.send(u, proto.New(proto.Prefix{Name: server}, proto.CommandPong, server).WithTrailing(token))
	return nil
}

func (e *Engine) handleQuit(u *User, m *proto.Message) {
	reason := m.Arg(0)
	if reason == "" {
		reason = "Client Quit"
	}
	e.send(u, e.closingLink(u, reason))
	e.disconnect(u, reason)
	u.closeOutbound(reason)
}
