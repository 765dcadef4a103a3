package core

import (
	"errors"
	"fmt"

	"github.com/vovakirdan/wirechat-irc/internal/proto"
)

var (
	// ErrLineTooLong is returned by a Conn when an inbound line exceeds
	// proto.MessageSize. The line is discarded and the session continues.
	ErrLineTooLong = errors.New("line exceeds message size")
	// ErrSendQueueExceeded means a recipient's outbound queue is full.
	ErrSendQueueExceeded = errors.New("send queue exceeded")

	errSessionClosed = errors.New("session closed")
)

// ReplyError is a rejected command. The engine turns it into exactly one
// numeric reply to the requester.
type ReplyError struct {
	Code   proto.ReplyCode
	Params []string
	Text   string
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("%s %v: %s", e.Code, e.Params, e.Text)
}

func replyError(code proto.ReplyCode, text string, params ...string) *ReplyError {
	return &ReplyError{Code: code, Params: params, Text: text}
}

func errNoSuchNick(nick string) *ReplyError {
	return replyError(proto.ErrNoSuchNick, "No such nick/channel", nick)
}

func errNoSuchChannel(channel string) *ReplyError {
	return replyError(proto.ErrNoSuchChannel, "No such channel", channel)
}

func errCannotSendToChan(channel string) *ReplyError {
	return replyError(proto.ErrCannotSendToChan, "Cannot send to channel", channel)
}

func errNicknameInUse(nick string) *ReplyError {
	return replyError(proto.ErrNicknameInUse, "Nickname is already in use", nick)
}

func errErroneousNickname(nick string) *ReplyError {
	return replyError(proto.ErrErroneousNickname, "Erroneous nickname", nick)
}

func errUserNotInChannel(nick, channel string) *ReplyError {
	return replyError(proto.ErrUserNotInChannel, "They aren't on that channel", nick, channel)
}

func errChanOPrivsNeeded(channel string) *ReplyError {
	return replyError(proto.ErrChanOPrivsNeeded, "You're not channel operator", channel)
}

func errNeedMoreParams(verb string) *ReplyError {
	return replyError(proto.ErrNeedMoreParams, "Not enough parameters", verb)
}

func errUnknownCommand(verb string) *ReplyError {
	return replyError(proto.ErrUnknownCommand, "Unknown command", verb)
}

var (
	errNotRegistered     = replyError(proto.ErrNotRegistered, "You have not registered")
	errAlreadyRegistered = replyError(proto.ErrAlreadyRegistered, "You may not reregister")
	errNoNicknameGiven   = replyError(proto.ErrNoNicknameGiven, "No nickname given")
	errNoRecipient       = replyError(proto.ErrNoRecipient, "No recipient given (PRIVMSG)")
	errNoTextToSend      = replyError(proto.ErrNoTextToSend, "No text to send")
	errNoOrigin          = replyError(proto.ErrNoOrigin, "No origin specified")
)
