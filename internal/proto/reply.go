package proto

import "fmt"

// ReplyCode is a three-digit numeric reply.
type ReplyCode int

const (
	RplWelcome ReplyCode = 1
	RplAway    ReplyCode = 301
	RplUnaway  ReplyCode = 305
	RplNowAway ReplyCode = 306
	RplList    ReplyCode = 322
	RplListEnd ReplyCode = 323

	ErrNoSuchNick        ReplyCode = 401
	ErrNoSuchChannel     ReplyCode = 403
	ErrCannotSendToChan  ReplyCode = 404
	ErrNoOrigin          ReplyCode = 409
	ErrNoRecipient       ReplyCode = 411
	ErrNoTextToSend      ReplyCode = 412
	ErrUnknownCommand    ReplyCode = 421
	ErrNoNicknameGiven   ReplyCode = 431
	ErrErroneousNickname ReplyCode = 432
	ErrNicknameInUse     ReplyCode = 433
	ErrUserNotInChannel  ReplyCode = 441
	ErrNotRegistered     ReplyCode = 451
	ErrNeedMoreParams    ReplyCode = 461
	ErrAlreadyRegistered ReplyCode = 462
	ErrChanOPrivsNeeded  ReplyCode = 482
)

// String formats the code as it appears on the wire, zero-padded.
func (c ReplyCode) String() string {
	return fmt.Sprintf("%03d", int(c))
}
