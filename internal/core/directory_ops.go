package core

import (
	"strings"

	"github.com/vovakirdan/wirechat-irc/internal/proto"
)

// NickChange is the outcome of SetNickname.
type NickChange struct {
	// Old is the prefix before the change.
	Old proto.Prefix
	// Unchanged is set when the user already held the nickname.
	Unchanged bool
	// Welcome is set when this change completed registration.
	Welcome bool
	// Recipients is every connected user, the actor included, when the
	// nickname of a registered user changed. Empty otherwise.
	Recipients []*User
}

// SetNickname checks that nick is free and assigns it in one step.
func (d *Directory) SetNickname(u *User, nick string) (NickChange, error) {
	d.usersMu.Lock()
	defer d.usersMu.Unlock()

	if owner, taken := d.nicks[nick]; taken {
		if owner == u.ID {
			return NickChange{Old: u.prefixLocked(), Unchanged: true}, nil
		}
		return NickChange{}, errNicknameInUse(nick)
	}

	res := NickChange{Old: u.prefixLocked()}
	wasRegistered := u.state == StateRegistered
	if u.nick != "" {
		delete(d.nicks, u.nick)
	}
	u.nick = nick
	d.nicks[nick] = u.ID
	res.Welcome = u.promoteLocked()
	if wasRegistered {
		res.Recipients = d.allUsersLocked("")
	}
	return res, nil
}

// SetUser records the USER fields and reports whether registration
// completed.
func (d *Directory) SetUser(u *User, username, hostname, realname string) (bool, error) {
	d.usersMu.Lock()
	defer d.usersMu.Unlock()
	if u.state == StateRegistered {
		return false, errAlreadyRegistered
	}
	u.username = username
	u.hostname = hostname
	u.realname = realname
	return u.promoteLocked(), nil
}

// JoinResult is the outcome of Join.
type JoinResult struct {
	Prefix proto.Prefix
	// Already is set when the user was already in the channel.
	Already bool
	Created bool
	// Parted names the channel left implicitly, with the members it had
	// just before the user left (the user included).
	Parted           string
	PartedRecipients []*User
	// Recipients are the members after the join, the user included.
	Recipients []*User
}

// Join moves u into the named channel, leaving its current one first.
func (d *Directory) Join(u *User, name string) JoinResult {
	d.usersMu.Lock()
	defer d.usersMu.Unlock()
	d.channelsMu.Lock()
	defer d.channelsMu.Unlock()

	res := JoinResult{Prefix: u.prefixLocked()}
	if u.channel == name {
		res.Already = true
		return res
	}

	if u.channel != "" {
		old := d.channels[u.channel]
		if old == nil {
			d.fault("user %s references missing channel %s", u.ID, u.channel)
		}
		res.Parted = old.Name
		res.PartedRecipients = d.membersLocked(old, "")
		d.leaveLocked(u)
	}

	ch, created := d.getOrCreateChannelLocked(name, u.ID)
	d.addMemberLocked(ch, u.ID)
	u.channel = ch.Name
	res.Created = created
	res.Recipients = d.membersLocked(ch, "")
	return res
}

// PartResult is the outcome of Part.
type PartResult struct {
	Prefix  proto.Prefix
	Channel string
	// Recipients are the members just before the user left, the user included.
	Recipients []*User
}

// Part removes u from the named channel, or from its current channel when
// name is empty.
func (d *Directory) Part(u *User, name string) (PartResult, error) {
	d.usersMu.Lock()
	defer d.usersMu.Unlock()
	d.channelsMu.Lock()
	defer d.channelsMu.Unlock()

	if name == "" {
		if u.channel == "" {
			return PartResult{}, errUserNotInChannel(u.targetLocked(), "*")
		}
		name = u.channel
	}
	ch, ok := d.channels[name]
	if !ok {
		return PartResult{}, errNoSuchChannel(name)
	}
	if u.channel != name {
		return PartResult{}, errUserNotInChannel(u.targetLocked(), name)
	}

	res := PartResult{
		Prefix:     u.prefixLocked(),
		Channel:    ch.Name,
		Recipients: d.membersLocked(ch, ""),
	}
	d.leaveLocked(u)
	return res, nil
}

// KickResult is the outcome of Kick.
type KickResult struct {
	Prefix  proto.Prefix
	Channel string
	Target  string
	// Recipients are the members just before the removal, the target included.
	Recipients []*User
}

// Kick removes the user holding nick from the channel on behalf of u, who
// must be the channel operator.
func (d *Directory) Kick(u *User, channel, nick string) (KickResult, error) {
	d.usersMu.Lock()
	defer d.usersMu.Unlock()
	d.channelsMu.Lock()
	defer d.channelsMu.Unlock()

	ch, ok := d.channels[channel]
	if !ok {
		return KickResult{}, errNoSuchChannel(channel)
	}
	if ch.Operator != u.ID {
		return KickResult{}, errChanOPrivsNeeded(channel)
	}
	targetID, ok := d.nicks[nick]
	if !ok {
		return KickResult{}, errNoSuchNick(nick)
	}
	target := d.users[targetID]
	if target == nil {
		d.fault("nickname %s maps to unknown user %s", nick, targetID)
	}
	if !ch.has(targetID) || target.channel != ch.Name {
		return KickResult{}, errUserNotInChannel(nick, channel)
	}

	res := KickResult{
		Prefix:     u.prefixLocked(),
		Channel:    ch.Name,
		Target:     target.nick,
		Recipients: d.membersLocked(ch, ""),
	}
	d.leaveLocked(target)
	return res, nil
}

// Route resolves a PRIVMSG target for u. For a nickname it returns that one
// user and its away message, if any; for a channel every member but u.
func (d *Directory) Route(u *User, target string) (recipients []*User, away string, err error) {
	d.usersMu.RLock()
	defer d.usersMu.RUnlock()

	if strings.HasPrefix(target, "#") {
		d.channelsMu.RLock()
		defer d.channelsMu.RUnlock()
		ch, ok := d.channels[target]
		if !ok {
			return nil, "", errNoSuchChannel(target)
		}
		if u.channel != ch.Name {
			return nil, "", errCannotSendToChan(target)
		}
		return d.membersLocked(ch, u.ID), "", nil
	}

	id, ok := d.nicks[target]
	if !ok {
		return nil, "", errNoSuchNick(target)
	}
	r := d.users[id]
	if r == nil {
		d.fault("nickname %s maps to unknown user %s", target, id)
	}
	if r.isAway {
		away = r.away
	}
	return []*User{r}, away, nil
}

// AwayResult is the outcome of SetAway.
type AwayResult struct {
	Prefix proto.Prefix
	// Recipients are the other members of the user's channel.
	Recipients []*User
}

// SetAway marks u as away with message, or back when message is empty.
func (d *Directory) SetAway(u *User, message string) AwayResult {
	d.usersMu.Lock()
	defer d.usersMu.Unlock()

	u.away = message
	u.isAway = message != ""
	res := AwayResult{Prefix: u.prefixLocked()}
	if u.channel == "" {
		return res
	}

	d.channelsMu.RLock()
	defer d.channelsMu.RUnlock()
	ch, ok := d.channels[u.channel]
	if !ok {
		d.fault("user %s references missing channel %s", u.ID, u.channel)
	}
	res.Recipients = d.membersLocked(ch, u.ID)
	return res
}

// QuitResult is the outcome of Quit.
type QuitResult struct {
	Prefix        proto.Prefix
	WasRegistered bool
	// Recipients is every other connected user.
	Recipients []*User
}

// Quit removes u from the user table and from its channel. It reports false
// if u was already gone, so teardown happens once.
func (d *Directory) Quit(u *User) (QuitResult, bool) {
	d.usersMu.Lock()
	defer d.usersMu.Unlock()
	d.channelsMu.Lock()
	defer d.channelsMu.Unlock()

	if d.users[u.ID] != u {
		return QuitResult{}, false
	}
	res := QuitResult{
		Prefix:        u.prefixLocked(),
		WasRegistered: u.state == StateRegistered,
	}
	if u.channel != "" {
		d.leaveLocked(u)
	}
	d.removeUserLocked(u.ID)
	u.state = StateClosing
	res.Recipients = d.allUsersLocked(u.ID)
	return res, true
}
