package core

import (
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-irc/internal/proto"
)

var validNickname = regexp.MustCompile("^[A-Za-z\\[\\]\\\\^_`{|}][A-Za-z0-9\\[\\]\\\\^_`{|}-]{0,29}$")

// ValidNickname reports whether nick may be set with NICK.
func ValidNickname(nick string) bool {
	return validNickname.MatchString(nick)
}

// Directory holds the user table and the channel table.
//
// Lock order: usersMu before channelsMu. Neither lock is held while
// writing to a socket; operations return snapshots of the recipients and
// the caller delivers after the locks are released.
type Directory struct {
	log *zerolog.Logger

	usersMu sync.RWMutex
	users   map[string]*User
	nicks   map[string]string // nickname -> user id

	channelsMu sync.RWMutex
	channels   map[string]*Channel
}

// ChannelInfo is one LIST entry.
type ChannelInfo struct {
	Name    string `json:"name"`
	Members int    `json:"members"`
}

// NewDirectory returns an empty directory.
func NewDirectory(logger *zerolog.Logger) *Directory {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Directory{
		log:      logger,
		users:    make(map[string]*User),
		nicks:    make(map[string]string),
		channels: make(map[string]*Channel),
	}
}

// fault reports a broken directory invariant. It never returns.
func (d *Directory) fault(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	d.log.Error().Str("fault", msg).Msg("directory invariant violated")
	panic("directory: " + msg)
}

// ==== user table ====

// RegisterUser adds a freshly accepted connection.
func (d *Directory) RegisterUser(u *User) {
	d.usersMu.Lock()
	defer d.usersMu.Unlock()
	if _, exists := d.users[u.ID]; exists {
		d.fault("identifier %s registered twice", u.ID)
	}
	u.state = StateRegistering
	d.users[u.ID] = u
}

// RemoveUser drops a user and its nickname from the user table. It touches
// the user table only: a user still in a channel stays in that member set,
// so session teardown goes through Quit.
func (d *Directory) RemoveUser(id string) (*User, bool) {
	d.usersMu.Lock()
	defer d.usersMu.Unlock()
	return d.removeUserLocked(id)
}

// usersMu held.
func (d *Directory) removeUserLocked(id string) (*User, bool) {
	u, ok := d.users[id]
	if !ok {
		return nil, false
	}
	delete(d.users, id)
	if u.nick != "" && d.nicks[u.nick] == id {
		delete(d.nicks, u.nick)
	}
	return u, true
}

// User looks a user up by identifier.
func (d *Directory) User(id string) (*User, bool) {
	d.usersMu.RLock()
	defer d.usersMu.RUnlock()
	u, ok := d.users[id]
	return u, ok
}

// FindUserByNickname returns the identifier holding nick.
func (d *Directory) FindUserByNickname(nick string) (string, bool) {
	d.usersMu.RLock()
	defer d.usersMu.RUnlock()
	id, ok := d.nicks[nick]
	return id, ok
}

// UserCount is the number of live connections.
func (d *Directory) UserCount() int {
	d.usersMu.RLock()
	defer d.usersMu.RUnlock()
	return len(d.users)
}

// Users returns a snapshot of every connected user.
func (d *Directory) Users() []*User {
	d.usersMu.RLock()
	defer d.usersMu.RUnlock()
	return d.allUsersLocked("")
}

// State returns the session state of u.
func (d *Directory) State(u *User) SessionState {
	d.usersMu.RLock()
	defer d.usersMu.RUnlock()
	return u.state
}

// Nick returns the nickname of u, or "" if none is set.
func (d *Directory) Nick(u *User) string {
	d.usersMu.RLock()
	defer d.usersMu.RUnlock()
	return u.nick
}

// Target returns the nickname of u for numeric replies, "*" before one is set.
func (d *Directory) Target(u *User) string {
	d.usersMu.RLock()
	defer d.usersMu.RUnlock()
	return u.targetLocked()
}

// Prefix returns the current nick!user@host of u.
func (d *Directory) Prefix(u *User) proto.Prefix {
	d.usersMu.RLock()
	defer d.usersMu.RUnlock()
	return u.prefixLocked()
}

// CurrentChannel returns the channel u belongs to, or "".
func (d *Directory) CurrentChannel(u *User) string {
	d.usersMu.RLock()
	defer d.usersMu.RUnlock()
	return u.channel
}

// ==== channel table ====

// Channel looks a channel up by name.
func (d *Directory) Channel(name string) (*Channel, bool) {
	d.channelsMu.RLock()
	defer d.channelsMu.RUnlock()
	ch, ok := d.channels[name]
	return ch, ok
}

// GetOrCreateChannel returns the named channel, creating it with creator as
// operator if it does not exist. Like the other channel primitives below it
// touches the channel table only and never a User's current channel; Join,
// Part and Kick combine them with the user side under both locks.
func (d *Directory) GetOrCreateChannel(name, creator string) (*Channel, bool) {
	d.channelsMu.Lock()
	defer d.channelsMu.Unlock()
	return d.getOrCreateChannelLocked(name, creator)
}

func (d *Directory) getOrCreateChannelLocked(name, creator string) (*Channel, bool) {
	if ch, ok := d.channels[name]; ok {
		return ch, false
	}
	ch := NewChannel(name, creator)
	d.channels[name] = ch
	return ch, true
}

// AddMember inserts id into the channel's member set. User.channel is not
// updated.
func (d *Directory) AddMember(ch *Channel, id string) {
	d.channelsMu.Lock()
	defer d.channelsMu.Unlock()
	d.addMemberLocked(ch, id)
}

// channelsMu held.
func (d *Directory) addMemberLocked(ch *Channel, id string) {
	ch.add(id)
}

// RemoveMember deletes id from the member set and reports whether the
// channel is now empty. User.channel is not updated and the channel stays
// in the table.
func (d *Directory) RemoveMember(ch *Channel, id string) bool {
	d.channelsMu.Lock()
	defer d.channelsMu.Unlock()
	_, empty := d.removeMemberLocked(ch, id)
	return empty
}

// channelsMu held.
func (d *Directory) removeMemberLocked(ch *Channel, id string) (removed, empty bool) {
	removed = ch.remove(id)
	return removed, ch.empty()
}

// DeleteChannelIfEmpty drops the channel from the table if it has no
// members. It reports whether the channel was deleted.
func (d *Directory) DeleteChannelIfEmpty(ch *Channel) bool {
	d.channelsMu.Lock()
	defer d.channelsMu.Unlock()
	return d.deleteChannelIfEmptyLocked(ch)
}

func (d *Directory) deleteChannelIfEmptyLocked(ch *Channel) bool {
	if !ch.empty() {
		return false
	}
	if d.channels[ch.Name] == ch {
		delete(d.channels, ch.Name)
	}
	return true
}

// SnapshotChannelMembers copies the member identifiers at this instant.
func (d *Directory) SnapshotChannelMembers(ch *Channel) []string {
	d.channelsMu.RLock()
	defer d.channelsMu.RUnlock()
	return ch.snapshot()
}

// ChannelCount is the number of existing channels.
func (d *Directory) ChannelCount() int {
	d.channelsMu.RLock()
	defer d.channelsMu.RUnlock()
	return len(d.channels)
}

// List returns every channel with its member count, sorted by name.
func (d *Directory) List() []ChannelInfo {
	d.channelsMu.RLock()
	defer d.channelsMu.RUnlock()
	infos := make([]ChannelInfo, 0, len(d.channels))
	for _, ch := range d.channels {
		infos = append(infos, ChannelInfo{Name: ch.Name, Members: len(ch.members)})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// ==== helpers, callers hold the locks noted ====

// usersMu held.
func (d *Directory) allUsersLocked(exclude string) []*User {
	users := make([]*User, 0, len(d.users))
	for id, u := range d.users {
		if id != exclude {
			users = append(users, u)
		}
	}
	return users
}

// usersMu and channelsMu held.
func (d *Directory) membersLocked(ch *Channel, exclude string) []*User {
	ids := ch.snapshot()
	users := make([]*User, 0, len(ids))
	for _, id := range ids {
		if id == exclude {
			continue
		}
		u, ok := d.users[id]
		if !ok {
			d.fault("channel %s lists unknown member %s", ch.Name, id)
		}
		users = append(users, u)
	}
	return users
}

// usersMu and channelsMu held.
func (d *Directory) leaveLocked(u *User) {
	ch, ok := d.channels[u.channel]
	if !ok {
		d.fault("user %s references missing channel %s", u.ID, u.channel)
	}
	removed, empty := d.removeMemberLocked(ch, u.ID)
	if !removed {
		d.fault("user %s not in member set of %s", u.ID, ch.Name)
	}
	if empty {
		d.deleteChannelIfEmptyLocked(ch)
	}
	u.channel = ""
}
