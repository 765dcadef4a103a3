package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirechat-irc/internal/proto"
)

func TestRegistrationWelcome(t *testing.T) {
	e := newTestEngine(t)

	c := connect(t, e)
	c.send("USER a a a :Alice Liddell")
	c.expectNothing()
	c.send("NICK alice")
	c.expect(":server 001 alice :Welcome to the Internet Relay Network alice!a@a")

	c.send("USER a a a :again")
	c.expect(":server 462 alice :You may not reregister")
}

func TestCommandsRequireRegistration(t *testing.T) {
	e := newTestEngine(t)

	c := connect(t, e)
	c.send("JOIN #test")
	c.expect(":server 451 * :You have not registered")

	c.send("NICK alice")
	c.expectNothing()
	c.send("PRIVMSG bob :hi")
	c.expect(":server 451 alice :You have not registered")

	assert.Empty(t, e.Directory().List())
}

func TestNickValidation(t *testing.T) {
	e := newTestEngine(t)
	register(t, e, "alice")

	c := connect(t, e)
	c.send("NICK")
	c.expect(":server 431 * :No nickname given")
	c.send("NICK 9lives")
	c.expect(":server 432 * 9lives :Erroneous nickname")
	c.send("NICK alice")
	c.expect(":server 433 * alice :Nickname is already in use")
}

// Nicknames held by connections that have not finished registering are
// still reserved.
func TestNickReservedBeforeRegistration(t *testing.T) {
	e := newTestEngine(t)

	first := connect(t, e)
	first.send("NICK alice")
	require.Eventually(t, func() bool {
		_, ok := e.Directory().FindUserByNickname("alice")
		return ok
	}, waitTimeout, 10*time.Millisecond)

	second := connect(t, e)
	second.send("NICK alice")
	second.expect(":server 433 * alice :Nickname is already in use")
}

func TestNickChangeBroadcast(t *testing.T) {
	e := newTestEngine(t)
	alice := register(t, e, "alice")
	bob := register(t, e, "bob")

	alice.send("NICK carol")
	alice.expect(":alice!alice@alice NICK carol")
	bob.expect(":alice!alice@alice NICK carol")

	bob.send("PRIVMSG carol :hello")
	alice.expect(":bob!bob@bob PRIVMSG carol :hello")

	// Re-sending the current nickname is a no-op.
	alice.send("NICK carol")
	alice.expectNothing()

	_, ok := e.Directory().FindUserByNickname("alice")
	assert.False(t, ok)
}

func TestJoinBroadcast(t *testing.T) {
	e := newTestEngine(t)
	alice := register(t, e, "alice")
	bob := register(t, e, "bob")

	alice.send("JOIN #test")
	alice.expect(":alice!alice@alice JOIN #test")

	bob.send("JOIN #test")
	bob.expect(":bob!bob@bob JOIN #test")
	alice.expect(":bob!bob@bob JOIN #test")

	// Joining the current channel again does nothing.
	bob.send("JOIN #test")
	bob.expectNothing()
	alice.expectNothing()

	ch, ok := e.Directory().Channel("#test")
	require.True(t, ok)
	assert.Len(t, e.Directory().SnapshotChannelMembers(ch), 2)
}

func TestJoinInvalidChannel(t *testing.T) {
	e := newTestEngine(t)
	alice := register(t, e, "alice")

	alice.send("JOIN")
	alice.expect(":server 461 alice JOIN :Not enough parameters")
	alice.send("JOIN test")
	alice.expect(":server 403 alice test :No such channel")
	assert.Zero(t, e.Directory().ChannelCount())
}

func TestJoinLeavesPreviousChannel(t *testing.T) {
	e := newTestEngine(t)
	alice := register(t, e, "alice")
	bob := register(t, e, "bob")

	alice.send("JOIN #a")
	alice.expect(":alice!alice@alice JOIN #a")
	bob.send("JOIN #a")
	bob.expect(":bob!bob@bob JOIN #a")
	alice.expect(":bob!bob@bob JOIN #a")

	alice.send("JOIN #b")
	alice.expect(":alice!alice@alice PART #a")
	alice.expect(":alice!alice@alice JOIN #b")
	bob.expect(":alice!alice@alice PART #a")
	bob.expectNothing()

	assert.Equal(t, "#b", e.Directory().CurrentChannel(lookupUser(t, e, "alice")))
	a, ok := e.Directory().Channel("#a")
	require.True(t, ok)
	assert.Len(t, e.Directory().SnapshotChannelMembers(a), 1)
}

func TestPrivMsgChannelDoesNotEcho(t *testing.T) {
	e := newTestEngine(t)
	alice := register(t, e, "alice")
	bob := register(t, e, "bob")
	carol := register(t, e, "carol")

	alice.send("JOIN #test")
	alice.expect(":alice!alice@alice JOIN #test")
	bob.send("JOIN #test")
	bob.expect(":bob!bob@bob JOIN #test")
	alice.expect(":bob!bob@bob JOIN #test")

	alice.send("PRIVMSG #test :hello everyone")
	bob.expect(":alice!alice@alice PRIVMSG #test :hello everyone")
	alice.expectNothing()
	carol.expectNothing()

	carol.send("PRIVMSG #test :let me in")
	carol.expect(":server 404 carol #test :Cannot send to channel")
}

func TestPrivMsgErrors(t *testing.T) {
	e := newTestEngine(t)
	alice := register(t, e, "alice")

	alice.send("PRIVMSG")
	alice.expect(":server 411 alice :No recipient given (PRIVMSG)")
	alice.send("PRIVMSG bob")
	alice.expect(":server 412 alice :No text to send")
	alice.send("PRIVMSG bob :hi")
	alice.expect(":server 401 alice bob :No such nick/channel")
	alice.send("PRIVMSG #nowhere :hi")
	alice.expect(":server 403 alice #nowhere :No such channel")
}

func TestAway(t *testing.T) {
	e := newTestEngine(t)
	alice := register(t, e, "alice")
	bob := register(t, e, "bob")

	alice.send("JOIN #test")
	alice.expect(":alice!alice@alice JOIN #test")
	bob.send("JOIN #test")
	bob.expect(":bob!bob@bob JOIN #test")
	alice.expect(":bob!bob@bob JOIN #test")

	alice.send("AWAY :gone to lunch")
	alice.expect(":server 306 alice :You have been marked as being away")
	bob.expect(":alice!alice@alice AWAY :gone to lunch")

	bob.send("PRIVMSG alice :are you there")
	bob.expect(":server 301 bob alice :gone to lunch")
	alice.expect(":bob!bob@bob PRIVMSG alice :are you there")

	alice.send("AWAY")
	alice.expect(":server 305 alice :You are no longer marked as being away")
	bob.expect(":alice!alice@alice AWAY")

	bob.send("PRIVMSG alice :welcome back")
	alice.expect(":bob!bob@bob PRIVMSG alice :welcome back")
	bob.expectNothing()
}

func TestKickThenPart(t *testing.T) {
	e := newTestEngine(t)
	alice := register(t, e, "alice")
	bob := register(t, e, "bob")

	alice.send("JOIN #test")
	alice.expect(":alice!alice@alice JOIN #test")
	bob.send("JOIN #test")
	bob.expect(":bob!bob@bob JOIN #test")
	alice.expect(":bob!bob@bob JOIN #test")

	alice.send("KICK #test bob :behave")
	alice.expect(":alice!alice@alice KICK #test bob :behave")
	bob.expect(":alice!alice@alice KICK #test bob :behave")

	bob.send("PART #test")
	bob.expect(":server 441 bob bob #test :They aren't on that channel")

	alice.send("LIST")
	alice.expect(":server 322 alice #test 1 :")
	alice.expect(":server 323 alice :End of LIST")
}

func TestKickRequiresOperator(t *testing.T) {
	e := newTestEngine(t)
	alice := register(t, e, "alice")
	bob := register(t, e, "bob")

	alice.send("JOIN #test")
	alice.expect(":alice!alice@alice JOIN #test")
	bob.send("JOIN #test")
	bob.expect(":bob!bob@bob JOIN #test")
	alice.expect(":bob!bob@bob JOIN #test")

	bob.send("KICK #test alice")
	bob.expect(":server 482 bob #test :You're not channel operator")
	alice.expectNothing()

	alice.send("KICK #test nobody")
	alice.expect(":server 401 alice nobody :No such nick/channel")
	alice.send("KICK #other bob")
	alice.expect(":server 403 alice #other :No such channel")
	alice.send("KICK #test")
	alice.expect(":server 461 alice KICK :Not enough parameters")

	ch, ok := e.Directory().Channel("#test")
	require.True(t, ok)
	assert.Len(t, e.Directory().SnapshotChannelMembers(ch), 2)
}

func TestKickDefaultReason(t *testing.T) {
	e := newTestEngine(t)
	alice := register(t, e, "alice")
	bob := register(t, e, "bob")

	alice.send("JOIN #test")
	alice.expect(":alice!alice@alice JOIN #test")
	bob.send("JOIN #test")
	bob.expect(":bob!bob@bob JOIN #test")
	alice.expect(":bob!bob@bob JOIN #test")

	alice.send("KICK #test bob")
	bob.expect(":alice!alice@alice KICK #test bob :alice")
}

func TestPartCleansUpEmptyChannel(t *testing.T) {
	e := newTestEngine(t)
	alice := register(t, e, "alice")

	alice.send("PART")
	alice.expect(":server 441 alice alice * :They aren't on that channel")
	alice.send("PART #none")
	alice.expect(":server 403 alice #none :No such channel")

	alice.send("JOIN #solo")
	alice.expect(":alice!alice@alice JOIN #solo")
	alice.send("PART #solo :done here")
	alice.expect(":alice!alice@alice PART #solo :done here")

	alice.send("LIST")
	alice.expect(":server 323 alice :End of LIST")
	_, ok := e.Directory().Channel("#solo")
	assert.False(t, ok)
}

func TestListSortedByName(t *testing.T) {
	e := newTestEngine(t)
	alice := register(t, e, "alice")
	bob := register(t, e, "bob")

	bob.send("JOIN #zeta")
	bob.expect(":bob!bob@bob JOIN #zeta")
	alice.send("JOIN #alpha")
	alice.expect(":alice!alice@alice JOIN #alpha")

	alice.send("LIST")
	alice.expect(":server 322 alice #alpha 1 :")
	alice.expect(":server 322 alice #zeta 1 :")
	alice.expect(":server 323 alice :End of LIST")
}

func TestQuitBroadcastsServerWide(t *testing.T) {
	e := newTestEngine(t)
	alice := register(t, e, "alice")
	bob := register(t, e, "bob")
	carol := register(t, e, "carol")

	alice.send("JOIN #test")
	alice.expect(":alice!alice@alice JOIN #test")
	bob.send("JOIN #test")
	bob.expect(":bob!bob@bob JOIN #test")
	alice.expect(":bob!bob@bob JOIN #test")

	alice.send("QUIT :bye")
	alice.expect("ERROR :Closing Link: alice (bye)")
	bob.expect(":alice!alice@alice QUIT :bye")
	carol.expect(":alice!alice@alice QUIT :bye")
	alice.waitClosed()

	_, ok := e.Directory().FindUserByNickname("alice")
	assert.False(t, ok)
	assert.Equal(t, 2, e.Directory().UserCount())

	ch, ok := e.Directory().Channel("#test")
	require.True(t, ok)
	assert.Len(t, e.Directory().SnapshotChannelMembers(ch), 1)
}

func TestQuitDefaultReason(t *testing.T) {
	e := newTestEngine(t)
	alice := register(t, e, "alice")
	bob := register(t, e, "bob")

	alice.send("QUIT")
	alice.expect("ERROR :Closing Link: alice (Client Quit)")
	bob.expect(":alice!alice@alice QUIT :Client Quit")
}

func TestQuitBeforeRegistrationIsSilent(t *testing.T) {
	e := newTestEngine(t)
	bob := register(t, e, "bob")

	c := connect(t, e)
	c.send("NICK alice")
	c.send("QUIT")
	c.expect("ERROR :Closing Link: alice (Client Quit)")
	c.waitClosed()
	bob.expectNothing()
}

func TestTransportCloseCleansUp(t *testing.T) {
	e := newTestEngine(t)
	alice := register(t, e, "alice")
	bob := register(t, e, "bob")

	bob.send("JOIN #test")
	bob.expect(":bob!bob@bob JOIN #test")

	_ = bob.conn.Close()
	alice.expect(":bob!bob@bob QUIT :Connection closed")
	bob.waitClosed()

	assert.Equal(t, 1, e.Directory().UserCount())
	assert.Zero(t, e.Directory().ChannelCount())
}

func TestPingPong(t *testing.T) {
	e := newTestEngine(t)
	alice := register(t, e, "alice")

	alice.send("PING :abc123")
	alice.expect(":server PONG server :abc123")
	alice.send("PING")
	alice.expect(":server 409 alice :No origin specified")
	alice.send("PONG :whatever")
	alice.expectNothing()
}

func TestUnknownCommand(t *testing.T) {
	e := newTestEngine(t)
	alice := register(t, e, "alice")

	alice.send("FOO bar")
	alice.expect(":server 421 alice FOO :Unknown command")
	alice.send("ERROR :spoofed")
	alice.expect(":server 421 alice ERROR :Unknown command")
	alice.send("001 alice :spoofed")
	alice.expect(":server 421 alice 001 :Unknown command")
}

func TestMalformedLinesIgnored(t *testing.T) {
	e := newTestEngine(t)
	alice := register(t, e, "alice")

	alice.send("")
	alice.send("   ")
	alice.send(":prefixonly")
	alice.expectNothing()

	alice.send("PING :still-here")
	alice.expect(":server PONG server :still-here")
}

func TestEmbeddedLineBreakCannotForgeLines(t *testing.T) {
	e := newTestEngine(t)
	alice := register(t, e, "alice")
	bob := register(t, e, "bob")

	alice.send("PRIVMSG bob :hi\r\n:server 001 bob :forged by alice")
	alice.send("PRIVMSG bob :a\x00b")
	bob.expectNothing()

	alice.send("PRIVMSG bob :plain")
	bob.expect(":alice!alice@alice PRIVMSG bob :plain")
}

func TestRepliesToHostileArgumentsRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	alice := register(t, e, "alice")
	alice.send("JOIN #test")
	alice.expect(":alice!alice@alice JOIN #test")

	tests := []struct {
		line string
		want string
	}{
		{line: "NICK :a b", want: ":server 432 alice a :Erroneous nickname"},
		{line: "NICK ::x", want: ":server 432 alice x :Erroneous nickname"},
		{line: "JOIN :#a b", want: ":server 403 alice #a :No such channel"},
		{line: "KICK #test :b c", want: ":server 401 alice b :No such nick/channel"},
	}

	for _, tt := range tests {
		alice.send(tt.line)
		line, ok := alice.next()
		require.True(t, ok, "no reply to %q", tt.line)
		assert.Equal(t, tt.want, line)

		m, err := proto.Parse(line)
		require.NoError(t, err)
		assert.Equal(t, line, m.String(), "reply to %q must re-parse the same", tt.line)
	}
}

// Flooding a client that never reads must drop that client only.
func TestSendQueueOverflowDisconnects(t *testing.T) {
	e := NewEngine(Config{ServerName: "server", SendQueue: 2}, nil, nil, nil)

	stalled := newPipeConn("127.0.0.1:40001")
	stalled.stall = true
	alice := connectConn(t, e, stalled)
	alice.send("NICK alice")
	alice.send("USER alice alice alice :alice")
	alice.send("JOIN #flood")
	require.Eventually(t, func() bool {
		id, ok := e.Directory().FindUserByNickname("alice")
		if !ok {
			return false
		}
		u, ok := e.Directory().User(id)
		return ok && e.Directory().CurrentChannel(u) == "#flood"
	}, waitTimeout, 10*time.Millisecond)

	bob := register(t, e, "bob")
	bob.send("JOIN #flood")
	bob.expect(":bob!bob@bob JOIN #flood")

	// Channel traffic yields no replies to bob, so only alice's queue fills.
	for range 5 {
		bob.send("PRIVMSG #flood :flood")
	}
	bob.expect(":alice!alice@alice QUIT :Max SendQ exceeded")
	alice.waitClosed()

	_, ok := e.Directory().FindUserByNickname("alice")
	assert.False(t, ok)

	bob.send("PING :alive")
	bob.expect(":server PONG server :alive")
}

func TestShutdownClosesSessions(t *testing.T) {
	e := newTestEngine(t)
	alice := register(t, e, "alice")
	bob := register(t, e, "bob")

	e.Shutdown("Server shutting down")
	alice.waitFor("ERROR :Closing Link: alice (Server shutting down)")
	bob.waitFor("ERROR :Closing Link: bob (Server shutting down)")
	alice.waitClosed()
	bob.waitClosed()

	assert.Zero(t, e.Directory().UserCount())
	assert.Empty(t, e.Stats().Channels)
}

func lookupUser(t *testing.T, e *Engine, nick string) *User {
	t.Helper()
	id, ok := e.Directory().FindUserByNickname(nick)
	require.True(t, ok)
	u, ok := e.Directory().User(id)
	require.True(t, ok)
	return u
}
