package core

import (
	"fmt"
	"testing"

	"github.com/vovakirdan/wirechat-irc/internal/proto"
)

// drainConn discards every write.
type drainConn struct{}

func (drainConn) ReadLine() (string, error)    { select {} }
func (drainConn) WriteLine(line []byte) error { return nil }
func (drainConn) RemoteAddr() string          { return "bench" }
func (drainConn) Transport() string           { return "bench" }
func (drainConn) Close() error                { return nil }

func benchmarkChannelBroadcast(b *testing.B, members int) {
	e := NewEngine(Config{ServerName: "server", SendQueue: 1 << 16}, nil, nil, nil)
	d := e.Directory()

	users := make([]*User, members)
	for i := range users {
		u := NewUser(fmt.Sprintf("u%d", i), drainConn{}, 1<<16)
		d.RegisterUser(u)
		nick := fmt.Sprintf("n%d", i)
		if _, err := d.SetNickname(u, nick); err != nil {
			b.Fatal(err)
		}
		if _, err := d.SetUser(u, nick, "host", nick); err != nil {
			b.Fatal(err)
		}
		d.Join(u, "#bench")
		users[i] = u
		go func(u *User) {
			for range u.out {
			}
		}(u)
	}

	b.Cleanup(func() {
		for _, u := range users {
			u.closeOutbound("done")
		}
	})

	msg, err := proto.Parse("PRIVMSG #bench :hello there")
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Handle(users[i%members], msg)
	}
}

func BenchmarkChannelBroadcast10(b *testing.B)   { benchmarkChannelBroadcast(b, 10) }
func BenchmarkChannelBroadcast100(b *testing.B)  { benchmarkChannelBroadcast(b, 100) }
func BenchmarkChannelBroadcast1000(b *testing.B) { benchmarkChannelBroadcast(b, 1000) }
