package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"

	"github.com/vovakirdan/wirechat-irc/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8081/ws", "WebSocket gateway address")
	nick := flag.String("nick", "tester", "nickname to register")
	channel := flag.String("channel", "#general", "channel to join")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(line string) error {
		if err := conn.Write(ctx, websocket.MessageText, []byte(line)); err != nil {
			return fmt.Errorf("send %q: %w", line, err)
		}
		return nil
	}

	// await reads lines until one satisfies match; numeric errors abort.
	await := func(what string, match func(*proto.Message) bool) error {
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return fmt.Errorf("waiting for %s: %w", what, err)
			}
			fmt.Printf("<- %s\n", data)
			msg, err := proto.Parse(string(data))
			if err != nil {
				continue
			}
			if msg.Command == proto.CommandNumeric && msg.Code >= 400 {
				return fmt.Errorf("server rejected %s: %s", what, data)
			}
			if match(msg) {
				return nil
			}
		}
	}

	steps := []struct {
		line  string
		what  string
		match func(*proto.Message) bool
	}{
		{"NICK " + *nick, "", nil},
		{"USER " + *nick + " 0 * :smoke test", "welcome", func(m *proto.Message) bool {
			return m.Command == proto.CommandNumeric && m.Code == proto.RplWelcome
		}},
		{"JOIN " + *channel, "join", func(m *proto.Message) bool {
			return m.Command == proto.CommandJoin && m.Prefix.Name == *nick
		}},
		// A private message to ourselves comes back, channel messages do not.
		{"PRIVMSG " + *nick + " :" + *text, "echo", func(m *proto.Message) bool {
			return m.Command == proto.CommandPrivMsg && m.Trailing == *text
		}},
		{"QUIT :smoke done", "close", func(m *proto.Message) bool {
			return m.Command == proto.CommandError
		}},
	}

	for _, step := range steps {
		fmt.Printf("-> %s\n", step.line)
		if err := send(step.line); err != nil {
			return err
		}
		if step.match == nil {
			continue
		}
		if err := await(step.what, step.match); err != nil {
			return err
		}
	}

	fmt.Println("smoke test passed")
	return nil
}
