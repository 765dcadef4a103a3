package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"

	"github.com/vovakirdan/wirechat-irc/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8081/ws", "WebSocket gateway address")
	nick := flag.String("nick", "cli-user", "nickname")
	channel := flag.String("channel", "#general", "channel to join")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	for _, line := range []string{
		"NICK " + *nick,
		"USER " + *nick + " 0 * :" + *nick,
		"JOIN " + *channel,
	} {
		if err := conn.Write(ctx, websocket.MessageText, []byte(line)); err != nil {
			return fmt.Errorf("send: %w", err)
		}
	}

	fmt.Printf("Connected to %s as %s in %s\n", *addr, *nick, *channel)
	fmt.Println("Type messages and press Enter to send. Lines starting with / are sent raw (/PART, /LIST ...). Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn, *channel)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		msg, err := proto.Parse(string(data))
		if err != nil {
			continue
		}
		fmt.Println(render(msg))
	}
}

func render(m *proto.Message) string {
	who := m.Prefix.Name
	switch m.Command {
	case proto.CommandPrivMsg:
		return fmt.Sprintf("[%s] %s: %s", m.Arg(0), who, m.Trailing)
	case proto.CommandJoin:
		return fmt.Sprintf("[%s] %s joined", m.Arg(0), who)
	case proto.CommandPart:
		return fmt.Sprintf("[%s] %s left", m.Arg(0), who)
	case proto.CommandKick:
		return fmt.Sprintf("[%s] %s kicked %s (%s)", m.Arg(0), who, m.Arg(1), m.Trailing)
	case proto.CommandQuit:
		return fmt.Sprintf("%s quit (%s)", who, m.Trailing)
	case proto.CommandNumeric:
		return fmt.Sprintf("%s %s", m.Code, strings.Join(m.Args()[min(1, len(m.Args())):], " "))
	default:
		return m.String()
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, channel string) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			out := "PRIVMSG " + channel + " :" + text
			if raw, isRaw := strings.CutPrefix(text, "/"); isRaw {
				out = raw
			}
			if err := conn.Write(ctx, websocket.MessageText, []byte(out)); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}
