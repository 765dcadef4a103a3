package proto

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MessageSize is the maximum length of a line on the wire, CRLF included.
const MessageSize = 1024

// ErrMalformedMessage is returned by Parse for input that carries no command.
var ErrMalformedMessage = errors.New("malformed message")

// Prefix identifies where a message originated: nickname[!username][@hostname],
// or a bare server name.
type Prefix struct {
	Name string
	User string
	Host string
}

// ParsePrefix splits a prefix token (without the leading colon).
func ParsePrefix(s string) Prefix {
	var p Prefix
	if i := strings.IndexByte(s, '@'); i >= 0 {
		p.Host = s[i+1:]
		s = s[:i]
	}
	if i := strings.IndexByte(s, '!'); i >= 0 {
		p.User = s[i+1:]
		s = s[:i]
	}
	p.Name = s
	return p
}

// IsZero reports whether the prefix is empty.
func (p Prefix) IsZero() bool {
	return p.Name == "" && p.User == "" && p.Host == ""
}

func (p Prefix) String() string {
	s := p.Name
	if p.User != "" {
		s += "!" + p.User
	}
	if p.Host != "" {
		s += "@" + p.Host
	}
	return s
}

// Message is one protocol line: [:<prefix> ]<COMMAND>[ <param>]*[ :<trailing>].
type Message struct {
	Prefix  Prefix
	Command Command
	// Code is set when Command is CommandNumeric.
	Code ReplyCode
	// Verb is the uppercased command token as received. It is what an unknown
	// command is reported as.
	Verb string

	Params      []string
	Trailing    string
	HasTrailing bool
}

// New builds a message with middle params only.
func New(prefix Prefix, cmd Command, params ...string) *Message {
	return &Message{Prefix: prefix, Command: cmd, Params: params}
}

// NewReply builds a numeric reply from the server.
func NewReply(server string, code ReplyCode, params ...string) *Message {
	return &Message{
		Prefix:  Prefix{Name: server},
		Command: CommandNumeric,
		Code:    code,
		Params:  params,
	}
}

// WithTrailing sets the trailing parameter and returns the message.
func (m *Message) WithTrailing(text string) *Message {
	m.Trailing = text
	m.HasTrailing = true
	return m
}

// Name is the token written in the command position.
func (m *Message) Name() string {
	switch {
	case m.Command == CommandNumeric:
		return m.Code.String()
	case m.Command != CommandUnknown:
		return m.Command.String()
	default:
		return m.Verb
	}
}

// Args returns the params with the trailing parameter appended, if any.
// Command handlers read arguments through it so `NICK alice` and
// `NICK :alice` are equivalent.
func (m *Message) Args() []string {
	if !m.HasTrailing {
		return m.Params
	}
	args := make([]string, 0, len(m.Params)+1)
	args = append(args, m.Params...)
	return append(args, m.Trailing)
}

// Arg returns the i-th argument or an empty string.
func (m *Message) Arg(i int) string {
	args := m.Args()
	if i < 0 || i >= len(args) {
		return ""
	}
	return args[i]
}

// String renders the message without the CRLF terminator.
func (m *Message) String() string {
	var b strings.Builder
	if !m.Prefix.IsZero() {
		b.WriteByte(':')
		b.WriteString(m.Prefix.String())
		b.WriteByte(' ')
	}
	b.WriteString(m.Name())
	for _, p := range m.Params {
		b.WriteByte(' ')
		b.WriteString(middle(p))
	}
	if m.HasTrailing {
		b.WriteString(" :")
		b.WriteString(m.Trailing)
	}
	return b.String()
}

// middle reduces p to a single middle token: leading colons are dropped,
// anything from the first space on is cut, and an empty result becomes "*".
func middle(p string) string {
	p = strings.TrimLeft(p, ":")
	if i := strings.IndexByte(p, ' '); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "*"
	}
	return p
}

// Bytes renders the message as a CRLF-terminated line, cutting it at a rune
// boundary if it would exceed MessageSize.
func (m *Message) Bytes() []byte {
	line := m.String()
	if limit := MessageSize - 2; len(line) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		line = line[:cut]
	}
	return append([]byte(line), '\r', '\n')
}

// Parse decodes a single line. The CRLF terminator is optional; a CR, LF or
// NUL anywhere else makes the line malformed. Unknown verbs
// are not an error: they come back as CommandUnknown so the caller can reply.
func Parse(line string) (*Message, error) {
	raw := strings.TrimRight(line, "\r\n")
	raw = strings.TrimLeft(raw, " ")
	if raw == "" || strings.ContainsAny(raw, "\r\n\x00") {
		return nil, ErrMalformedMessage
	}

	m := &Message{}
	if raw[0] == ':' {
		token, rest := nextToken(raw[1:])
		m.Prefix = ParsePrefix(token)
		raw = strings.TrimLeft(rest, " ")
	}

	verb, rest := nextToken(raw)
	if verb == "" {
		return nil, ErrMalformedMessage
	}
	m.Verb = strings.ToUpper(verb)
	if code, ok := parseNumeric(verb); ok {
		m.Command = CommandNumeric
		m.Code = code
	} else {
		m.Command = LookupCommand(verb)
	}

	for {
		rest = strings.TrimLeft(rest, " ")
		if rest == "" {
			break
		}
		if rest[0] == ':' {
			m.Trailing = rest[1:]
			m.HasTrailing = true
			break
		}
		var param string
		param, rest = nextToken(rest)
		m.Params = append(m.Params, param)
	}

	return m, nil
}

func nextToken(s string) (string, string) {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

func parseNumeric(s string) (ReplyCode, bool) {
	if len(s) != 3 {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return ReplyCode(n), true
}
