package proto

import "strings"

// Command identifies the verb of a message.
type Command int

const (
	// CommandUnknown is any verb outside the supported set.
	CommandUnknown Command = iota
	CommandUser
	CommandNick
	CommandJoin
	CommandPart
	CommandPrivMsg
	CommandList
	CommandAway
	CommandQuit
	CommandPing
	CommandPong
	CommandKick
	// CommandError is only authored by the server.
	CommandError
	// CommandNumeric marks a numeric reply; the code is in Message.Code.
	CommandNumeric
)

var commandNames = map[Command]string{
	CommandUser:    "USER",
	CommandNick:    "NICK",
	CommandJoin:    "JOIN",
	CommandPart:    "PART",
	CommandPrivMsg: "PRIVMSG",
	CommandList:    "LIST",
	CommandAway:    "AWAY",
	CommandQuit:    "QUIT",
	CommandPing:    "PING",
	CommandPong:    "PONG",
	CommandKick:    "KICK",
	CommandError:   "ERROR",
}

var commandsByName = func() map[string]Command {
	m := make(map[string]Command, len(commandNames))
	for c, name := range commandNames {
		m[name] = c
	}
	return m
}()

// LookupCommand maps a verb token to a Command. Matching is case-insensitive.
func LookupCommand(verb string) Command {
	if c, ok := commandsByName[strings.ToUpper(verb)]; ok {
		return c
	}
	return CommandUnknown
}

// String returns the wire verb. Unknown and numeric commands have no fixed verb.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	if c == CommandNumeric {
		return "NUMERIC"
	}
	return "UNKNOWN"
}
