package core

import "strings"

// Channel groups the users joined under one name. Its fields are guarded by
// the Directory's channel-table lock.
type Channel struct {
	Name string
	// Operator is the identifier of the user who created the channel. It
	// never changes for the lifetime of the channel.
	Operator string
	members  map[string]struct{}
}

// NewChannel constructs a channel with no members.
func NewChannel(name, operator string) *Channel {
	return &Channel{
		Name:     name,
		Operator: operator,
		members:  make(map[string]struct{}),
	}
}

// add inserts a member. Returns true if newly added.
func (c *Channel) add(id string) bool {
	if _, exists := c.members[id]; exists {
		return false
	}
	c.members[id] = struct{}{}
	return true
}

// remove deletes a member. Returns true if removed.
func (c *Channel) remove(id string) bool {
	if _, exists := c.members[id]; !exists {
		return false
	}
	delete(c.members, id)
	return true
}

func (c *Channel) has(id string) bool {
	_, ok := c.members[id]
	return ok
}

func (c *Channel) empty() bool {
	return len(c.members) == 0
}

func (c *Channel) snapshot() []string {
	ids := make([]string, 0, len(c.members))
	for id := range c.members {
		ids = append(ids, id)
	}
	return ids
}

// ValidChannelName reports whether name can be joined.
func ValidChannelName(name string) bool {
	if len(name) < 2 || len(name) > 50 || name[0] != '#' {
		return false
	}
	return !strings.ContainsAny(name, " ,:\x07\r\n\x00")
}
