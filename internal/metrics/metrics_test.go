package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	c := New()

	c.ConnectionOpened("tcp")
	c.ConnectionOpened("ws")
	c.ConnectionClosed()
	c.Command("JOIN")
	c.Command("JOIN")
	c.Reply("433")
	c.LineSent()
	c.SendQueueOverflow()
	c.SetChannels(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.connections))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.connectionsTotal.WithLabelValues("tcp")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.commands.WithLabelValues("JOIN")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.replies.WithLabelValues("433")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.linesSent))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.overflows))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.channels))

	families, err := c.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ConnectionOpened("tcp")
		c.ConnectionClosed()
		c.Command("NICK")
		c.Reply("001")
		c.LineSent()
		c.SendQueueOverflow()
		c.SetChannels(1)
	})
}
