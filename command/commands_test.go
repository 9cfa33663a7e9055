package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"confessbot/handler"
)

func TestPing(t *testing.T) {
	h := Ping(func() time.Duration { return 42 * time.Millisecond })

	directives, err := h(context.Background(), handler.Event{Type: handler.EventCommand, Command: "ping"})
	require.NoError(t, err)
	require.Len(t, directives, 1)

	resp, ok := directives[0].(handler.Respond)
	require.True(t, ok)
	assert.Equal(t, "Pong! API Latency: 42ms", resp.Message.Content)
	assert.False(t, resp.Private)
}

func TestAllCommandsAreRouted(t *testing.T) {
	r := handler.NewRouter(nil, nil, handler.Options{}, nil)
	Register(r, func() time.Duration { return 0 })

	for _, cmd := range AllCommands {
		_, err := r.Route(context.Background(), handler.Event{Type: handler.EventCommand, Command: cmd.Name})
		assert.NoError(t, err, cmd.Name)
	}
}
