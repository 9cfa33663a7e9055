package command

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"confessbot/command/def"
	"confessbot/handler"
)

// AllCommands contains all of the commands
var AllCommands = []*discordgo.ApplicationCommand{
	def.PingCommand,
}

// Ping answers with the current gateway heartbeat latency.
func Ping(latency func() time.Duration) handler.CommandHandler {
	return func(_ context.Context, _ handler.Event) ([]handler.Directive, error) {
		msg := fmt.Sprintf("Pong! API Latency: %dms", latency().Milliseconds())
		return []handler.Directive{handler.Respond{Message: handler.Text(msg)}}, nil
	}
}

// Register adds every command to the router.
func Register(r *handler.Router, latency func() time.Duration) {
	r.AddCommand(def.PingCommand.Name, Ping(latency))
}
