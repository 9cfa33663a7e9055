package command

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Publish overwrites the slash commands of every guild in guildIDs with
// AllCommands. It stops at the first guild that fails.
func Publish(ctx context.Context, s *discordgo.Session, appID string, guildIDs []string, log *zap.Logger) error {
	for _, guildID := range guildIDs {
		cmds, err := s.ApplicationCommandBulkOverwrite(appID, guildID, AllCommands, discordgo.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("register commands in guild %s: %w", guildID, err)
		}
		log.Info("commands registered", zap.String("guild_id", guildID), zap.Int("count", len(cmds)))
	}
	return nil
}
