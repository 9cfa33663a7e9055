package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"confessbot/apperr"
	"confessbot/command"
	"confessbot/confession"
	"confessbot/db"
	"confessbot/gateway"
	"confessbot/handler"
	"confessbot/health"
	"confessbot/model"
	"confessbot/reconciler"
	"confessbot/utils"
)

// Bot owns the store, the Discord session and everything wired between them.
type Bot struct {
	cfg     *model.Config
	log     *zap.Logger
	store   *db.Store
	session *discordgo.Session
	gateway *gateway.Discord
	router  *handler.Router
	health  *health.Server
}

// New opens the store and builds the session. Nothing talks to Discord yet.
func New(cfg *model.Config, log *zap.Logger) (*Bot, error) {
	store, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	// 使用提供的机器人令牌创建一个新的 Discord 会话
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create discord session: %w", err)
	}

	b := &Bot{
		cfg:     cfg,
		log:     log,
		store:   store,
		session: session,
		gateway: gateway.NewDiscord(session, cfg.Gateway.Timeout, log.Named("gateway")),
	}

	if cfg.GRPC.Address != "" {
		b.health, err = health.New(cfg.GRPC.Address, log.Named("health"))
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	svc := confession.NewService(store, log.Named("confession"))
	b.router = handler.NewRouter(svc, b.gateway, handler.Options{
		ModerationChannelID: cfg.Confession.ModerationChannelID,
		PublicChannelID:     cfg.Confession.ChannelID,
		ThreadPrefix:        cfg.Confession.ThreadPrefix,
		CanModerate:         utils.NewModeratorCheck(cfg.Commands.Auth),
	}, log.Named("router"))
	command.Register(b.router, session.HeartbeatLatency)

	return b, nil
}

// Run connects to Discord and serves interactions until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	defer b.store.Close()

	g, ctx := errgroup.WithContext(ctx)
	if b.health != nil {
		g.Go(func() error { return b.health.Serve(ctx) })
		if b.cfg.GRPC.CheckInterval > 0 {
			g.Go(func() error { return b.health.Watch(ctx, b.cfg.GRPC.CheckInterval, b.store.Ping) })
		}
	}

	g.Go(func() error {
		if err := b.start(ctx); err != nil {
			return err
		}
		defer b.session.Close()

		if b.health != nil {
			b.health.SetServing()
		}
		b.log.Info("bot is now running")

		<-ctx.Done()

		if b.health != nil {
			b.health.SetNotServing()
		}
		b.log.Info("shutting down")
		return nil
	})

	return g.Wait()
}

func (b *Bot) start(ctx context.Context) error {
	registerEventHandlers(ctx, b.session, b)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord connection: %w", err)
	}

	if len(b.cfg.Commands.Allowguilds) > 0 {
		if err := command.Publish(ctx, b.session, b.gateway.SelfID(), b.cfg.Commands.Allowguilds, b.log); err != nil {
			b.log.Error("failed to register commands", zap.Error(err))
		}
	}

	rec := reconciler.New(b.gateway, b.cfg.Confession.PromptTitle, b.log.Named("reconciler"))
	if _, err := rec.EnsurePrompt(ctx, b.cfg.Confession.ChannelID); err != nil {
		if apperr.Is(err, apperr.Storage) {
			b.session.Close()
			return err
		}
		b.log.Error("failed to ensure submission prompt",
			zap.String("channel_id", b.cfg.Confession.ChannelID),
			zap.Error(err),
		)
	}

	b.reportUnpublished(ctx)
	return nil
}

// reportUnpublished lists approved confessions whose public post failed so an
// operator can repost them.
func (b *Bot) reportUnpublished(ctx context.Context) {
	ids, err := b.store.ListUnpublished(ctx)
	if err != nil {
		b.log.Error("failed to list unpublished confessions", zap.Error(err))
		return
	}
	if len(ids) > 0 {
		b.log.Error("approved confessions were never published", zap.Int64s("submission_ids", ids))
	}
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.log.Info("logged in",
		zap.String("user", r.User.Username),
		zap.Int("guilds", len(r.Guilds)),
	)
	if err := s.UpdateListeningStatus(b.cfg.Confession.Status); err != nil {
		b.log.Warn("failed to update presence", zap.Error(err))
	}
}

// RegisterCommands publishes the slash commands to the configured guilds
// without starting the bot.
func RegisterCommands(ctx context.Context, cfg *model.Config, log *zap.Logger) error {
	if len(cfg.Commands.Allowguilds) == 0 {
		return fmt.Errorf("commands.allowguilds is empty")
	}

	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}

	me, err := s.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("fetch bot user: %w", err)
	}
	return command.Publish(ctx, s, me.ID, cfg.Commands.Allowguilds, log)
}
