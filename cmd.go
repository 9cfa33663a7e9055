package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"confessbot/bot"
	"confessbot/config"
	"confessbot/logger"
	"confessbot/model"
)

type rootOptions struct {
	ConfigPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "confessbot",
		Short: "Anonymous confession relay for Discord",
		Long: `confessbot collects anonymous confessions through a form, queues them
for moderators and publishes approved ones as numbered threads.

Configuration is read from config.yaml (or --config) and the environment.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to config file (default ./config.yaml)")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newRegisterCommandsCommand(opts))
	return cmd
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "run",
		Short:         "Start the bot",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), opts)
		},
	}
}

func newRegisterCommandsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "register-commands",
		Short: "Publish slash commands to commands.allowguilds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(opts)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return bot.RegisterCommands(cmd.Context(), cfg, log)
		},
	}
}

func setup(opts *rootOptions) (*model.Config, *zap.Logger, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.Init(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func runBot(ctx context.Context, opts *rootOptions) error {
	cfg, log, err := setup(opts)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := bot.New(cfg, log)
	if err != nil {
		log.Error("failed to start", zap.Error(err))
		return err
	}
	return b.Run(ctx)
}
