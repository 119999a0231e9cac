package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deltabot/delta/internal/config"
	"github.com/deltabot/delta/internal/output"
	"github.com/deltabot/delta/internal/telegram"
	"github.com/deltabot/delta/internal/utils"
)

var (
	configPath string
	debug      bool
)

var DeltaVersion = "dev"

var rootCmd = &cobra.Command{
	Use:     "delta",
	Short:   "Delta is a Telegram video download bot",
	Version: DeltaVersion,
	Run: func(cmd *cobra.Command, args []string) {
		utils.InitLogger(debug)
		settings, err := config.Load(configPath)
		if err != nil {
			output.PrintError(fmt.Sprintf("Error loading config: %v", err))
			os.Exit(1)
		}
		if settings.BotToken == "" {
			output.PrintError("No bot token: set botToken in the config file or DELTA_BOT_TOKEN")
			os.Exit(1)
		}
		bot, err := telegram.NewBot(settings)
		if err != nil {
			output.PrintError(fmt.Sprintf("Error starting bot: %v", err))
			os.Exit(1)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		output.PrintSuccess("Bot is running, press Ctrl+C to stop")
		if err := bot.Run(ctx); err != nil && err != context.Canceled {
			output.PrintError(fmt.Sprintf("Bot stopped: %v", err))
			os.Exit(1)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "f", "delta.yaml", "Path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.AddCommand(newDownloadCmd())
}
