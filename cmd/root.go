package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/mc-webhooks/internal/config"
)

// NewRootCmd builds the command tree around cfg.
func NewRootCmd(cfg *config.AppConfig) *cobra.Command {
	root := &cobra.Command{
		Use:   "mc-webhooks",
		Short: "Minecraft server webhook receiver",
		Long: `Receive game-server webhooks, notify a Discord channel about player
activity and publish each event on Redis pub/sub.`,
		SilenceUsage: true,
	}
	root.AddCommand(NewServeCmd(cfg))
	root.AddCommand(NewNotifyTestCmd(cfg))
	root.AddCommand(NewVersionCmd())
	return root
}

// Execute runs the root command.
func Execute() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := NewRootCmd(cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
