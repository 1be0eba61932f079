package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := buildRoot().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds persistent flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string
	APIUrl     string
	APITimeout time.Duration
}

func buildRoot() *cobra.Command {
	flags := &GlobalFlags{}
	root := createRootCommand(flags)
	root.AddCommand(
		createServeCommand(flags),
		createStartCommand(flags),
		createStopCommand(flags),
		createStopAllCommand(flags),
		createStatusCommand(flags),
		createResolveCommand(flags),
		createPlanCommand(flags),
		createHistoryCommand(flags),
		createConfigCommand(flags),
		createVersionCommand(),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "livecap",
		Short: "Live stream recording daemon and client",
		Long: `Livecap records live streams with ffmpeg and keeps standing plans
that capture a channel automatically whenever it goes live.

Examples:
  livecap serve --config=livecap.toml
  livecap start https://live.douyin.com/123456
  livecap plan add https://live.douyin.com/123456 --protocol=Flv
  livecap history list`,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	root.PersistentFlags().StringVar(&flags.APIUrl, "api-url", "", "daemon URL (default http://127.0.0.1:9080)")
	root.PersistentFlags().DurationVar(&flags.APITimeout, "api-timeout", 30*time.Second, "request timeout")
	return root
}
