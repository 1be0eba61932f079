package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// ConfigSetFlags holds flags for config set.
type ConfigSetFlags struct {
	FFmpegPath        string
	SavePath          string
	LiveCheckInterval uint64
}

func createConfigCommand(flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and change the daemon's runtime settings",
	}
	cmd.AddCommand(
		createConfigGetCommand(flags),
		createConfigSetCommand(flags),
	)
	return cmd
}

func createConfigGetCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the stored settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := newClient(flags).GetConfig(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("ffmpeg path:         %s\n", cfg.FFmpegPath)
			fmt.Printf("save path:           %s\n", cfg.SavePath)
			fmt.Printf("live check interval: %ds\n", cfg.LiveCheckInterval)
			if cfg.FFmpegVersion != "" {
				fmt.Printf("ffmpeg version:      %s\n", cfg.FFmpegVersion)
			}
			return nil
		},
	}
}

func createConfigSetCommand(flags *GlobalFlags) *cobra.Command {
	setFlags := &ConfigSetFlags{}
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change stored settings",
		Long: `Change one or more runtime settings. Unset flags keep their current
value. The poll interval change takes effect on the next cycle.

Examples:
  livecap config set --save-path=/srv/recordings
  livecap config set --ffmpeg-path=/usr/local/bin/ffmpeg --interval=30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(flags)
			ctx := context.Background()
			cfg, err := c.GetConfig(ctx)
			if err != nil {
				return err
			}
			if setFlags.FFmpegPath != "" {
				cfg.FFmpegPath = setFlags.FFmpegPath
			}
			if setFlags.SavePath != "" {
				cfg.SavePath = setFlags.SavePath
			}
			if setFlags.LiveCheckInterval != 0 {
				cfg.LiveCheckInterval = setFlags.LiveCheckInterval
			}
			if err := c.SetConfig(ctx, cfg); err != nil {
				return err
			}
			fmt.Println("config updated")
			return nil
		},
	}
	cmd.Flags().StringVar(&setFlags.FFmpegPath, "ffmpeg-path", "", "path to the ffmpeg binary")
	cmd.Flags().StringVar(&setFlags.SavePath, "save-path", "", "root directory for recordings")
	cmd.Flags().Uint64Var(&setFlags.LiveCheckInterval, "interval", 0, "seconds between poller cycles")
	return cmd
}
