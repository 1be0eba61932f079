package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/livecap/livecap/pkg/client"
)

// StartFlags holds flags for the start command.
type StartFlags struct {
	StreamURL  string
	AutoRecord bool
	Protocol   string
	Resolution string
}

func createStartCommand(flags *GlobalFlags) *cobra.Command {
	startFlags := &StartFlags{}
	cmd := &cobra.Command{
		Use:   "start <url>",
		Short: "Start recording a channel",
		Long: `Start recording a live channel. Without --stream-url the daemon
resolves the channel and picks a stream matching --protocol/--resolution.

Examples:
  livecap start https://live.douyin.com/123456
  livecap start https://www.tiktok.com/@user/live --auto-record
  livecap start https://live.douyin.com/123456 --stream-url=http://cdn/x.flv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(flags)
			status, err := c.StartRecording(context.Background(), client.StartRequest{
				URL:        args[0],
				StreamURL:  startFlags.StreamURL,
				AutoRecord: startFlags.AutoRecord,
				Protocol:   startFlags.Protocol,
				Resolution: startFlags.Resolution,
			})
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", args[0], status)
			return nil
		},
	}
	cmd.Flags().StringVar(&startFlags.StreamURL, "stream-url", "", "explicit stream URL (skip resolving)")
	cmd.Flags().BoolVar(&startFlags.AutoRecord, "auto-record", false, "also create a plan so the channel is re-captured when it goes live")
	cmd.Flags().StringVar(&startFlags.Protocol, "protocol", "Flv", "preferred stream protocol (Flv or Hls)")
	cmd.Flags().StringVar(&startFlags.Resolution, "resolution", "", "preferred stream resolution")
	return cmd
}

func createStopCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <url>",
		Short: "Stop recording a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(flags)
			status, err := c.StopRecording(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", args[0], status)
			return nil
		},
	}
}

func createStopAllCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stop-all",
		Short: "Stop every active recording",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient(flags).StopAll(context.Background()); err != nil {
				return err
			}
			fmt.Println("all recordings stopped")
			return nil
		},
	}
}

func createStatusCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status <url>",
		Short: "Show the recording state of a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(flags)
			status, err := c.RecordingStatus(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", args[0], status)
			return nil
		},
	}
}

func createResolveCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <url>",
		Short: "Resolve the live state of a channel",
		Long: `Ask the daemon to resolve a channel right now and print the anchor,
broadcast state, and the candidate stream URLs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(flags)
			live, err := c.ResolveLive(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("anchor:  %s\nstatus:  %s\ntitle:   %s\nviewers: %s\n",
				live.AnchorName, live.Status, live.Title, live.ViewerCount)
			if len(live.Streams) > 0 {
				rows := make([][]string, 0, len(live.Streams))
				for _, s := range live.Streams {
					rows = append(rows, []string{s.Protocol, s.Resolution, s.URL})
				}
				fmt.Println(renderTable([]string{"Protocol", "Resolution", "URL"}, rows, nil))
			}
			return nil
		},
	}
}
