package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/livecap/livecap/pkg/client"
)

// PlanFlags holds flags for plan add.
type PlanFlags struct {
	Protocol   string
	Resolution string
	Disabled   bool
}

func createPlanCommand(flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage auto-record plans",
		Long: `A plan makes the daemon watch a channel and start recording whenever
it goes live.

Examples:
  livecap plan add https://live.douyin.com/123456 --protocol=Flv
  livecap plan list
  livecap plan disable https://live.douyin.com/123456`,
	}
	cmd.AddCommand(
		createPlanListCommand(flags),
		createPlanAddCommand(flags),
		createPlanRemoveCommand(flags),
		createPlanEnableCommand(flags, true),
		createPlanEnableCommand(flags, false),
		createPollingTimeCommand(flags),
	)
	return cmd
}

func createPlanListCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			plans, err := newClient(flags).Plans(context.Background())
			if err != nil {
				return err
			}
			if len(plans) == 0 {
				fmt.Println("no plans")
				return nil
			}
			rows := make([][]string, 0, len(plans))
			for _, p := range plans {
				anchor := ""
				status := ""
				if p.LiveInfo != nil {
					anchor = p.LiveInfo.AnchorName
					status = p.LiveInfo.Status
				}
				rows = append(rows, []string{
					p.URL,
					anchor,
					status,
					p.StreamProtocol,
					p.StreamResolution,
					strconv.FormatBool(p.Enabled),
					formatMillis(p.CreatedAt),
				})
			}
			fmt.Println(renderTable(
				[]string{"URL", "Anchor", "Live", "Protocol", "Resolution", "Enabled", "Created"},
				rows, nil))
			return nil
		},
	}
}

func createPlanAddCommand(flags *GlobalFlags) *cobra.Command {
	planFlags := &PlanFlags{}
	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Add or update a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := newClient(flags).SavePlan(context.Background(), client.Plan{
				URL:              args[0],
				StreamProtocol:   planFlags.Protocol,
				StreamResolution: planFlags.Resolution,
				Enabled:          !planFlags.Disabled,
				CreatedAt:        time.Now().UnixMilli(),
			})
			if err != nil {
				return err
			}
			fmt.Printf("plan saved: %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&planFlags.Protocol, "protocol", "Flv", "preferred stream protocol (Flv or Hls)")
	cmd.Flags().StringVar(&planFlags.Resolution, "resolution", "", "preferred stream resolution")
	cmd.Flags().BoolVar(&planFlags.Disabled, "disabled", false, "create the plan disabled")
	return cmd
}

func createPlanRemoveCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <url>",
		Short: "Remove a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient(flags).DeletePlan(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("plan removed: %s\n", args[0])
			return nil
		},
	}
}

func createPlanEnableCommand(flags *GlobalFlags, enable bool) *cobra.Command {
	use, short := "enable <url>", "Enable a plan"
	if !enable {
		use, short = "disable <url>", "Disable a plan"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient(flags).SetPlanEnabled(context.Background(), args[0], enable); err != nil {
				return err
			}
			fmt.Printf("plan %s: enabled=%t\n", args[0], enable)
			return nil
		},
	}
}

func createPollingTimeCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "polling-time",
		Short: "Show when the poller last ran",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := newClient(flags).LastPollingTime(context.Background())
			if err != nil {
				return err
			}
			if at == 0 {
				fmt.Println("poller has not run yet")
				return nil
			}
			fmt.Println(formatMillis(at))
			return nil
		},
	}
}
