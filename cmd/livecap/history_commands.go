package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// HistoryDeleteFlags holds flags for history delete.
type HistoryDeleteFlags struct {
	DeleteFile bool
}

func createHistoryCommand(flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recording history",
	}
	cmd.AddCommand(
		createHistoryListCommand(flags),
		createHistoryDeleteCommand(flags),
	)
	return cmd
}

func createHistoryListCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all capture attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := newClient(flags).Histories(context.Background())
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Println("no history")
				return nil
			}
			out := make([][]string, 0, len(rows))
			for _, h := range rows {
				end := ""
				if h.EndTime != 0 {
					end = formatMillis(h.EndTime)
				}
				size := formatBytes(h.FileSize)
				if h.Deleted {
					size = "deleted"
				}
				out = append(out, []string{
					h.URL,
					h.Status,
					formatMillis(h.StartTime),
					end,
					h.Path,
					size,
				})
			}
			fmt.Println(renderTable(
				[]string{"URL", "Status", "Started", "Ended", "Path", "Size"},
				out, []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight}))
			return nil
		},
	}
}

func createHistoryDeleteCommand(flags *GlobalFlags) *cobra.Command {
	deleteFlags := &HistoryDeleteFlags{}
	cmd := &cobra.Command{
		Use:   "delete <url> <start-ms>",
		Short: "Delete one history row",
		Long: `Delete a history row identified by its channel URL and start time in
unix milliseconds (shown by 'livecap history list').

Examples:
  livecap history delete https://live.douyin.com/123456 1756700000000
  livecap history delete https://live.douyin.com/123456 1756700000000 --delete-file`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("start time must be unix milliseconds: %w", err)
			}
			if err := newClient(flags).DeleteHistory(context.Background(), args[0], start, deleteFlags.DeleteFile); err != nil {
				return err
			}
			fmt.Println("history deleted")
			return nil
		},
	}
	cmd.Flags().BoolVar(&deleteFlags.DeleteFile, "delete-file", false, "also delete the recorded file")
	return cmd
}
