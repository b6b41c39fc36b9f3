package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/cashflow/internal/cli"
)

func snapshotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Manage database snapshots",
		Long: `Create and list copies of the database. A snapshot is also taken before
each batch commit unless import.snapshot_before_commit is false.`,
	}

	cmd.AddCommand(createSnapshotCmd())
	cmd.AddCommand(listSnapshotsCmd())

	return cmd
}

func createSnapshotCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			info, err := a.store.Snapshot(ctx, description)
			if err != nil {
				return fmt.Errorf("failed to create snapshot: %w", err)
			}

			printf(cmd, "%s Created snapshot %s (%s)\n",
				cli.SuccessStyle.Render(cli.SuccessIcon),
				cli.InfoStyle.Render(info.ID),
				formatFileSize(info.FileSize))
			printf(cmd, "  Path: %s\n", info.Path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Description of the snapshot")

	return cmd
}

func listSnapshotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all snapshots",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			snapshots, err := a.store.ListSnapshots(ctx)
			if err != nil {
				return fmt.Errorf("failed to list snapshots: %w", err)
			}
			if len(snapshots) == 0 {
				printLine(cmd, cli.SubtitleStyle.Render("No snapshots found."))
				return nil
			}

			for _, s := range snapshots {
				printf(cmd, "%s  %s  %8s  v%d  %s\n",
					s.ID, s.CreatedAt.Format(time.DateTime), formatFileSize(s.FileSize),
					s.SchemaVersion, s.Description)
			}
			return nil
		},
	}
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
