/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/issuedesk/apiserver/config"
	"github.com/issuedesk/apiserver/internal/storage"
	"github.com/spf13/cobra"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect and purge archived copies of deleted issues",
}

var archiveShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print the archived copy of a deleted issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withArchive(cmd, func(archive *storage.IssueArchive) error {
			issue, err := archive.ArchivedIssue(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(issue)
		})
	},
}

var archivePurgeCmd = &cobra.Command{
	Use:   "purge <id>",
	Short: "Remove the archived copy of a deleted issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withArchive(cmd, func(archive *storage.IssueArchive) error {
			if err := archive.PurgeIssue(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %s\n", storage.DeletedIssueKey(args[0]))
			return nil
		})
	},
}

func withArchive(cmd *cobra.Command, fn func(*storage.IssueArchive) error) error {
	cfg := config.LoadConfig()
	objects, err := storage.NewFromConfig(cmd.Context(), cfg.Storage)
	if err != nil {
		return err
	}
	if objects == nil {
		return errors.New("STORAGE_BACKEND is not configured")
	}
	defer objects.Close()

	return fn(storage.NewIssueArchive(objects))
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.AddCommand(archiveShowCmd, archivePurgeCmd)
}
