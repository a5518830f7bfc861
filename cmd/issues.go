/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/issuedesk/apiserver/internal/client/store"
	"github.com/issuedesk/apiserver/types"
	"github.com/spf13/cobra"
)

var (
	listSearch   string
	listStatus   string
	listPriority string

	issueTitle       string
	issueDescription string
	issueStatus      string
	issuePriority    string
	issueAssignee    string
	issueUnassign    bool
)

var issuesCmd = &cobra.Command{
	Use:     "issues",
	Aliases: []string{"issue"},
	Short:   "List and manage issues",
}

var issuesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List issues, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *session) error {
			if err := s.issues.Fetch(cmd.Context()); err != nil {
				return err
			}
			s.issueStore.SetSearchTerm(listSearch)
			s.issueStore.SetStatusFilter(listStatus)
			s.issueStore.SetPriorityFilter(listPriority)
			renderIssues(cmd.OutOrStdout(), s.issueStore)
			return nil
		})
	},
}

var issuesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an issue",
	RunE: func(cmd *cobra.Command, args []string) error {
		input := types.IssueInput{
			Title:       issueTitle,
			Description: issueDescription,
			Status:      types.IssueStatus(issueStatus),
			Priority:    types.IssuePriority(issuePriority),
		}
		if cmd.Flags().Changed("assignee") {
			input.Assignee = &issueAssignee
		}
		return withSession(cmd, func(s *session) error {
			issue, err := s.issues.Create(cmd.Context(), input)
			if err != nil {
				return err
			}
			cmd.Printf("created %s\n", issue.ID)
			return nil
		})
	},
}

var issuesUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change fields of an issue, leaving the rest as they are",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, err := patchFromFlags(cmd)
		if err != nil {
			return err
		}
		return withSession(cmd, func(s *session) error {
			issue, err := s.issues.Update(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			cmd.Printf("updated %s (%s, %s)\n", issue.ID, issue.Status, issue.Priority)
			return nil
		})
	},
}

var issuesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an issue permanently",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *session) error {
			if err := s.issues.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			cmd.Printf("deleted %s\n", args[0])
			return nil
		})
	},
}

func patchFromFlags(cmd *cobra.Command) (types.IssuePatch, error) {
	flags := cmd.Flags()
	var patch types.IssuePatch
	if flags.Changed("title") {
		patch.Title = &issueTitle
	}
	if flags.Changed("description") {
		patch.Description = &issueDescription
	}
	if flags.Changed("status") {
		status := types.IssueStatus(issueStatus)
		patch.Status = &status
	}
	if flags.Changed("priority") {
		priority := types.IssuePriority(issuePriority)
		patch.Priority = &priority
	}
	switch {
	case issueUnassign && flags.Changed("assignee"):
		return types.IssuePatch{}, fmt.Errorf("--assignee and --unassign are mutually exclusive")
	case issueUnassign:
		patch.Assignee = types.NullableString{Set: true}
	case flags.Changed("assignee"):
		patch.Assignee = types.NewNullableString(issueAssignee)
	}
	if patch.Empty() {
		return types.IssuePatch{}, fmt.Errorf("nothing to update")
	}
	return patch, nil
}

func renderIssues(w io.Writer, view store.IssueView) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tPRIORITY\tASSIGNEE\tUPDATED")
	for _, issue := range view.Filtered() {
		assignee := "-"
		if issue.Assignee != nil && *issue.Assignee != "" {
			assignee = *issue.Assignee
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			issue.ID, issue.Title, issue.Status, issue.Priority, assignee,
			issue.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	_ = tw.Flush()

	c := view.Counts()
	fmt.Fprintf(w, "\ntotal %d  open %d  resolved %d  closed %d\n", c.Total, c.Open, c.Resolved, c.Closed)
}

func init() {
	rootCmd.AddCommand(issuesCmd)
	issuesCmd.AddCommand(issuesListCmd, issuesCreateCmd, issuesUpdateCmd, issuesDeleteCmd)

	issuesListCmd.Flags().StringVarP(&listSearch, "search", "s", "", "match title or description, case-insensitive")
	issuesListCmd.Flags().StringVar(&listStatus, "status", store.FilterAll, "Open, Resolved, Closed or All")
	issuesListCmd.Flags().StringVar(&listPriority, "priority", store.FilterAll, "Low, Medium, High or All")

	for _, c := range []*cobra.Command{issuesCreateCmd, issuesUpdateCmd} {
		c.Flags().StringVar(&issueTitle, "title", "", "issue title")
		c.Flags().StringVar(&issueDescription, "description", "", "issue description")
		c.Flags().StringVar(&issueStatus, "status", "", "Open, Resolved or Closed")
		c.Flags().StringVar(&issuePriority, "priority", "", "Low, Medium or High")
		c.Flags().StringVar(&issueAssignee, "assignee", "", "who works on the issue")
	}
	issuesCreateCmd.MarkFlagRequired("title")
	issuesCreateCmd.MarkFlagRequired("description")
	issuesUpdateCmd.Flags().BoolVar(&issueUnassign, "unassign", false, "clear the assignee")
}
