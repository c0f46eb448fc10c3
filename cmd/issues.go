package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/takutakahashi/trackerctl/pkg/output"
	"github.com/takutakahashi/trackerctl/pkg/tracker"
)

type issueFlags struct {
	file        string
	title       string
	description string
	project     int
	status      string
	priority    string
	assignees   []int
}

func (f *issueFlags) register(flags *pflag.FlagSet) {
	flags.StringVarP(&f.file, "file", "f", "", "Read the issue from a YAML, TOML or JSON file")
	flags.StringVar(&f.title, "title", "", "Title")
	flags.StringVar(&f.description, "description", "", "Description")
	flags.IntVar(&f.project, "project", 0, "Project ID")
	flags.StringVar(&f.status, "status", "", "Status: open, in_progress or closed")
	flags.StringVar(&f.priority, "priority", "", "Priority: low, medium or high")
	flags.IntSliceVar(&f.assignees, "assignee", nil, "Assignee user ID (repeatable)")
}

func (f *issueFlags) apply(flags *pflag.FlagSet, input *tracker.IssueInput) error {
	if f.file != "" {
		if err := decodeFile(f.file, input); err != nil {
			return err
		}
	}
	if flags.Changed("title") {
		input.Title = f.title
	}
	if flags.Changed("description") {
		input.Description = f.description
	}
	if flags.Changed("project") {
		input.Project = f.project
	}
	if flags.Changed("status") {
		input.Status = f.status
	}
	if flags.Changed("priority") {
		input.Priority = f.priority
	}
	if flags.Changed("assignee") {
		input.Assignees = f.assignees
	}
	return nil
}

func newIssuesCmd(a *app) *cobra.Command {
	issuesCmd := &cobra.Command{
		Use:     "issues",
		Aliases: []string{"issue"},
		Short:   "Manage issues",
	}

	var filter tracker.IssueFilter
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List issues",
		Long: `List issues, newest first unless --ordering is given.

Examples:
  trackerctl issues list --project 3 --status open
  trackerctl issues list --search login --ordering -priority`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			issues, err := a.tracker.Issues.List(cmd.Context(), filter)
			if err != nil {
				return failed("list issues", err)
			}
			return a.print(cmd, issues, func() *output.Table { return issueTable(issues) })
		},
	}
	listCmd.Flags().StringVar(&filter.Status, "status", "", "Filter by status")
	listCmd.Flags().StringVar(&filter.Priority, "priority", "", "Filter by priority")
	listCmd.Flags().IntVar(&filter.Project, "project", 0, "Filter by project ID")
	listCmd.Flags().StringVar(&filter.Search, "search", "", "Search titles and descriptions")
	listCmd.Flags().StringVar(&filter.Ordering, "ordering", "", "Order by created_at or priority, prefix with - for descending")
	issuesCmd.AddCommand(listCmd)

	issuesCmd.AddCommand(&cobra.Command{
		Use:   "get ID",
		Short: "Show an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("issue", args[0])
			if err != nil {
				return err
			}
			issue, err := a.tracker.Issues.Get(cmd.Context(), id)
			if err != nil {
				return failed("get issue", err)
			}
			return a.print(cmd, issue, func() *output.Table { return issueDetail(issue) })
		},
	})

	var createFlags issueFlags
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an issue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := &tracker.IssueInput{}
			if err := createFlags.apply(cmd.Flags(), input); err != nil {
				return err
			}
			issue, err := a.tracker.Issues.Create(cmd.Context(), input)
			if err != nil {
				return failed("create issue", err)
			}
			return a.print(cmd, issue, func() *output.Table { return issueDetail(issue) })
		},
	}
	createFlags.register(createCmd.Flags())
	issuesCmd.AddCommand(createCmd)

	var (
		updateFlags issueFlags
		dryRun      bool
	)
	updateCmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update an issue",
		Long: `Update an issue. Fields not given keep their current value.
With --dry-run the change is shown as a diff and nothing is sent.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("issue", args[0])
			if err != nil {
				return err
			}
			current, err := a.tracker.Issues.Get(cmd.Context(), id)
			if err != nil {
				return failed("get issue", err)
			}

			before := tracker.InputFromIssue(current)
			input := tracker.InputFromIssue(current)
			if err := updateFlags.apply(cmd.Flags(), input); err != nil {
				return err
			}

			if dryRun {
				return printDiff(cmd, before, input, fmt.Sprintf("issues/%d", id))
			}
			issue, err := a.tracker.Issues.Update(cmd.Context(), id, input)
			if err != nil {
				return failed("update issue", err)
			}
			return a.print(cmd, issue, func() *output.Table { return issueDetail(issue) })
		},
	}
	updateFlags.register(updateCmd.Flags())
	updateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the change without applying it")
	issuesCmd.AddCommand(updateCmd)

	issuesCmd.AddCommand(&cobra.Command{
		Use:   "delete ID",
		Short: "Delete an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("issue", args[0])
			if err != nil {
				return err
			}
			if err := a.tracker.Issues.Delete(cmd.Context(), id); err != nil {
				return failed("delete issue", err)
			}
			a.printf(cmd, "Deleted issue %d\n", id)
			return nil
		},
	})

	return issuesCmd
}
