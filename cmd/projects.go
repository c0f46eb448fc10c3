package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/takutakahashi/trackerctl/pkg/output"
	"github.com/takutakahashi/trackerctl/pkg/tracker"
)

type projectFlags struct {
	file        string
	name        string
	description string
	startDate   string
	endDate     string
	funds       string
	members     []int
}

func (f *projectFlags) register(flags *pflag.FlagSet) {
	flags.StringVarP(&f.file, "file", "f", "", "Read the project from a YAML, TOML or JSON file")
	flags.StringVar(&f.name, "name", "", "Project name")
	flags.StringVar(&f.description, "description", "", "Description")
	flags.StringVar(&f.startDate, "start-date", "", "Start date (YYYY-MM-DD, empty to clear)")
	flags.StringVar(&f.endDate, "end-date", "", "End date (YYYY-MM-DD, empty to clear)")
	flags.StringVar(&f.funds, "funds", "", "Allocated funds, e.g. 1000.00 (empty to clear)")
	flags.IntSliceVar(&f.members, "member", nil, "Member user ID (repeatable)")
}

// apply overlays the file and the flags that were set onto input
func (f *projectFlags) apply(flags *pflag.FlagSet, input *tracker.ProjectInput) error {
	if f.file != "" {
		if err := decodeFile(f.file, input); err != nil {
			return err
		}
	}
	if flags.Changed("name") {
		input.Name = f.name
	}
	if flags.Changed("description") {
		input.Description = f.description
	}
	if flags.Changed("start-date") {
		input.StartDate = optional(f.startDate)
	}
	if flags.Changed("end-date") {
		input.EndDate = optional(f.endDate)
	}
	if flags.Changed("funds") {
		input.FundsAllocated = optional(f.funds)
	}
	if flags.Changed("member") {
		input.Members = f.members
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func decodeFile(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := output.NewParser().Decode(data, path, out); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func newProjectsCmd(a *app) *cobra.Command {
	projectsCmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project"},
		Short:   "Manage projects",
	}

	projectsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := a.tracker.Projects.List(cmd.Context())
			if err != nil {
				return failed("list projects", err)
			}
			return a.print(cmd, projects, func() *output.Table { return projectTable(projects) })
		},
	})

	projectsCmd.AddCommand(&cobra.Command{
		Use:   "get ID",
		Short: "Show a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project", args[0])
			if err != nil {
				return err
			}
			project, err := a.tracker.Projects.Get(cmd.Context(), id)
			if err != nil {
				return failed("get project", err)
			}
			return a.print(cmd, project, func() *output.Table { return projectDetail(project) })
		},
	})

	var createFlags projectFlags
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		Long: `Create a project from flags or a file. Flags override file values.

Examples:
  trackerctl projects create --name Apollo --start-date 2024-01-01 --member 2 --member 3
  trackerctl projects create -f apollo.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := &tracker.ProjectInput{}
			if err := createFlags.apply(cmd.Flags(), input); err != nil {
				return err
			}
			project, err := a.tracker.Projects.Create(cmd.Context(), input)
			if err != nil {
				return failed("create project", err)
			}
			return a.print(cmd, project, func() *output.Table { return projectDetail(project) })
		},
	}
	createFlags.register(createCmd.Flags())
	projectsCmd.AddCommand(createCmd)

	var (
		updateFlags projectFlags
		dryRun      bool
	)
	updateCmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a project",
		Long: `Update a project. Fields not given keep their current value.
With --dry-run the change is shown as a diff and nothing is sent.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project", args[0])
			if err != nil {
				return err
			}
			current, err := a.tracker.Projects.Get(cmd.Context(), id)
			if err != nil {
				return failed("get project", err)
			}

			before := tracker.InputFromProject(current)
			input := tracker.InputFromProject(current)
			if err := updateFlags.apply(cmd.Flags(), input); err != nil {
				return err
			}

			if dryRun {
				return printDiff(cmd, before, input, fmt.Sprintf("projects/%d", id))
			}
			project, err := a.tracker.Projects.Update(cmd.Context(), id, input)
			if err != nil {
				return failed("update project", err)
			}
			return a.print(cmd, project, func() *output.Table { return projectDetail(project) })
		},
	}
	updateFlags.register(updateCmd.Flags())
	updateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the change without applying it")
	projectsCmd.AddCommand(updateCmd)

	projectsCmd.AddCommand(&cobra.Command{
		Use:   "delete ID",
		Short: "Delete a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("project", args[0])
			if err != nil {
				return err
			}
			if err := a.tracker.Projects.Delete(cmd.Context(), id); err != nil {
				return failed("delete project", err)
			}
			a.printf(cmd, "Deleted project %d\n", id)
			return nil
		},
	})

	return projectsCmd
}

func printDiff(cmd *cobra.Command, before, after interface{}, name string) error {
	diff, err := output.Diff(before, after, name)
	if err != nil {
		return err
	}
	if diff == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "No changes")
		return nil
	}
	writeString(cmd.OutOrStdout(), diff)
	return nil
}
