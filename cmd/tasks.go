package cmd

import (
	"fmt"
	"strconv"

	"github.com/josephgoksu/concierge/internal/taskfeed"
	"github.com/josephgoksu/concierge/internal/ui"
	"github.com/spf13/cobra"
)

var tasksLocal bool

var tasksCmd = &cobra.Command{
	Use:   "tasks [id]",
	Short: "List your requests",
	Long: `List requests, newest first, or show one by id.

Examples:
  concierge tasks
  concierge tasks 42 --json
  concierge tasks --local`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTasks,
}

func init() {
	tasksCmd.Flags().BoolVar(&tasksLocal, "local", false, "read the local store instead of the task API")
	rootCmd.AddCommand(tasksCmd)
}

func runTasks(cmd *cobra.Command, args []string) error {
	a := current
	out := cmd.OutOrStdout()

	be, release, err := openBackend(a, tasksLocal)
	if err != nil {
		return err
	}
	defer release()

	if len(args) == 1 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid task id %q", args[0])
		}
		t, err := be.GetTask(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get task %d: %w", id, err)
		}
		if isJSON() {
			return printJSON(out, t)
		}
		fmt.Fprintln(out, ui.NewPanel(fmt.Sprintf("Request #%d", t.ID), fmt.Sprintf(
			"%s\n%s %s", t.Title, ui.StatusIcon(t.Status), t.Status)).Render())
		return nil
	}

	tasks, err := taskfeed.New(be, a.log).Retrieve(cmd.Context())
	if err != nil {
		return err
	}
	if isJSON() {
		return printJSON(out, tasks)
	}

	cat, err := openCatalog(cmd.Context(), a)
	if err != nil {
		return err
	}
	defer cat.Stop()
	ui.RenderTaskList(out, tasks, cat)
	return nil
}
