package app

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"github.com/nhle/nexttask/internal/model"
	"github.com/nhle/nexttask/internal/selector"
	"github.com/nhle/nexttask/internal/theme"
)

// today is the configured calendar day the app's clock falls in.
func (a *App) today() civil.Date {
	return selector.CutoffsAt(a.now(), a.dayStart).Today
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) confirm(format string, args ...any) {
	fmt.Fprintln(a.out, theme.SuccessStyle.Render(fmt.Sprintf(format, args...)))
}

func newAddCommand(opts *rootOptions) *cobra.Command {
	var (
		flags  taskFlags
		parent string
	)
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a task",
		Example: `  nexttask add "renew passport" --deadline 2025-03-01
  nexttask add "water plants" --every day --step 2 --scheduled-time 08:00
  nexttask add "book flights" --parent 4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			ctx := cmd.Context()

			in := model.TaskInput{Name: args[0]}
			if err := flags.apply(cmd, &in, a.today()); err != nil {
				return err
			}

			var (
				task *model.Task
				err  error
			)
			if parent != "" {
				parentID, perr := parseID(parent)
				if perr != nil {
					return perr
				}
				task, err = a.svc.CreateSubtask(ctx, parentID, in)
			} else {
				task, err = a.svc.CreateTask(ctx, in)
			}
			if err != nil {
				return err
			}
			a.confirm("created #%d %s", task.ID, task.Name)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&parent, "parent", "p", "", "create the task under this parent id")
	return cmd
}

func newEditCommand(opts *rootOptions) *cobra.Command {
	var (
		flags taskFlags
		name  string
	)
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change a task's attributes",
		Long:  "Change the attributes given as flags. Pass an empty value to clear a field, or --every none to stop recurring.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			ctx := cmd.Context()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			task, err := a.svc.Task(ctx, id)
			if err != nil {
				return err
			}
			rules, err := a.svc.Recurrences(ctx, id)
			if err != nil {
				return err
			}

			in := inputFromTask(task, rules)
			if cmd.Flags().Changed("name") {
				in.Name = name
			}
			if err := flags.apply(cmd, &in, a.today()); err != nil {
				return err
			}

			task, err = a.svc.EditTask(ctx, id, in)
			if err != nil {
				return err
			}
			a.confirm("updated #%d %s", task.ID, task.Name)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&name, "name", "", "new name")
	return cmd
}

func newRemoveCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a task; its subtasks move up to its parent",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := opts.app.svc.DeleteTask(cmd.Context(), id); err != nil {
				return err
			}
			opts.app.confirm("deleted #%d", id)
			return nil
		},
	}
}

func newAttachCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "attach CHILD PARENT",
		Short: "Make PARENT depend on CHILD",
		Long: `Make PARENT the parent of CHILD. A child attached elsewhere is moved
with its subtree. Attaching a task under one of its own subtasks moves only
that task; its subtasks stay with its old parent.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			child, err := parseID(args[0])
			if err != nil {
				return err
			}
			parent, err := parseID(args[1])
			if err != nil {
				return err
			}
			if err := opts.app.svc.AttachParent(cmd.Context(), child, parent); err != nil {
				return err
			}
			opts.app.confirm("attached #%d under #%d", child, parent)
			return nil
		},
	}
}

func newDetachCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "detach ID",
		Short: "Make a task a root, keeping its subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := opts.app.svc.DetachParent(cmd.Context(), id); err != nil {
				return err
			}
			opts.app.confirm("detached #%d", id)
			return nil
		},
	}
}

func newDoneCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "done [ID]",
		Aliases: []string{"d"},
		Short:   "Mark a task (default: the current one) as done",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			task, err := a.resolveTask(cmd, args)
			if err != nil {
				return err
			}
			if _, err := a.svc.MarkDone(cmd.Context(), task.ID, a.now()); err != nil {
				return err
			}
			a.confirm("done #%d %s", task.ID, task.Name)
			return nil
		},
	}
}

func newSkipCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "skip [ID]",
		Short: "Skip today's occurrence of a recurring task (default: the current one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			task, err := a.resolveTask(cmd, args)
			if err != nil {
				return err
			}
			if _, err := a.svc.Skip(cmd.Context(), task.ID, a.now()); err != nil {
				return err
			}
			a.confirm("skipped #%d %s", task.ID, task.Name)
			return nil
		},
	}
}

// resolveTask returns the task named by args[0], or the current task.
func (a *App) resolveTask(cmd *cobra.Command, args []string) (*model.Task, error) {
	if len(args) == 1 {
		id, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		return a.svc.Task(cmd.Context(), id)
	}
	return a.svc.CurrentTask(cmd.Context(), a.now())
}

func newCurrentCommand(opts *rootOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:     "current",
		Aliases: []string{"now"},
		Short:   "Show the task to work on now",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			ctx := cmd.Context()
			today := a.today()

			if all {
				ranked, err := a.svc.RankedTasks(ctx, a.now())
				if err != nil {
					return err
				}
				if len(ranked) == 0 {
					a.printf("%s\n", theme.HelpStyle.Render("Nothing to do right now."))
					return nil
				}
				for i, t := range ranked {
					a.printf("%2d. %s\n", i+1, taskLine(t, today))
				}
				return nil
			}

			task, err := a.svc.CurrentTask(ctx, a.now())
			if errors.Is(err, selector.ErrNoCurrentTask) {
				a.printf("%s\n", theme.HelpStyle.Render("Nothing to do right now."))
				return nil
			}
			if err != nil {
				return err
			}
			rules, err := a.svc.Recurrences(ctx, task.ID)
			if err != nil {
				return err
			}
			a.printf("%s\n%s\n", theme.HeaderStyle.Render("Current task"), renderTask(*task, rules, today))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "list every eligible task in priority order")
	return cmd
}

func newDueCommand(opts *rootOptions) *cobra.Command {
	var horizon int
	cmd := &cobra.Command{
		Use:   "due ID [DATE]",
		Short: "Check whether a task is due on a date (default today)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			ctx := cmd.Context()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			date := a.today()
			if len(args) == 2 {
				d, err := parseDate(args[1], date)
				if err != nil {
					return err
				}
				date = *d
			}

			due, err := a.svc.IsDueOn(ctx, id, date)
			if err != nil {
				return err
			}
			if due {
				a.printf("#%d is due on %s\n", id, date)
			} else {
				a.printf("#%d is not due on %s\n", id, date)
			}

			next, ok, err := a.svc.NextOccurrence(ctx, id, date, horizon)
			if err != nil {
				return err
			}
			if ok {
				a.printf("%s\n", theme.HelpStyle.Render("next occurrence: "+next.String()))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&horizon, "horizon", 366*4, "days to search for the next occurrence")
	return cmd
}

func newTreeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Show every task as a dependency tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			ctx := cmd.Context()

			tasks, err := a.svc.Tasks(ctx)
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				a.printf("%s\n", theme.HelpStyle.Render("No tasks yet. Add one with `nexttask add NAME`."))
				return nil
			}
			paths, err := a.svc.Paths(ctx)
			if err != nil {
				return err
			}
			done := make(map[int64]bool, len(tasks))
			for _, t := range tasks {
				if done[t.ID], err = a.svc.IsDone(ctx, t, a.now()); err != nil {
					return err
				}
			}
			a.printf("%s", renderTree(tasks, paths, done, a.today()))
			return nil
		},
	}
}
