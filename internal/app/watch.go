package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/nexttask/internal/model"
	appsync "github.com/nhle/nexttask/internal/sync"
	"github.com/nhle/nexttask/internal/theme"
)

func newWatchCommand(opts *rootOptions) *cobra.Command {
	var spec string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep printing the current task whenever it changes",
		Long: `Recompute the current task on a cron schedule (watch.spec, default
"@every 1m") and print it each time it changes. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			if !cmd.Flags().Changed("spec") {
				spec = a.cfg.Watch.Spec
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.watch(ctx, spec)
		},
	}
	cmd.Flags().StringVar(&spec, "spec", "", "cron schedule overriding watch.spec")
	return cmd
}

// watch prints every change of the current task until ctx is done.
func (a *App) watch(ctx context.Context, spec string) error {
	current := func(ctx context.Context, _ time.Time) (*model.Task, error) {
		return a.svc.CurrentTask(ctx, a.now())
	}
	poller, err := appsync.New(current, spec, a.logger)
	if err != nil {
		return err
	}

	a.logger.Info("watching current task", "spec", spec)
	poller.Start()
	defer poller.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-poller.Changes():
			stamp := theme.IDStyle.Render(msg.At.Format("15:04"))
			if msg.Task == nil {
				a.printf("%s %s\n", stamp, theme.HelpStyle.Render("Nothing to do right now."))
				continue
			}
			a.printf("%s %s\n", stamp, taskLine(*msg.Task, a.today()))
		}
	}
}
