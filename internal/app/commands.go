package app

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nhle/nexttask/internal/model"
	"github.com/nhle/nexttask/internal/theme"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	dbPath     string
	at         string

	app *App
}

// newRootCommand builds the nexttask command tree. Command output goes to
// out, logs and errors to errOut.
func newRootCommand(out, errOut io.Writer) (*cobra.Command, *rootOptions) {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "nexttask",
		Short: "nexttask tells you the one task to work on now.",
		Long: `nexttask keeps a forest of tasks with deadlines, schedules and
recurrence rules, and always knows which single task should be done next.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.open(out, errOut)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", model.DefaultConfigPath(), "config file")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "database file (overrides database.path)")
	root.PersistentFlags().StringVar(&opts.at, "at", "", "evaluate as of this time (RFC 3339) instead of now")

	root.AddCommand(
		newAddCommand(opts),
		newEditCommand(opts),
		newRemoveCommand(opts),
		newAttachCommand(opts),
		newDetachCommand(opts),
		newDoneCommand(opts),
		newSkipCommand(opts),
		newCurrentCommand(opts),
		newDueCommand(opts),
		newTreeCommand(opts),
		newWatchCommand(opts),
	)
	return root, opts
}

// Execute runs the command line and prints any error in the error style.
func Execute(out, errOut io.Writer, args []string) error {
	root, opts := newRootCommand(out, errOut)
	root.SetArgs(args)
	defer opts.close()

	if err := root.Execute(); err != nil {
		fmt.Fprintln(errOut, theme.ErrorStyle.Render("error: "+err.Error()))
		return err
	}
	return nil
}

func (o *rootOptions) close() {
	if o.app == nil {
		return
	}
	if err := o.app.Close(); err != nil {
		o.app.logger.Warn("closing database failed", "error", err)
	}
	o.app = nil
}

func (o *rootOptions) open(out, errOut io.Writer) error {
	// A missing .env is fine.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := model.LoadConfig(o.configPath)
	if err != nil {
		return err
	}
	if o.dbPath != "" {
		cfg.Database.Path = o.dbPath
	}

	a, err := Open(cfg, out, errOut)
	if err != nil {
		return err
	}
	if o.at != "" {
		at, err := time.Parse(time.RFC3339, o.at)
		if err != nil {
			a.Close()
			return fmt.Errorf("parsing --at %q: %w", o.at, err)
		}
		a.now = func() time.Time { return at }
	}
	o.app = a
	return nil
}
