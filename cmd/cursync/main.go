package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kalambet/cursync/internal/config"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the CLI and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{out: stdout, ui: newPrinter(stderr)}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if a.logs != nil {
		a.logs.Close()
	}
	if err != nil {
		a.ui.fail("%v", err)
		if h := hint(err); h != "" {
			fmt.Fprintf(stderr, "  %s\n", a.ui.dim(h))
		}
		return 1
	}
	return 0
}

// app carries state shared by the subcommands of one invocation.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	logs   io.Closer
	out    io.Writer
	ui     printer
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cursync",
		Short: "Sync Cursor editor settings through a private GitHub gist",
		Long: `Sync Cursor editor settings through a private GitHub gist.

push uploads settings.json, keybindings.json, snippets and the list of
installed extensions. pull overwrites the local copies with the last push.

The GitHub token is read from GH_TOKEN, or from a .env file in the current
directory or in the cursync config directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(false)
		},
	}

	root.AddCommand(
		a.pushCmd(),
		a.pullCmd(),
		a.historyCmd(),
		a.configCmd(),
		a.versionCmd(),
	)
	return root
}

// setup loads configuration and installs the logger. Logs go to stderr and
// stay quiet below warn unless log.level says otherwise; log.file keeps a
// DEBUG copy. With lenient set, invalid values are reported instead of
// failing so the config commands can still repair them.
func (a *app) setup(lenient bool) error {
	var cfg config.Config
	var err error
	if lenient {
		cfg, err = config.LoadUnchecked()
		if err == nil {
			if verr := cfg.Validate(); verr != nil {
				a.ui.warning("%v", verr)
			}
		}
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	a.cfg = cfg

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(cfg.Log.Level))); err != nil {
		a.ui.warning("unknown log.level %q, using warn", cfg.Log.Level)
		level = slog.LevelWarn
	}
	logger, closer, err := newLogger(a.ui.w, level, cfg.Log.File)
	if err != nil {
		a.ui.warning("log file disabled: %v", err)
	}
	a.logger, a.logs = logger, closer
	slog.SetDefault(a.logger)
	return nil
}
