package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/cursync/internal/bundle"
	"github.com/kalambet/cursync/internal/config"
	"github.com/kalambet/cursync/internal/editor"
	"github.com/kalambet/cursync/internal/storage"
)

// --- push ---

func (a *app) pushCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Upload local settings to the gist",
		Long: `Upload local settings to the gist.

The gist is found by its description (github.gist_description) or pinned with
github.gist_id. It is created as a secret gist on the first push. Whatever the
gist held before is replaced.

A missing user directory usually means the editor has never run or
editor.user_dir is wrong, so push refuses to upload an empty bundle over the
gist unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")

			s, err := a.newSession()
			if err != nil {
				return err
			}
			defer s.close()

			if _, err := os.Stat(s.paths.UserDir); errors.Is(err, fs.ErrNotExist) {
				if !force {
					return fmt.Errorf("%w: %s does not exist (use --force to push an empty bundle)",
						editor.ErrConfigurationUnavailable, s.paths.UserDir)
				}
				a.ui.warning("%s does not exist, pushing an empty bundle", s.paths.UserDir)
			}

			a.ui.step("Collecting %s settings from %s", a.cfg.Editor.Name, s.paths.UserDir)
			res, err := s.svc.Push(cmd.Context())
			if err != nil {
				return err
			}

			if res.Created {
				a.ui.success("Created gist %s", res.GistID)
			} else {
				a.ui.success("Updated gist %s", res.GistID)
			}
			if res.URL != "" {
				a.ui.status("URL", "%s", res.URL)
			}
			a.printSummary(res.Bundle)
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "push even when the editor user directory is missing")
	return cmd
}

// --- pull ---

func (a *app) pullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Overwrite local settings with the gist",
		Long: `Overwrite local settings with the gist.

settings.json, keybindings.json and every snippet file are replaced by the
last pushed copy; snippet files that were not pushed are deleted. Local
changes made since the last push are lost. A local snippet file that does not
parse was never pushed, so it is kept and reported instead of deleted.
Extensions are listed, not installed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.newSession()
			if err != nil {
				return err
			}
			defer s.close()

			a.ui.step("Downloading settings from gist")
			res, err := s.svc.Pull(cmd.Context())
			if err != nil {
				return err
			}

			a.ui.success("Restored %s settings from gist %s", a.cfg.Editor.Name, res.GistID)
			if !res.Bundle.SyncedAt.IsZero() {
				from := res.Bundle.SyncedAt.Local().Format(time.DateTime)
				if res.Bundle.Platform != "" {
					from += " on " + res.Bundle.Platform
				}
				a.ui.status("Pushed", "%s", from)
			}
			a.ui.status("Written", "%d files to %s", len(res.Applied.Written), s.paths.UserDir)
			for _, p := range res.Applied.Removed {
				a.ui.status("Removed", "%s", p)
			}
			for _, p := range res.Applied.Kept {
				a.ui.warning("Kept %s: it does not parse and was never pushed", p)
			}
			a.printSummary(res.Bundle)

			if len(res.Bundle.Extensions) > 0 {
				a.ui.warning("Extensions are not installed automatically. Install them from the editor:")
				for _, e := range res.Bundle.Extensions {
					fmt.Fprintf(a.out, "%s\n", extensionRef(e))
				}
			}
			return nil
		},
	}
}

func (a *app) printSummary(b bundle.Bundle) {
	a.ui.status("Settings", "%d keys", len(b.Settings))
	a.ui.status("Keybindings", "%d", len(b.Keybindings))
	a.ui.status("Snippets", "%d files", len(b.Snippets))
	a.ui.status("Extensions", "%d", len(b.Extensions))
}

func extensionRef(e bundle.Extension) string {
	if e.Version == "" {
		return e.Identifier
	}
	return e.Identifier + "@" + e.Version
}

// --- history ---

func (a *app) historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent push and pull runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			store, err := storage.Open(a.cfg.Storage.DataDir)
			if err != nil {
				return fmt.Errorf("opening history: %w", err)
			}
			defer store.Close()

			runs, err := store.RecentRuns(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(a.out, "No sync runs recorded.")
				return nil
			}

			for _, op := range []string{storage.OpPush, storage.OpPull} {
				last, err := store.LastSuccessful(op)
				switch {
				case err == nil:
					a.ui.status("Last "+op, "%s", last.CreatedAt.Local().Format(time.DateTime))
				case errors.Is(err, storage.ErrNotFound):
					a.ui.status("Last "+op, "never")
				default:
					return err
				}
			}

			for _, r := range runs {
				status := a.ui.render(successStyle, r.Status)
				if r.Status != storage.StatusOK {
					status = a.ui.render(errorStyle, r.Status)
				}
				detail := r.Detail
				if len(detail) > 80 {
					detail = detail[:80] + "..."
				}
				fmt.Fprintf(a.out, "%s  %-4s  %s  %s  %s\n",
					r.CreatedAt.Local().Format(time.DateTime),
					r.Operation,
					status,
					a.ui.render(stepStyle, orDash(r.GistID)),
					detail,
				)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "maximum number of runs to list")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// --- config ---

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or update configuration",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(true)
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, k := range config.ShowAll(a.cfg) {
				fmt.Fprintf(a.out, "  %s = %s\n", a.ui.render(labelStyle, k.Key), k.Value)
			}
			token := "not set"
			if _, err := a.cfg.Credential(); err == nil {
				token = "set"
			}
			fmt.Fprintf(a.out, "  %s = %s\n", a.ui.render(labelStyle, "GH_TOKEN"), token)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value (an empty value restores the default)",
		Long: "Set a configuration value (an empty value restores the default).\n\nKeys:\n  " +
			strings.Join(config.ValidKeys(), "\n  "),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if err := config.SetKey(key, value); err != nil {
				return err
			}
			if value == "" {
				a.ui.success("Reset %s", key)
			} else {
				a.ui.success("Set %s = %s", key, value)
			}
			return nil
		},
	}

	cmd.AddCommand(show, set)
	return cmd
}

// --- version ---

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the cursync version",
		Args:  cobra.NoArgs,
		// No configuration needed.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.out, "cursync version %s\n", version)
		},
	}
}
