package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/kalambet/cursync/internal/bundle"
)

// Applier writes a bundle back into the editor's configuration root.
type Applier struct {
	fs     billy.Filesystem
	logger *slog.Logger
}

// ApplyResult lists the files touched by Apply, relative to the root.
type ApplyResult struct {
	Written []string
	Removed []string
	// Kept lists local snippet files absent from the bundle that were left
	// in place because they do not parse.
	Kept []string
}

// NewApplier returns an Applier writing into fs, which is rooted at the
// editor's user directory.
func NewApplier(fs billy.Filesystem, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{fs: fs, logger: logger}
}

// Apply overwrites settings, keybindings, snippets and the extension
// manifest with the contents of b. Local snippet files absent from b are
// removed unless they fail to parse. Each file is handled independently: a failure is recorded and
// the remaining files are still written.
func (a *Applier) Apply(b bundle.Bundle) (ApplyResult, error) {
	var res ApplyResult
	var errs []error

	if err := a.fs.MkdirAll(SnippetsDir, 0o755); err != nil {
		return res, fmt.Errorf("creating %s: %w", SnippetsDir, err)
	}

	write := func(path string, v any) {
		if err := a.writeJSON(path, v); err != nil {
			a.logger.Error("could not write file", "path", path, "error", err)
			errs = append(errs, err)
			return
		}
		a.logger.Info("updated file", "path", path)
		res.Written = append(res.Written, path)
	}

	write(SettingsFile, nonNilMap(b.Settings))
	write(KeybindingsFile, nonNilSlice(b.Keybindings))

	keep := make(map[string]bool, len(b.Snippets))
	names := make([]string, 0, len(b.Snippets))
	for name := range b.Snippets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		file, err := snippetFileName(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		keep[file] = true
		write(a.fs.Join(SnippetsDir, file), nonNilMap(b.Snippets[name]))
	}

	stale, err := a.removeStaleSnippets(keep)
	res.Removed, res.Kept = stale.Removed, stale.Kept
	if err != nil {
		errs = append(errs, err)
	}

	exts := b.Extensions
	if exts == nil {
		exts = []bundle.Extension{}
	}
	write(ManifestFile, exts)

	return res, errors.Join(errs...)
}

func (a *Applier) writeJSON(path string, v any) error {
	data, err := encodeJSON(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := util.WriteFile(a.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// removeStaleSnippets deletes snippet files not in keep. Files that fail to
// parse are left alone: push skips them, so the remote never had a copy.
func (a *Applier) removeStaleSnippets(keep map[string]bool) (staleResult, error) {
	var res staleResult
	entries, err := a.fs.ReadDir(SnippetsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return res, nil
		}
		return res, fmt.Errorf("reading %s: %w", SnippetsDir, err)
	}

	var errs []error
	for _, e := range entries {
		if e.IsDir() || !isSnippetFile(e.Name()) || keep[e.Name()] {
			continue
		}
		path := a.fs.Join(SnippetsDir, e.Name())
		if !a.wasPushable(path) {
			a.logger.Warn("keeping unparsable snippet file", "path", path)
			res.Kept = append(res.Kept, path)
			continue
		}
		if err := a.fs.Remove(path); err != nil {
			errs = append(errs, fmt.Errorf("removing %s: %w", path, err))
			continue
		}
		a.logger.Info("removed snippet absent from remote", "path", path)
		res.Removed = append(res.Removed, path)
	}
	return res, errors.Join(errs...)
}

type staleResult struct {
	Removed []string
	Kept    []string
}

// wasPushable reports whether push would have uploaded the snippet file at
// path. Unreadable files count as pushable so the removal error surfaces.
func (a *Applier) wasPushable(path string) bool {
	data, err := util.ReadFile(a.fs, path)
	if err != nil {
		return true
	}
	var content map[string]any
	err = decodeJSONC(data, &content)
	return err == nil || errors.Is(err, errEmptyDocument)
}

// snippetFileName maps a bundle key to a file inside the snippets
// directory. Keys without a snippet extension are file stems written by
// older versions and get ".json".
func snippetFileName(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) || filepath.Base(key) != key {
		return "", fmt.Errorf("invalid snippet name %q", key)
	}
	if isSnippetFile(key) {
		return key, nil
	}
	return key + ".json", nil
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func nonNilSlice(s []map[string]any) []map[string]any {
	if s == nil {
		return []map[string]any{}
	}
	return s
}
