package editor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/kalambet/cursync/internal/bundle"
)

// Collector reads the editor's configuration root into a bundle.
type Collector struct {
	fs     billy.Filesystem
	lister ExtensionLister
	logger *slog.Logger
}

// NewCollector returns a Collector reading from fs, which is rooted at the
// editor's user directory.
func NewCollector(fs billy.Filesystem, lister ExtensionLister, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{fs: fs, lister: lister, logger: logger}
}

// Collect builds a fresh bundle. Missing or unreadable files contribute
// empty values and are logged; Collect itself never fails.
func (c *Collector) Collect(ctx context.Context) bundle.Bundle {
	return bundle.New(
		c.settings(),
		c.keybindings(),
		c.snippets(),
		c.extensions(ctx),
	)
}

func (c *Collector) settings() map[string]any {
	var settings map[string]any
	if !c.readJSONC(SettingsFile, &settings) {
		return nil
	}
	c.logger.Info("loaded settings", "keys", len(settings))
	return settings
}

func (c *Collector) keybindings() []map[string]any {
	var kb []map[string]any
	if !c.readJSONC(KeybindingsFile, &kb) {
		return nil
	}
	c.logger.Info("loaded keybindings", "count", len(kb))
	return kb
}

func (c *Collector) snippets() map[string]map[string]any {
	entries, err := c.fs.ReadDir(SnippetsDir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("could not read snippets directory", "error", err)
		}
		return nil
	}

	out := make(map[string]map[string]any)
	for _, e := range entries {
		if e.IsDir() || !isSnippetFile(e.Name()) {
			continue
		}
		var content map[string]any
		if c.readJSONC(c.fs.Join(SnippetsDir, e.Name()), &content) {
			out[e.Name()] = content
		}
	}
	c.logger.Info("loaded snippets", "files", len(out))
	return out
}

func (c *Collector) extensions(ctx context.Context) []bundle.Extension {
	if c.lister == nil {
		return nil
	}
	exts, err := c.lister.ListExtensions(ctx)
	if err != nil {
		c.logger.Warn("could not list extensions", "error", err)
		return nil
	}
	// The bundle rejects empty identifiers, so one bad entry would fail the
	// whole push.
	valid := make([]bundle.Extension, 0, len(exts))
	for _, e := range exts {
		if strings.TrimSpace(e.Identifier) == "" {
			c.logger.Warn("skipping extension without an identifier", "version", e.Version)
			continue
		}
		valid = append(valid, e)
	}
	c.logger.Info("found extensions", "count", len(valid))
	return valid
}

// readJSONC decodes path into v and reports whether v holds a value.
// Absent and comment-only files yield false silently; parse failures are
// logged as warnings.
func (c *Collector) readJSONC(path string, v any) bool {
	data, err := util.ReadFile(c.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.logger.Debug("file not found", "path", path)
		} else {
			c.logger.Warn("could not read file", "path", path, "error", err)
		}
		return false
	}

	if err := decodeJSONC(data, v); err != nil {
		if errors.Is(err, errEmptyDocument) {
			c.logger.Debug("file is empty", "path", path)
			return false
		}
		c.logger.Warn("skipping unparsable file", "path", path, "error", err)
		return false
	}
	return true
}

func isSnippetFile(name string) bool {
	switch filepath.Ext(name) {
	case ".json", ".code-snippets":
		return true
	}
	return false
}
