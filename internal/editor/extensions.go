package editor

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/cursync/internal/bundle"
)

// ExtensionLister reports the extensions installed in the editor.
type ExtensionLister interface {
	ListExtensions(ctx context.Context) ([]bundle.Extension, error)
}

// DirLister scans an extensions directory where every installed extension
// is a subdirectory, optionally holding a package.json.
type DirLister struct {
	fs billy.Filesystem
}

// NewDirLister returns a lister over fs. A nil fs lists nothing.
func NewDirLister(fs billy.Filesystem) *DirLister {
	return &DirLister{fs: fs}
}

var versionedDir = regexp.MustCompile(`^(.+?)-(\d+\.\d+\.\d+.*)$`)

type packageJSON struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Publisher string `json:"publisher"`
}

func (l *DirLister) ListExtensions(ctx context.Context) ([]bundle.Extension, error) {
	if l.fs == nil {
		return nil, nil
	}

	entries, err := l.fs.ReadDir(".")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading extensions directory: %w", err)
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			dirs = append(dirs, e.Name())
		}
	}

	// Each extension costs a package.json read; fan out over a few workers.
	exts := make([]bundle.Extension, len(dirs))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, dir := range dirs {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			exts[i] = l.describe(dir)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(exts, func(i, j int) bool { return exts[i].Identifier < exts[j].Identifier })
	return exts, nil
}

func (l *DirLister) describe(dir string) bundle.Extension {
	data, err := util.ReadFile(l.fs, l.fs.Join(dir, "package.json"))
	if err == nil {
		var pkg packageJSON
		if decodeJSONC(data, &pkg) == nil && pkg.Name != "" {
			return newExtension(pkg.Publisher, pkg.Name, pkg.Version)
		}
	}

	if m := versionedDir.FindStringSubmatch(dir); m != nil {
		return withPublisher(bundle.Extension{Identifier: m[1], Version: m[2]})
	}
	return withPublisher(bundle.Extension{Identifier: dir})
}

// CLILister asks the editor binary for its extensions.
type CLILister struct {
	command string
	run     func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewCLILister returns a lister that runs `<command> --list-extensions --show-versions`.
func NewCLILister(command string) *CLILister {
	return &CLILister{command: command, run: runCommand}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s exited with error: %w (%s)", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

func (l *CLILister) ListExtensions(ctx context.Context) ([]bundle.Extension, error) {
	out, err := l.run(ctx, l.command, "--list-extensions", "--show-versions")
	if err != nil {
		return nil, err
	}

	var exts []bundle.Extension
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		id, version, _ := strings.Cut(line, "@")
		if id = strings.TrimSpace(id); id == "" {
			slog.Warn("skipping extension line without an identifier", "line", line)
			continue
		}
		exts = append(exts, withPublisher(bundle.Extension{Identifier: id, Version: version}))
	}
	return exts, sc.Err()
}

func newExtension(publisher, name, version string) bundle.Extension {
	id := name
	if publisher != "" {
		id = publisher + "." + name
	}
	return bundle.Extension{Identifier: id, Version: version, Publisher: publisher}
}

func withPublisher(e bundle.Extension) bundle.Extension {
	if pub, _, ok := strings.Cut(e.Identifier, "."); ok && e.Publisher == "" {
		e.Publisher = pub
	}
	return e
}
