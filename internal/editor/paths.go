// Package editor reads and writes the on-disk configuration of a VS Code
// family editor (Cursor by default).
package editor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrConfigurationUnavailable is returned when the editor's configuration
// root cannot be located on this platform.
var ErrConfigurationUnavailable = errors.New("editor configuration unavailable")

const (
	SettingsFile    = "settings.json"
	KeybindingsFile = "keybindings.json"
	SnippetsDir     = "snippets"
	ManifestFile    = "cursync-extensions.json"
)

// Paths are the locations of one editor installation.
type Paths struct {
	UserDir       string
	ExtensionsDir string
}

// Overrides replace the platform defaults when non-empty.
type Overrides struct {
	UserDir       string
	ExtensionsDir string
}

// Locate resolves the configuration root and extensions directory of the
// named editor for the current platform.
func Locate(name string, o Overrides) (Paths, error) {
	return locate(runtime.GOOS, name, o, os.Getenv, os.UserHomeDir)
}

func locate(goos, name string, o Overrides, getenv func(string) string, home func() (string, error)) (Paths, error) {
	if name == "" {
		name = "Cursor"
	}

	p := Paths{UserDir: o.UserDir, ExtensionsDir: o.ExtensionsDir}

	if p.UserDir == "" {
		base, err := configBase(goos, getenv, home)
		if err != nil {
			return Paths{}, fmt.Errorf("%w: %v", ErrConfigurationUnavailable, err)
		}
		p.UserDir = filepath.Join(base, name, "User")
	}

	if p.ExtensionsDir == "" {
		p.ExtensionsDir = extensionsDir(goos, name, getenv, home)
	}

	return p, nil
}

func configBase(goos string, getenv func(string) string, home func() (string, error)) (string, error) {
	switch goos {
	case "windows":
		dir := getenv("APPDATA")
		if dir == "" {
			return "", errors.New("%APPDATA% is not defined")
		}
		return dir, nil
	case "darwin":
		h, err := home()
		if err != nil || h == "" {
			return "", errors.New("home directory is not defined")
		}
		return filepath.Join(h, "Library", "Application Support"), nil
	default:
		if dir := getenv("XDG_CONFIG_HOME"); dir != "" {
			if !filepath.IsAbs(dir) {
				return "", errors.New("$XDG_CONFIG_HOME is not an absolute path")
			}
			return dir, nil
		}
		h, err := home()
		if err != nil || h == "" {
			return "", errors.New("neither $XDG_CONFIG_HOME nor $HOME are defined")
		}
		return filepath.Join(h, ".config"), nil
	}
}

// extensionsDir returns "" when it cannot be determined; a missing
// extensions directory only means no extensions are recorded.
func extensionsDir(goos, name string, getenv func(string) string, home func() (string, error)) string {
	if goos == "windows" {
		if dir := getenv("LOCALAPPDATA"); dir != "" {
			return filepath.Join(dir, name, "extensions")
		}
		return ""
	}
	h, err := home()
	if err != nil || h == "" {
		return ""
	}
	return filepath.Join(h, dotDir(name), "extensions")
}

func dotDir(name string) string {
	switch name {
	case "Code":
		return ".vscode"
	case "Code - Insiders":
		return ".vscode-insiders"
	case "VSCodium":
		return ".vscode-oss"
	}
	return "." + strings.ToLower(strings.ReplaceAll(name, " ", "-"))
}
