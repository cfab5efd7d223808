package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// ErrCredentialMissing is returned when no GitHub token can be resolved.
var ErrCredentialMissing = errors.New("credential missing")

const appName = "cursync"

type Config struct {
	GitHub  GitHubConfig
	Editor  EditorConfig
	Storage StorageConfig
	Log     LogConfig
	HTTP    HTTPConfig
}

type GitHubConfig struct {
	APIURL          string
	Token           string
	GistID          string
	GistDescription string
	GistFilename    string
}

type EditorConfig struct {
	Name              string
	UserDir           string
	ExtensionsDir     string
	ExtensionsCommand string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
	// File receives a DEBUG-level copy of the log; "off" disables it.
	File string
}

type HTTPConfig struct {
	Timeout time.Duration
}

func defaults() Config {
	return Config{
		GitHub: GitHubConfig{
			APIURL:          "https://api.github.com",
			GistDescription: "Cursor Editor Settings Sync",
			GistFilename:    "cursor-settings.json",
		},
		Editor: EditorConfig{
			Name: "Cursor",
		},
		Storage: StorageConfig{
			DataDir: filepath.Join(xdg.DataHome, appName),
		},
		Log: LogConfig{
			Level: "warn",
			File:  filepath.Join(xdg.StateHome, appName, "cursor-sync.log"),
		},
		HTTP: HTTPConfig{
			Timeout: 30 * time.Second,
		},
	}
}

// Load reads configuration from the JSON config file, then applies
// environment overrides. Variables missing from the process environment are
// looked up in .env files (./.env, then $XDG_CONFIG_HOME/cursync/.env).
//
// Load does not require the GitHub token; commands that talk to the remote
// store call Credential.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()), newEnvSource(dotenvPaths()...))
}

// LoadUnchecked is Load without Validate. The config subcommands use it so a
// bad value can still be inspected and repaired.
func LoadUnchecked() (Config, error) {
	return loadUnchecked(newFileBackend(configFilePath()), newEnvSource(dotenvPaths()...))
}

func loadWith(b ConfigBackend, env lookuper) (Config, error) {
	cfg, err := loadUnchecked(b, env)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadUnchecked(b ConfigBackend, env lookuper) (Config, error) {
	cfg := defaults()
	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg, env)
	return cfg, nil
}

// Validate reports values no command can run with.
func (c Config) Validate() error {
	if c.GitHub.GistFilename == "" {
		return fmt.Errorf("invalid config: github.gist_filename must not be empty")
	}
	if c.GitHub.GistDescription == "" && c.GitHub.GistID == "" {
		return fmt.Errorf("invalid config: one of github.gist_description or github.gist_id is required")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("invalid config: http.timeout must be positive")
	}
	return nil
}

// Credential returns the GitHub token, or ErrCredentialMissing.
func (c Config) Credential() (string, error) {
	if c.GitHub.Token == "" {
		return "", fmt.Errorf("%w: set GH_TOKEN in the environment or in a .env file", ErrCredentialMissing)
	}
	return c.GitHub.Token, nil
}

func configFilePath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.json")
}

func dotenvPaths() []string {
	return []string{".env", filepath.Join(xdg.ConfigHome, appName, ".env")}
}
