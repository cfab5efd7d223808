package config

import (
	"fmt"
	"os"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "github.api_url", typ: kString, env: "CURSYNC_GITHUB_API_URL",
		apply:   func(cfg *Config, v any) { cfg.GitHub.APIURL = v.(string) },
		extract: func(cfg Config) any { return cfg.GitHub.APIURL },
	},
	{
		key: "github.token", typ: kString, env: "GH_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.GitHub.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.GitHub.Token },
	},
	{
		key: "github.gist_id", typ: kString, env: "CURSYNC_GIST_ID",
		apply:   func(cfg *Config, v any) { cfg.GitHub.GistID = v.(string) },
		extract: func(cfg Config) any { return cfg.GitHub.GistID },
	},
	{
		key: "github.gist_description", typ: kString, env: "CURSYNC_GIST_DESCRIPTION",
		apply:   func(cfg *Config, v any) { cfg.GitHub.GistDescription = v.(string) },
		extract: func(cfg Config) any { return cfg.GitHub.GistDescription },
	},
	{
		key: "github.gist_filename", typ: kString, env: "CURSYNC_GIST_FILENAME",
		apply:   func(cfg *Config, v any) { cfg.GitHub.GistFilename = v.(string) },
		extract: func(cfg Config) any { return cfg.GitHub.GistFilename },
	},
	{
		key: "editor.name", typ: kString, env: "CURSYNC_EDITOR",
		apply:   func(cfg *Config, v any) { cfg.Editor.Name = v.(string) },
		extract: func(cfg Config) any { return cfg.Editor.Name },
	},
	{
		key: "editor.user_dir", typ: kString, env: "CURSYNC_EDITOR_USER_DIR",
		apply:   func(cfg *Config, v any) { cfg.Editor.UserDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Editor.UserDir },
	},
	{
		key: "editor.extensions_dir", typ: kString, env: "CURSYNC_EDITOR_EXTENSIONS_DIR",
		apply:   func(cfg *Config, v any) { cfg.Editor.ExtensionsDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Editor.ExtensionsDir },
	},
	{
		key: "editor.extensions_command", typ: kString, env: "CURSYNC_EDITOR_EXTENSIONS_COMMAND",
		apply:   func(cfg *Config, v any) { cfg.Editor.ExtensionsCommand = v.(string) },
		extract: func(cfg Config) any { return cfg.Editor.ExtensionsCommand },
	},
	{
		key: "storage.data_dir", typ: kString, env: "CURSYNC_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "CURSYNC_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "log.file", typ: kString, env: "CURSYNC_LOG_FILE",
		apply:   func(cfg *Config, v any) { cfg.Log.File = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.File },
	},
	{
		key: "http.timeout", typ: kDuration, env: "CURSYNC_HTTP_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.HTTP.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.HTTP.Timeout },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		v, ok, err := b.GetString(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok || v == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, v)
		case kDuration:
			if d, err := parsePositiveDuration(v); err == nil {
				s.apply(cfg, d)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] invalid duration in config key %s=%q: %v. Using default value.\n", s.key, v, err)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config, env lookuper) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw, ok := env.Lookup(s.env)
		if !ok {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kDuration:
			if d, err := parsePositiveDuration(raw); err == nil {
				s.apply(cfg, d)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] invalid duration in env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}

func parsePositiveDuration(v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return d, nil
}
