package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// memBackend is an in-memory ConfigBackend.
type memBackend map[string]string

func (m memBackend) GetString(key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m memBackend) SetString(key, val string) error {
	m[key] = val
	return nil
}

func (m memBackend) Delete(key string) error {
	delete(m, key)
	return nil
}

// fakeEnv builds an envSource that ignores the process environment.
func fakeEnv(process, dotenv map[string]string) envSource {
	return envSource{
		getenv: func(k string) (string, bool) {
			v, ok := process[k]
			return v, ok
		},
		dotenv: dotenv,
	}
}

// TestDefaults verifies all default values are applied with an empty backend.
func TestDefaults(t *testing.T) {
	cfg, err := loadWith(memBackend{}, fakeEnv(nil, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.GitHub.APIURL != "https://api.github.com" {
		t.Errorf("GitHub.APIURL = %q, want %q", cfg.GitHub.APIURL, "https://api.github.com")
	}
	if cfg.GitHub.GistFilename != "cursor-settings.json" {
		t.Errorf("GitHub.GistFilename = %q, want %q", cfg.GitHub.GistFilename, "cursor-settings.json")
	}
	if cfg.GitHub.GistDescription != "Cursor Editor Settings Sync" {
		t.Errorf("GitHub.GistDescription = %q, want %q", cfg.GitHub.GistDescription, "Cursor Editor Settings Sync")
	}
	if cfg.Editor.Name != "Cursor" {
		t.Errorf("Editor.Name = %q, want %q", cfg.Editor.Name, "Cursor")
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "warn")
	}
	if filepath.Base(cfg.Log.File) != "cursor-sync.log" {
		t.Errorf("Log.File = %q, want a cursor-sync.log path", cfg.Log.File)
	}
	if cfg.HTTP.Timeout != 30*time.Second {
		t.Errorf("HTTP.Timeout = %v, want 30s", cfg.HTTP.Timeout)
	}
	if !strings.HasSuffix(cfg.Storage.DataDir, "cursync") {
		t.Errorf("Storage.DataDir = %q, want it to end in cursync", cfg.Storage.DataDir)
	}
}

// TestBackendValues verifies values from the config file are applied.
func TestBackendValues(t *testing.T) {
	b := memBackend{
		"github.gist_id":   "abc123",
		"editor.name":      "Code",
		"editor.user_dir":  "/tmp/user",
		"http.timeout":     "5s",
		"github.token":     "must-be-ignored",
		"storage.data_dir": "/tmp/data",
	}

	cfg, err := loadWith(b, fakeEnv(nil, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.GitHub.GistID != "abc123" {
		t.Errorf("GistID = %q, want abc123", cfg.GitHub.GistID)
	}
	if cfg.Editor.Name != "Code" {
		t.Errorf("Editor.Name = %q, want Code", cfg.Editor.Name)
	}
	if cfg.Editor.UserDir != "/tmp/user" {
		t.Errorf("Editor.UserDir = %q, want /tmp/user", cfg.Editor.UserDir)
	}
	if cfg.HTTP.Timeout != 5*time.Second {
		t.Errorf("HTTP.Timeout = %v, want 5s", cfg.HTTP.Timeout)
	}
	if cfg.Storage.DataDir != "/tmp/data" {
		t.Errorf("Storage.DataDir = %q, want /tmp/data", cfg.Storage.DataDir)
	}
	if cfg.GitHub.Token != "" {
		t.Errorf("Token = %q, secrets must not be read from the config file", cfg.GitHub.Token)
	}
}

// TestEnvOverride verifies that environment variables override config file values.
func TestEnvOverride(t *testing.T) {
	b := memBackend{"editor.name": "Code"}
	env := fakeEnv(map[string]string{
		"CURSYNC_EDITOR": "Cursor Nightly",
		"GH_TOKEN":       "env-token",
	}, nil)

	cfg, err := loadWith(b, env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Editor.Name != "Cursor Nightly" {
		t.Errorf("Editor.Name = %q, want %q", cfg.Editor.Name, "Cursor Nightly")
	}
	if cfg.GitHub.Token != "env-token" {
		t.Errorf("Token = %q, want env-token", cfg.GitHub.Token)
	}
}

// TestDotenvFallback verifies process env wins over .env and .env fills gaps.
func TestDotenvFallback(t *testing.T) {
	env := fakeEnv(
		map[string]string{"CURSYNC_GIST_ID": "from-process"},
		map[string]string{"GH_TOKEN": "from-dotenv", "CURSYNC_GIST_ID": "from-dotenv"},
	)

	cfg, err := loadWith(memBackend{}, env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.GitHub.Token != "from-dotenv" {
		t.Errorf("Token = %q, want from-dotenv", cfg.GitHub.Token)
	}
	if cfg.GitHub.GistID != "from-process" {
		t.Errorf("GistID = %q, want from-process", cfg.GitHub.GistID)
	}
}

func TestNewEnvSource_ReadsFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.env")
	second := filepath.Join(dir, "second.env")
	if err := os.WriteFile(first, []byte("GH_TOKEN=first\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(second, []byte("GH_TOKEN=second\nCURSYNC_EDITOR=Code\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	src := newEnvSource(first, filepath.Join(dir, "missing.env"), second)
	src.getenv = func(string) (string, bool) { return "", false }

	if v, _ := src.Lookup("GH_TOKEN"); v != "first" {
		t.Errorf("GH_TOKEN = %q, want first", v)
	}
	if v, _ := src.Lookup("CURSYNC_EDITOR"); v != "Code" {
		t.Errorf("CURSYNC_EDITOR = %q, want Code", v)
	}
	if _, ok := src.Lookup("NOPE"); ok {
		t.Error("Lookup(NOPE) reported a value")
	}
}

func TestCredential(t *testing.T) {
	cfg, err := loadWith(memBackend{}, fakeEnv(nil, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := cfg.Credential(); !errors.Is(err, ErrCredentialMissing) {
		t.Fatalf("Credential() error = %v, want ErrCredentialMissing", err)
	}

	cfg.GitHub.Token = "tok"
	tok, err := cfg.Credential()
	if err != nil {
		t.Fatalf("Credential() error = %v", err)
	}
	if tok != "tok" {
		t.Errorf("Credential() = %q, want tok", tok)
	}
}

func TestInvalidDurationKeepsDefault(t *testing.T) {
	cfg, err := loadWith(memBackend{}, fakeEnv(map[string]string{"CURSYNC_HTTP_TIMEOUT": "soon"}, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Timeout != 30*time.Second {
		t.Errorf("HTTP.Timeout = %v, want default 30s", cfg.HTTP.Timeout)
	}
}

func TestEmptyFilenameRejected(t *testing.T) {
	_, err := loadWith(memBackend{}, fakeEnv(map[string]string{"CURSYNC_GIST_FILENAME": ""}, nil))
	if err != nil {
		t.Fatalf("empty env var must not override: %v", err)
	}

	b := &fileBackend{path: filepath.Join(t.TempDir(), "config.json"), data: map[string]any{"github.gist_filename": ""}}
	if _, err := loadWith(b, fakeEnv(nil, nil)); err != nil {
		t.Fatalf("empty file value must not override: %v", err)
	}
}

func TestSetKey(t *testing.T) {
	b := memBackend{}

	if err := setKeyWith(b, "editor.name", "Code"); err != nil {
		t.Fatalf("setKeyWith: %v", err)
	}
	if b["editor.name"] != "Code" {
		t.Errorf("editor.name = %q, want Code", b["editor.name"])
	}

	if err := setKeyWith(b, "editor.name", ""); err != nil {
		t.Fatalf("setKeyWith clear: %v", err)
	}
	if _, ok := b["editor.name"]; ok {
		t.Error("empty value should delete the key")
	}

	if err := setKeyWith(b, "github.token", "x"); err == nil {
		t.Error("expected error setting a secret")
	}
	if err := setKeyWith(b, "http.timeout", "forever"); err == nil {
		t.Error("expected error for invalid duration")
	}
	if err := setKeyWith(b, "nope", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestSetKey_RejectsNonPositiveDuration(t *testing.T) {
	b := memBackend{}
	for _, v := range []string{"0s", "-5s"} {
		if err := setKeyWith(b, "http.timeout", v); err == nil {
			t.Errorf("setKeyWith(http.timeout, %q) succeeded, want error", v)
		}
	}
	if _, ok := b["http.timeout"]; ok {
		t.Error("rejected value must not be stored")
	}

	if err := setKeyWith(b, "http.timeout", "45s"); err != nil {
		t.Fatalf("setKeyWith(45s): %v", err)
	}
	cfg, err := loadWith(b, fakeEnv(nil, nil))
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.HTTP.Timeout != 45*time.Second {
		t.Errorf("HTTP.Timeout = %v, want 45s", cfg.HTTP.Timeout)
	}
}

// A zero timeout written to the file by hand (or by an older version) must
// not lock every command out of the config.
func TestNonPositiveStoredTimeoutKeepsDefault(t *testing.T) {
	b := memBackend{"http.timeout": "0s"}
	cfg, err := loadWith(b, fakeEnv(map[string]string{"CURSYNC_HTTP_TIMEOUT": "-1s"}, nil))
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.HTTP.Timeout != 30*time.Second {
		t.Errorf("HTTP.Timeout = %v, want default 30s", cfg.HTTP.Timeout)
	}
}

func TestLoadUncheckedSkipsValidation(t *testing.T) {
	cfg, err := loadUnchecked(memBackend{}, fakeEnv(nil, nil))
	if err != nil {
		t.Fatalf("loadUnchecked: %v", err)
	}
	cfg.HTTP.Timeout = 0
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "http.timeout") {
		t.Errorf("Validate() = %v, want http.timeout error", err)
	}
}

func TestFileBackendPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	b := newFileBackend(path)
	if err := b.SetString("editor.name", "Code"); err != nil {
		t.Fatalf("SetString: %v", err)
	}

	reloaded := newFileBackend(path)
	v, ok, err := reloaded.GetString("editor.name")
	if err != nil || !ok || v != "Code" {
		t.Errorf("GetString = (%q, %v, %v), want (Code, true, nil)", v, ok, err)
	}
}

func TestShowAllHidesSecrets(t *testing.T) {
	cfg := defaults()
	cfg.GitHub.Token = "secret"
	for _, k := range ShowAll(cfg) {
		if k.Key == "github.token" || k.Value == "secret" {
			t.Errorf("ShowAll leaked secret key %q", k.Key)
		}
	}
	if len(ShowAll(cfg)) != len(ValidKeys()) {
		t.Errorf("ShowAll and ValidKeys disagree")
	}
}
