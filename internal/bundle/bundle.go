// Package bundle defines the settings snapshot exchanged with the remote
// store and its JSON document codec.
package bundle

import (
	"errors"
	"runtime"
	"time"

	"github.com/google/uuid"
)

// FormatVersion is written into every encoded document.
const FormatVersion = "2"

// ErrMalformedBundle is returned when a document cannot be decoded.
var ErrMalformedBundle = errors.New("malformed bundle")

// Extension describes one installed editor extension. Only the identifier is
// required.
type Extension struct {
	Identifier string `json:"identifier"`
	Version    string `json:"version,omitempty"`
	Publisher  string `json:"publisher,omitempty"`
}

// Bundle is a snapshot of the editor configuration for a single push or
// pull. Settings, keybindings and snippet contents are opaque JSON trees;
// numbers inside them are json.Number.
type Bundle struct {
	Settings    map[string]any
	Keybindings []map[string]any
	Snippets    map[string]map[string]any
	Extensions  []Extension
	SyncedAt    time.Time
	Platform    string
	SyncID      string
}

// New builds a bundle stamped with the current time, platform and a fresh
// sync ID. Nil containers become empty ones.
func New(settings map[string]any, keybindings []map[string]any, snippets map[string]map[string]any, extensions []Extension) Bundle {
	b := Bundle{
		Settings:    settings,
		Keybindings: keybindings,
		Snippets:    snippets,
		Extensions:  extensions,
		SyncedAt:    time.Now().UTC().Round(0),
		Platform:    runtime.GOOS,
		SyncID:      uuid.NewString(),
	}
	b.normalize()
	return b
}

func (b *Bundle) normalize() {
	if b.Settings == nil {
		b.Settings = map[string]any{}
	}
	if b.Keybindings == nil {
		b.Keybindings = []map[string]any{}
	}
	if b.Snippets == nil {
		b.Snippets = map[string]map[string]any{}
	}
	for name, content := range b.Snippets {
		if content == nil {
			b.Snippets[name] = map[string]any{}
		}
	}
	if b.Extensions == nil {
		b.Extensions = []Extension{}
	}
}
