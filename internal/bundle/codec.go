package bundle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// document is the wire shape of a bundle.
type document struct {
	Version     string                    `json:"version"`
	Platform    string                    `json:"platform,omitempty"`
	SyncID      string                    `json:"syncId,omitempty"`
	SyncedAt    string                    `json:"syncedAt,omitempty"`
	Settings    map[string]any            `json:"settings"`
	Keybindings []map[string]any          `json:"keybindings"`
	Snippets    map[string]map[string]any `json:"snippets"`
	Extensions  []Extension               `json:"extensions"`
}

// legacyExtension accepts both the current shape and the name/publisher
// entries written by version 1.0 documents.
type legacyExtension struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Version    string `json:"version"`
	Publisher  string `json:"publisher"`
}

// Encode serializes b into a single indented JSON document.
func Encode(b Bundle) ([]byte, error) {
	b.normalize()
	for i, ext := range b.Extensions {
		if ext.Identifier == "" {
			return nil, fmt.Errorf("encoding bundle: extension %d has no identifier", i)
		}
	}

	doc := document{
		Version:     FormatVersion,
		Platform:    b.Platform,
		SyncID:      b.SyncID,
		Settings:    b.Settings,
		Keybindings: b.Keybindings,
		Snippets:    b.Snippets,
		Extensions:  b.Extensions,
	}
	if !b.SyncedAt.IsZero() {
		doc.SyncedAt = b.SyncedAt.UTC().Format(time.RFC3339Nano)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding bundle: %w", err)
	}
	return data, nil
}

// Decode parses a document produced by Encode, or by an earlier version of
// the tool. Fields missing from the document decode to their empty value.
func Decode(data []byte) (Bundle, error) {
	var top map[string]json.RawMessage
	if err := unmarshal(data, &top); err != nil {
		return Bundle{}, fmt.Errorf("%w: %v", ErrMalformedBundle, err)
	}
	if top == nil {
		return Bundle{}, fmt.Errorf("%w: top level is not an object", ErrMalformedBundle)
	}

	var b Bundle
	if err := field(top, "platform", &b.Platform); err != nil {
		return Bundle{}, err
	}
	if err := field(top, "syncId", &b.SyncID); err != nil {
		return Bundle{}, err
	}

	var syncedAt string
	if err := field(top, "syncedAt", &syncedAt); err != nil {
		return Bundle{}, err
	}
	if syncedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, syncedAt)
		if err != nil {
			return Bundle{}, fmt.Errorf("%w: syncedAt: %v", ErrMalformedBundle, err)
		}
		b.SyncedAt = t.UTC()
	}

	if err := field(top, "settings", &b.Settings); err != nil {
		return Bundle{}, err
	}
	if err := field(top, "snippets", &b.Snippets); err != nil {
		return Bundle{}, err
	}

	kb, err := decodeKeybindings(top["keybindings"])
	if err != nil {
		return Bundle{}, err
	}
	b.Keybindings = kb

	exts, err := decodeExtensions(top["extensions"])
	if err != nil {
		return Bundle{}, err
	}
	b.Extensions = exts

	b.normalize()
	return b, nil
}

// decodeKeybindings accepts an array of objects. Version 1.0 documents wrote
// an empty object when no keybindings existed.
func decodeKeybindings(raw json.RawMessage) ([]map[string]any, error) {
	if isNull(raw) {
		return nil, nil
	}
	var kb []map[string]any
	if err := unmarshal(raw, &kb); err == nil {
		return kb, nil
	}
	var obj map[string]any
	if err := unmarshal(raw, &obj); err == nil && len(obj) == 0 {
		return nil, nil
	}
	return nil, fmt.Errorf("%w: keybindings must be an array of objects", ErrMalformedBundle)
}

func decodeExtensions(raw json.RawMessage) ([]Extension, error) {
	if isNull(raw) {
		return nil, nil
	}
	var entries []legacyExtension
	if err := unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: extensions: %v", ErrMalformedBundle, err)
	}

	exts := make([]Extension, 0, len(entries))
	for i, e := range entries {
		if e.Identifier != "" {
			exts = append(exts, Extension{Identifier: e.Identifier, Version: e.Version, Publisher: e.Publisher})
			continue
		}
		if e.Name == "" {
			return nil, fmt.Errorf("%w: extension %d has no identifier", ErrMalformedBundle, i)
		}
		exts = append(exts, fromLegacy(e))
	}
	return exts, nil
}

func fromLegacy(e legacyExtension) Extension {
	publisher := e.Publisher
	if publisher == "unknown" {
		publisher = ""
	}
	version := e.Version
	if version == "unknown" {
		version = ""
	}
	id := e.Name
	if publisher != "" && !strings.HasPrefix(strings.ToLower(id), strings.ToLower(publisher)+".") {
		id = publisher + "." + id
	}
	return Extension{Identifier: id, Version: version, Publisher: publisher}
}

func field(top map[string]json.RawMessage, key string, v any) error {
	raw, ok := top[key]
	if !ok || isNull(raw) {
		return nil
	}
	if err := unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedBundle, key, err)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// unmarshal decodes with UseNumber so numeric values survive a round trip
// without float conversion, and rejects trailing data.
func unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after top-level value")
	}
	return nil
}
