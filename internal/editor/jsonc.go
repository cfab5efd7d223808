package editor

import (
	"bytes"
	"encoding/json"
	"errors"
	"slices"

	"github.com/tailscale/hujson"
)

// errEmptyDocument reports a file holding only whitespace and comments.
var errEmptyDocument = errors.New("document is empty")

// decodeJSONC parses the JSON-with-comments dialect used by editor settings
// files. Numbers decode as json.Number.
func decodeJSONC(data []byte, v any) error {
	std, err := hujson.Standardize(slices.Clone(data))
	if err != nil {
		padded, perr := hujson.Standardize(append(slices.Clone(data), "\nnull"...))
		if perr == nil && bytes.Equal(bytes.TrimSpace(padded), []byte("null")) {
			return errEmptyDocument
		}
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(std))
	dec.UseNumber()
	return dec.Decode(v)
}

// encodeJSON renders v the way the editor writes its own files: two-space
// indent, no HTML escaping, trailing newline.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
