package main

import (
	"errors"

	"github.com/kalambet/cursync/internal/bundle"
	"github.com/kalambet/cursync/internal/config"
	"github.com/kalambet/cursync/internal/editor"
	"github.com/kalambet/cursync/internal/gist"
	"github.com/kalambet/cursync/internal/syncer"
)

// hint returns a one-line suggestion for the user, or "" when the error has
// no known remedy.
func hint(err error) string {
	var te *gist.TransportError
	switch {
	case errors.Is(err, config.ErrCredentialMissing):
		return "export GH_TOKEN=<token with gist scope>, or put it in a .env file"
	case errors.Is(err, editor.ErrConfigurationUnavailable):
		return "point cursync at the editor's User directory: cursync config set editor.user_dir <path>"
	case errors.Is(err, syncer.ErrNoRemoteBundle):
		return "nothing has been pushed yet; run `cursync push` on a configured machine first"
	case errors.Is(err, bundle.ErrMalformedBundle):
		return "the remote bundle is damaged; run `cursync push` from a healthy machine"
	case errors.As(err, &te) && te.Unauthorized():
		return "GitHub rejected the token; check that GH_TOKEN is valid and has the gist scope"
	case errors.Is(err, gist.ErrNotFound):
		return "the configured gist does not exist; check github.gist_id"
	case errors.Is(err, gist.ErrTransport):
		return "could not reach GitHub; check your network connection and retry"
	}
	return ""
}
