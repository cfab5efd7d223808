package gist

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when the gist, or a file inside it, does not exist.
	ErrNotFound = errors.New("gist not found")

	// ErrTransport matches every *TransportError.
	ErrTransport = errors.New("remote transport error")
)

// TransportError describes a failed exchange with the GitHub API: either
// the request never completed (Err is set) or the API answered with an
// error status.
type TransportError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// Unauthorized reports whether the API rejected the token.
func (e *TransportError) Unauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// Gist is the subset of the GitHub gist resource used here.
type Gist struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Public      bool            `json:"public"`
	HTMLURL     string          `json:"html_url"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Files       map[string]File `json:"files"`
}

// File is one file of a gist. Content is only populated by Get.
type File struct {
	Filename  string `json:"filename"`
	Size      int    `json:"size"`
	RawURL    string `json:"raw_url"`
	Truncated bool   `json:"truncated"`
	Content   string `json:"content"`
}

type fileContent struct {
	Content string `json:"content"`
}

type writeRequest struct {
	Description string                 `json:"description,omitempty"`
	Public      *bool                  `json:"public,omitempty"`
	Files       map[string]fileContent `json:"files"`
}

type apiError struct {
	Message string `json:"message"`
}
