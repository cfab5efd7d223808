package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

const (
	OpPush = "push"
	OpPull = "pull"

	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Run is one push or pull recorded in the sync journal.
type Run struct {
	ID        string
	CreatedAt time.Time
	Operation string // "push" or "pull"
	Status    string // "ok" or "failed"
	GistID    string
	SyncID    string // syncId of the bundle pushed or pulled
	Detail    string
}
