// Package syncer pushes the local editor configuration to a gist and pulls
// it back. The remote copy is replaced wholesale on push and the local copy
// on pull; the last writer wins.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/cursync/internal/bundle"
	"github.com/kalambet/cursync/internal/editor"
	"github.com/kalambet/cursync/internal/gist"
	"github.com/kalambet/cursync/internal/storage"
)

// ErrNoRemoteBundle is returned by Pull when the gist or its bundle file
// does not exist yet.
var ErrNoRemoteBundle = errors.New("no remote bundle found")

// Collector reads the local configuration. Implemented by editor.Collector.
type Collector interface {
	Collect(ctx context.Context) bundle.Bundle
}

// Applier writes a bundle to the local configuration. Implemented by
// editor.Applier.
type Applier interface {
	Apply(b bundle.Bundle) (editor.ApplyResult, error)
}

// RemoteStore is the subset of the gist API the service needs.
// Implemented by gist.Client.
type RemoteStore interface {
	FindByDescription(ctx context.Context, description string) (gist.Gist, error)
	Get(ctx context.Context, id string) (gist.Gist, error)
	FileContent(ctx context.Context, g gist.Gist, filename string) (string, error)
	Create(ctx context.Context, description, filename, content string) (gist.Gist, error)
	Update(ctx context.Context, id, description, filename, content string) (gist.Gist, error)
}

// Journal records sync runs. Implemented by storage.Store.
type Journal interface {
	SaveRun(r storage.Run) error
}

// Options identify the remote gist.
type Options struct {
	// Description is the well-known description used to find the gist.
	Description string
	// Filename is the name of the bundle file inside the gist.
	Filename string
	// GistID pins a specific gist and skips the description lookup.
	GistID string
}

// PushResult describes a completed push.
type PushResult struct {
	GistID  string
	URL     string
	Created bool
	Bundle  bundle.Bundle
}

// PullResult describes a completed pull.
type PullResult struct {
	GistID  string
	URL     string
	Bundle  bundle.Bundle
	Applied editor.ApplyResult
}

// Service runs push and pull.
type Service struct {
	collector Collector
	applier   Applier
	remote    RemoteStore
	journal   Journal
	opts      Options
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires a Service. journal may be nil to disable run history.
func NewService(collector Collector, applier Applier, remote RemoteStore, journal Journal, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		collector: collector,
		applier:   applier,
		remote:    remote,
		journal:   journal,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// Push uploads a fresh snapshot of the local configuration, updating the
// existing gist or creating a secret one.
func (s *Service) Push(ctx context.Context) (PushResult, error) {
	res, err := s.push(ctx)
	run := storage.Run{Operation: storage.OpPush, GistID: res.GistID, SyncID: res.Bundle.SyncID}
	switch {
	case err != nil:
		run.Detail = err.Error()
	case res.Created:
		run.Detail = "created"
	default:
		run.Detail = "updated"
	}
	s.record(run, err)
	return res, err
}

func (s *Service) push(ctx context.Context) (PushResult, error) {
	b := s.collector.Collect(ctx)
	res := PushResult{Bundle: b}

	data, err := bundle.Encode(b)
	if err != nil {
		return res, fmt.Errorf("encoding bundle: %w", err)
	}

	existing, err := s.lookup(ctx)
	switch {
	case err == nil:
		g, err := s.remote.Update(ctx, existing.ID, s.opts.Description, s.opts.Filename, string(data))
		if err != nil {
			return res, fmt.Errorf("updating gist %s: %w", existing.ID, err)
		}
		res.GistID, res.URL = g.ID, g.HTMLURL
		s.logger.Info("updated gist", "id", g.ID)
	case errors.Is(err, gist.ErrNotFound) && s.opts.GistID == "":
		g, err := s.remote.Create(ctx, s.opts.Description, s.opts.Filename, string(data))
		if err != nil {
			return res, fmt.Errorf("creating gist: %w", err)
		}
		res.GistID, res.URL, res.Created = g.ID, g.HTMLURL, true
		s.logger.Info("created gist", "id", g.ID)
	default:
		// A pinned gist that has disappeared is not silently replaced.
		return res, err
	}
	return res, nil
}

// Pull downloads the bundle and overwrites the local configuration with it.
// Nothing is written when the gist or bundle is missing or cannot be
// decoded.
func (s *Service) Pull(ctx context.Context) (PullResult, error) {
	res, err := s.pull(ctx)
	run := storage.Run{Operation: storage.OpPull, GistID: res.GistID, SyncID: res.Bundle.SyncID}
	if err != nil {
		run.Detail = err.Error()
	} else {
		run.Detail = fmt.Sprintf("%d written, %d removed", len(res.Applied.Written), len(res.Applied.Removed))
	}
	s.record(run, err)
	return res, err
}

func (s *Service) pull(ctx context.Context) (PullResult, error) {
	var res PullResult

	g, err := s.lookup(ctx)
	if errors.Is(err, gist.ErrNotFound) {
		return res, fmt.Errorf("%w: %v", ErrNoRemoteBundle, err)
	}
	if err != nil {
		return res, err
	}
	res.GistID, res.URL = g.ID, g.HTMLURL

	// Listings carry no content; fetch the full gist.
	if s.opts.GistID == "" {
		g, err = s.remote.Get(ctx, g.ID)
		if errors.Is(err, gist.ErrNotFound) {
			return res, fmt.Errorf("%w: %v", ErrNoRemoteBundle, err)
		}
		if err != nil {
			return res, fmt.Errorf("fetching gist %s: %w", res.GistID, err)
		}
	}

	content, err := s.remote.FileContent(ctx, g, s.opts.Filename)
	if errors.Is(err, gist.ErrNotFound) {
		return res, fmt.Errorf("%w: %v", ErrNoRemoteBundle, err)
	}
	if err != nil {
		return res, err
	}

	b, err := bundle.Decode([]byte(content))
	if err != nil {
		return res, fmt.Errorf("decoding %s: %w", s.opts.Filename, err)
	}
	res.Bundle = b
	s.logger.Info("downloaded bundle", "gist", g.ID, "sync_id", b.SyncID, "synced_at", b.SyncedAt)

	applied, err := s.applier.Apply(b)
	res.Applied = applied
	if err != nil {
		return res, fmt.Errorf("applying bundle: %w", err)
	}
	return res, nil
}

// lookup resolves the remote gist, by ID when one is pinned and by
// description otherwise.
func (s *Service) lookup(ctx context.Context) (gist.Gist, error) {
	if s.opts.GistID != "" {
		g, err := s.remote.Get(ctx, s.opts.GistID)
		if err != nil {
			return gist.Gist{}, fmt.Errorf("gist %s: %w", s.opts.GistID, err)
		}
		return g, nil
	}
	return s.remote.FindByDescription(ctx, s.opts.Description)
}

func (s *Service) record(run storage.Run, opErr error) {
	if s.journal == nil {
		return
	}
	run.ID = uuid.NewString()
	run.CreatedAt = s.now()
	run.Status = storage.StatusOK
	if opErr != nil {
		run.Status = storage.StatusFailed
	}
	if err := s.journal.SaveRun(run); err != nil {
		s.logger.Warn("could not record sync run", "operation", run.Operation, "error", err)
	}
}
