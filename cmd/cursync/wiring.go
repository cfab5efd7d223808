package main

import (
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/kalambet/cursync/internal/editor"
	"github.com/kalambet/cursync/internal/gist"
	"github.com/kalambet/cursync/internal/storage"
	"github.com/kalambet/cursync/internal/syncer"
)

// session is a wired sync service plus what the commands report about it.
type session struct {
	svc   *syncer.Service
	paths editor.Paths
	close func()
}

// newSession resolves the credential and the editor location and wires the
// sync service. The credential is checked first so a missing token is
// reported before anything touches the network or the disk.
func (a *app) newSession() (*session, error) {
	token, err := a.cfg.Credential()
	if err != nil {
		return nil, err
	}

	paths, err := editor.Locate(a.cfg.Editor.Name, editor.Overrides{
		UserDir:       a.cfg.Editor.UserDir,
		ExtensionsDir: a.cfg.Editor.ExtensionsDir,
	})
	if err != nil {
		return nil, err
	}

	userFS := osfs.New(paths.UserDir)

	var lister editor.ExtensionLister
	switch {
	case a.cfg.Editor.ExtensionsCommand != "":
		lister = editor.NewCLILister(a.cfg.Editor.ExtensionsCommand)
	case paths.ExtensionsDir != "":
		lister = editor.NewDirLister(osfs.New(paths.ExtensionsDir))
	default:
		lister = editor.NewDirLister(nil)
	}

	client := gist.NewClientWithBaseURL(token, a.cfg.GitHub.APIURL).WithTimeout(a.cfg.HTTP.Timeout)

	s := &session{paths: paths, close: func() {}}

	// History is best effort; sync works without it.
	var journal syncer.Journal
	store, err := storage.Open(a.cfg.Storage.DataDir)
	if err != nil {
		a.logger.Warn("sync history disabled", "error", err)
	} else {
		journal = store
		s.close = func() { store.Close() }
	}

	s.svc = syncer.NewService(
		editor.NewCollector(userFS, lister, a.logger),
		editor.NewApplier(userFS, a.logger),
		client,
		journal,
		syncer.Options{
			Description: a.cfg.GitHub.GistDescription,
			Filename:    a.cfg.GitHub.GistFilename,
			GistID:      a.cfg.GitHub.GistID,
		},
		a.logger,
	)
	return s, nil
}
