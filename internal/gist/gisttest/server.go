// Package gisttest provides an in-memory fake of the GitHub gists API.
package gisttest

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/cursync/internal/gist"
)

// Server is a fake gist API backed by a map. Only the authenticated user's
// gists exist; every request must carry the configured bearer token.
type Server struct {
	*httptest.Server

	// TruncateAbove makes GET /gists/{id} truncate inline contents longer
	// than this many bytes, like the real API does above 1 MB. Zero
	// disables truncation.
	TruncateAbove int

	token string

	mu       sync.Mutex
	gists    map[string]*gist.Gist
	order    []string
	nextID   int
	requests []string
}

type writeRequest struct {
	Description *string `json:"description"`
	Public      *bool   `json:"public"`
	Files       map[string]*struct {
		Content string `json:"content"`
	} `json:"files"`
}

// NewServer starts a fake API that accepts token. It is closed when the
// test ends.
func NewServer(t testing.TB, token string) *Server {
	t.Helper()
	s := &Server{token: token, gists: make(map[string]*gist.Gist)}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Get("/raw/{id}/{file}", s.handleRaw)
	r.Group(func(r chi.Router) {
		r.Use(bearerAuth(token))
		r.Get("/gists", s.handleList)
		r.Post("/gists", s.handleCreate)
		r.Get("/gists/{id}", s.handleGet)
		r.Patch("/gists/{id}", s.handleUpdate)
	})

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Server.Close)
	return s
}

// Seed stores a gist directly and returns its ID.
func (s *Server) Seed(description string, files map[string]string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.newGist(description)
	for name, content := range files {
		g.Files[name] = gist.File{Filename: name, Content: content, Size: len(content)}
	}
	return g.ID
}

// Content returns the stored content of a file.
func (s *Server) Content(id, filename string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.gists[id]
	if !ok {
		return "", false
	}
	f, ok := g.Files[filename]
	return f.Content, ok
}

// Count returns the number of stored gists.
func (s *Server) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.gists)
}

// Requests returns "METHOD /path" for every request received so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) newGist(description string) *gist.Gist {
	s.nextID++
	id := fmt.Sprintf("g%04d", s.nextID)
	g := &gist.Gist{
		ID:          id,
		Description: description,
		HTMLURL:     s.URL + "/gist/" + id,
		UpdatedAt:   time.Now().UTC(),
		Files:       make(map[string]gist.File),
	}
	s.gists[id] = g
	s.order = append(s.order, id)
	return g
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	perPage := intParam(r, "per_page", 30)
	page := intParam(r, "page", 1)

	s.mu.Lock()
	defer s.mu.Unlock()

	out := []gist.Gist{}
	start := (page - 1) * perPage
	for i := start; i < len(s.order) && i < start+perPage; i++ {
		g := *s.gists[s.order[i]]
		g.Files = make(map[string]gist.File)
		for name, f := range s.gists[s.order[i]].Files {
			f.Content = ""
			f.RawURL = s.rawURL(g.ID, name)
			g.Files[name] = f
		}
		out = append(out, g)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.gists[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	writeJSON(w, http.StatusOK, s.render(g))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req writeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Files) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "Validation Failed")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	description := ""
	if req.Description != nil {
		description = *req.Description
	}
	g := s.newGist(description)
	if req.Public != nil {
		g.Public = *req.Public
	}
	for name, f := range req.Files {
		if f != nil {
			g.Files[name] = gist.File{Filename: name, Content: f.Content, Size: len(f.Content)}
		}
	}
	writeJSON(w, http.StatusCreated, s.render(g))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req writeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Validation Failed")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.gists[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	if req.Description != nil {
		g.Description = *req.Description
	}
	for name, f := range req.Files {
		if f == nil {
			delete(g.Files, name)
			continue
		}
		g.Files[name] = gist.File{Filename: name, Content: f.Content, Size: len(f.Content)}
	}
	g.UpdatedAt = time.Now().UTC()
	writeJSON(w, http.StatusOK, s.render(g))
}

func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.gists[chi.URLParam(r, "id")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	f, ok := g.Files[chi.URLParam(r, "file")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(f.Content))
}

// render returns a copy of g as the API would serve it.
func (s *Server) render(g *gist.Gist) gist.Gist {
	out := *g
	out.Files = make(map[string]gist.File, len(g.Files))
	for name, f := range g.Files {
		f.RawURL = s.rawURL(g.ID, name)
		if s.TruncateAbove > 0 && len(f.Content) > s.TruncateAbove {
			f.Content = f.Content[:s.TruncateAbove]
			f.Truncated = true
		}
		out.Files[name] = f
	}
	return out
}

func (s *Server) rawURL(id, file string) string {
	return s.URL + "/raw/" + id + "/" + file
}

func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) || subtle.ConstantTimeCompare([]byte(auth[len(prefix):]), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "Bad credentials")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func intParam(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 1 {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
