// Package store owns the durable user -> tracked packages mapping.
//
// The store is a single JSON document: read fully at the start of a run,
// mutated in memory, and written back by whole-file replacement at the end
// (at most once per run). Runs are externally serialized, so there is no
// file locking here; overlapping writers would be last-writer-wins.
package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"trackbot/internal/track"
	"trackbot/pkg/logx"
)

// Store is the persisted root document.
type Store struct {
	Users map[string][]track.Package `json:"users"`
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{Users: map[string][]track.Package{}}
}

// AddPackage appends a new package to the user's list. It returns false
// without mutation when the number (case-sensitive) is already tracked by
// that user; the same number may be tracked by different users.
func (s *Store) AddPackage(userID, number string) bool {
	for _, p := range s.Users[userID] {
		if p.Number == number {
			return false
		}
	}
	if s.Users == nil {
		s.Users = map[string][]track.Package{}
	}
	s.Users[userID] = append(s.Users[userID], track.NewPackage(number))
	return true
}

// DeletePackage removes the user's package by number. It returns false
// without mutation when the number is not tracked.
func (s *Store) DeletePackage(userID, number string) bool {
	list := s.Users[userID]
	for i, p := range list {
		if p.Number == number {
			s.Users[userID] = append(list[:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// Packages returns the user's list in insertion order.
func (s *Store) Packages(userID string) []track.Package {
	return s.Users[userID]
}

// Repository loads and saves the store file.
type Repository struct {
	path    string
	adminID string
	log     logx.Logger
}

func NewRepository(path, adminID string, log logx.Logger) *Repository {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Repository{path: path, adminID: adminID, log: log}
}

// legacyDoc accepts both the current shape and the historical
// single-user shape {"packages": [...]}.
type legacyDoc struct {
	Users    map[string][]track.Package `json:"users"`
	Packages []track.Package            `json:"packages"`
}

// Load reads the persisted store. It never fails: a missing file yields an
// empty store, and a malformed one is treated as empty with a warning
// (deliberate start-fresh-on-corruption policy). A legacy single-user
// document is migrated under the admin identity and persisted immediately.
func (r *Repository) Load() *Store {
	b, err := os.ReadFile(r.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.log.Warn("store unreadable, starting fresh", logx.String("path", r.path), logx.Err(err))
		}
		return NewStore()
	}

	var doc legacyDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		r.log.Warn("store malformed, starting fresh", logx.String("path", r.path), logx.Err(err))
		return NewStore()
	}

	s := &Store{Users: doc.Users}
	if s.Users == nil {
		s.Users = map[string][]track.Package{}
	}

	if doc.Users == nil && doc.Packages != nil {
		if r.adminID == "" {
			r.log.Warn("legacy store found but no admin identity configured; dropping legacy data",
				logx.Int("packages", len(doc.Packages)))
			return s
		}
		s.Users[r.adminID] = doc.Packages
		r.log.Info("migrated legacy store",
			logx.String("admin", r.adminID), logx.Int("packages", len(doc.Packages)))
		r.Save(s)
	}
	return s
}

// Save serializes the full store and replaces the file atomically
// (temp file + rename). Failures are logged, never raised: the next run
// simply observes the previous state, which is stale but safe.
func (r *Repository) Save(s *Store) {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		r.log.Error("store marshal failed", logx.Err(err))
		return
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		r.log.Error("store dir create failed", logx.String("dir", dir), logx.Err(err))
		return
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".tmp-*")
	if err != nil {
		r.log.Error("store temp create failed", logx.Err(err))
		return
	}
	tmpName := tmp.Name()
	_, werr := tmp.Write(b)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(tmpName)
		r.log.Error("store write failed", logx.Err(errors.Join(werr, cerr)))
		return
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		_ = os.Remove(tmpName)
		r.log.Error("store replace failed", logx.String("path", r.path), logx.Err(err))
	}
}
