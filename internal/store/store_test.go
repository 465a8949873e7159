package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackbot/internal/track"
	"trackbot/pkg/logx"
)

func repoAt(t *testing.T, adminID string) (*Repository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracking.json")
	return NewRepository(path, adminID, logx.Nop()), path
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	r, _ := repoAt(t, "42")
	s := r.Load()
	require.NotNil(t, s)
	assert.Empty(t, s.Users)
}

func TestLoadMalformedStartsFresh(t *testing.T) {
	r, path := repoAt(t, "42")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := r.Load()
	require.NotNil(t, s)
	assert.Empty(t, s.Users)
}

func TestLegacyMigrationRunsOnce(t *testing.T) {
	r, path := repoAt(t, "42")
	legacy := `{"packages":[{"number":"N2512345678","last_status":"Active","last_details":"In transit @ x"}]}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	s := r.Load()
	require.Len(t, s.Users["42"], 1)
	assert.Equal(t, "N2512345678", s.Users["42"][0].Number)
	assert.Equal(t, "In transit @ x", s.Users["42"][0].LastDetails)

	// The file on disk is rewritten to the migrated shape immediately.
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &onDisk))
	assert.Contains(t, onDisk, "users")
	assert.NotContains(t, onDisk, "packages")

	// Loading again is a plain load, not a second migration.
	again := r.Load()
	require.Len(t, again.Users["42"], 1)
}

func TestLegacyWithoutAdminIsDropped(t *testing.T) {
	r, path := repoAt(t, "")
	legacy := `{"packages":[{"number":"N2512345678"}]}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	s := r.Load()
	assert.Empty(t, s.Users, "no admin identity: legacy data dropped rather than guessed")
}

func TestEmptyUsersDocIsNotLegacy(t *testing.T) {
	r, path := repoAt(t, "42")
	require.NoError(t, os.WriteFile(path, []byte(`{"users":{}}`), 0o644))

	s := r.Load()
	assert.Empty(t, s.Users)
}

func TestAddPackage(t *testing.T) {
	s := NewStore()

	require.True(t, s.AddPackage("u1", "ABC123"))
	require.False(t, s.AddPackage("u1", "ABC123"), "duplicate add rejected")
	require.Len(t, s.Packages("u1"), 1)

	p := s.Packages("u1")[0]
	assert.Equal(t, "ABC123", p.Number)
	assert.Equal(t, "New", p.LastStatus)
	assert.Empty(t, p.LastDetails)

	// Same number under a different user is independent ownership.
	assert.True(t, s.AddPackage("u2", "ABC123"))

	// Case-sensitive identity.
	assert.True(t, s.AddPackage("u1", "abc123"))
}

func TestDeletePackage(t *testing.T) {
	s := NewStore()
	s.AddPackage("u1", "A")
	s.AddPackage("u1", "B")
	s.AddPackage("u1", "C")

	require.False(t, s.DeletePackage("u1", "NOTPRESENT"))
	require.Len(t, s.Packages("u1"), 3)

	require.True(t, s.DeletePackage("u1", "B"))
	nums := []string{}
	for _, p := range s.Packages("u1") {
		nums = append(nums, p.Number)
	}
	assert.Equal(t, []string{"A", "C"}, nums, "insertion order preserved")
}

func TestSaveRoundTrip(t *testing.T) {
	r, path := repoAt(t, "42")
	s := NewStore()
	s.AddPackage("u1", "N2512345678")
	pkg := &s.Users["u1"][0]
	track.ApplySnapshot(pkg, track.Snapshot{Header: track.HeaderActive, Summary: "In transit @ y"})

	r.Save(s)
	require.FileExists(t, path)

	loaded := r.Load()
	require.Len(t, loaded.Users["u1"], 1)
	assert.Equal(t, "In transit @ y", loaded.Users["u1"][0].LastDetails)
	assert.Equal(t, "Active", loaded.Users["u1"][0].LastStatus)
}

func TestSaveFailureIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	// Point the store file inside a path blocked by a regular file.
	blocked := filepath.Join(dir, "blocked")
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o644))
	r := NewRepository(filepath.Join(blocked, "tracking.json"), "42", logx.Nop())

	s := NewStore()
	s.AddPackage("u1", "A")
	r.Save(s) // must not panic or error out
}
