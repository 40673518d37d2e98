package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/numerus/internal/compiler"
	"github.com/roach88/numerus/internal/driver"
)

// createTestStore opens a fresh database in a temp directory with
// predictable build ids.
func createTestStore(t *testing.T, ids ...string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	var opts []Option
	if len(ids) > 0 {
		opts = append(opts, WithIDGenerator(NewFixedGenerator(ids...)))
	}
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestBuild compiles source and describes it as a build of path.
func createTestBuild(t *testing.T, path, source, target string) Build {
	t.Helper()
	res, err := driver.Compile(source, compiler.Options{PrintResults: true})
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	b, err := NewBuild(path, source, res.Program, target, "a.out", true)
	if err != nil {
		t.Fatalf("NewBuild() failed: %v", err)
	}
	return b
}
