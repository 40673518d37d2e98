package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/roach88/numerus/internal/ir"
)

const hypSource = "sq(x) = x * x\nhyp(a, b) = (sq(a) + sq(b)) ^ 0.5\nhyp(3, 4)\n"

func TestNewBuild(t *testing.T) {
	b := createTestBuild(t, "hyp.num", hypSource, "arm64")

	if b.SourceHash != ir.SourceHash(hypSource) {
		t.Errorf("SourceHash = %q, want %q", b.SourceHash, ir.SourceHash(hypSource))
	}
	if want := ir.MustCacheKey(b.SourceHash, "arm64", true); b.CacheKey != want {
		t.Errorf("CacheKey = %q, want %q", b.CacheKey, want)
	}
	if !strings.Contains(b.IR, "function d $hyp(d %a_0, d %b_0)") {
		t.Errorf("IR missing hyp definition:\n%s", b.IR)
	}
	if !strings.Contains(b.Summary, `"entry_instructions":2`) {
		t.Errorf("Summary = %s", b.Summary)
	}
	if b.IRVersion != ir.IRVersion || b.CompilerVersion != ir.CompilerVersion {
		t.Errorf("versions = %s/%s", b.IRVersion, b.CompilerVersion)
	}
	if b.ID != "" || b.Seq != 0 {
		t.Error("NewBuild must not assign ID or Seq")
	}
}

func TestRecordBuild_AssignsIDAndSeq(t *testing.T) {
	s := createTestStore(t, "build-1", "build-2")
	ctx := context.Background()

	first, err := s.RecordBuild(ctx, createTestBuild(t, "a.num", "1 + 2", "amd64_sysv"))
	if err != nil {
		t.Fatalf("RecordBuild() failed: %v", err)
	}
	second, err := s.RecordBuild(ctx, createTestBuild(t, "b.num", "3 * 4", "amd64_sysv"))
	if err != nil {
		t.Fatalf("RecordBuild() failed: %v", err)
	}

	if first.ID != "build-1" || first.Seq != 1 {
		t.Errorf("first = %s/%d, want build-1/1", first.ID, first.Seq)
	}
	if second.ID != "build-2" || second.Seq != 2 {
		t.Errorf("second = %s/%d, want build-2/2", second.ID, second.Seq)
	}
	if s.Seq() != 2 {
		t.Errorf("Seq() = %d, want 2", s.Seq())
	}
}

func TestRecordBuild_RejectsIncomplete(t *testing.T) {
	s := createTestStore(t)

	_, err := s.RecordBuild(context.Background(), Build{SourcePath: "a.num"})
	if err == nil {
		t.Fatal("expected error for empty build")
	}
	for _, want := range []string{"source hash", "cache key", "target", "IR"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
	if s.Seq() != 0 {
		t.Error("rejected build must not advance the clock")
	}
}

func TestGetBuild_RoundTrip(t *testing.T) {
	s := createTestStore(t, "build-1")
	ctx := context.Background()

	recorded, err := s.RecordBuild(ctx, createTestBuild(t, "hyp.num", hypSource, "rv64"))
	if err != nil {
		t.Fatalf("RecordBuild() failed: %v", err)
	}

	got, err := s.GetBuild(ctx, "build-1")
	if err != nil {
		t.Fatalf("GetBuild() failed: %v", err)
	}
	if got != recorded {
		t.Errorf("GetBuild() = %+v\nwant %+v", got, recorded)
	}
}

func TestGetBuild_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetBuild(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetBuild() error = %v, want ErrNotFound", err)
	}
}

func TestLookupCached(t *testing.T) {
	s := createTestStore(t, "build-1", "build-2", "build-3")
	ctx := context.Background()

	b := createTestBuild(t, "hyp.num", hypSource, "arm64")

	if _, ok, err := s.LookupCached(ctx, b.CacheKey); err != nil || ok {
		t.Fatalf("LookupCached() on empty store = %v, %v", ok, err)
	}

	if _, err := s.RecordBuild(ctx, b); err != nil {
		t.Fatalf("RecordBuild() failed: %v", err)
	}
	if _, err := s.RecordBuild(ctx, b); err != nil {
		t.Fatalf("RecordBuild() failed: %v", err)
	}
	// Same source, other target: different key.
	other := createTestBuild(t, "hyp.num", hypSource, "rv64")
	if _, err := s.RecordBuild(ctx, other); err != nil {
		t.Fatalf("RecordBuild() failed: %v", err)
	}

	hit, ok, err := s.LookupCached(ctx, b.CacheKey)
	if err != nil || !ok {
		t.Fatalf("LookupCached() = %v, %v", ok, err)
	}
	if hit.ID != "build-2" {
		t.Errorf("LookupCached() returned %s, want newest build-2", hit.ID)
	}
	if hit.IR != b.IR {
		t.Error("cached IR differs from recorded IR")
	}
}

func TestLookupCached_IgnoresOtherCompilerVersion(t *testing.T) {
	s := createTestStore(t, "build-1")
	ctx := context.Background()

	b := createTestBuild(t, "a.num", "1 + 2", "arm64")
	b.CompilerVersion = "0.0.1"
	if _, err := s.RecordBuild(ctx, b); err != nil {
		t.Fatalf("RecordBuild() failed: %v", err)
	}

	if _, ok, err := s.LookupCached(ctx, b.CacheKey); err != nil || ok {
		t.Errorf("LookupCached() = %v, %v; want miss", ok, err)
	}
}

func TestListBuilds(t *testing.T) {
	s := createTestStore(t, "b1", "b2", "b3", "b4")
	ctx := context.Background()

	for _, path := range []string{"a.num", "b.num", "a.num", "a.num"} {
		if _, err := s.RecordBuild(ctx, createTestBuild(t, path, "1", "amd64_sysv")); err != nil {
			t.Fatalf("RecordBuild() failed: %v", err)
		}
	}

	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{"all", ListOptions{}, []string{"b1", "b2", "b3", "b4"}},
		{"limit keeps newest", ListOptions{Limit: 2}, []string{"b3", "b4"}},
		{"by source", ListOptions{SourcePath: "a.num"}, []string{"b1", "b3", "b4"}},
		{"by source with limit", ListOptions{SourcePath: "a.num", Limit: 1}, []string{"b4"}},
		{"no match", ListOptions{SourcePath: "c.num"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builds, err := s.ListBuilds(ctx, tt.opts)
			if err != nil {
				t.Fatalf("ListBuilds() failed: %v", err)
			}
			got := []string{}
			for _, b := range builds {
				got = append(got, b.ID)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("ListBuilds() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOpen_ResumesSeq(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := s1.RecordBuild(ctx, createTestBuild(t, "a.num", "1", "arm64")); err != nil {
			t.Fatalf("RecordBuild() failed: %v", err)
		}
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	if s2.Seq() != 3 {
		t.Fatalf("Seq() after reopen = %d, want 3", s2.Seq())
	}
	b, err := s2.RecordBuild(ctx, createTestBuild(t, "a.num", "1", "arm64"))
	if err != nil {
		t.Fatalf("RecordBuild() failed: %v", err)
	}
	if b.Seq != 4 {
		t.Errorf("Seq = %d, want 4", b.Seq)
	}
}
