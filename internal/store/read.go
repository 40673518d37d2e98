package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/numerus/internal/ir"
)

// ErrNotFound is returned by GetBuild for an unknown id.
var ErrNotFound = errors.New("build not found")

const buildColumns = `id, seq, source_path, source_hash, program_hash, cache_key, target,
	print_results, output, ir, summary, compiler_version, ir_version`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBuild(row rowScanner) (Build, error) {
	var b Build
	err := row.Scan(
		&b.ID,
		&b.Seq,
		&b.SourcePath,
		&b.SourceHash,
		&b.ProgramHash,
		&b.CacheKey,
		&b.Target,
		&b.PrintResults,
		&b.Output,
		&b.IR,
		&b.Summary,
		&b.CompilerVersion,
		&b.IRVersion,
	)
	return b, err
}

// GetBuild returns the build with the given id.
func (s *Store) GetBuild(ctx context.Context, id string) (Build, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+buildColumns+` FROM builds WHERE id = ?`, id)
	b, err := scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Build{}, fmt.Errorf("get build %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Build{}, fmt.Errorf("get build %s: %w", id, err)
	}
	return b, nil
}

// LookupCached returns the newest build for cacheKey that was produced by
// this compiler and IR version. ok is false on a miss.
func (s *Store) LookupCached(ctx context.Context, cacheKey string) (b Build, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+buildColumns+`
		FROM builds
		WHERE cache_key = ? AND ir_version = ? AND compiler_version = ?
		ORDER BY seq DESC, id COLLATE BINARY DESC
		LIMIT 1
	`, cacheKey, ir.IRVersion, ir.CompilerVersion)

	b, err = scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Build{}, false, nil
	}
	if err != nil {
		return Build{}, false, fmt.Errorf("lookup cached build: %w", err)
	}
	return b, true, nil
}

// ListOptions filters ListBuilds.
type ListOptions struct {
	SourcePath string // only builds of this file when set
	Limit      int    // newest N builds; 0 means all
}

// ListBuilds returns recorded builds in seq order, oldest first.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ListBuilds(ctx context.Context, opts ListOptions) ([]Build, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	// Take the newest N, then present them oldest first.
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+buildColumns+` FROM (
			SELECT `+buildColumns+`
			FROM builds
			WHERE ? = '' OR source_path = ?
			ORDER BY seq DESC, id COLLATE BINARY DESC
			LIMIT ?
		)
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, opts.SourcePath, opts.SourcePath, limit)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	builds := []Build{}
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate builds: %w", err)
	}

	return builds, nil
}
