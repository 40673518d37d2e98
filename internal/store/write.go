package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/numerus/internal/ir"
)

// Build is one recorded compilation.
type Build struct {
	ID              string
	Seq             int64
	SourcePath      string
	SourceHash      string
	ProgramHash     string
	CacheKey        string
	Target          string
	PrintResults    bool
	Output          string // executable path, empty for IR-only builds
	IR              string
	Summary         string // canonical JSON of ir.Program.Summary
	CompilerVersion string
	IRVersion       string
}

// NewBuild describes the compilation of source into p. ID and Seq are
// assigned by RecordBuild.
func NewBuild(sourcePath, source string, p *ir.Program, target, output string, printResults bool) (Build, error) {
	sourceHash := ir.SourceHash(source)
	key, err := ir.CacheKey(sourceHash, target, printResults)
	if err != nil {
		return Build{}, fmt.Errorf("new build: %w", err)
	}
	summary, err := ir.MarshalCanonical(p.Summary())
	if err != nil {
		return Build{}, fmt.Errorf("new build: %w", err)
	}

	return Build{
		SourcePath:      sourcePath,
		SourceHash:      sourceHash,
		ProgramHash:     ir.ProgramHash(p),
		CacheKey:        key,
		Target:          target,
		PrintResults:    printResults,
		Output:          output,
		IR:              ir.Format(p),
		Summary:         string(summary),
		CompilerVersion: ir.CompilerVersion,
		IRVersion:       ir.IRVersion,
	}, nil
}

// RecordBuild appends b to the history, stamping it with a fresh id and the
// next seq. The stored row is returned.
func (s *Store) RecordBuild(ctx context.Context, b Build) (Build, error) {
	if err := b.validate(); err != nil {
		return Build{}, fmt.Errorf("record build: %w", err)
	}

	b.ID = s.ids.Generate()
	b.Seq = s.clock.Next()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO builds
		(id, seq, source_path, source_hash, program_hash, cache_key, target,
		 print_results, output, ir, summary, compiler_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		b.ID,
		b.Seq,
		b.SourcePath,
		b.SourceHash,
		b.ProgramHash,
		b.CacheKey,
		b.Target,
		b.PrintResults,
		b.Output,
		b.IR,
		b.Summary,
		b.CompilerVersion,
		b.IRVersion,
	)
	if err != nil {
		return Build{}, fmt.Errorf("record build: %w", err)
	}

	slog.Debug("build recorded", "id", b.ID, "seq", b.Seq, "cache_key", b.CacheKey)
	return b, nil
}

func (b Build) validate() error {
	var errs []error
	if b.SourceHash == "" {
		errs = append(errs, errors.New("source hash is required"))
	}
	if b.CacheKey == "" {
		errs = append(errs, errors.New("cache key is required"))
	}
	if b.Target == "" {
		errs = append(errs, errors.New("target is required"))
	}
	if b.IR == "" {
		errs = append(errs, errors.New("IR is required"))
	}
	return errors.Join(errs...)
}
