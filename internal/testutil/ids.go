// Package testutil holds deterministic stand-ins used by the harness and
// tests.
package testutil

import "strings"

// DefaultBuildID is returned by a FixedBuildIDGenerator created with an
// empty id.
const DefaultBuildID = "test-build-default"

// FixedBuildIDGenerator returns the same build id every time, so a
// scenario recorded twice produces byte-identical snapshots.
//
// Implements store.IDGenerator. Stateless and safe for concurrent use.
type FixedBuildIDGenerator struct {
	id string
}

// NewFixedBuildIDGenerator creates a generator for id. The id is typically
// set in scenario YAML:
//
//	build_id: "build-00000000-0000-0000-0000-000000000001"
func NewFixedBuildIDGenerator(id string) *FixedBuildIDGenerator {
	if id == "" {
		id = DefaultBuildID
	}
	return &FixedBuildIDGenerator{id: id}
}

// Generate returns the fixed id.
func (g *FixedBuildIDGenerator) Generate() string {
	return g.id
}

// Source joins lines into a numerus program with a trailing newline.
func Source(lines ...string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
