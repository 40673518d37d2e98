package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity. The version suffix allows
// the hashed encoding to change without colliding with old values.
const (
	DomainSource   = "numerus/source/v1"
	DomainProgram  = "numerus/program/v1"
	DomainCacheKey = "numerus/cache-key/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data) as lowercase hex.
// The null byte keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SourceHash identifies a source text.
func SourceHash(source string) string {
	return hashWithDomain(DomainSource, []byte(source))
}

// ProgramHash identifies a program by its formatted IR. Two programs hash
// equal exactly when Format renders them identically.
func ProgramHash(p *Program) string {
	return hashWithDomain(DomainProgram, []byte(Format(p)))
}

// CacheKey identifies a build request: the same source compiled for the same
// target with the same options under the same IR version.
func CacheKey(sourceHash, target string, printResults bool) (string, error) {
	obj := map[string]any{
		"source_hash":   sourceHash,
		"target":        target,
		"print_results": printResults,
		"ir_version":    IRVersion,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("CacheKey: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainCacheKey, canonical), nil
}

// MustCacheKey is like CacheKey but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustCacheKey(sourceHash, target string, printResults bool) string {
	key, err := CacheKey(sourceHash, target, printResults)
	if err != nil {
		panic(err)
	}
	return key
}
