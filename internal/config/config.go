// Package config loads numerus settings from YAML or CUE files and checks
// them against an embedded CUE schema.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// Config holds every setting the CLI consults. Field names in files use
// the yaml/json tag.
type Config struct {
	Target       string `yaml:"target" json:"target"`
	Output       string `yaml:"output" json:"output"`
	PrintResults bool   `yaml:"print_results" json:"print_results"`
	QBE          string `yaml:"qbe" json:"qbe"`
	CC           string `yaml:"cc" json:"cc"`
	Database     string `yaml:"database" json:"database"`
	Workers      int    `yaml:"workers" json:"workers"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Target:       "amd64_sysv",
		Output:       "a.out",
		PrintResults: true,
		QBE:          "qbe",
		CC:           "cc",
	}
}

// Error reports an invalid configuration, with a source position when the
// problem was found in a CUE file.
type Error struct {
	Path    string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// Load reads path over the defaults. An empty path returns the defaults.
// Files ending in .cue are evaluated as CUE; anything else is YAML.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if filepath.Ext(path) == ".cue" {
		err = decodeCUE(&cfg, path, data)
	} else {
		err = decodeYAML(&cfg, path, data)
	}
	if err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeYAML overlays the fields present in data onto cfg.
func decodeYAML(cfg *Config, path string, data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject typos like "print_result:"
	if err := decoder.Decode(cfg); err != nil {
		return &Error{Path: path, Message: fmt.Sprintf("failed to parse YAML: %v", err)}
	}
	return nil
}

// decodeCUE overlays the fields defined in data onto cfg. The file must be
// a partial #Config: unknown fields and wrong types are rejected here,
// completeness is checked later by Validate.
func decodeCUE(cfg *Config, path string, data []byte) error {
	ctx := cuecontext.New()
	schema, err := schemaDef(ctx)
	if err != nil {
		return err
	}

	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return formatCUEError(path, err)
	}
	if err := schema.Unify(v).Validate(); err != nil {
		return formatCUEError(path, err)
	}
	// Round-trip through JSON so fields the file leaves out keep their
	// defaults.
	data, err = v.MarshalJSON()
	if err != nil {
		return formatCUEError(path, err)
	}
	return json.Unmarshal(data, cfg)
}

// Validate checks a merged configuration against the #Config schema.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	schema, err := schemaDef(ctx)
	if err != nil {
		return err
	}

	v := schema.Unify(ctx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError("config", err)
	}
	return nil
}

func schemaDef(ctx *cue.Context) (cue.Value, error) {
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compile config schema: %w", err)
	}
	return schema.LookupPath(cue.ParsePath("#Config")), nil
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(path string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Path: path, Message: err.Error()}
	}

	first := errs[0]
	cfgErr := &Error{Path: path, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		cfgErr.Pos = positions[0]
	}
	return cfgErr
}
