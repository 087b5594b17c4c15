// Package clinicaltables loads the scoring weights, thresholds and recovery
// timelines used by the analytics engine.
//
// The tables ship embedded (default.yaml) and may be replaced by a file named
// in CLINICAL_TABLES_FILE. A file-backed Store is reloaded when the file
// changes; edits that fail validation are rejected and the previous tables
// stay active.
package clinicaltables

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/oncostat/oncostat/internal/analytics/recovery"
	"github.com/oncostat/oncostat/internal/analytics/risk"
)

//go:embed default.yaml
var defaultYAML []byte

// Tables is the complete set of clinical constants.
type Tables struct {
	Risk     risk.Tables    `yaml:"risk" json:"risk"`
	Recovery recovery.Table `yaml:"recovery" json:"recovery"`

	// Digest identifies the decoded content, so comments and formatting do
	// not change it. Cached results are keyed by it and a reload never serves
	// results computed with the old weights.
	Digest string `yaml:"-" json:"-"`
}

// Validate checks every section.
func (t *Tables) Validate() error {
	if err := t.Risk.Validate(); err != nil {
		return fmt.Errorf("risk: %w", err)
	}
	if err := t.Recovery.Validate(); err != nil {
		return err
	}
	return nil
}

// Parse decodes and validates a tables document. Unknown keys are errors so
// that a misspelt weight cannot silently fall back to zero.
func Parse(data []byte) (*Tables, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	t := &Tables{}
	if err := dec.Decode(t); err != nil {
		return nil, fmt.Errorf("decode clinical tables: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid clinical tables: %w", err)
	}
	canon, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("digest clinical tables: %w", err)
	}
	sum := sha256.Sum256(canon)
	t.Digest = hex.EncodeToString(sum[:8])
	return t, nil
}

var (
	defaultOnce   sync.Once
	defaultTables *Tables
)

// Default returns the embedded tables. Callers must not modify the result.
func Default() *Tables {
	defaultOnce.Do(func() {
		t, err := Parse(defaultYAML)
		if err != nil {
			panic(fmt.Sprintf("embedded clinical tables: %v", err))
		}
		defaultTables = t
	})
	return defaultTables
}

// DefaultYAML returns the embedded document.
func DefaultYAML() []byte {
	return append([]byte(nil), defaultYAML...)
}

// Load reads tables from path, or returns the embedded defaults when path is
// empty.
func Load(path string) (*Tables, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read clinical tables %s: %w", path, err)
	}
	return Parse(data)
}

// Marshal renders t as YAML.
func Marshal(t *Tables) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return nil, fmt.Errorf("encode clinical tables: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
