// Package script reads YAML edit scripts and replays them through a session.
//
// A script names an initial text, the markers to anchor to it, and a list of
// steps:
//
//	text: "hello world"
//	markers:
//	  - {id: 1, range: {start: [0, 6], end: [0, 11]}, exclusive: true}
//	steps:
//	  - {op: checkpoint, checkpoint: start}
//	  - {op: edit, range: {start: [0, 0], end: [0, 5]}, text: howdy}
//	  - {op: undo, expect: "hello world"}
//
// Positions are [row, column] pairs.
package script

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/editcore/pkg/markerindex"
	"github.com/Sumatoshi-tech/editcore/pkg/point"
)

// Step operations.
const (
	OpEdit       = "edit"
	OpUndo       = "undo"
	OpRedo       = "redo"
	OpCheckpoint = "checkpoint"
	OpGroup      = "group"
	OpRevert     = "revert"
	OpMark       = "mark"
	OpUnmark     = "unmark"
)

//go:embed schema.json
var schemaJSON string

var schemaLoader = gojsonschema.NewStringLoader(schemaJSON)

// ErrInvalidScript is returned for scripts that do not match the schema.
var ErrInvalidScript = errors.New("invalid script")

// Position is a [row, column] pair.
type Position [2]uint32

// Point converts p.
func (p Position) Point() point.Point {
	return point.New(p[0], p[1])
}

// Span is a range in a script.
type Span struct {
	Start Position `yaml:"start"`
	End   Position `yaml:"end"`
}

// Range converts s.
func (s Span) Range() point.Range {
	return point.Range{Start: s.Start.Point(), End: s.End.Point()}
}

// MarkerDef declares a marker.
type MarkerDef struct {
	ID         uint32 `yaml:"id"`
	Range      Span   `yaml:"range"`
	Exclusive  bool   `yaml:"exclusive"`
	Invalidate string `yaml:"invalidate"`
}

// Strategy returns the marker's invalidation strategy; ok is false when the
// script leaves it to the session.
func (m MarkerDef) Strategy() (markerindex.Strategy, bool) {
	if m.Invalidate == "" {
		return markerindex.InvalidateNever, false
	}

	strategy, err := markerindex.ParseStrategy(m.Invalidate)

	return strategy, err == nil
}

// Step is one scripted operation. Which fields apply depends on Op.
type Step struct {
	Op         string     `yaml:"op"`
	Range      Span       `yaml:"range"`
	Text       string     `yaml:"text"`
	Checkpoint string     `yaml:"checkpoint"`
	Barrier    bool       `yaml:"barrier"`
	Marker     *MarkerDef `yaml:"marker"`
	ID         uint32     `yaml:"id"`

	// Expect, when set, is the document text required after the step.
	Expect *string `yaml:"expect"`
}

// Script is a parsed edit script.
type Script struct {
	Name    string      `yaml:"name"`
	Text    string      `yaml:"text"`
	Markers []MarkerDef `yaml:"markers"`
	Steps   []Step      `yaml:"steps"`
}

// Load reads and parses the script at path.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}

	return Parse(data)
}

// Parse validates data against the script schema and decodes it.
func Parse(data []byte) (*Script, error) {
	var raw any

	err := yaml.Unmarshal(data, &raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("validate script: %w", err)
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, verr := range result.Errors() {
			problems = append(problems, verr.String())
		}

		return nil, fmt.Errorf("%w: %s", ErrInvalidScript, strings.Join(problems, "; "))
	}

	var s Script

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	err = dec.Decode(&s)
	if err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}

	return &s, nil
}
