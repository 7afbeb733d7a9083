// Package session describes a narrowing run for the command-line tools: the
// target, the element interpretation, the wait between passes, and the
// ordered pass list. Sessions load from YAML files or build straight from
// flags; either way the passes compile into scan predicates here.
package session

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"memsift/scan"

	"github.com/prometheus/common/model"
	"gopkg.in/yaml.v3"
)

// Session is one scan configuration.
type Session struct {
	Target string         `yaml:"target,omitempty"`
	PID    int            `yaml:"pid,omitempty"`
	Type   string         `yaml:"type,omitempty"`
	Freeze bool           `yaml:"freeze,omitempty"`
	Wait   model.Duration `yaml:"wait,omitempty"`
	Passes []string       `yaml:"passes"`
}

// LoadFile reads a session from a YAML file. Unknown fields are errors, so a
// typo in a session file fails loudly instead of silently scanning wrong.
func LoadFile(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	var s Session
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse session file %s: %w", path, err)
	}
	return &s, nil
}

// ElementType resolves the session's element type, defaulting when unset.
func (s *Session) ElementType() (scan.ElementType, error) {
	if s.Type == "" {
		return scan.DefaultElementType, nil
	}
	return scan.ParseElementType(s.Type)
}

// Pass pairs a pass spec with its compiled predicate.
type Pass[L any] struct {
	Spec string
	Pred scan.Predicate[L]
}

// Compile builds predicates for every spec against element type t.
func Compile[L any](specs []string, t scan.ElementType) ([]Pass[L], error) {
	if len(specs) == 0 {
		return nil, errors.New("no passes given")
	}
	passes := make([]Pass[L], 0, len(specs))
	for _, spec := range specs {
		pred, err := BuildPredicate[L](spec, t)
		if err != nil {
			return nil, err
		}
		passes = append(passes, Pass[L]{Spec: spec, Pred: pred})
	}
	return passes, nil
}

// SplitSpecs splits a comma-separated -passes flag into individual specs.
func SplitSpecs(flagValue string) []string {
	var specs []string
	for _, s := range strings.Split(flagValue, ",") {
		if s = strings.TrimSpace(s); s != "" {
			specs = append(specs, s)
		}
	}
	return specs
}

// BuildPredicate compiles one pass spec. Literal passes (eq=N, ne=N, gt=N,
// lt=N) test the current bytes against the parsed value; history passes
// (changed, unchanged, inc, dec) compare against the previous read and
// reject elements that do not have one yet.
func BuildPredicate[L any](spec string, t scan.ElementType) (scan.Predicate[L], error) {
	name, arg, hasArg := strings.Cut(spec, "=")
	name = strings.TrimSpace(name)

	switch name {
	case "eq", "ne", "gt", "lt":
		if !hasArg {
			return nil, fmt.Errorf("pass %q needs a value", spec)
		}
		want, err := t.ParseValue(strings.TrimSpace(arg))
		if err != nil {
			return nil, fmt.Errorf("pass %q: %w", spec, err)
		}
		switch name {
		case "eq":
			return func(e scan.Element[L]) bool { return e.Current != nil && t.Compare(e.Current, want) == 0 }, nil
		case "ne":
			return func(e scan.Element[L]) bool { return e.Current != nil && t.Compare(e.Current, want) != 0 }, nil
		case "gt":
			return func(e scan.Element[L]) bool { return e.Current != nil && t.Compare(e.Current, want) > 0 }, nil
		default:
			return func(e scan.Element[L]) bool { return e.Current != nil && t.Compare(e.Current, want) < 0 }, nil
		}

	case "changed", "unchanged", "inc", "dec":
		if hasArg {
			return nil, fmt.Errorf("pass %q takes no value", spec)
		}
		switch name {
		case "changed":
			return func(e scan.Element[L]) bool { return e.Comparable() && !bytes.Equal(e.Current, e.Previous) }, nil
		case "unchanged":
			return func(e scan.Element[L]) bool { return e.Comparable() && bytes.Equal(e.Current, e.Previous) }, nil
		case "inc":
			return func(e scan.Element[L]) bool { return e.Comparable() && t.Compare(e.Current, e.Previous) > 0 }, nil
		default:
			return func(e scan.Element[L]) bool { return e.Comparable() && t.Compare(e.Current, e.Previous) < 0 }, nil
		}
	}

	return nil, fmt.Errorf("unknown pass %q", spec)
}
