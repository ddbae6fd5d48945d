// Package challenge loads challenge definitions: the field description,
// its missions, the objectives they read and the Lua score functions that
// turn objective values into points.
package challenge

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"scorekeeper/internal/objectives"
)

//go:embed builtin/*.yml
var builtinFS embed.FS

const builtinPrefix = "builtin:"

var ErrUnknownChallenge = errors.New("unknown challenge")

// Field describes the playing field a challenge is scored on.
type Field struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description,omitempty"`
}

type Mission struct {
	ID          string                  `yaml:"id" json:"id"`
	Title       string                  `yaml:"title" json:"title"`
	Description string                  `yaml:"description" json:"description,omitempty"`
	Objectives  []*objectives.Objective `yaml:"objectives" json:"objectives"`
	Score       []*ScoreFunc            `yaml:"score" json:"-"`
}

// Definition is a loaded challenge. ObjectiveIndex holds the live values of
// every objective across all missions.
type Definition struct {
	Field          Field
	Missions       []*Mission
	ObjectiveIndex *objectives.Store

	engine *engine
}

// Close releases the Lua state behind the score functions.
func (d *Definition) Close() {
	if d.engine != nil {
		d.engine.close()
	}
}

type document struct {
	Field    `yaml:",inline"`
	Missions []*Mission `yaml:"missions"`
}

// Provider loads challenge definitions by selector.
type Provider interface {
	Load(ctx context.Context, selector string) (*Definition, error)
}

// Loader resolves "builtin:<name>" selectors against the embedded
// challenges and anything else as a YAML path relative to Dir.
type Loader struct {
	Dir string
}

func (l Loader) Load(ctx context.Context, selector string) (*Definition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := l.read(selector)
	if err != nil {
		return nil, err
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("challenge %s: %w", selector, err)
	}
	return def, nil
}

func (l Loader) read(selector string) ([]byte, error) {
	if name, ok := strings.CutPrefix(selector, builtinPrefix); ok {
		data, err := builtinFS.ReadFile("builtin/" + name + ".yml")
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownChallenge, selector)
		}
		return data, nil
	}
	path := selector
	if !filepath.IsAbs(path) && l.Dir != "" {
		path = filepath.Join(l.Dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownChallenge, selector)
		}
		return nil, err
	}
	return data, nil
}

// Builtins lists the embedded challenge selectors.
func Builtins() []string {
	entries, _ := builtinFS.ReadDir("builtin")
	var out []string
	for _, e := range entries {
		out = append(out, builtinPrefix+strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
	}
	return out
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var luaKeywords = map[string]bool{
	"and": true, "break": true, "do": true, "else": true, "elseif": true, "end": true,
	"false": true, "for": true, "function": true, "goto": true, "if": true, "in": true,
	"local": true, "nil": true, "not": true, "or": true, "repeat": true, "return": true,
	"then": true, "true": true, "until": true, "while": true,
}

// Parse decodes and validates a YAML challenge and compiles its score functions.
func Parse(data []byte) (*Definition, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid challenge yaml: %w", err)
	}
	if len(doc.Missions) == 0 {
		return nil, errors.New("challenge has no missions")
	}
	var all []*objectives.Objective
	missionIDs := map[string]bool{}
	for _, m := range doc.Missions {
		if m.ID == "" {
			return nil, errors.New("mission id is required")
		}
		if missionIDs[m.ID] {
			return nil, fmt.Errorf("duplicate mission %s", m.ID)
		}
		missionIDs[m.ID] = true
		for _, o := range m.Objectives {
			if !identRe.MatchString(o.Name) || luaKeywords[o.Name] {
				return nil, fmt.Errorf("mission %s: objective id %q must be a plain identifier", m.ID, o.Name)
			}
			all = append(all, o)
		}
	}
	store, err := objectives.NewStore(all)
	if err != nil {
		return nil, err
	}
	for _, m := range doc.Missions {
		if len(m.Score) == 0 {
			return nil, fmt.Errorf("mission %s has no score functions", m.ID)
		}
		for _, f := range m.Score {
			for _, dep := range f.Deps {
				if _, ok := store.Get(dep); !ok {
					return nil, fmt.Errorf("mission %s depends on unknown objective %s", m.ID, dep)
				}
			}
		}
	}
	eng, err := newEngine(doc.Missions)
	if err != nil {
		return nil, err
	}
	return &Definition{
		Field:          doc.Field,
		Missions:       doc.Missions,
		ObjectiveIndex: store,
		engine:         eng,
	}, nil
}

// Dependencies returns the objective names f reads, in argument order.
func Dependencies(f *ScoreFunc) []string {
	return append([]string(nil), f.Deps...)
}

// ObjectiveValue is one objective in a field snapshot.
type ObjectiveValue struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	Value any    `json:"value"`
}

type MissionSnapshot struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	Objectives []ObjectiveValue `json:"objectives"`
}

// FieldSnapshot is a detached copy of the field and its current values.
type FieldSnapshot struct {
	Title    string            `json:"title"`
	Missions []MissionSnapshot `json:"missions"`
}

func (d *Definition) Snapshot() FieldSnapshot {
	snap := FieldSnapshot{Title: d.Field.Title, Missions: make([]MissionSnapshot, 0, len(d.Missions))}
	for _, m := range d.Missions {
		ms := MissionSnapshot{ID: m.ID, Title: m.Title, Objectives: make([]ObjectiveValue, 0, len(m.Objectives))}
		for _, o := range m.Objectives {
			ms.Objectives = append(ms.Objectives, ObjectiveValue{ID: o.Name, Title: o.Title, Value: o.Value})
		}
		snap.Missions = append(snap.Missions, ms)
	}
	return snap
}
