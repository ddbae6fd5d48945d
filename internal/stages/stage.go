// Package stages keeps the ordered tournament stage catalog and derives the
// per-stage round sequences shown to scorers.
package stages

import (
	"errors"
	"fmt"
	"slices"
)

// FileName is the document holding the raw stage list.
const FileName = "stages.json"

var (
	// ErrDuplicateID reports two stages sharing an id.
	ErrDuplicateID = errors.New("duplicate stage id")
	// ErrNotFound reports an unknown stage id.
	ErrNotFound = errors.New("stage not found")
	// ErrInvalid reports a definition that cannot enter the catalog.
	ErrInvalid = errors.New("invalid stage")
)

// DuplicateIDError carries the offending id and matches ErrDuplicateID.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate stage id %s", e.ID)
}

func (e *DuplicateIDError) Is(target error) bool {
	return target == ErrDuplicateID
}

// Definition is the persisted form of a stage.
type Definition struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Rounds int    `json:"rounds"`
}

func (d Definition) validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalid)
	}
	if d.Rounds < 0 {
		return fmt.Errorf("%w: stage %s has negative rounds %d", ErrInvalid, d.ID, d.Rounds)
	}
	return nil
}

// Stage is the derived view of a Definition. Index is its position within
// the view it was taken from.
type Stage struct {
	Index         int    `json:"index"`
	ID            string `json:"id"`
	Name          string `json:"name"`
	Rounds        int    `json:"rounds"`
	RoundSequence []int  `json:"round_sequence"`
}

// HasRound reports whether round is one of the stage's rounds.
func (s Stage) HasRound(round int) bool {
	return round >= 1 && round <= s.Rounds
}

func (s Stage) clone() Stage {
	s.RoundSequence = slices.Clone(s.RoundSequence)
	return s
}

// Definition returns the raw fields of the stage.
func (s Stage) Definition() Definition {
	return Definition{ID: s.ID, Name: s.Name, Rounds: s.Rounds}
}

// Defaults is the catalog installed when no stage list can be read.
func Defaults() []Definition {
	return []Definition{
		{ID: "practice", Name: "Practice rounds", Rounds: 2},
		{ID: "qualifying", Name: "Qualifying rounds", Rounds: 3},
		{ID: "eighth", Name: "Eighth finals", Rounds: 0},
		{ID: "quarter", Name: "Quarter finals", Rounds: 0},
		{ID: "semi", Name: "Semi finals", Rounds: 0},
		{ID: "final", Name: "Final", Rounds: 1},
	}
}

// Snapshot is an immutable view of the catalog at one version. Callers must
// not modify its slices.
type Snapshot struct {
	Version uint64  `json:"version"`
	All     []Stage `json:"all"`
	Active  []Stage `json:"active"`
}

// derive builds both views from raw. It is the only place uniqueness is checked.
func derive(raw []Definition) (all, active []Stage, err error) {
	seen := make(map[string]struct{}, len(raw))
	all = make([]Stage, 0, len(raw))
	active = make([]Stage, 0, len(raw))
	for i, d := range raw {
		if _, dup := seen[d.ID]; dup {
			return nil, nil, &DuplicateIDError{ID: d.ID}
		}
		seen[d.ID] = struct{}{}
		s := Stage{
			Index:         i,
			ID:            d.ID,
			Name:          d.Name,
			Rounds:        d.Rounds,
			RoundSequence: roundSequence(d.Rounds),
		}
		all = append(all, s)
		if s.Rounds > 0 {
			a := s.clone()
			a.Index = len(active)
			active = append(active, a)
		}
	}
	return all, active, nil
}

func roundSequence(n int) []int {
	seq := make([]int, 0, max(n, 0))
	for r := 1; r <= n; r++ {
		seq = append(seq, r)
	}
	return seq
}
