package scoresheet

import (
	"scorekeeper/internal/challenge"
	"scorekeeper/internal/scoring"
	"scorekeeper/internal/stages"
	"scorekeeper/internal/teams"
)

type MissionView struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Evaluated   bool      `json:"evaluated"`
	Evaluations int       `json:"evaluations"`
	Value       float64   `json:"value"`
	Percentages []float64 `json:"percentages"`
	Errors      []string  `json:"errors"`
}

// View is a detached copy of the sheet for display.
type View struct {
	Team      *teams.Team              `json:"team"`
	Stage     *stages.Stage            `json:"stage"`
	Round     *int                     `json:"round"`
	Signed    bool                     `json:"signed"`
	Table     string                   `json:"table"`
	Field     *challenge.FieldSnapshot `json:"field,omitempty"`
	Missions  []MissionView            `json:"missions"`
	Breakdown *scoring.Breakdown       `json:"breakdown,omitempty"`
	Saveable  bool                     `json:"saveable"`
}

func (s *Sheet) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel := s.selectionLocked()
	v := View{
		Team:     sel.Team,
		Stage:    sel.Stage,
		Round:    sel.Round,
		Signed:   len(sel.Signature) > 0,
		Table:    s.opts.Table,
		Missions: []MissionView{},
		Saveable: s.saveableLocked(),
	}
	if s.def == nil {
		return v
	}
	field := s.def.Snapshot()
	v.Field = &field
	for _, m := range s.def.Missions {
		mv := MissionView{ID: m.ID, Title: m.Title, Evaluations: s.agg.Evaluations(m.ID), Percentages: []float64{}, Errors: []string{}}
		if r, ok := s.agg.Result(m.ID); ok {
			mv.Evaluated = true
			mv.Value = r.Value
			mv.Percentages = append(mv.Percentages, r.Percentages...)
			mv.Errors = r.ErrorMessages()
		}
		v.Missions = append(v.Missions, mv)
	}
	b := s.agg.Breakdown()
	v.Breakdown = &b
	return v
}
