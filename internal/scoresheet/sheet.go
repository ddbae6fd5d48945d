// Package scoresheet holds the state of the score sheet being filled in at a
// table: the selected team, stage and round, the referee signature and the
// live objective values of the loaded challenge.
package scoresheet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"scorekeeper/internal/challenge"
	"scorekeeper/internal/scores"
	"scorekeeper/internal/scoring"
	"scorekeeper/internal/stages"
	"scorekeeper/internal/storage"
	"scorekeeper/internal/teams"
)

var (
	ErrNotSaveable  = errors.New("score sheet is not complete")
	ErrNoChallenge  = errors.New("no challenge loaded")
	ErrNoStage      = errors.New("choose a stage first")
	ErrInvalidRound = errors.New("round not in stage")
)

// Selection is what the scorer picked. Nil fields are unset.
type Selection struct {
	Team      *teams.Team
	Stage     *stages.Stage
	Round     *int
	Signature []byte
}

func (s Selection) complete() bool {
	return s.Team != nil && s.Stage != nil && s.Round != nil && len(s.Signature) > 0
}

type Options struct {
	Store    storage.Store
	Provider challenge.Provider
	// Challenge is the selector passed to Provider.
	Challenge string
	Table     string
	Ledger    *scores.Ledger
	Stages    *stages.Catalog
	Teams     *teams.Roster
	Logger    *slog.Logger
}

// Sheet is safe for concurrent use.
type Sheet struct {
	opts Options
	Now  func() time.Time

	mu           sync.Mutex
	sel          Selection
	def          *challenge.Definition
	agg          *scoring.Aggregator
	stagesCancel func()
}

// New builds a sheet and loads the challenge. A challenge that fails to
// load is logged and leaves the sheet without missions. The chosen stage
// follows every catalog snapshot until Close.
func New(ctx context.Context, opts Options) *Sheet {
	s := &Sheet{opts: opts}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		s.logger().Error("unable to load challenge", "challenge", opts.Challenge, "error", err)
	}
	if opts.Stages != nil {
		s.stagesCancel = opts.Stages.Subscribe(s.followStages)
	}
	return s
}

// followStages refreshes the chosen stage from snap. A stage that left the
// catalog clears stage and round; a round the stage lost clears the round.
func (s *Sheet) followStages(snap stages.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sel.Stage == nil {
		return
	}
	id := s.sel.Stage.ID
	i := slices.IndexFunc(snap.All, func(st stages.Stage) bool { return st.ID == id })
	if i < 0 {
		s.logger().Info("selected stage removed", "stage", id)
		s.sel.Stage, s.sel.Round = nil, nil
		return
	}
	st := snap.All[i]
	st.RoundSequence = slices.Clone(st.RoundSequence)
	s.sel.Stage = &st
	if s.sel.Round != nil && !st.HasRound(*s.sel.Round) {
		s.logger().Info("selected round removed", "stage", id, "round", *s.sel.Round)
		s.sel.Round = nil
	}
}

func (s *Sheet) logger() *slog.Logger {
	if s.opts.Logger != nil {
		return s.opts.Logger
	}
	return slog.Default()
}

func (s *Sheet) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Sheet) loadLocked(ctx context.Context) error {
	if s.opts.Provider == nil {
		return ErrNoChallenge
	}
	def, err := s.opts.Provider.Load(ctx, s.opts.Challenge)
	if err != nil {
		return err
	}
	agg := scoring.New(def.ObjectiveIndex, Missions(def))
	agg.OnChange = func(b scoring.Breakdown) {
		s.logger().Debug("score changed", "final", b.Final, "sub_score", b.SubScore, "bonus_multiplier", b.BonusMultiplier, "rest_score", b.RestScore)
	}
	if err := agg.Start(); err != nil {
		def.Close()
		return err
	}
	s.closeLocked()
	s.def, s.agg = def, agg
	return nil
}

func (s *Sheet) closeLocked() {
	if s.agg != nil {
		s.agg.Stop()
	}
	if s.def != nil {
		s.def.Close()
	}
	s.def, s.agg = nil, nil
}

// Close releases the loaded challenge and stops following the catalog.
func (s *Sheet) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stagesCancel != nil {
		s.stagesCancel()
		s.stagesCancel = nil
	}
	s.closeLocked()
}

// Missions adapts the missions of def for scoring.
func Missions(def *challenge.Definition) []scoring.Mission {
	out := make([]scoring.Mission, 0, len(def.Missions))
	for _, m := range def.Missions {
		fns := make([]scoring.Function, 0, len(m.Score))
		for _, f := range m.Score {
			fns = append(fns, f)
		}
		out = append(out, scoring.Mission{ID: m.ID, Score: fns})
	}
	return out
}

// SelectTeam selects a team of the roster by number.
func (s *Sheet) SelectTeam(number int) (teams.Team, error) {
	if s.opts.Teams == nil {
		return teams.Team{}, fmt.Errorf("%w: %d", teams.ErrNotFound, number)
	}
	t, err := s.opts.Teams.Get(number)
	if err != nil {
		return teams.Team{}, err
	}
	s.mu.Lock()
	s.sel.Team = &t
	s.mu.Unlock()
	return t, nil
}

// ChooseStage selects a stage of the catalog. A chosen round the new stage
// does not have is cleared.
func (s *Sheet) ChooseStage(id string) (stages.Stage, error) {
	if s.opts.Stages == nil {
		return stages.Stage{}, fmt.Errorf("%w: %s", stages.ErrNotFound, id)
	}
	st, ok := s.opts.Stages.Get(id)
	if !ok {
		return stages.Stage{}, fmt.Errorf("%w: %s", stages.ErrNotFound, id)
	}
	s.mu.Lock()
	s.sel.Stage = &st
	if s.sel.Round != nil && !st.HasRound(*s.sel.Round) {
		s.sel.Round = nil
	}
	s.mu.Unlock()
	return st, nil
}

// ChooseRound selects a round of the chosen stage.
func (s *Sheet) ChooseRound(round int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sel.Stage == nil {
		return ErrNoStage
	}
	if !s.sel.Stage.HasRound(round) {
		return fmt.Errorf("%w: %s has no round %d", ErrInvalidRound, s.sel.Stage.ID, round)
	}
	s.sel.Round = &round
	return nil
}

// Sign stores the referee signature. An empty signature clears it.
func (s *Sheet) Sign(signature []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(signature) == 0 {
		s.sel.Signature = nil
		return
	}
	s.sel.Signature = append([]byte(nil), signature...)
}

// Selection returns a copy of the current selection.
func (s *Sheet) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectionLocked()
}

func (s *Sheet) selectionLocked() Selection {
	out := Selection{Signature: append([]byte(nil), s.sel.Signature...)}
	if s.sel.Team != nil {
		t := *s.sel.Team
		out.Team = &t
	}
	if s.sel.Stage != nil {
		st := *s.sel.Stage
		out.Stage = &st
	}
	if s.sel.Round != nil {
		r := *s.sel.Round
		out.Round = &r
	}
	if len(out.Signature) == 0 {
		out.Signature = nil
	}
	return out
}

// Set, Inc and Dec change an objective of the loaded challenge; affected
// missions are rescored before they return.
func (s *Sheet) Set(name string, v any) error {
	return s.withObjectives(func(def *challenge.Definition) error { return def.ObjectiveIndex.Set(name, v) })
}

func (s *Sheet) Inc(name string, amount float64) error {
	return s.withObjectives(func(def *challenge.Definition) error { return def.ObjectiveIndex.Inc(name, amount) })
}

func (s *Sheet) Dec(name string, amount float64) error {
	return s.withObjectives(func(def *challenge.Definition) error { return def.ObjectiveIndex.Dec(name, amount) })
}

func (s *Sheet) withObjectives(fn func(*challenge.Definition) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.def == nil {
		return ErrNoChallenge
	}
	return fn(s.def)
}

// IsSaveable reports whether every selection is made and every mission has
// a result.
func (s *Sheet) IsSaveable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveableLocked()
}

func (s *Sheet) saveableLocked() bool {
	return s.agg != nil && s.sel.complete() && s.agg.Evaluated() && s.roundInCatalogLocked()
}

// roundInCatalogLocked checks the chosen round against the live catalog.
func (s *Sheet) roundInCatalogLocked() bool {
	if s.opts.Stages == nil {
		return true
	}
	live, ok := s.opts.Stages.Get(s.sel.Stage.ID)
	return ok && live.HasRound(*s.sel.Round)
}

// Score returns the final score; ok is false without a loaded challenge.
func (s *Sheet) Score() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.agg == nil {
		return 0, false
	}
	return s.agg.Score(), true
}

// Discard clears the selection and reloads the challenge, which puts every
// objective back to its default. When the reload fails the current
// challenge is kept and reset instead.
func (s *Sheet) Discard(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel = Selection{}
	if err := s.loadLocked(ctx); err != nil {
		s.logger().Error("unable to load challenge", "challenge", s.opts.Challenge, "error", err)
		if s.def != nil {
			s.def.ObjectiveIndex.Reset()
		}
		return err
	}
	return nil
}
