// Package teams reads the tournament roster.
package teams

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"scorekeeper/internal/storage"
)

const FileName = "teams.json"

var ErrNotFound = errors.New("team not found")

type Team struct {
	Number      int    `json:"number"`
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
}

// Roster is a read-only list of teams ordered by number.
type Roster struct {
	teams []Team
}

// NewRoster validates teams and sorts them by number.
func NewRoster(teams []Team) (*Roster, error) {
	seen := map[int]bool{}
	for _, t := range teams {
		if t.Number <= 0 {
			return nil, fmt.Errorf("team %q: number must be positive", t.Name)
		}
		if seen[t.Number] {
			return nil, fmt.Errorf("duplicate team number %d", t.Number)
		}
		seen[t.Number] = true
	}
	sorted := slices.Clone(teams)
	slices.SortFunc(sorted, func(a, b Team) int { return cmp.Compare(a.Number, b.Number) })
	return &Roster{teams: sorted}, nil
}

// Load reads teams.json from store. A missing roster yields an empty one.
func Load(ctx context.Context, store storage.Store, logger *slog.Logger) (*Roster, error) {
	var list []Team
	if err := storage.ReadJSON(ctx, store, FileName, &list); err != nil {
		if !errors.Is(err, storage.ErrNotExist) {
			return nil, fmt.Errorf("load teams: %w", err)
		}
		if logger == nil {
			logger = slog.Default()
		}
		logger.Info("no team roster", "file", FileName)
	}
	return NewRoster(list)
}

func (r *Roster) Teams() []Team {
	return slices.Clone(r.teams)
}

// Get returns the team with the given number.
func (r *Roster) Get(number int) (Team, error) {
	i, ok := slices.BinarySearchFunc(r.teams, number, func(t Team, n int) int { return cmp.Compare(t.Number, n) })
	if !ok {
		return Team{}, fmt.Errorf("%w: %d", ErrNotFound, number)
	}
	return r.teams[i], nil
}

func (r *Roster) Len() int { return len(r.teams) }
