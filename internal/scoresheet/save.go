package scoresheet

import (
	"context"
	"fmt"

	"scorekeeper/internal/challenge"
	"scorekeeper/internal/scores"
	"scorekeeper/internal/stages"
	"scorekeeper/internal/storage"
	"scorekeeper/internal/teams"
)

// Detail is the per-sheet document written on save.
type Detail struct {
	challenge.FieldSnapshot
	Team      teams.Team   `json:"team"`
	Stage     stages.Stage `json:"stage"`
	Round     int          `json:"round"`
	Table     string       `json:"table"`
	Signature []byte       `json:"signature"`
	Score     int          `json:"score"`
}

// DetailFileName names the detail document of a sheet.
func DetailFileName(table string, team, epochMillis int64) string {
	return fmt.Sprintf("score_%s_%d_%d.json", table, team, epochMillis)
}

// Save writes the detail document and registers the score with the ledger.
// The ledger is only touched once the detail is written.
func (s *Sheet) Save(ctx context.Context) (scores.Record, error) {
	s.mu.Lock()
	if !s.saveableLocked() {
		s.mu.Unlock()
		return scores.Record{}, ErrNotSaveable
	}
	sel := s.selectionLocked()
	detail := Detail{
		FieldSnapshot: s.def.Snapshot(),
		Team:          *sel.Team,
		Stage:         *sel.Stage,
		Round:         *sel.Round,
		Table:         s.opts.Table,
		Signature:     sel.Signature,
		Score:         s.agg.Score(),
	}
	s.mu.Unlock()

	file := DetailFileName(s.opts.Table, int64(detail.Team.Number), s.now().UnixMilli())
	if err := storage.WriteJSON(ctx, s.opts.Store, file, detail); err != nil {
		s.logger().Error("unable to write result", "file", file, "error", err)
		return scores.Record{}, fmt.Errorf("write %s: %w", file, err)
	}
	rec, err := s.opts.Ledger.Add(scores.Record{
		File:  file,
		Team:  detail.Team,
		Stage: detail.Stage.Definition(),
		Round: detail.Round,
		Score: detail.Score,
	})
	if err == nil {
		err = s.opts.Ledger.Save(ctx)
	}
	if err != nil {
		s.logger().Error("unable to write result", "file", file, "error", err)
		return rec, err
	}
	s.logger().Info("result saved", "file", file, "team", detail.Team.Number, "score", detail.Score)
	return rec, nil
}
