package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"scorekeeper/internal/scores"
	"scorekeeper/internal/teams"
)

func registerScores(api huma.API, l *scores.Ledger) {
	huma.Register(api, huma.Operation{
		OperationID: "list-scores",
		Method:      http.MethodGet,
		Path:        "/scores",
		Summary:     "List saved scores",
	}, func(ctx context.Context, input *struct {
		Team int `query:"team"`
	}) (*struct {
		Body ScoresResponse `json:"body"`
	}, error) {
		items := []scores.Record{}
		for _, r := range l.List() {
			if input.Team == 0 || r.Team.Number == input.Team {
				items = append(items, r)
			}
		}
		return &struct {
			Body ScoresResponse `json:"body"`
		}{Body: ScoresResponse{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "verify-score",
		Method:      http.MethodGet,
		Path:        "/scores/{id}/receipt",
		Summary:     "Check the receipt of a saved score",
		Errors:      []int{http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body ReceiptResponse `json:"body"`
	}, error) {
		c, err := l.Verify(input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ReceiptResponse `json:"body"`
		}{Body: ReceiptResponse{ID: input.ID, Valid: true, Issuer: c.Issuer, Score: c.Score}}, nil
	})
}

func registerTeams(api huma.API, r *teams.Roster) {
	huma.Register(api, huma.Operation{
		OperationID: "list-teams",
		Method:      http.MethodGet,
		Path:        "/teams",
		Summary:     "List the team roster",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body TeamsResponse `json:"body"`
	}, error) {
		return &struct {
			Body TeamsResponse `json:"body"`
		}{Body: TeamsResponse{Items: r.Teams()}}, nil
	})
}

func registerEvents(api huma.API, src EventSource) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent document events",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Type     string `query:"type"`
		Kind     string `query:"kind" doc:"entity kind: stages, scores, teams, score_detail"`
		EntityID string `query:"entity_id"`
		Limit    int    `query:"limit" default:"50"`
		Cursor   string `query:"cursor"`
	}) (*struct {
		Body paginatedEvents `json:"body"`
	}, error) {
		if src == nil {
			return nil, newAPIError(http.StatusNotFound, "not_found", "event log requires the sqlite backend", nil)
		}
		limit := normalizeLimit(input.Limit)
		var cursorID int64
		if input.Cursor != "" {
			parsed, err := strconv.ParseInt(input.Cursor, 10, 64)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
			}
			cursorID = parsed
		}
		items, err := src.LatestEventsFrom(ctx, limit+1, cursorID, input.Type, input.Kind, input.EntityID)
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedEvents{Items: []EventResponse{}}
		if len(items) > limit {
			resp.NextCursor = fmt.Sprintf("%d", items[limit].ID)
			items = items[:limit]
		}
		for _, evt := range items {
			resp.Items = append(resp.Items, eventResponse(evt))
		}
		return &struct {
			Body paginatedEvents `json:"body"`
		}{Body: resp}, nil
	})
}
