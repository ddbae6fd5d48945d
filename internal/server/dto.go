package server

import (
	"encoding/json"

	"scorekeeper/internal/domain"
	"scorekeeper/internal/scores"
	"scorekeeper/internal/stages"
	"scorekeeper/internal/teams"
)

// Request payloads

type CreateStageRequest struct {
	ID     string `json:"id" minLength:"1"`
	Name   string `json:"name"`
	Rounds int    `json:"rounds" minimum:"0"`
}

type UpdateStageRequest struct {
	Name   *string `json:"name,omitempty"`
	Rounds *int    `json:"rounds,omitempty" minimum:"0"`
}

type MoveStageRequest struct {
	Delta int `json:"delta"`
}

type SelectTeamRequest struct {
	Number int `json:"number"`
}

type ChooseStageRequest struct {
	ID string `json:"id"`
}

type ChooseRoundRequest struct {
	Round int `json:"round"`
}

type SignRequest struct {
	Signature []byte `json:"signature"`
}

type ObjectiveRequest struct {
	Op     string  `json:"op" enum:"inc,dec,set"`
	Amount float64 `json:"amount,omitempty"`
	Value  any     `json:"value,omitempty"`
}

// Responses

type StagesResponse struct {
	Version uint64         `json:"version"`
	Items   []stages.Stage `json:"items"`
}

type TeamsResponse struct {
	Items []teams.Team `json:"items"`
}

type ScoresResponse struct {
	Items []scores.Record `json:"items"`
}

type ReceiptResponse struct {
	ID     string `json:"id"`
	Valid  bool   `json:"valid"`
	Issuer string `json:"issuer,omitempty"`
	Score  int    `json:"score"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	Payload    map[string]any `json:"payload"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// Conversion helpers

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		Payload:    decodeJSONMap(e.Payload),
	}
}

func decodeJSONMap(raw string) map[string]any {
	out := map[string]any{}
	if raw == "" {
		return out
	}
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}
