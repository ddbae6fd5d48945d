package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"scorekeeper/internal/stages"
)

type stagePath struct {
	ID string `path:"id"`
}

type stageOutput struct {
	Body stages.Stage `json:"body"`
}

func stageByID(c *stages.Catalog, id string) (*stageOutput, error) {
	st, ok := c.Get(id)
	if !ok {
		return nil, handleError(fmt.Errorf("%w: %s", stages.ErrNotFound, id))
	}
	return &stageOutput{Body: st}, nil
}

func registerStages(api huma.API, c *stages.Catalog) {
	huma.Register(api, huma.Operation{
		OperationID: "list-stages",
		Method:      http.MethodGet,
		Path:        "/stages",
		Summary:     "List stages",
		Description: "Lists stages with rounds, or every stage when all is set.",
	}, func(ctx context.Context, input *struct {
		All bool `query:"all"`
	}) (*struct {
		Body StagesResponse `json:"body"`
	}, error) {
		snap := c.Snapshot()
		items := snap.Active
		if input.All {
			items = snap.All
		}
		return &struct {
			Body StagesResponse `json:"body"`
		}{Body: StagesResponse{Version: snap.Version, Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-stage",
		Method:      http.MethodPost,
		Path:        "/stages",
		Summary:     "Add a stage",
		Errors:      []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body CreateStageRequest `json:"body"`
	}) (*stageOutput, error) {
		d := stages.Definition{ID: input.Body.ID, Name: input.Body.Name, Rounds: input.Body.Rounds}
		if err := c.Add(d); err != nil {
			return nil, handleError(err)
		}
		return stageByID(c, d.ID)
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-stage",
		Method:      http.MethodGet,
		Path:        "/stages/{id}",
		Summary:     "Get stage",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *stagePath) (*stageOutput, error) {
		return stageByID(c, input.ID)
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-stage",
		Method:      http.MethodPatch,
		Path:        "/stages/{id}",
		Summary:     "Rename a stage or change its rounds",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string             `path:"id"`
		Body UpdateStageRequest `json:"body"`
	}) (*stageOutput, error) {
		st, ok := c.Get(input.ID)
		if !ok {
			return nil, handleError(fmt.Errorf("%w: %s", stages.ErrNotFound, input.ID))
		}
		if input.Body.Name != nil {
			st.Name = *input.Body.Name
		}
		if input.Body.Rounds != nil {
			st.Rounds = *input.Body.Rounds
		}
		if err := c.UpdateStage(st); err != nil {
			return nil, handleError(err)
		}
		return stageByID(c, input.ID)
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-stage",
		Method:        http.MethodDelete,
		Path:          "/stages/{id}",
		Summary:       "Remove a stage",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *stagePath) (*struct{}, error) {
		c.Remove(input.ID)
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-stage",
		Method:      http.MethodPost,
		Path:        "/stages/{id}/move",
		Summary:     "Move a stage by delta positions",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string           `path:"id"`
		Body MoveStageRequest `json:"body"`
	}) (*stageOutput, error) {
		st, ok := c.Get(input.ID)
		if !ok {
			return nil, handleError(fmt.Errorf("%w: %s", stages.ErrNotFound, input.ID))
		}
		if err := c.MoveStage(st, input.Body.Delta); err != nil {
			return nil, handleError(err)
		}
		return stageByID(c, input.ID)
	})

	huma.Register(api, huma.Operation{
		OperationID: "save-stages",
		Method:      http.MethodPost,
		Path:        "/stages/save",
		Summary:     "Persist the stage list",
		Errors:      []int{http.StatusInternalServerError},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		if err := c.Save(ctx); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "saved"}}, nil
	})
}
