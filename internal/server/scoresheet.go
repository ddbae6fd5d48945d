package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"scorekeeper/internal/scores"
	"scorekeeper/internal/scoresheet"
)

type sheetOutput struct {
	Body scoresheet.View `json:"body"`
}

func registerScoresheet(api huma.API, s *scoresheet.Sheet) {
	view := func() (*sheetOutput, error) { return &sheetOutput{Body: s.View()}, nil }

	huma.Register(api, huma.Operation{
		OperationID: "get-scoresheet",
		Method:      http.MethodGet,
		Path:        "/scoresheet",
		Summary:     "Current score sheet",
	}, func(ctx context.Context, _ *struct{}) (*sheetOutput, error) {
		return view()
	})

	huma.Register(api, huma.Operation{
		OperationID: "select-team",
		Method:      http.MethodPost,
		Path:        "/scoresheet/team",
		Summary:     "Select the team being scored",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body SelectTeamRequest `json:"body"`
	}) (*sheetOutput, error) {
		if _, err := s.SelectTeam(input.Body.Number); err != nil {
			return nil, handleError(err)
		}
		return view()
	})

	huma.Register(api, huma.Operation{
		OperationID: "choose-stage",
		Method:      http.MethodPost,
		Path:        "/scoresheet/stage",
		Summary:     "Choose the stage",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body ChooseStageRequest `json:"body"`
	}) (*sheetOutput, error) {
		if _, err := s.ChooseStage(input.Body.ID); err != nil {
			return nil, handleError(err)
		}
		return view()
	})

	huma.Register(api, huma.Operation{
		OperationID: "choose-round",
		Method:      http.MethodPost,
		Path:        "/scoresheet/round",
		Summary:     "Choose a round of the chosen stage",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body ChooseRoundRequest `json:"body"`
	}) (*sheetOutput, error) {
		if err := s.ChooseRound(input.Body.Round); err != nil {
			return nil, handleError(err)
		}
		return view()
	})

	huma.Register(api, huma.Operation{
		OperationID: "sign-scoresheet",
		Method:      http.MethodPost,
		Path:        "/scoresheet/signature",
		Summary:     "Store the referee signature",
	}, func(ctx context.Context, input *struct {
		Body SignRequest `json:"body"`
	}) (*sheetOutput, error) {
		s.Sign(input.Body.Signature)
		return view()
	})

	huma.Register(api, huma.Operation{
		OperationID: "change-objective",
		Method:      http.MethodPost,
		Path:        "/scoresheet/objectives/{name}",
		Summary:     "Increment, decrement or set an objective",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Name string           `path:"name"`
		Body ObjectiveRequest `json:"body"`
	}) (*sheetOutput, error) {
		var err error
		switch input.Body.Op {
		case "inc":
			err = s.Inc(input.Name, input.Body.Amount)
		case "dec":
			err = s.Dec(input.Name, input.Body.Amount)
		case "set":
			err = s.Set(input.Name, input.Body.Value)
		default:
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "op must be inc, dec or set", map[string]any{"op": input.Body.Op})
		}
		if err != nil {
			return nil, handleError(err)
		}
		return view()
	})

	huma.Register(api, huma.Operation{
		OperationID: "save-scoresheet",
		Method:      http.MethodPost,
		Path:        "/scoresheet/save",
		Summary:     "Save the score sheet and register the score",
		Errors:      []int{http.StatusUnprocessableEntity, http.StatusInternalServerError},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body scores.Record `json:"body"`
	}, error) {
		rec, err := s.Save(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body scores.Record `json:"body"`
		}{Body: rec}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "discard-scoresheet",
		Method:      http.MethodPost,
		Path:        "/scoresheet/discard",
		Summary:     "Clear the selection and reset every objective",
		Errors:      []int{http.StatusInternalServerError},
	}, func(ctx context.Context, _ *struct{}) (*sheetOutput, error) {
		if err := s.Discard(ctx); err != nil {
			return nil, handleError(err)
		}
		return view()
	})
}
