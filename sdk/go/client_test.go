package scorekeepersdk

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorekeeper/internal/app"
	"scorekeeper/internal/config"
	"scorekeeper/internal/server"
)

func newClient(t *testing.T) *Client {
	t.Helper()
	svc, err := app.Init(context.Background(), app.Options{Workspace: t.TempDir(), Config: config.Default("sdk")})
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	handler, err := server.New(server.Config{Stages: svc.Stages, Sheet: svc.Sheet, Ledger: svc.Ledger, Teams: svc.Teams})
	require.NoError(t, err)
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return New(ts.URL)
}

func TestStageCalls(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	list, err := c.Stages(ctx, true)
	require.NoError(t, err)
	assert.Len(t, list.Items, 6)

	st, err := c.AddStage(ctx, "extra", "Extra rounds", 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, st.RoundSequence)

	st, err = c.MoveStage(ctx, "extra", -1)
	require.NoError(t, err)
	assert.Equal(t, 5, st.Index)

	require.NoError(t, c.RemoveStage(ctx, "extra"))
	require.NoError(t, c.SaveStages(ctx))

	_, err = c.AddStage(ctx, "final", "Again", 1)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
}

func TestSheetCalls(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	sheet, err := c.ChooseStage(ctx, "qualifying")
	require.NoError(t, err)
	require.NotNil(t, sheet.Stage)
	sheet, err = c.ChooseRound(ctx, 3)
	require.NoError(t, err)
	require.NotNil(t, sheet.Round)
	assert.Equal(t, 3, *sheet.Round)

	sheet, err = c.Set(ctx, "m01_flag", true)
	require.NoError(t, err)
	sheet, err = c.Inc(ctx, "m02_blocks", 9)
	require.NoError(t, err)
	sheet, err = c.Dec(ctx, "precision_tokens", 6)
	require.NoError(t, err)
	require.NotNil(t, sheet.Breakdown)
	// flag 20 plus the 8 blocks the counter is capped at
	assert.Equal(t, 60, sheet.Breakdown.Final)

	sheet, err = c.Sign(ctx, []byte("ref"))
	require.NoError(t, err)
	assert.True(t, sheet.Signed)
	assert.False(t, sheet.Saveable, "no team selected")

	_, err = c.SelectTeam(ctx, 1)
	assert.Error(t, err, "empty roster")

	_, err = c.Save(ctx)
	assert.Error(t, err)

	sheet, err = c.Discard(ctx)
	require.NoError(t, err)
	assert.Nil(t, sheet.Stage)

	scores, err := c.Scores(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, scores)
}
