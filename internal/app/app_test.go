package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorekeeper/internal/config"
	"scorekeeper/internal/stages"
)

func TestInitWithoutSettingsUsesDefaults(t *testing.T) {
	ws := t.TempDir()
	logs := &bytes.Buffer{}
	svc, err := Init(context.Background(), Options{Workspace: ws, Logger: slog.New(slog.NewTextHandler(logs, nil))})
	require.NoError(t, err)
	defer svc.Close()

	assert.Contains(t, logs.String(), "unable to load settings")
	assert.Contains(t, logs.String(), "stages using defaults")
	assert.Len(t, svc.Stages.AllStages(), len(stages.Defaults()))
	assert.Equal(t, 0, svc.Teams.Len())
	assert.Empty(t, svc.Ledger.List())
	assert.Nil(t, svc.Repo)
	score, ok := svc.Sheet.Score()
	assert.True(t, ok)
	assert.Equal(t, 0, score)
	assert.DirExists(t, filepath.Join(ws, "data"))
}

func TestInitReadsWorkspaceFiles(t *testing.T) {
	ws := t.TempDir()
	require.NoError(t, os.WriteFile(config.Path(ws), []byte(config.GenerateDefault("Regional")), 0o644))
	data := filepath.Join(ws, "data")
	require.NoError(t, os.MkdirAll(data, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(data, "teams.json"), []byte(`[{"number":7,"name":"Sprockets"}]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(data, "stages.json"), []byte(`[{"id":"final","name":"Final","rounds":1}]`), 0o644))

	svc, err := Init(context.Background(), Options{Workspace: ws})
	require.NoError(t, err)
	defer svc.Close()

	assert.Equal(t, "Regional", svc.Config.Tournament.Name)
	team, err := svc.Teams.Get(7)
	require.NoError(t, err)
	assert.Equal(t, "Sprockets", team.Name)
	require.Len(t, svc.Stages.Stages(), 1)
	assert.Equal(t, "final", svc.Stages.Stages()[0].ID)
}

func TestInitFailsOnCorruptRoster(t *testing.T) {
	ws := t.TempDir()
	data := filepath.Join(ws, "data")
	require.NoError(t, os.MkdirAll(data, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(data, "teams.json"), []byte(`{`), 0o644))
	_, err := Init(context.Background(), Options{Workspace: ws, Config: config.Default("x")})
	assert.Error(t, err)
}

func TestInitSQLiteBackend(t *testing.T) {
	ws := t.TempDir()
	cfg := config.Default("x")
	cfg.Storage.Backend = config.BackendSQLite
	svc, err := Init(context.Background(), Options{Workspace: ws, Config: cfg})
	require.NoError(t, err)
	defer svc.Close()

	require.NotNil(t, svc.Repo)
	require.NoError(t, svc.Stages.Save(context.Background()))
	evts, err := svc.Repo.LatestEvents(context.Background(), 10, "", "", "")
	require.NoError(t, err)
	require.Len(t, evts, 1)
	assert.Equal(t, stages.FileName, evts[0].EntityID)
}
