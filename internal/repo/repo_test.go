package repo_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorekeeper/internal/db"
	"scorekeeper/internal/events"
	"scorekeeper/internal/migrate"
	"scorekeeper/internal/repo"
	"scorekeeper/internal/storage"
)

func newTestRepo(t *testing.T) repo.Repo {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(context.Background(), conn))
	r := repo.New(conn)
	r.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return r
}

func TestReadMissingDocument(t *testing.T) {
	r := newTestRepo(t)
	_, err := r.Read(context.Background(), "stages.json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, repo.ErrNotFound))
	assert.True(t, errors.Is(err, storage.ErrNotExist))
}

func TestWriteUpsertsAndRecordsEvents(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	require.NoError(t, r.Write(ctx, "stages.json", []byte(`[]`)))
	require.NoError(t, r.Write(ctx, "stages.json", []byte(`[{"id":"final","name":"Final","rounds":1}]`)))
	require.NoError(t, r.Write(ctx, "scores.json", []byte(`[]`)))

	body, err := r.Read(ctx, "stages.json")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"final","name":"Final","rounds":1}]`, string(body))

	docs, err := r.ListDocuments(ctx, "stages")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "stages.json", docs[0].Name)

	evts, err := r.LatestEvents(ctx, 10, "", events.KindStages, "stages.json")
	require.NoError(t, err)
	require.Len(t, evts, 2)
	assert.Equal(t, events.DocumentWritten, evts[0].Type)
	var payload events.Written
	require.NoError(t, json.Unmarshal([]byte(evts[0].Payload), &payload))
	assert.Equal(t, len(`[{"id":"final","name":"Final","rounds":1}]`), payload.Size)
	assert.Len(t, payload.SHA256, 64)

	scoresEvts, err := r.LatestEvents(ctx, 10, "", events.KindScores, "")
	require.NoError(t, err)
	assert.Len(t, scoresEvts, 1)
	assert.Greater(t, evts[0].ID, evts[1].ID)

	older, err := r.LatestEventsFrom(ctx, 10, evts[0].ID, "", "", "")
	require.NoError(t, err)
	assert.Len(t, older, 1)
}

func TestMigrateIsIdempotent(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	defer conn.Close()
	ctx := context.Background()
	require.NoError(t, migrate.Migrate(ctx, conn))
	require.NoError(t, migrate.Migrate(ctx, conn))
	latest, err := migrate.Latest()
	require.NoError(t, err)
	var v int
	require.NoError(t, conn.QueryRow(`SELECT version FROM schema_version`).Scan(&v))
	assert.Equal(t, latest, v)
}
