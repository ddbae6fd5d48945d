package scores

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorekeeper/internal/receipt"
	"scorekeeper/internal/stages"
	"scorekeeper/internal/storage"
	"scorekeeper/internal/teams"
)

var now = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func record() Record {
	return Record{
		File:  "score_1_12_1709287200000.json",
		Team:  teams.Team{Number: 12, Name: "Gears"},
		Stage: stages.Definition{ID: "practice", Name: "Practice rounds", Rounds: 2},
		Round: 1,
		Score: 16,
	}
}

func TestAddAndSave(t *testing.T) {
	store := storage.NewMemory(nil)
	l := New(store, nil)
	l.Now = func() time.Time { return now }
	require.NoError(t, l.Load(context.Background()))

	r, err := l.Add(record())
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, now, r.CreatedAt)
	assert.Empty(t, r.Receipt)

	require.NoError(t, l.Save(context.Background()))
	data, ok := store.Document(FileName)
	require.True(t, ok)
	var doc document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, 1, doc.Version)
	assert.Equal(t, []Record{r}, doc.Scores)

	reloaded := New(store, nil)
	require.NoError(t, reloaded.Load(context.Background()))
	got, err := reloaded.Get(r.ID)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestSaveFailureIsReturned(t *testing.T) {
	store := storage.NewMemory(nil)
	store.SetWriteErr(errors.New("disk full"))
	l := New(store, nil)
	_, err := l.Add(record())
	require.NoError(t, err)
	assert.Error(t, l.Save(context.Background()))
	assert.Len(t, l.List(), 1)
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	store := storage.NewMemory(map[string][]byte{FileName: []byte("nope")})
	assert.Error(t, New(store, nil).Load(context.Background()))
}

func TestReceipts(t *testing.T) {
	l := New(storage.NewMemory(nil), nil)
	l.Now = func() time.Time { return now }
	l.Signer = receipt.Signer{Secret: "s3cret", Issuer: "table-1", Now: func() time.Time { return now }}

	r, err := l.Add(record())
	require.NoError(t, err)
	require.NotEmpty(t, r.Receipt)

	c, err := l.Verify(r.ID)
	require.NoError(t, err)
	assert.Equal(t, 16, c.Score)
	assert.Equal(t, r.ID, c.Subject)

	l.records[0].Score = 99
	_, err = l.Verify(r.ID)
	assert.ErrorIs(t, err, ErrTampered)

	_, err = l.Verify("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVerifyWithoutReceipt(t *testing.T) {
	l := New(storage.NewMemory(nil), nil)
	r, err := l.Add(record())
	require.NoError(t, err)
	_, err = l.Verify(r.ID)
	assert.ErrorIs(t, err, ErrNoReceipt)
}
