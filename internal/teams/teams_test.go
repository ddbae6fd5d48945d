package teams

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorekeeper/internal/storage"
)

func TestLoadSortsByNumber(t *testing.T) {
	store := storage.NewMemory(map[string][]byte{
		FileName: []byte(`[{"number":12,"name":"Gears"},{"number":3,"name":"Bricks","affiliation":"Lab"}]`),
	})
	r, err := Load(context.Background(), store, nil)
	require.NoError(t, err)
	assert.Equal(t, []Team{
		{Number: 3, Name: "Bricks", Affiliation: "Lab"},
		{Number: 12, Name: "Gears"},
	}, r.Teams())

	team, err := r.Get(12)
	require.NoError(t, err)
	assert.Equal(t, "Gears", team.Name)
	_, err = r.Get(7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadMissingRosterIsEmpty(t *testing.T) {
	r, err := Load(context.Background(), storage.NewMemory(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Len())
}

func TestLoadRejectsBadRosters(t *testing.T) {
	for name, body := range map[string]string{
		"duplicate": `[{"number":1,"name":"a"},{"number":1,"name":"b"}]`,
		"zero":      `[{"number":0,"name":"a"}]`,
		"garbage":   `{`,
	} {
		t.Run(name, func(t *testing.T) {
			store := storage.NewMemory(map[string][]byte{FileName: []byte(body)})
			_, err := Load(context.Background(), store, nil)
			assert.Error(t, err)
		})
	}
}
