package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := Dir{Root: t.TempDir()}

	_, err := d.Read(ctx, "stages.json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotExist))

	require.NoError(t, WriteJSON(ctx, d, "stages.json", []map[string]any{{"id": "practice", "rounds": 2}}))
	var out []map[string]any
	require.NoError(t, ReadJSON(ctx, d, "stages.json", &out))
	require.Len(t, out, 1)
	assert.Equal(t, "practice", out[0]["id"])
}

func TestDirRejectsEscapingNames(t *testing.T) {
	ctx := context.Background()
	d := Dir{Root: t.TempDir()}
	for _, name := range []string{"", "../x.json", "/etc/passwd"} {
		assert.Error(t, d.Write(ctx, name, []byte("{}")), name)
	}
}

func TestDirHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := Dir{Root: t.TempDir()}
	assert.ErrorIs(t, d.Write(ctx, "a.json", []byte("{}")), context.Canceled)
}
