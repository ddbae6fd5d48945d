package challenge

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadPractice(t *testing.T) *Definition {
	t.Helper()
	def, err := Loader{}.Load(context.Background(), "builtin:practice")
	require.NoError(t, err)
	t.Cleanup(def.Close)
	return def
}

func mission(t *testing.T, def *Definition, id string) *Mission {
	t.Helper()
	for _, m := range def.Missions {
		if m.ID == id {
			return m
		}
	}
	t.Fatalf("mission %s not found", id)
	return nil
}

func TestBuiltinPracticeLoads(t *testing.T) {
	def := loadPractice(t)
	assert.Equal(t, "Practice Field", def.Field.Title)
	require.Len(t, def.Missions, 4)
	o, ok := def.ObjectiveIndex.Get("precision_tokens")
	require.True(t, ok)
	assert.Equal(t, 6.0, o.Value)
	assert.Contains(t, Builtins(), "builtin:practice")
}

func TestEvaluateScoreFunctions(t *testing.T) {
	def := loadPractice(t)

	flag := mission(t, def, "m01").Score[0]
	assert.Equal(t, []string{"m01_flag"}, Dependencies(flag))
	v, err := flag.Evaluate([]any{true})
	require.NoError(t, err)
	assert.Equal(t, 20.0, v)
	v, err = flag.Evaluate([]any{false})
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)

	zone := mission(t, def, "m02").Score[1]
	_, err = zone.Evaluate([]any{"completely", 3.0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs all 8 blocks")
	v, err = zone.Evaluate([]any{"completely", 8.0})
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)

	parked := mission(t, def, "m03").Score[0]
	_, err = parked.Evaluate([]any{nil})
	assert.Error(t, err)

	precision := mission(t, def, "precision").Score[0]
	v, err = precision.Evaluate([]any{4.0})
	require.NoError(t, err)
	assert.InDelta(t, 0.2, v, 1e-9)

	_, err = precision.Evaluate(nil)
	assert.Error(t, err, "argument count is checked")
}

func TestEvaluateRejectsNonNumericResults(t *testing.T) {
	def, err := Parse([]byte(`
title: t
missions:
  - id: m
    objectives:
      - id: a
        type: number
    score:
      - deps: [a]
        lua: return "five"
      - deps: [a]
        lua: local x = a
`))
	require.NoError(t, err)
	defer def.Close()
	_, err = def.Missions[0].Score[0].Evaluate([]any{1.0})
	assert.ErrorContains(t, err, "string")
	_, err = def.Missions[0].Score[1].Evaluate([]any{1.0})
	assert.ErrorContains(t, err, "returned nothing")
}

func TestSandboxHidesOS(t *testing.T) {
	def, err := Parse([]byte(`
missions:
  - id: m
    objectives:
      - id: a
        type: number
    score:
      - deps: [a]
        lua: return os.time()
`))
	require.NoError(t, err)
	defer def.Close()
	_, err = def.Missions[0].Score[0].Evaluate([]any{1.0})
	assert.Error(t, err)
}

func TestParseValidation(t *testing.T) {
	cases := map[string]string{
		"no missions":   `title: x`,
		"unknown dep":   "missions:\n  - id: m\n    score:\n      - deps: [ghost]\n        lua: return 1\n",
		"bad ident":     "missions:\n  - id: m\n    objectives:\n      - id: my-flag\n        type: yesno\n    score:\n      - deps: []\n        lua: return 1\n",
		"keyword ident": "missions:\n  - id: m\n    objectives:\n      - id: end\n        type: yesno\n    score:\n      - deps: []\n        lua: return 1\n",
		"no score":      "missions:\n  - id: m\n",
		"syntax":        "missions:\n  - id: m\n    score:\n      - deps: []\n        lua: return (\n",
		"dup mission":   "missions:\n  - id: m\n    score:\n      - lua: return 1\n  - id: m\n    score:\n      - lua: return 1\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src))
			assert.Error(t, err)
		})
	}
}

func TestLoaderReadsFiles(t *testing.T) {
	dir := t.TempDir()
	src := "title: Custom\nmissions:\n  - id: only\n    score:\n      - lua: return 7\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.yml"), []byte(src), 0o644))
	def, err := Loader{Dir: dir}.Load(context.Background(), "custom.yml")
	require.NoError(t, err)
	defer def.Close()
	v, err := def.Missions[0].Score[0].Evaluate(nil)
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)

	_, err = Loader{Dir: dir}.Load(context.Background(), "missing.yml")
	assert.ErrorIs(t, err, ErrUnknownChallenge)
	_, err = Loader{}.Load(context.Background(), "builtin:nope")
	assert.ErrorIs(t, err, ErrUnknownChallenge)
}

func TestSnapshotCopiesValues(t *testing.T) {
	def := loadPractice(t)
	require.NoError(t, def.ObjectiveIndex.Set("m01_flag", true))
	snap := def.Snapshot()
	require.NoError(t, def.ObjectiveIndex.Set("m01_flag", false))
	assert.Equal(t, "m01", snap.Missions[0].ID)
	assert.Equal(t, true, snap.Missions[0].Objectives[0].Value)
}
