package scoring

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorekeeper/internal/objectives"
)

type fn struct {
	deps []string
	eval func(args []any) (float64, error)
}

func (f fn) Dependencies() []string               { return f.deps }
func (f fn) Evaluate(args []any) (float64, error) { return f.eval(args) }

func constant(v float64) Function {
	return fn{eval: func([]any) (float64, error) { return v, nil }}
}

func failing(msg string) Function {
	return fn{eval: func([]any) (float64, error) { return 0, errors.New(msg) }}
}

// times returns a function reading one number objective and multiplying it.
func times(dep string, k float64) Function {
	return fn{deps: []string{dep}, eval: func(args []any) (float64, error) {
		n, _ := args[0].(float64)
		return n * k, nil
	}}
}

func TestAggregateMixedPools(t *testing.T) {
	b := Aggregate([]Result{
		{Value: 5},
		{Value: 10, Percentages: []float64{0.1}},
	})
	assert.Equal(t, 5.0, b.SubScore)
	assert.InDelta(t, 1.1, b.BonusMultiplier, 1e-12)
	assert.Equal(t, 6, b.BonusScore)
	assert.Equal(t, 10.0, b.RestScore)
	assert.Equal(t, 16, b.Final)
}

func TestAggregateIgnoresFloatNoise(t *testing.T) {
	// 10 * 1.1 is 11.000000000000002 in float64
	b := Aggregate([]Result{{Value: 10}, {Percentages: []float64{0.1}}})
	assert.Equal(t, 11, b.Final)
}

func TestAggregateEmpty(t *testing.T) {
	b := Aggregate(nil)
	assert.Equal(t, 1.0, b.BonusMultiplier)
	assert.Equal(t, 0, b.Final)
}

func TestAggregateMultipleBonusMissions(t *testing.T) {
	b := Aggregate([]Result{
		{Value: 40},
		{Value: 20},
		{Value: 0, Percentages: []float64{0.25}},
		{Value: 3, Percentages: []float64{0.1, 0.05}},
	})
	assert.Equal(t, 60.0, b.SubScore)
	assert.InDelta(t, 1.4, b.BonusMultiplier, 1e-12)
	assert.Equal(t, 84, b.BonusScore)
	assert.Equal(t, 87, b.Final)
}

func TestIsPercentage(t *testing.T) {
	for _, v := range []float64{0.1, 0.5, 0.999} {
		assert.True(t, IsPercentage(v), v)
	}
	for _, v := range []float64{0, 1, -0.5, 1.5, 2.5, 20, -3} {
		assert.False(t, IsPercentage(v), v)
	}
}

func TestEvaluateClassifiesResults(t *testing.T) {
	store, err := objectives.NewStore(nil)
	require.NoError(t, err)
	r := Evaluate(Mission{ID: "m", Score: []Function{
		constant(5), constant(0.2), constant(-3), constant(1.5), failing("nope"),
	}}, store)
	assert.Equal(t, 3.5, r.Value)
	assert.Equal(t, []float64{0.2}, r.Percentages)
	require.Len(t, r.Errors, 1)
	var evalErr *EvaluationError
	require.ErrorAs(t, r.Errors[0], &evalErr)
	assert.Equal(t, "m", evalErr.Mission)
	assert.Equal(t, 4, evalErr.Function)
	assert.Equal(t, []string{"mission m score 5: nope"}, r.ErrorMessages())
}

func TestEvaluateUnknownDependency(t *testing.T) {
	store, err := objectives.NewStore(nil)
	require.NoError(t, err)
	r := Evaluate(Mission{ID: "m", Score: []Function{times("ghost", 1)}}, store)
	assert.Equal(t, 0.0, r.Value)
	assert.Len(t, r.Errors, 1)
}

func TestFailingMissionIsIsolated(t *testing.T) {
	store, err := objectives.NewStore(nil)
	require.NoError(t, err)
	good := []Mission{
		{ID: "a", Score: []Function{constant(5)}},
		{ID: "b", Score: []Function{constant(10), constant(0.1)}},
	}
	bad := Mission{ID: "broken", Score: []Function{failing("invalid combination")}}

	withBad := New(store, append(append([]Mission{}, good...), bad))
	require.NoError(t, withBad.Start())
	without := New(store, good)
	require.NoError(t, without.Start())

	r, ok := withBad.Result("broken")
	require.True(t, ok)
	assert.Equal(t, 0.0, r.Value)
	assert.NotEmpty(t, r.Errors)
	assert.Equal(t, without.Score(), withBad.Score())
	assert.Equal(t, 16, withBad.Score())
}

func TestDependencyDrivenRecomputation(t *testing.T) {
	limit := 10.0
	store, err := objectives.NewStore([]*objectives.Objective{
		{Name: "blocks", Kind: objectives.Number, Max: &limit, Default: 0},
		{Name: "tokens", Kind: objectives.Number, Default: 2},
		{Name: "flag", Kind: objectives.YesNo, Default: false},
	})
	require.NoError(t, err)

	flag := fn{deps: []string{"flag"}, eval: func(args []any) (float64, error) {
		if args[0] == true {
			return 20, nil
		}
		return 0, nil
	}}
	a := New(store, []Mission{
		{ID: "blocks", Score: []Function{times("blocks", 5)}},
		{ID: "flag", Score: []Function{flag}},
		{ID: "precision", Score: []Function{times("tokens", 0.1), times("blocks", 0)}},
	})
	var published []Breakdown
	a.OnChange = func(b Breakdown) { published = append(published, b) }

	assert.False(t, a.Evaluated())
	_, ok := a.Result("blocks")
	assert.False(t, ok)

	require.NoError(t, a.Start())
	assert.True(t, a.Evaluated())
	assert.Equal(t, 0, a.Score())
	require.Len(t, published, 1)

	require.NoError(t, store.Set("flag", true))
	assert.Equal(t, 1, a.Evaluations("blocks"))
	assert.Equal(t, 2, a.Evaluations("flag"))
	assert.Equal(t, 1, a.Evaluations("precision"))
	// 20 * 1.2
	assert.Equal(t, 24, a.Score())

	require.NoError(t, store.Inc("blocks", 2))
	assert.Equal(t, 2, a.Evaluations("blocks"))
	assert.Equal(t, 2, a.Evaluations("flag"))
	assert.Equal(t, 2, a.Evaluations("precision"), "precision depends on blocks through its second function")
	// (10 + 20) * 1.2
	assert.Equal(t, 36, a.Score())

	// moving precision into the flat pool: 0 tokens returns an integer
	require.NoError(t, store.Set("tokens", 0))
	assert.Equal(t, 30, a.Score())
	b := a.Breakdown()
	assert.Equal(t, 1.0, b.BonusMultiplier)
	assert.Len(t, published, 4)

	a.Stop()
	require.NoError(t, store.Set("flag", false))
	assert.Equal(t, 30, a.Score(), "stopped aggregator ignores changes")
	assert.Equal(t, []string{"blocks", "flag", "precision"}, a.MissionIDs())
}

func TestStartIsolatesUnknownDependencies(t *testing.T) {
	store, err := objectives.NewStore([]*objectives.Objective{
		{Name: "blocks", Kind: objectives.Number, Default: 0},
	})
	require.NoError(t, err)
	a := New(store, []Mission{
		{ID: "blocks", Score: []Function{times("blocks", 5)}},
		{ID: "ghost", Score: []Function{times("ghost", 1), times("blocks", 1)}},
	})
	require.NoError(t, a.Start())
	defer a.Stop()

	require.NoError(t, store.Inc("blocks", 2))
	r, ok := a.Result("ghost")
	require.True(t, ok)
	assert.Len(t, r.Errors, 1)
	assert.Equal(t, 2.0, r.Value)
	assert.Equal(t, 2, a.Evaluations("ghost"), "still follows its known dependency")
	assert.Equal(t, 12, a.Score())
}
