package objectives

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore([]*Objective{
		{Name: "count", Kind: Number, Max: ptr(3)},
		{Name: "ramp", Kind: Number, Min: ptr(-2), Default: 1},
		{Name: "flag", Kind: YesNo, Default: false},
		{Name: "zone", Kind: Enum, Options: []Option{{Value: "in"}, {Value: "out"}}},
	})
	require.NoError(t, err)
	return s
}

func TestDefaults(t *testing.T) {
	s := newStore(t)
	vals, err := s.Values([]string{"count", "ramp", "flag", "zone"})
	require.NoError(t, err)
	assert.Equal(t, []any{nil, 1.0, false, nil}, vals)
}

func TestIncClampsAtMax(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Inc("count", 0))
	require.NoError(t, s.Inc("count", 5))
	o, _ := s.Get("count")
	assert.Equal(t, 3.0, o.Value)
}

func TestDecClampsAtMin(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Dec("count", 0))
	o, _ := s.Get("count")
	assert.Equal(t, 0.0, o.Value)

	require.NoError(t, s.Dec("ramp", 10))
	o, _ = s.Get("ramp")
	assert.Equal(t, -2.0, o.Value)
}

func TestIncRejectsNonNumbers(t *testing.T) {
	s := newStore(t)
	assert.ErrorIs(t, s.Inc("flag", 1), ErrWrongKind)
	assert.ErrorIs(t, s.Inc("nope", 1), ErrUnknown)
}

func TestSetValidates(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Set("zone", "in"))
	assert.ErrorIs(t, s.Set("zone", "sideways"), ErrOutOfRange)
	assert.ErrorIs(t, s.Set("flag", 1.0), ErrWrongKind)
	assert.ErrorIs(t, s.Set("count", 4.0), ErrOutOfRange)
	require.NoError(t, s.Set("count", 2))
	o, _ := s.Get("count")
	assert.Equal(t, 2.0, o.Value)
	require.NoError(t, s.Set("zone", nil))
}

func TestSubscribersFireOnChangeOnly(t *testing.T) {
	s := newStore(t)
	var a, b int
	cancelA, err := s.Subscribe([]string{"count", "flag", "count"}, func() { a++ })
	require.NoError(t, err)
	_, err = s.Subscribe([]string{"ramp"}, func() { b++ })
	require.NoError(t, err)

	require.NoError(t, s.Inc("count", 1))
	require.NoError(t, s.Set("flag", false)) // unchanged
	require.NoError(t, s.Set("flag", true))
	assert.Equal(t, 2, a)
	assert.Equal(t, 0, b)

	s.Reset()
	assert.Equal(t, 3, a, "reset notifies each subscriber once")
	assert.Equal(t, 0, b, "ramp already at default")

	cancelA()
	require.NoError(t, s.Inc("count", 1))
	assert.Equal(t, 3, a)

	_, err = s.Subscribe([]string{"missing"}, func() {})
	assert.ErrorIs(t, err, ErrUnknown)
}

func TestNewStoreRejectsDuplicates(t *testing.T) {
	_, err := NewStore([]*Objective{{Name: "a", Kind: Number}, {Name: "a", Kind: Number}})
	assert.Error(t, err)
	_, err = NewStore([]*Objective{{Name: "a", Kind: YesNo, Default: "yes"}})
	assert.Error(t, err)
}
