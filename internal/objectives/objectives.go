// Package objectives holds the named inputs that mission score functions read.
package objectives

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

type Kind string

const (
	Number Kind = "number"
	YesNo  Kind = "yesno"
	Enum   Kind = "enum"
)

var (
	ErrUnknown    = errors.New("unknown objective")
	ErrWrongKind  = errors.New("objective value has the wrong kind")
	ErrOutOfRange = errors.New("objective value out of range")
)

// Option is one allowed value of an enum objective.
type Option struct {
	Value string `yaml:"value" json:"value"`
	Title string `yaml:"title" json:"title"`
}

// Objective describes an input and holds its current value. Value is nil
// when unset, otherwise float64 (Number), bool (YesNo) or string (Enum).
type Objective struct {
	Name    string   `yaml:"id" json:"id"`
	Title   string   `yaml:"title" json:"title"`
	Kind    Kind     `yaml:"type" json:"type"`
	Min     *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max     *float64 `yaml:"max,omitempty" json:"max,omitempty"`
	Options []Option `yaml:"options,omitempty" json:"options,omitempty"`
	Default any      `yaml:"default,omitempty" json:"default,omitempty"`
	Value   any      `yaml:"-" json:"value"`
}

func (o *Objective) lower() float64 {
	if o.Min != nil {
		return *o.Min
	}
	return 0
}

func (o *Objective) upper() float64 {
	if o.Max != nil {
		return *o.Max
	}
	return math.Inf(1)
}

func (o *Objective) number() float64 {
	if f, ok := o.Value.(float64); ok {
		return f
	}
	return 0
}

// Normalize converts v into the canonical representation for o's kind.
func (o *Objective) Normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch o.Kind {
	case Number:
		var f float64
		switch n := v.(type) {
		case float64:
			f = n
		case float32:
			f = float64(n)
		case int:
			f = float64(n)
		case int64:
			f = float64(n)
		default:
			return nil, fmt.Errorf("%w: %s expects a number, got %T", ErrWrongKind, o.Name, v)
		}
		if math.IsNaN(f) || f < o.lower() || f > o.upper() {
			return nil, fmt.Errorf("%w: %s=%v", ErrOutOfRange, o.Name, f)
		}
		return f, nil
	case YesNo:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects yes/no, got %T", ErrWrongKind, o.Name, v)
		}
		return b, nil
	case Enum:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects an option, got %T", ErrWrongKind, o.Name, v)
		}
		if !slices.ContainsFunc(o.Options, func(opt Option) bool { return opt.Value == s }) {
			return nil, fmt.Errorf("%w: %s has no option %q", ErrOutOfRange, o.Name, s)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("objective %s has unknown type %q", o.Name, o.Kind)
	}
}

// Store indexes objectives by name and notifies subscribers when a value
// changes. It is not safe for concurrent use; callers serialize access.
type Store struct {
	index    map[string]*Objective
	order    []string
	watchers map[string][]int
	handlers map[int]func()
	nextID   int
}

// NewStore indexes objs and sets every value to its default.
func NewStore(objs []*Objective) (*Store, error) {
	s := &Store{
		index:    make(map[string]*Objective, len(objs)),
		watchers: map[string][]int{},
		handlers: map[int]func(){},
	}
	for _, o := range objs {
		if o.Name == "" {
			return nil, errors.New("objective id is required")
		}
		if _, dup := s.index[o.Name]; dup {
			return nil, fmt.Errorf("duplicate objective %s", o.Name)
		}
		def, err := o.Normalize(o.Default)
		if err != nil {
			return nil, fmt.Errorf("default: %w", err)
		}
		o.Value = def
		s.index[o.Name] = o
		s.order = append(s.order, o.Name)
	}
	return s, nil
}

func (s *Store) Get(name string) (*Objective, bool) {
	o, ok := s.index[name]
	return o, ok
}

// Names returns objective names in declaration order.
func (s *Store) Names() []string {
	return slices.Clone(s.order)
}

// Values returns the current values of names, in order.
func (s *Store) Values(names []string) ([]any, error) {
	out := make([]any, len(names))
	for i, n := range names {
		o, ok := s.index[n]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknown, n)
		}
		out[i] = o.Value
	}
	return out, nil
}

// Snapshot copies every current value keyed by name.
func (s *Store) Snapshot() map[string]any {
	out := make(map[string]any, len(s.index))
	for n, o := range s.index {
		out[n] = o.Value
	}
	return out
}

// Set replaces the value of name after normalizing it.
func (s *Store) Set(name string, v any) error {
	o, ok := s.index[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknown, name)
	}
	nv, err := o.Normalize(v)
	if err != nil {
		return err
	}
	s.assign(o, nv)
	return nil
}

// Inc adds amount (1 when zero) to a number objective, capped at its max.
func (s *Store) Inc(name string, amount float64) error {
	o, err := s.numeric(name)
	if err != nil {
		return err
	}
	if amount == 0 {
		amount = 1
	}
	s.assign(o, math.Min(o.upper(), o.number()+amount))
	return nil
}

// Dec subtracts amount (1 when zero) from a number objective, floored at its min.
func (s *Store) Dec(name string, amount float64) error {
	o, err := s.numeric(name)
	if err != nil {
		return err
	}
	if amount == 0 {
		amount = 1
	}
	s.assign(o, math.Max(o.lower(), o.number()-amount))
	return nil
}

// Reset restores every default. Each affected subscriber runs once.
func (s *Store) Reset() {
	var changed []string
	for _, n := range s.order {
		o := s.index[n]
		def, _ := o.Normalize(o.Default)
		if o.Value != def {
			o.Value = def
			changed = append(changed, n)
		}
	}
	s.notify(changed...)
}

// Subscribe runs fn whenever any of names changes value. The returned func
// removes the subscription.
func (s *Store) Subscribe(names []string, fn func()) (func(), error) {
	for _, n := range names {
		if _, ok := s.index[n]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknown, n)
		}
	}
	id := s.nextID
	s.nextID++
	s.handlers[id] = fn
	for _, n := range uniq(names) {
		s.watchers[n] = append(s.watchers[n], id)
	}
	return func() {
		delete(s.handlers, id)
		for n, ids := range s.watchers {
			s.watchers[n] = slices.DeleteFunc(ids, func(x int) bool { return x == id })
		}
	}, nil
}

func (s *Store) numeric(name string) (*Objective, error) {
	o, ok := s.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknown, name)
	}
	if o.Kind != Number {
		return nil, fmt.Errorf("%w: %s is %s", ErrWrongKind, name, o.Kind)
	}
	return o, nil
}

func (s *Store) assign(o *Objective, v any) {
	if o.Value == v {
		return
	}
	o.Value = v
	s.notify(o.Name)
}

func (s *Store) notify(names ...string) {
	var ids []int
	for _, n := range names {
		for _, id := range s.watchers[n] {
			if !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}
	}
	slices.Sort(ids)
	for _, id := range ids {
		if fn, ok := s.handlers[id]; ok {
			fn()
		}
	}
}

func uniq(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}
