package stages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"scorekeeper/internal/storage"
)

// Catalog owns the ordered raw stage list and publishes a new Snapshot after
// every mutation that changes it.
type Catalog struct {
	store  storage.Store
	Logger *slog.Logger

	// pub serializes install and delivery so subscribers see snapshots in
	// version order. Subscribers must not mutate the catalog.
	pub sync.Mutex

	mu      sync.Mutex
	raw     []Definition
	snap    Snapshot
	subs    map[int]func(Snapshot)
	nextSub int
}

// New returns an empty catalog backed by store.
func New(store storage.Store, logger *slog.Logger) *Catalog {
	c := &Catalog{store: store, Logger: logger, subs: map[int]func(Snapshot){}}
	c.snap = Snapshot{All: []Stage{}, Active: []Stage{}}
	return c
}

// Open builds a catalog and loads it from store.
func Open(ctx context.Context, store storage.Store, logger *slog.Logger) (*Catalog, error) {
	c := New(store, logger)
	if err := c.Load(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Load replaces the raw list with the stored one. A read failure installs
// Defaults instead and is not returned; duplicate ids in the stored list are
// returned and leave the catalog as it was.
func (c *Catalog) Load(ctx context.Context) error {
	var raw []Definition
	if err := storage.ReadJSON(ctx, c.store, FileName, &raw); err != nil {
		c.logger().Warn("stages read error", "error", err)
		c.logger().Info("stages using defaults")
		raw = Defaults()
	}
	for _, d := range raw {
		if err := d.validate(); err != nil {
			return fmt.Errorf("load stages: %w", err)
		}
	}
	c.pub.Lock()
	defer c.pub.Unlock()
	c.mu.Lock()
	snap, err := c.replaceLocked(raw)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("load stages: %w", err)
	}
	c.publish(snap)
	return nil
}

// Save writes the raw list. Failures are logged and returned; in-memory
// state is kept either way. Overlapping saves are not coordinated.
func (c *Catalog) Save(ctx context.Context) error {
	c.mu.Lock()
	raw := slices.Clone(c.raw)
	c.mu.Unlock()
	if raw == nil {
		raw = []Definition{}
	}
	if err := storage.WriteJSON(ctx, c.store, FileName, raw); err != nil {
		c.logger().Error("stages write error", "error", err)
		return err
	}
	return nil
}

// Add appends d. It fails with a DuplicateIDError when the id exists.
func (c *Catalog) Add(d Definition) error {
	if err := d.validate(); err != nil {
		return err
	}
	return c.mutate(func(raw []Definition) ([]Definition, error) {
		if indexOf(raw, d.ID) >= 0 {
			return nil, &DuplicateIDError{ID: d.ID}
		}
		return append(raw, d), nil
	})
}

// Remove deletes the stage with id. Unknown ids are ignored.
func (c *Catalog) Remove(id string) {
	_ = c.mutate(func(raw []Definition) ([]Definition, error) {
		i := indexOf(raw, id)
		if i < 0 {
			return nil, errUnchanged
		}
		return slices.Delete(raw, i, i+1), nil
	})
}

// UpdateStage copies name and rounds from s onto the raw stage with s.ID.
func (c *Catalog) UpdateStage(s Stage) error {
	d := s.Definition()
	if err := d.validate(); err != nil {
		return err
	}
	return c.mutate(func(raw []Definition) ([]Definition, error) {
		i := indexOf(raw, s.ID)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.ID)
		}
		raw[i].Name = s.Name
		raw[i].Rounds = s.Rounds
		return raw, nil
	})
}

// MoveStage shifts s by delta positions, clamped to the list bounds.
func (c *Catalog) MoveStage(s Stage, delta int) error {
	return c.mutate(func(raw []Definition) ([]Definition, error) {
		from := indexOf(raw, s.ID)
		if from < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.ID)
		}
		to := min(max(from+delta, 0), len(raw)-1)
		if to == from {
			return nil, errUnchanged
		}
		d := raw[from]
		raw = slices.Delete(raw, from, from+1)
		return slices.Insert(raw, to, d), nil
	})
}

// Clear empties the catalog.
func (c *Catalog) Clear() {
	_ = c.mutate(func([]Definition) ([]Definition, error) {
		return []Definition{}, nil
	})
}

// Get returns a copy of the full-view stage with id.
func (c *Catalog) Get(id string) (Stage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.snap.All {
		if s.ID == id {
			return s.clone(), true
		}
	}
	return Stage{}, false
}

// Stages returns the active view: stages with at least one round.
func (c *Catalog) Stages() []Stage {
	return c.Snapshot().Active
}

// AllStages returns every stage in catalog order.
func (c *Catalog) AllStages() []Stage {
	return c.Snapshot().All
}

// Definitions returns a copy of the raw list.
func (c *Catalog) Definitions() []Definition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.raw)
}

func (c *Catalog) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Subscribe registers fn for every snapshot published after the call.
// The returned func cancels the subscription.
func (c *Catalog) Subscribe(fn func(Snapshot)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

var errUnchanged = errors.New("unchanged")

// mutate applies fn to a copy of the raw list and installs the result only
// when it derives cleanly, so a failing mutation leaves no trace.
func (c *Catalog) mutate(fn func([]Definition) ([]Definition, error)) error {
	c.pub.Lock()
	defer c.pub.Unlock()
	c.mu.Lock()
	next, err := fn(slices.Clone(c.raw))
	if err != nil {
		c.mu.Unlock()
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}
	snap, err := c.replaceLocked(next)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.publish(snap)
	return nil
}

func (c *Catalog) replaceLocked(raw []Definition) (Snapshot, error) {
	all, active, err := derive(raw)
	if err != nil {
		return Snapshot{}, err
	}
	c.raw = raw
	c.snap = Snapshot{Version: c.snap.Version + 1, All: all, Active: active}
	return c.snap, nil
}

func (c *Catalog) publish(snap Snapshot) {
	c.mu.Lock()
	subs := make([]func(Snapshot), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}

func indexOf(raw []Definition, id string) int {
	return slices.IndexFunc(raw, func(d Definition) bool { return d.ID == id })
}
