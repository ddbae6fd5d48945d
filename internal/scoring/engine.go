package scoring

import (
	"fmt"
	"slices"

	"scorekeeper/internal/objectives"
)

// Aggregator keeps one result per mission up to date. After Start, a
// change to any objective a mission depends on re-evaluates that mission
// only, then the aggregate. It shares the store's threading rules.
type Aggregator struct {
	store    *objectives.Store
	missions []Mission
	results  []*Result
	total    Breakdown
	cancels  []func()

	// OnChange, when set, receives every new aggregate.
	OnChange func(Breakdown)

	evaluations map[string]int
}

func New(store *objectives.Store, missions []Mission) *Aggregator {
	return &Aggregator{
		store:       store,
		missions:    missions,
		results:     make([]*Result, len(missions)),
		total:       Aggregate(nil),
		evaluations: map[string]int{},
	}
}

// Start subscribes every mission to the union of its functions'
// dependencies and evaluates all missions once. Dependencies the store does
// not know are left out of the subscription; Evaluate reports them as an
// error of that mission only.
func (a *Aggregator) Start() error {
	a.Stop()
	for i, m := range a.missions {
		var deps []string
		for _, f := range m.Score {
			for _, d := range f.Dependencies() {
				if _, ok := a.store.Get(d); ok {
					deps = append(deps, d)
				}
			}
		}
		cancel, err := a.store.Subscribe(deps, func() { a.recompute(i) })
		if err != nil {
			a.Stop()
			return fmt.Errorf("mission %s: %w", m.ID, err)
		}
		a.cancels = append(a.cancels, cancel)
	}
	for i := range a.missions {
		a.evaluate(i)
	}
	a.aggregate()
	return nil
}

// Stop drops all subscriptions. Results are kept.
func (a *Aggregator) Stop() {
	for _, cancel := range a.cancels {
		cancel()
	}
	a.cancels = nil
}

func (a *Aggregator) recompute(i int) {
	a.evaluate(i)
	a.aggregate()
}

func (a *Aggregator) evaluate(i int) {
	r := Evaluate(a.missions[i], a.store)
	a.results[i] = &r
	a.evaluations[a.missions[i].ID]++
}

func (a *Aggregator) aggregate() {
	results := make([]Result, 0, len(a.results))
	for _, r := range a.results {
		if r != nil {
			results = append(results, *r)
		}
	}
	a.total = Aggregate(results)
	if a.OnChange != nil {
		a.OnChange(a.total)
	}
}

// Result returns the latest result of mission id; ok is false when the
// mission is unknown or was never evaluated.
func (a *Aggregator) Result(id string) (Result, bool) {
	i := slices.IndexFunc(a.missions, func(m Mission) bool { return m.ID == id })
	if i < 0 || a.results[i] == nil {
		return Result{}, false
	}
	return *a.results[i], true
}

// Evaluated reports whether every mission has a result.
func (a *Aggregator) Evaluated() bool {
	for _, r := range a.results {
		if r == nil {
			return false
		}
	}
	return true
}

func (a *Aggregator) Breakdown() Breakdown { return a.total }

func (a *Aggregator) Score() int { return a.total.Final }

// Evaluations counts how often mission id was evaluated.
func (a *Aggregator) Evaluations(id string) int { return a.evaluations[id] }

// MissionIDs returns mission ids in order.
func (a *Aggregator) MissionIDs() []string {
	ids := make([]string, len(a.missions))
	for i, m := range a.missions {
		ids[i] = m.ID
	}
	return ids
}
