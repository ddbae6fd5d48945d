// Package scoring evaluates mission score functions against objective
// values and combines mission results into a final score.
//
// A mission result splits function outputs in two: flat points, summed into
// Value, and percentage contributions (non-integers strictly between 0 and
// 1). Missions without percentages form the flat pool, whose total is
// multiplied by 1 plus every percentage of the other missions; the flat
// points of bonus missions are added after the multiplication.
package scoring

import (
	"fmt"
	"math"

	"scorekeeper/internal/objectives"
)

// Function is a single score function with its declared inputs.
type Function interface {
	Dependencies() []string
	Evaluate(args []any) (float64, error)
}

type Mission struct {
	ID    string
	Score []Function
}

// EvaluationError reports a score function that produced no usable number.
type EvaluationError struct {
	Mission  string
	Function int
	Err      error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("mission %s score %d: %v", e.Mission, e.Function+1, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

type Result struct {
	Value       float64   `json:"value"`
	Errors      []error   `json:"-"`
	Percentages []float64 `json:"percentages"`
}

// ErrorMessages returns the error strings for display.
func (r Result) ErrorMessages() []string {
	out := make([]string, 0, len(r.Errors))
	for _, err := range r.Errors {
		out = append(out, err.Error())
	}
	return out
}

// Bonus reports whether the mission belongs to the bonus pool.
func (r Result) Bonus() bool { return len(r.Percentages) > 0 }

// IsPercentage reports whether v counts as a percentage contribution.
func IsPercentage(v float64) bool {
	return v > 0 && v < 1 && v != math.Trunc(v)
}

// Evaluate runs every function of m against store.
func Evaluate(m Mission, store *objectives.Store) Result {
	res := Result{Errors: []error{}, Percentages: []float64{}}
	for i, f := range m.Score {
		args, err := store.Values(f.Dependencies())
		if err == nil {
			var v float64
			v, err = f.Evaluate(args)
			if err == nil {
				if IsPercentage(v) {
					res.Percentages = append(res.Percentages, v)
				} else {
					res.Value += v
				}
				continue
			}
		}
		res.Errors = append(res.Errors, &EvaluationError{Mission: m.ID, Function: i, Err: err})
	}
	return res
}

// Breakdown is the intermediate and final values of the aggregation.
type Breakdown struct {
	SubScore        float64 `json:"sub_score"`
	BonusMultiplier float64 `json:"bonus_multiplier"`
	BonusScore      int     `json:"bonus_score"`
	RestScore       float64 `json:"rest_score"`
	Final           int     `json:"final"`
}

// ceilEpsilon absorbs float noise such as 10*1.1 = 11.000000000000002.
const ceilEpsilon = 1e-9

// Aggregate combines mission results into a final score.
func Aggregate(results []Result) Breakdown {
	b := Breakdown{BonusMultiplier: 1}
	for _, r := range results {
		if !r.Bonus() {
			b.SubScore += r.Value
			continue
		}
		for _, p := range r.Percentages {
			b.BonusMultiplier += p
		}
		b.RestScore += r.Value
	}
	b.BonusScore = int(math.Ceil(b.SubScore*b.BonusMultiplier - ceilEpsilon))
	b.Final = b.BonusScore + int(math.Round(b.RestScore))
	return b
}
