package history

import (
	"errors"
	"fmt"

	rerrors "github.com/apexlabs/regressor/core/errors"
	"github.com/apexlabs/regressor/core/schema/v1/run"
)

// ErrInsufficientHistory is returned by Select when fewer than two records
// exist. Callers treat this as a benign first-runs condition, not a failure.
var ErrInsufficientHistory = errors.New("insufficient history: need at least 2 run records")

// Selection pairs the two records a comparison runs over.
type Selection struct {
	Baseline run.Record
	Current  run.Record
}

// Select picks the current record (newest) and the baseline lookBack runs
// before it, clamped to the oldest record when history is shorter than the
// window. Records must already be in timestamp order, which ReadAll
// guarantees.
func Select(records []run.Record, lookBack int) (Selection, error) {
	if len(records) < 2 {
		return Selection{}, rerrors.Wrap(
			fmt.Errorf("%w (have %d)", ErrInsufficientHistory, len(records)),
			rerrors.CategoryInsufficientHistory,
			"insufficient_history",
			"run the suites at least twice to establish a baseline",
			false,
		)
	}
	if lookBack < 1 {
		lookBack = 1
	}

	baselineIndex := len(records) - lookBack - 1
	if baselineIndex < 0 {
		baselineIndex = 0
	}
	return Selection{
		Baseline: records[baselineIndex],
		Current:  records[len(records)-1],
	}, nil
}
