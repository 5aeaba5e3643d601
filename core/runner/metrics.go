package runner

import (
	"encoding/json"
	"fmt"
	"os"

	rerrors "github.com/apexlabs/regressor/core/errors"
	"github.com/apexlabs/regressor/core/schema/v1/run"
)

// ReadMetricsSnapshot loads the externally produced performance snapshot
// that gets embedded in the run record. A missing file is not an error: the
// snapshot is best-effort and its absence just omits baseline_metrics from
// the record.
func ReadMetricsSnapshot(path string) (*run.BaselineMetrics, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator configuration.
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, rerrors.Wrap(
			fmt.Errorf("read metrics snapshot %s: %w", path, err),
			rerrors.CategoryIOFailure,
			"metrics_snapshot_unreadable",
			"check permissions on the metrics snapshot file",
			false,
		)
	}

	var metrics run.BaselineMetrics
	if err := json.Unmarshal(data, &metrics); err != nil {
		return nil, rerrors.Wrap(
			fmt.Errorf("parse metrics snapshot %s: %w", path, err),
			rerrors.CategoryParseFailed,
			"metrics_snapshot_malformed",
			"regenerate the metrics snapshot; it must be a flat JSON object",
			false,
		)
	}
	return &metrics, nil
}
