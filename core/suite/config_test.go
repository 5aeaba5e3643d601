package suite

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "regressor.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func allKinds(string) bool { return true }

const sampleConfig = `
out_dir: results
metrics_path: data/performance_metrics.json
parallel: 2
look_back: 4
suites:
  - name: core-engine
    kind: line-tagged
    command: node
    args: ["--test", "tests/"]
    timeout_ms: 120000
  - name: ml-pipeline
    kind: prose-summary
    command: python3
    args: ["-m", "unittest", "discover"]
thresholds:
  success_rate:
    regression: 3
    improvement: 8
`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig), allKinds)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.OutDir != "results" {
		t.Fatalf("unexpected out_dir: %s", cfg.OutDir)
	}
	if cfg.Parallel != 2 || cfg.LookBack != 4 {
		t.Fatalf("unexpected tunables: parallel=%d look_back=%d", cfg.Parallel, cfg.LookBack)
	}
	if len(cfg.Suites) != 2 {
		t.Fatalf("expected 2 suites, got %d", len(cfg.Suites))
	}
	if cfg.Suites[0].Name != "core-engine" || cfg.Suites[1].Name != "ml-pipeline" {
		t.Fatalf("suite order not preserved: %+v", cfg.Suites)
	}
	if got := cfg.Suites[0].Args; len(got) != 2 || got[0] != "--test" {
		t.Fatalf("unexpected args: %v", got)
	}
	override := cfg.Thresholds["success_rate"]
	if override.Regression == nil || *override.Regression != 3 {
		t.Fatalf("unexpected threshold override: %+v", cfg.Thresholds)
	}
	if override.Improvement == nil || *override.Improvement != 8 {
		t.Fatalf("unexpected threshold override: %+v", cfg.Thresholds)
	}
}

func TestLoadDistinguishesZeroThresholdFromUnset(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
suites:
  - name: only
    kind: prose-summary
    command: python3
thresholds:
  success_rate:
    regression: 0
`), allKinds)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	override := cfg.Thresholds["success_rate"]
	if override.Regression == nil || *override.Regression != 0 {
		t.Fatalf("explicit zero cutoff must be present: %+v", override)
	}
	if override.Improvement != nil {
		t.Fatalf("unset cutoff must stay nil: %+v", override)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
suites:
  - name: only
    kind: prose-summary
    command: python3
`), allKinds)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.OutDir != DefaultOutDir {
		t.Fatalf("expected default out_dir, got %s", cfg.OutDir)
	}
	if cfg.LookBack != DefaultLookBack {
		t.Fatalf("expected default look_back, got %d", cfg.LookBack)
	}
	if cfg.Parallel != 1 {
		t.Fatalf("expected sequential default, got %d", cfg.Parallel)
	}
}

func TestLoadRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{"no suites", "out_dir: x\n", "no suites configured"},
		{"missing name", "suites:\n  - kind: prose-summary\n    command: x\n", "name is required"},
		{"missing command", "suites:\n  - name: a\n    kind: prose-summary\n", "command is required"},
		{"duplicate name", "suites:\n  - name: a\n    kind: prose-summary\n    command: x\n  - name: a\n    kind: prose-summary\n    command: y\n", "duplicate suite name"},
		{"negative timeout", "suites:\n  - name: a\n    kind: prose-summary\n    command: x\n    timeout_ms: -1\n", "timeout_ms"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content), allKinds)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected %q in error, got: %v", tc.wantErr, err)
			}
		})
	}
}

func TestLoadRejectsUnknownKind(t *testing.T) {
	known := func(kind string) bool { return kind == "prose-summary" }
	_, err := Load(writeConfig(t, `
suites:
  - name: a
    kind: junit-xml
    command: x
`), known)
	if err == nil || !strings.Contains(err.Error(), "unknown output dialect kind") {
		t.Fatalf("expected unknown kind error, got: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), allKinds)
	if err == nil || !strings.Contains(err.Error(), "read config") {
		t.Fatalf("expected read error, got: %v", err)
	}
}
