package dialect

import (
	"strings"
	"unicode"
)

// testLineIndent is the exact leading-whitespace depth that marks an
// individual test line in the emitting runner's output. Group headers print
// their own "ok"/"not ok" summary lines at shallower depth and must not be
// counted. The depth is defined by the external test runner's format, not by
// us; if that tool changes, this constant is the single point of repair.
const testLineIndent = "    "

// lineTagged counts per-test "ok <n>" / "not ok <n>" marker lines. A naive
// substring count over-reports because group headers also contain the word
// "ok"; only lines at exactly testLineIndent are individual tests.
type lineTagged struct{}

func (lineTagged) Kind() string { return KindLineTagged }

func (lineTagged) Parse(stdout, stderr string, _ *int) (Counts, bool) {
	var counts Counts
	recognized := false
	for _, line := range strings.Split(stdout+"\n"+stderr, "\n") {
		marker, ok := testMarker(line)
		if !ok {
			continue
		}
		recognized = true
		switch {
		case marker.skipped:
			counts.Skipped++
		case marker.passed:
			counts.Passed++
		default:
			counts.Failed++
		}
	}
	counts.Total = counts.Passed + counts.Failed + counts.Skipped
	return counts, recognized
}

type markerLine struct {
	passed  bool
	skipped bool
}

func testMarker(line string) (markerLine, bool) {
	rest, indented := strings.CutPrefix(line, testLineIndent)
	if !indented {
		return markerLine{}, false
	}
	// Deeper indentation means nested diagnostics, not a test line.
	if strings.HasPrefix(rest, " ") || strings.HasPrefix(rest, "\t") {
		return markerLine{}, false
	}

	passed := false
	if numbered, ok := cutMarker(rest, "not ok "); ok {
		rest = numbered
	} else if numbered, ok := cutMarker(rest, "ok "); ok {
		rest = numbered
		passed = true
	} else {
		return markerLine{}, false
	}

	skipped := strings.Contains(rest, "# SKIP")
	return markerLine{passed: passed, skipped: skipped}, true
}

// cutMarker strips the marker prefix and requires a test number after it, so
// prose lines that merely start with "ok" are not miscounted.
func cutMarker(line, marker string) (string, bool) {
	rest, ok := strings.CutPrefix(line, marker)
	if !ok || rest == "" {
		return "", false
	}
	if !unicode.IsDigit(rune(rest[0])) {
		return "", false
	}
	return rest, true
}
