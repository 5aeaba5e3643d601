package dialect

import (
	"regexp"
	"strconv"
)

var (
	ranPattern     = regexp.MustCompile(`Ran (\d+) tests?`)
	failurePattern = regexp.MustCompile(`FAILED \(([^)]+)\)`)
	okPattern      = regexp.MustCompile(`OK \(([^)]+)\)`)
	countPattern   = regexp.MustCompile(`(failures|errors|skipped)=(\d+)`)
)

// proseSummary extracts counts from frameworks that end their output with a
// "Ran N tests" sentence and a trailing OK/FAILED summary line.
type proseSummary struct{}

func (proseSummary) Kind() string { return KindProseSummary }

func (proseSummary) Parse(stdout, stderr string, exitCode *int) (Counts, bool) {
	combined := stdout + "\n" + stderr

	match := ranPattern.FindStringSubmatch(combined)
	if match == nil {
		return Counts{}, false
	}
	total, err := strconv.Atoi(match[1])
	if err != nil {
		return Counts{}, false
	}

	counts := Counts{Total: total}
	if exitedZero(exitCode) {
		counts.Skipped = trailingCounts(okPattern, combined)["skipped"]
		counts.Passed = total - counts.Skipped
		return counts, true
	}

	tallies := trailingCounts(failurePattern, combined)
	failed := tallies["failures"] + tallies["errors"]
	if failed == 0 {
		// Failing exit code with no explicit count: presume the whole suite
		// failed rather than guessing a split.
		counts.Failed = total
		return counts, true
	}
	counts.Skipped = tallies["skipped"]
	counts.Failed = failed
	counts.Passed = total - failed - counts.Skipped
	if counts.Passed < 0 {
		counts.Passed = 0
		counts.Failed = total - counts.Skipped
	}
	return counts, true
}

func trailingCounts(summary *regexp.Regexp, text string) map[string]int {
	tallies := map[string]int{}
	match := summary.FindStringSubmatch(text)
	if match == nil {
		return tallies
	}
	for _, pair := range countPattern.FindAllStringSubmatch(match[1], -1) {
		value, err := strconv.Atoi(pair[2])
		if err != nil {
			continue
		}
		tallies[pair[1]] += value
	}
	return tallies
}
