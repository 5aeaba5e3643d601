// Package dialect extracts normalized test counts from the raw console
// output of heterogeneous suite frameworks. Each suite declares its dialect
// kind up front in configuration; kinds are never sniffed from content.
package dialect

import "sort"

const (
	KindLineTagged   = "line-tagged"
	KindProseSummary = "prose-summary"
)

// Counts is the normalized result extracted from one suite's output.
// Total == Passed + Failed + Skipped always holds.
type Counts struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
}

// Dialect is one extraction strategy. Parse is a pure function over text and
// exit code: it never panics and never returns an error. When the output
// matches no known pattern it reports recognized=false with zero counts and
// the caller records a parse warning.
type Dialect interface {
	Kind() string
	Parse(stdout, stderr string, exitCode *int) (counts Counts, recognized bool)
}

var registry = map[string]Dialect{
	KindLineTagged:   lineTagged{},
	KindProseSummary: proseSummary{},
}

// Lookup returns the strategy registered for kind.
func Lookup(kind string) (Dialect, bool) {
	d, ok := registry[kind]
	return d, ok
}

// Known reports whether kind has a registered strategy.
func Known(kind string) bool {
	_, ok := registry[kind]
	return ok
}

// Kinds returns all registered kinds in stable order.
func Kinds() []string {
	kinds := make([]string, 0, len(registry))
	for kind := range registry {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

func exitedZero(exitCode *int) bool {
	return exitCode != nil && *exitCode == 0
}
