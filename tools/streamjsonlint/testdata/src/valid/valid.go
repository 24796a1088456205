package valid

import "github.com/deepankarm/streamjson/pkg/debounce"

// Minimal valid cases - just enough to verify no false positives.

// ───────────────────────────────────────────────────────────────────────────
// Disjoint literal sets
// ───────────────────────────────────────────────────────────────────────────

var classes = debounce.MustClassifier(
	[]string{"toolUse", "sessionInfo", "error"},
	[]string{"output", "thinking"},
)

func newClassifier() (*debounce.Classifier, error) {
	return debounce.NewClassifier([]string{"result"}, []string{"output"})
}

// ───────────────────────────────────────────────────────────────────────────
// Sets built at runtime are not checked
// ───────────────────────────────────────────────────────────────────────────

func fromConfig(immediate, coalescible []string) *debounce.Classifier {
	return debounce.MustClassifier(immediate, coalescible)
}

func withVariable(tag string) *debounce.Classifier {
	return debounce.MustClassifier([]string{tag}, []string{tag})
}

func nilSets() *debounce.Classifier {
	return debounce.MustClassifier(nil, nil)
}

// ───────────────────────────────────────────────────────────────────────────
// Suppressed
// ───────────────────────────────────────────────────────────────────────────

// nolint:streamjsonlint
func suppressed() *debounce.Classifier {
	return debounce.MustClassifier([]string{"x"}, []string{"x"})
}

// ───────────────────────────────────────────────────────────────────────────
// Unrelated functions with the same name
// ───────────────────────────────────────────────────────────────────────────

func MustClassifier(a, b []string) {}

func local() {
	MustClassifier([]string{"x"}, []string{"x"})
}
