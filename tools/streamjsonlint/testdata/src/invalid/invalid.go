package invalid

import "github.com/deepankarm/streamjson/pkg/debounce"

// ═══════════════════════════════════════════════════════════════════════════
// INVALID TEST CASES - classifier literals that fail or misbehave at runtime
// ═══════════════════════════════════════════════════════════════════════════

// ───────────────────────────────────────────────────────────────────────────
// Overlapping sets
// ───────────────────────────────────────────────────────────────────────────

var overlap = debounce.MustClassifier(
	[]string{"toolUse", "output"},
	[]string{
		"output", // want "event type \"output\" is both immediate and coalescible"
		"thinking",
	},
)

const errorTag = "error"

func overlapViaConst() (*debounce.Classifier, error) {
	return debounce.NewClassifier(
		[]string{errorTag},
		[]string{"error"}, // want "event type \"error\" is both immediate and coalescible"
	)
}

// ───────────────────────────────────────────────────────────────────────────
// Case variants
// ───────────────────────────────────────────────────────────────────────────

var caseVariant = debounce.MustClassifier(
	[]string{"toolUse"},
	[]string{"tooluse"}, // want "coalescible type \"tooluse\" differs from immediate type \"toolUse\" only in case"
)

// ───────────────────────────────────────────────────────────────────────────
// Duplicates and empty tags
// ───────────────────────────────────────────────────────────────────────────

func duplicates() *debounce.Classifier {
	return debounce.MustClassifier(
		[]string{
			"result",
			"result", // want "event type \"result\" listed twice in immediate"
		},
		[]string{
			"", // want "empty event type in coalescible list"
		},
	)
}
