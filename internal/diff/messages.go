// Package diff computes structural differences between session snapshots:
// set-based message and graph diffs plus a combined similarity score.
// Diffs report presence and absence only, never in-place modifications.
package diff

import "github.com/graphdesk/server/internal/domain"

// Messages computes the symmetric set difference of two message logs.
// Identity is the message id when present, otherwise the (sender, text)
// pair, so logs with synthetic or missing ids still diff sensibly. Each
// returned slice preserves the relative order of its source log. Two
// messages with the same key but different text count as the same message.
func Messages(a, b []domain.Message) (onlyInA, onlyInB []domain.Message) {
	keysA := make(map[string]struct{}, len(a))
	for _, m := range a {
		keysA[m.Key()] = struct{}{}
	}
	keysB := make(map[string]struct{}, len(b))
	for _, m := range b {
		keysB[m.Key()] = struct{}{}
	}

	onlyInA = make([]domain.Message, 0)
	seen := make(map[string]struct{}, len(a))
	for _, m := range a {
		k := m.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if _, ok := keysB[k]; !ok {
			onlyInA = append(onlyInA, m)
		}
	}

	onlyInB = make([]domain.Message, 0)
	seen = make(map[string]struct{}, len(b))
	for _, m := range b {
		k := m.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if _, ok := keysA[k]; !ok {
			onlyInB = append(onlyInB, m)
		}
	}
	return onlyInA, onlyInB
}
