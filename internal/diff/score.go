package diff

import "github.com/graphdesk/server/internal/domain"

// Score computes the similarity of two sessions as the unweighted mean of
// two Jaccard ratios: one over message identities and one over the pooled
// node and link identities of the graphs. A dimension that is empty on both
// sides counts as 1.0, so two empty sessions score exactly 1. The result is
// always in [0, 1].
func Score(a, b *domain.Session) float64 {
	msgA := make(map[string]struct{}, len(a.Messages))
	for _, m := range a.Messages {
		msgA[m.Key()] = struct{}{}
	}
	msgB := make(map[string]struct{}, len(b.Messages))
	for _, m := range b.Messages {
		msgB[m.Key()] = struct{}{}
	}

	graphA := graphKeys(a.GraphData)
	graphB := graphKeys(b.GraphData)

	return (jaccard(msgA, msgB) + jaccard(graphA, graphB)) / 2
}

// graphKeys pools node and link identities into one set. Namespace prefixes
// keep a node id from colliding with a link tuple.
func graphKeys(g domain.GraphData) map[string]struct{} {
	keys := make(map[string]struct{}, len(g.Nodes)+len(g.Links))
	for _, n := range g.Nodes {
		keys["n\x00"+n.ID] = struct{}{}
	}
	for _, l := range g.Links {
		keys["l\x00"+l.Key()] = struct{}{}
	}
	return keys
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
