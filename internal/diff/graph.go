package diff

import "github.com/graphdesk/server/internal/domain"

// Graphs computes the structural difference between two graph snapshots with
// a as baseline: "added" means present only in b, "removed" present only in
// a. Nodes are identified by id alone, so attribute changes are invisible
// here. Links are identified by (source_id, target_id, type). Membership is
// hash-based, linear in node and link count. Links referencing unknown node
// ids are diffed by their own identity; no referential integrity is assumed.
func Graphs(a, b domain.GraphData) domain.GraphDiff {
	d := domain.GraphDiff{
		NodesAdded:   make([]domain.Node, 0),
		NodesRemoved: make([]domain.Node, 0),
		LinksAdded:   make([]domain.Link, 0),
		LinksRemoved: make([]domain.Link, 0),
	}

	nodesA := make(map[string]struct{}, len(a.Nodes))
	for _, n := range a.Nodes {
		nodesA[n.ID] = struct{}{}
	}
	nodesB := make(map[string]struct{}, len(b.Nodes))
	for _, n := range b.Nodes {
		nodesB[n.ID] = struct{}{}
	}
	seen := make(map[string]struct{})
	for _, n := range b.Nodes {
		if _, dup := seen[n.ID]; dup {
			continue
		}
		seen[n.ID] = struct{}{}
		if _, ok := nodesA[n.ID]; !ok {
			d.NodesAdded = append(d.NodesAdded, n)
		}
	}
	seen = make(map[string]struct{})
	for _, n := range a.Nodes {
		if _, dup := seen[n.ID]; dup {
			continue
		}
		seen[n.ID] = struct{}{}
		if _, ok := nodesB[n.ID]; !ok {
			d.NodesRemoved = append(d.NodesRemoved, n)
		}
	}

	linksA := make(map[string]struct{}, len(a.Links))
	for _, l := range a.Links {
		linksA[l.Key()] = struct{}{}
	}
	linksB := make(map[string]struct{}, len(b.Links))
	for _, l := range b.Links {
		linksB[l.Key()] = struct{}{}
	}
	seen = make(map[string]struct{})
	for _, l := range b.Links {
		k := l.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if _, ok := linksA[k]; !ok {
			d.LinksAdded = append(d.LinksAdded, l)
		}
	}
	seen = make(map[string]struct{})
	for _, l := range a.Links {
		k := l.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if _, ok := linksB[k]; !ok {
			d.LinksRemoved = append(d.LinksRemoved, l)
		}
	}
	return d
}
