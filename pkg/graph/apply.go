package graph

import (
	"sort"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/chogerlate/NovelVizAI/pkg/common"
)

// sentimentDecay weights the newest chapter's sentiment when folding
// per-chapter evidence into an edge's rolling sentiment.
const sentimentDecay = 0.3

// fold retracts any prior contribution of chapterOrdinal from g, applies
// mapping (nil means pure retraction), recomputes all derived state from
// the remaining evidence, and reports what changed. The graph never
// stores anything that is not derivable from its per-chapter evidence,
// which makes the fold commutative across chapters: applying [1,2,3] and
// [3,1,2] produce the same graph.
func fold(g *common.CharacterGraph, chapterOrdinal int, mapping *common.CharacterMapping) *common.GraphDelta {
	nodesBefore := map[string]bool{}
	for _, node := range g.Nodes {
		nodesBefore[node.ID] = true
	}
	edgesBefore := map[string]bool{}
	for _, edge := range g.Edges {
		edgesBefore[edgeKey(edge.A, edge.B)] = true
	}

	touchedNodes, touchedEdges := retract(g, chapterOrdinal)

	if mapping != nil {
		applyNodes, applyEdges := apply(g, chapterOrdinal, mapping)
		for id := range applyNodes {
			touchedNodes[id] = true
		}
		for key := range applyEdges {
			touchedEdges[key] = true
		}
	}

	prune(g)
	recompute(g)

	delta := &common.GraphDelta{
		NovelID:        g.NovelID,
		ChapterOrdinal: chapterOrdinal,
		Graph:          g,
	}

	nodesAfter := map[string]bool{}
	for _, node := range g.Nodes {
		nodesAfter[node.ID] = true
	}
	edgesAfter := map[string]bool{}
	for _, edge := range g.Edges {
		edgesAfter[edgeKey(edge.A, edge.B)] = true
	}

	for id := range nodesAfter {
		if !nodesBefore[id] {
			delta.NodesAdded++
		} else if touchedNodes[id] {
			delta.NodesUpdated++
		}
	}
	for id := range nodesBefore {
		if !nodesAfter[id] {
			delta.NodesRemoved++
		}
	}
	for key := range edgesAfter {
		if !edgesBefore[key] {
			delta.EdgesAdded++
		} else if touchedEdges[key] {
			delta.EdgesUpdated++
		}
	}
	for key := range edgesBefore {
		if !edgesAfter[key] {
			delta.EdgesRemoved++
		}
	}

	return delta
}

// retract deletes every mention and every piece of edge evidence
// contributed by chapterOrdinal.
func retract(g *common.CharacterGraph, chapterOrdinal int) (map[string]bool, map[string]bool) {
	touchedNodes := map[string]bool{}
	touchedEdges := map[string]bool{}

	for i := range g.Nodes {
		node := &g.Nodes[i]
		kept := node.Mentions[:0]
		for _, mention := range node.Mentions {
			if mention.Chapter == chapterOrdinal {
				touchedNodes[node.ID] = true
				continue
			}
			kept = append(kept, mention)
		}
		node.Mentions = kept
	}

	for i := range g.Edges {
		edge := &g.Edges[i]
		kept := edge.Evidence[:0]
		for _, ev := range edge.Evidence {
			if ev.Chapter == chapterOrdinal {
				touchedEdges[edgeKey(edge.A, edge.B)] = true
				continue
			}
			kept = append(kept, ev)
		}
		edge.Evidence = kept
	}

	return touchedNodes, touchedEdges
}

// apply adds the chapter's characters and relationships as evidence.
func apply(g *common.CharacterGraph, chapterOrdinal int, mapping *common.CharacterMapping) (map[string]bool, map[string]bool) {
	touchedNodes := map[string]bool{}
	touchedEdges := map[string]bool{}

	for _, character := range mapping.Characters {
		if character.Name == "" {
			continue
		}
		node := resolveNode(g, append([]string{character.Name}, character.Aliases...))
		if node == nil {
			node = addNode(g)
		}
		touchedNodes[node.ID] = true
		mention := findOrAddMention(node, chapterOrdinal, character.Name)
		mention.Aliases = appendUnique(mention.Aliases, character.Aliases, mention.Name)
		mention.Traits = appendUnique(mention.Traits, character.Traits, "")
		if character.DevelopmentStatus != "" {
			mention.Development = character.DevelopmentStatus
		}
	}

	for _, rel := range mapping.Relationships {
		if rel.CharacterA == "" || rel.CharacterB == "" {
			continue
		}
		a := resolveOrCreate(g, rel.CharacterA, chapterOrdinal, touchedNodes)
		b := resolveOrCreate(g, rel.CharacterB, chapterOrdinal, touchedNodes)
		if a.ID == b.ID {
			// self-loops carry no relationship information
			continue
		}

		edge := findOrAddEdge(g, a.ID, b.ID)
		touchedEdges[edgeKey(edge.A, edge.B)] = true

		merged := false
		for i := range edge.Evidence {
			if edge.Evidence[i].Chapter == chapterOrdinal {
				ev := &edge.Evidence[i]
				total := float64(ev.Interactions)
				ev.Sentiment = (ev.Sentiment*total + rel.Sentiment) / (total + 1)
				ev.Interactions++
				merged = true
				break
			}
		}
		if !merged {
			edge.Evidence = append(edge.Evidence, common.EdgeEvidence{
				Chapter:      chapterOrdinal,
				Type:         rel.Type,
				Sentiment:    rel.Sentiment,
				Interactions: 1,
			})
		}
	}

	return touchedNodes, touchedEdges
}

// resolveNode finds the node whose evidence-derived alias set contains
// any of the given names in normalized form.
func resolveNode(g *common.CharacterGraph, names []string) *common.CharacterNode {
	wanted := map[string]bool{}
	for _, name := range names {
		if n := NormalizeName(name); n != "" {
			wanted[n] = true
		}
	}
	if len(wanted) == 0 {
		return nil
	}

	for i := range g.Nodes {
		node := &g.Nodes[i]
		for _, mention := range node.Mentions {
			if wanted[NormalizeName(mention.Name)] {
				return node
			}
			for _, alias := range mention.Aliases {
				if wanted[NormalizeName(alias)] {
					return node
				}
			}
		}
	}
	return nil
}

func resolveOrCreate(g *common.CharacterGraph, name string, chapterOrdinal int, touched map[string]bool) *common.CharacterNode {
	node := resolveNode(g, []string{name})
	if node == nil {
		node = addNode(g)
		touched[node.ID] = true
	}
	findOrAddMention(node, chapterOrdinal, name)
	return node
}

func addNode(g *common.CharacterGraph) *common.CharacterNode {
	g.Nodes = append(g.Nodes, common.CharacterNode{ID: gonanoid.Must(12)})
	return &g.Nodes[len(g.Nodes)-1]
}

func findOrAddMention(node *common.CharacterNode, chapterOrdinal int, name string) *common.CharacterMention {
	for i := range node.Mentions {
		if node.Mentions[i].Chapter == chapterOrdinal {
			return &node.Mentions[i]
		}
	}
	node.Mentions = append(node.Mentions, common.CharacterMention{
		Chapter: chapterOrdinal,
		Name:    name,
	})
	return &node.Mentions[len(node.Mentions)-1]
}

// appendUnique appends the entries of src not already present in dst,
// comparing by normalized form. exclude drops entries matching a name
// that should not be listed among its own aliases.
func appendUnique(dst, src []string, exclude string) []string {
	seen := map[string]bool{}
	if exclude != "" {
		seen[NormalizeName(exclude)] = true
	}
	for _, existing := range dst {
		seen[NormalizeName(existing)] = true
	}
	for _, candidate := range src {
		key := NormalizeName(candidate)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		dst = append(dst, candidate)
	}
	return dst
}

func findOrAddEdge(g *common.CharacterGraph, a, b string) *common.RelationshipEdge {
	if a > b {
		a, b = b, a
	}
	for i := range g.Edges {
		if g.Edges[i].A == a && g.Edges[i].B == b {
			return &g.Edges[i]
		}
	}
	g.Edges = append(g.Edges, common.RelationshipEdge{A: a, B: b})
	return &g.Edges[len(g.Edges)-1]
}

// prune drops nodes and edges left without evidence, plus edges whose
// endpoints disappeared.
func prune(g *common.CharacterGraph) {
	alive := map[string]bool{}
	keptNodes := g.Nodes[:0]
	for _, node := range g.Nodes {
		if len(node.Mentions) == 0 {
			continue
		}
		alive[node.ID] = true
		keptNodes = append(keptNodes, node)
	}
	g.Nodes = keptNodes

	keptEdges := g.Edges[:0]
	for _, edge := range g.Edges {
		if len(edge.Evidence) == 0 || !alive[edge.A] || !alive[edge.B] {
			continue
		}
		keptEdges = append(keptEdges, edge)
	}
	g.Edges = keptEdges
}

// recompute rebuilds every derived field from evidence and puts nodes
// and edges into a deterministic order.
func recompute(g *common.CharacterGraph) {
	for i := range g.Nodes {
		recomputeNode(&g.Nodes[i])
	}
	for i := range g.Edges {
		recomputeEdge(&g.Edges[i])
	}

	sort.SliceStable(g.Nodes, func(i, j int) bool {
		if g.Nodes[i].FirstAppearance != g.Nodes[j].FirstAppearance {
			return g.Nodes[i].FirstAppearance < g.Nodes[j].FirstAppearance
		}
		return g.Nodes[i].CanonicalName < g.Nodes[j].CanonicalName
	})
	sort.SliceStable(g.Edges, func(i, j int) bool {
		if g.Edges[i].A != g.Edges[j].A {
			return g.Edges[i].A < g.Edges[j].A
		}
		return g.Edges[i].B < g.Edges[j].B
	})
}

func recomputeNode(node *common.CharacterNode) {
	sort.SliceStable(node.Mentions, func(i, j int) bool {
		return node.Mentions[i].Chapter < node.Mentions[j].Chapter
	})

	node.FirstAppearance = node.Mentions[0].Chapter
	node.CanonicalName = node.Mentions[0].Name

	aliases := []string{}
	seenAliases := map[string]bool{}
	traits := []string{}
	seenTraits := map[string]bool{}
	development := []common.DevelopmentPoint{}

	for _, mention := range node.Mentions {
		// aliases keep every distinct surface form; only matching is
		// done on the normalized form
		for _, alias := range append([]string{mention.Name}, mention.Aliases...) {
			key := strings.TrimSpace(alias)
			if key == "" || seenAliases[key] {
				continue
			}
			seenAliases[key] = true
			aliases = append(aliases, alias)
		}
		for _, trait := range mention.Traits {
			key := strings.ToLower(strings.TrimSpace(trait))
			if key == "" || seenTraits[key] {
				continue
			}
			seenTraits[key] = true
			traits = append(traits, trait)
		}
		if mention.Development != "" {
			development = append(development, common.DevelopmentPoint{
				Chapter: mention.Chapter,
				Status:  mention.Development,
			})
		}
	}

	node.Aliases = aliases
	node.Traits = traits
	node.Development = development
}

func recomputeEdge(edge *common.RelationshipEdge) {
	sort.SliceStable(edge.Evidence, func(i, j int) bool {
		if edge.Evidence[i].Chapter != edge.Evidence[j].Chapter {
			return edge.Evidence[i].Chapter < edge.Evidence[j].Chapter
		}
		return edge.Evidence[i].Type < edge.Evidence[j].Type
	})

	chapters := []int{}
	interactions := 0
	sentiment := 0.0
	for i, ev := range edge.Evidence {
		if len(chapters) == 0 || chapters[len(chapters)-1] != ev.Chapter {
			chapters = append(chapters, ev.Chapter)
		}
		interactions += ev.Interactions
		if i == 0 {
			sentiment = ev.Sentiment
		} else {
			sentiment = (1-sentimentDecay)*sentiment + sentimentDecay*ev.Sentiment
		}
	}

	edge.Chapters = chapters
	edge.Interactions = interactions
	edge.Sentiment = sentiment
	edge.Type = edgeType(edge.Evidence)
}

// edgeType picks the relationship type: the latest chapter's evidence
// wins; when the latest chapter carries several types, the type with the
// most evidence overall wins, ties broken lexicographically.
func edgeType(evidence []common.EdgeEvidence) string {
	if len(evidence) == 0 {
		return ""
	}

	last := evidence[len(evidence)-1].Chapter
	latest := map[string]bool{}
	for _, ev := range evidence {
		if ev.Chapter == last && ev.Type != "" {
			latest[ev.Type] = true
		}
	}
	if len(latest) == 1 {
		for t := range latest {
			return t
		}
	}

	counts := map[string]int{}
	for _, ev := range evidence {
		if ev.Type != "" {
			counts[ev.Type]++
		}
	}

	best := ""
	bestCount := -1
	for t, count := range counts {
		if len(latest) > 0 && !latest[t] {
			continue
		}
		if count > bestCount || (count == bestCount && t < best) {
			best = t
			bestCount = count
		}
	}
	return best
}

func edgeKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}
