// Package xref builds the cross-reference graph between blocks (§4.G)
// and performs two-hop score propagation over it (§4.H).
package xref

import (
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/memos-run/memos/block"
)

// idPattern matches any block ID in the closed prefix namespace, using
// lookaround so an ID embedded in running prose ("see D-20260213-001 for
// context") is captured without swallowing trailing punctuation or being
// swallowed by a longer alnum run.
var idPattern = regexp2.MustCompile(
	`(?<![A-Za-z0-9-])(D|T|P|C|SIG|I|PRJ|PER|TOOL|INC)-[A-Za-z0-9]+(?:-[A-Za-z0-9]+)*(?=[^A-Za-z0-9-]|$)`,
	regexp2.None,
)

// referenceFields are scanned in addition to every scalar/list field's own
// text when building edges.
var referenceFields = []string{
	"Supersedes", "SupersededBy", "AlignsWith", "Dependencies", "Next",
	"Sources", "Evidence", "Rollback", "History",
}

// Graph is an arena-indexed undirected adjacency over loaded blocks,
// avoiding ownership cycles: node identity is an integer index into
// Blocks, not a pointer graph.
type Graph struct {
	Blocks []*block.Block
	index  map[string]int
	adj    [][]int
}

// Build scans every block's text and reference fields (plus nested
// signature scope values) for ID-pattern matches and adds an undirected
// edge for each distinct reference to another loaded block. Self-edges
// are excluded.
func Build(blocks []*block.Block) *Graph {
	g := &Graph{
		Blocks: blocks,
		index:  make(map[string]int, len(blocks)),
	}
	for i, b := range blocks {
		g.index[b.ID] = i
	}
	g.adj = make([][]int, len(blocks))
	seen := make([]map[int]bool, len(blocks))
	for i := range seen {
		seen[i] = map[int]bool{}
	}

	for i, b := range blocks {
		text := blockReferenceText(b)
		for _, id := range findIDs(text) {
			j, ok := g.index[id]
			if !ok || j == i || seen[i][j] {
				continue
			}
			seen[i][j] = true
			seen[j][i] = true
			g.adj[i] = append(g.adj[i], j)
			g.adj[j] = append(g.adj[j], i)
		}
	}
	return g
}

func blockReferenceText(b *block.Block) string {
	var sb strings.Builder
	for _, name := range b.FieldOrder {
		v := b.Get(name)
		if v == nil {
			continue
		}
		switch v.Kind {
		case block.KindString:
			sb.WriteString(v.Str)
			sb.WriteByte(' ')
		case block.KindList:
			for _, item := range v.List {
				sb.WriteString(item)
				sb.WriteByte(' ')
			}
		case block.KindSignatures:
			for _, rec := range v.Sigs {
				sb.WriteString(rec["scope"])
				sb.WriteByte(' ')
			}
		}
	}
	for _, name := range referenceFields {
		if v := b.Get(name); v != nil && v.Kind == block.KindList {
			for _, item := range v.List {
				sb.WriteString(item)
				sb.WriteByte(' ')
			}
		}
	}
	return sb.String()
}

func findIDs(text string) []string {
	var out []string
	m, _ := idPattern.FindStringMatch(text)
	for m != nil {
		out = append(out, m.String())
		m, _ = idPattern.FindNextMatch(m)
	}
	return out
}

// IndexOf returns the node index for an ID, or -1 if not loaded.
func (g *Graph) IndexOf(id string) int {
	if i, ok := g.index[id]; ok {
		return i
	}
	return -1
}

// Neighbors returns the IDs adjacent to id.
func (g *Graph) Neighbors(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(g.adj[i]))
	for _, j := range g.adj[i] {
		out = append(out, g.Blocks[j].ID)
	}
	return out
}
