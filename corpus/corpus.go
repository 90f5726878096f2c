// Package corpus loads the fixed set of workspace files the recall
// engine searches, applying status filtering and per-agent namespace
// read ACLs on top of the block parser.
package corpus

import (
	"os"
	"path/filepath"

	"github.com/memos-run/memos/block"
)

// Files is the fixed, ordered set of corpus files relative to a
// workspace root.
var Files = []string{
	"decisions/DECISIONS.md",
	"tasks/TASKS.md",
	"entities/projects.md",
	"entities/people.md",
	"entities/tools.md",
	"entities/incidents.md",
	"intelligence/CONTRADICTIONS.md",
	"intelligence/DRIFT.md",
	"intelligence/SIGNALS.md",
}

// activeStatuses is the status set that survives an ActiveOnly filter.
var activeStatuses = map[string]bool{
	"active": true,
	"todo":   true,
	"doing":  true,
}

// CanReadFunc decides whether an agent may read a given workspace-relative
// path. A nil CanReadFunc means no namespace filtering is applied.
type CanReadFunc func(relPath string) bool

// Loader reads the corpus from a workspace root.
type Loader struct {
	Root       string
	ActiveOnly bool
	AgentID    string
	CanRead    CanReadFunc
}

// Load reads every corpus file (plus, when AgentID is set, its
// agents/<id>/ mirror), skipping files that fail to open or parse rather
// than failing the whole load, and applies ActiveOnly filtering.
func (l *Loader) Load() ([]*block.Block, error) {
	var out []*block.Block

	candidates := append([]string{}, Files...)
	if l.AgentID != "" {
		for _, f := range Files {
			candidates = append(candidates, filepath.Join("agents", l.AgentID, f))
		}
	}

	for _, rel := range candidates {
		if l.CanRead != nil && !l.CanRead(rel) {
			continue
		}
		blocks, err := l.loadFile(rel)
		if err != nil {
			continue // skip on I/O or decode failure; not fatal
		}
		out = append(out, blocks...)
	}

	if !l.ActiveOnly {
		return out, nil
	}

	filtered := out[:0]
	for _, b := range out {
		if activeStatuses[b.Status()] {
			filtered = append(filtered, b)
		}
	}
	return filtered, nil
}

func (l *Loader) loadFile(rel string) ([]*block.Block, error) {
	full := filepath.Join(l.Root, rel)
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, err
	}
	return block.Parse(string(data), rel, rel)
}
