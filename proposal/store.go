package proposal

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/memos-run/memos/block"
)

// ProposedFiles is the fixed ordered set of files the apply pipeline
// scans for staged proposals.
var ProposedFiles = []string{
	"intelligence/proposed/DECISIONS_PROPOSED.md",
	"intelligence/proposed/TASKS_PROPOSED.md",
	"intelligence/proposed/EDITS_PROPOSED.md",
}

// LoadAll parses every proposed file present under root and returns the
// proposals found, tagged with the file they came from. Missing files
// are skipped, matching the corpus loader's non-fatal I/O policy.
func LoadAll(root string) ([]*Proposal, error) {
	var out []*Proposal
	for _, rel := range ProposedFiles {
		path := filepath.Join(root, rel)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			continue
		}
		blocks, err := block.Parse(string(data), rel, rel)
		if err != nil {
			continue
		}
		for _, b := range blocks {
			out = append(out, fromBlock(b))
		}
	}
	return out, nil
}

// Locate finds a proposal by ID across ProposedFiles.
func Locate(root, id string) (*Proposal, error) {
	all, err := LoadAll(root)
	if err != nil {
		return nil, err
	}
	for _, p := range all {
		if p.ProposalId == id {
			return p, nil
		}
	}
	return nil, nil
}

func fromBlock(b *block.Block) *Proposal {
	p := &Proposal{
		ProposalId:   b.ID,
		Type:         b.Str("Type"),
		Risk:         b.Str("Risk"),
		Status:       b.Str("Status"),
		Evidence:     b.List("Evidence"),
		Rollback:     b.Str("Rollback"),
		TargetBlock:  b.Str("TargetBlock"),
		FilesTouched: b.List("FilesTouched"),
		Fingerprint:  b.Str("Fingerprint"),
		Created:      b.Str("Created"),
		SourceFile:   b.SourceFile,
	}
	for _, sig := range b.Signatures("Ops") {
		p.Ops = append(p.Ops, opFromRecord(sig))
	}
	return p
}

func opFromRecord(rec block.SignatureRecord) Op {
	op := Op{
		Op:       rec["op"],
		File:     rec["file"],
		Target:   rec["target"],
		Patch:    unescapeNewlines(rec["patch"]),
		Field:    rec["field"],
		Value:    rec["value"],
		List:     rec["list"],
		Item:     rec["item"],
		Status:   rec["status"],
		History:  rec["history"],
		Start:    rec["start"],
		End:      rec["end"],
		NewBlock: unescapeNewlines(rec["new_block"]),
	}
	return op
}

func unescapeNewlines(s string) string {
	return strings.ReplaceAll(s, "\\n", "\n")
}
