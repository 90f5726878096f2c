// Package ops implements the seven typed mutations over block-structured
// text files (§4.K). Each op reads its target file, mutates an in-memory
// line slice, and writes back; every write path goes through the same
// workspace.Root safety resolver the validator already checked.
package ops

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/memos-run/memos/block"
	"github.com/memos-run/memos/proposal"
	"github.com/memos-run/memos/workspace"
)

// ExecError is the typed failure an op executor reports to the pipeline;
// every non-nil ExecError triggers rollback (§7).
type ExecError struct {
	Op     string
	Reason string
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func execErr(op, reason string) error { return &ExecError{Op: op, Reason: reason} }

var listItemLine = regexp.MustCompile(`^\s*-\s+`)

// Execute runs a single op against root, dispatching on op.Op.
func Execute(op proposal.Op, root *workspace.Root) error {
	switch op.Op {
	case "append_block":
		return appendBlock(op, root)
	case "insert_after_block":
		return insertAfterBlock(op, root)
	case "update_field":
		return updateField(op, root)
	case "append_list_item":
		return appendListItem(op, root)
	case "set_status":
		return setStatus(op, root)
	case "replace_range":
		return replaceRange(op, root)
	case "supersede_decision":
		return supersedeDecision(op, root)
	default:
		return execErr(op.Op, fmt.Sprintf("unknown op type %q", op.Op))
	}
}

func readFile(op proposal.Op, root *workspace.Root) (string, []string, error) {
	path, err := root.ResolveOp(op.File)
	if err != nil {
		return "", nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	content := string(data)
	return content, strings.Split(content, "\n"), nil
}

func writeLines(op proposal.Op, root *workspace.Root, lines []string) error {
	path, err := root.ResolveOp(op.File)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644)
}

// targetRange returns the half-open [start, end) line range of the
// target's block: start is its header line, end is the next header line
// or len(lines) at EOF.
func targetRange(lines []string, target string) (start, end int, found bool) {
	for i, l := range lines {
		if id, ok := block.HeaderID(l); ok && id == target {
			start = i
			end = len(lines)
			for j := i + 1; j < len(lines); j++ {
				if _, ok := block.HeaderID(lines[j]); ok {
					end = j
					break
				}
			}
			return start, end, true
		}
	}
	return 0, 0, false
}

func appendBlock(op proposal.Op, root *workspace.Root) error {
	if strings.TrimSpace(op.Patch) == "" {
		return execErr(op.Op, "empty patch")
	}
	content, _, err := readFile(op, root)
	if err != nil {
		return err
	}
	content = strings.TrimRight(content, "\n") + "\n\n" + op.Patch + "\n"
	path, err := root.ResolveOp(op.File)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func insertAfterBlock(op proposal.Op, root *workspace.Root) error {
	if strings.TrimSpace(op.Patch) == "" {
		return execErr(op.Op, "empty patch")
	}
	_, lines, err := readFile(op, root)
	if err != nil {
		return err
	}
	_, end, found := targetRange(lines, op.Target)
	if !found {
		return execErr(op.Op, "target not found")
	}
	patchLines := strings.Split(op.Patch, "\n")
	out := append([]string{}, lines[:end]...)
	out = append(out, patchLines...)
	out = append(out, "")
	out = append(out, lines[end:]...)
	return writeLines(op, root, out)
}

func updateField(op proposal.Op, root *workspace.Root) error {
	_, lines, err := readFile(op, root)
	if err != nil {
		return err
	}
	start, end, found := targetRange(lines, op.Target)
	if !found {
		return execErr(op.Op, "target not found")
	}
	fieldRe := regexp.MustCompile(`^` + regexp.QuoteMeta(op.Field) + `:\s+.*$`)
	for i := start; i < end; i++ {
		if fieldRe.MatchString(lines[i]) {
			lines[i] = fmt.Sprintf("%s: %s", op.Field, op.Value)
			return writeLines(op, root, lines)
		}
	}
	return execErr(op.Op, "field not found")
}

func appendListItem(op proposal.Op, root *workspace.Root) error {
	_, lines, err := readFile(op, root)
	if err != nil {
		return err
	}
	start, end, found := targetRange(lines, op.Target)
	if !found {
		return execErr(op.Op, "target not found")
	}
	headerRe := regexp.MustCompile(`^` + regexp.QuoteMeta(op.List) + `:\s*$`)
	for i := start; i < end; i++ {
		if !headerRe.MatchString(lines[i]) {
			continue
		}
		j := i + 1
		for j < end && listItemLine.MatchString(lines[j]) {
			j++
		}
		item := fmt.Sprintf("- %s", op.Item)
		out := append([]string{}, lines[:j]...)
		out = append(out, item)
		out = append(out, lines[j:]...)
		return writeLines(op, root, out)
	}
	return execErr(op.Op, "field not found")
}

func setStatus(op proposal.Op, root *workspace.Root) error {
	fieldOp := op
	fieldOp.Field, fieldOp.Value = "Status", op.Status
	if err := updateField(fieldOp, root); err != nil {
		return err
	}
	if op.History == "" {
		return nil
	}
	listOp := op
	listOp.List, listOp.Item = "History", op.History
	return appendListItem(listOp, root)
}

// replaceRange replaces the half-open line range [start, end) within the
// target block, where start and end are substrings searched for within
// the block's lines (not line offsets): start is the first line after
// the target header containing op.Start, end is the first line
// after that containing op.End. The end marker's own line is excluded
// from the replacement, matching the original engine's _op_replace_range.
func replaceRange(op proposal.Op, root *workspace.Root) error {
	if strings.TrimSpace(op.Patch) == "" {
		return execErr(op.Op, "empty patch")
	}
	if op.Start == "" || op.End == "" {
		return execErr(op.Op, "markers not found")
	}
	_, lines, err := readFile(op, root)
	if err != nil {
		return err
	}
	blockStart, blockEnd, found := targetRange(lines, op.Target)
	if !found {
		return execErr(op.Op, "target not found")
	}

	startLine, endLine := -1, -1
	for i := blockStart + 1; i < blockEnd; i++ {
		if startLine == -1 && strings.Contains(lines[i], op.Start) {
			startLine = i
			continue
		}
		if startLine != -1 && strings.Contains(lines[i], op.End) {
			endLine = i
			break
		}
	}
	if startLine == -1 || endLine == -1 {
		return execErr(op.Op, "markers not found")
	}

	patchLines := strings.Split(op.Patch, "\n")
	out := append([]string{}, lines[:startLine]...)
	out = append(out, patchLines...)
	out = append(out, lines[endLine:]...)
	return writeLines(op, root, out)
}

func supersedeDecision(op proposal.Op, root *workspace.Root) error {
	if strings.TrimSpace(op.NewBlock) == "" {
		return execErr(op.Op, "empty patch")
	}
	content, _, err := readFile(op, root)
	if err != nil {
		return err
	}
	blocks, err := block.Parse(content, op.File, op.File)
	if err != nil {
		return err
	}
	var target *block.Block
	for _, b := range blocks {
		if b.ID == op.Target {
			target = b
			break
		}
	}
	if target == nil {
		return execErr(op.Op, "target not found")
	}
	for _, name := range target.FieldOrder {
		for _, sig := range target.Signatures(name) {
			if sig.Enforcement() == "invariant" {
				return execErr(op.Op, "invariant-protected supersede")
			}
		}
	}

	statusOp := op
	statusOp.Field, statusOp.Value = "Status", "superseded"
	if err := updateField(statusOp, root); err != nil {
		return err
	}
	appendOp := op
	appendOp.Patch = op.NewBlock
	return appendBlock(appendOp, root)
}
