package apply

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// UnifiedDiff renders the standard unified diff format (the "---"/"+++"/
// "@@" shape difflib.unified_diff produced for the original apply
// engine's diff artifact) over two line slices, with the standard
// 3-line context window. Line-level change detection is delegated to
// diffmatchpatch's line-mode diff; only hunk grouping and formatting are
// this package's own.
func UnifiedDiff(oldLines, newLines []string, fromFile, toFile string) string {
	ops := diffOpcodes(oldLines, newLines)
	groups := groupOpcodes(ops, 3)
	if len(groups) == 0 {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s\n", fromFile)
	fmt.Fprintf(&sb, "+++ %s\n", toFile)
	for _, group := range groups {
		writeHunk(&sb, group, oldLines, newLines)
	}
	return strings.TrimRight(sb.String(), "\n")
}

type opcode struct {
	tag            string // "equal", "replace", "delete", "insert"
	i1, i2, j1, j2 int
}

// diffOpcodes computes the opcode sequence by running diffmatchpatch's
// line-mode diff (each line collapsed to one rune, per its own
// DiffLinesToRunes/DiffMainRunes idiom) and walking the resulting Diff
// list back into old/new line-index ranges.
func diffOpcodes(a, b []string) []opcode {
	dmp := diffmatchpatch.New()
	aRunes, bRunes, _ := dmp.DiffLinesToRunes(joinLines(a), joinLines(b))
	diffs := dmp.DiffMainRunes(aRunes, bRunes, false)

	var ops []opcode
	i, j := 0, 0
	for _, d := range diffs {
		n := len([]rune(d.Text))
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			ops = append(ops, opcode{"equal", i, i + n, j, j + n})
			i += n
			j += n
		case diffmatchpatch.DiffDelete:
			ops = append(ops, opcode{"delete", i, i + n, j, j})
			i += n
		case diffmatchpatch.DiffInsert:
			ops = append(ops, opcode{"insert", i, i, j, j + n})
			j += n
		}
	}
	return ops
}

// joinLines recombines a line slice into newline-terminated text so
// DiffLinesToRunes' line boundaries line up with the slice's own
// indices; an empty slice joins to empty text rather than one blank line.
func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// groupOpcodes clusters opcodes into hunks separated by more than
// 2*context lines of unchanged content, matching difflib's grouping.
func groupOpcodes(ops []opcode, context int) [][]opcode {
	var trimmed []opcode
	for i, op := range ops {
		if op.tag != "equal" {
			trimmed = append(trimmed, op)
			continue
		}
		i1, i2, j1, j2 := op.i1, op.i2, op.j1, op.j2
		if i == 0 {
			i1, j1 = max(i1, i2-context), max(j1, j2-context)
		}
		if i == len(ops)-1 {
			i2, j2 = min(i2, i1+context), min(j2, j1+context)
		}
		if i1 < i2 || j1 < j2 {
			trimmed = append(trimmed, opcode{"equal", i1, i2, j1, j2})
		}
	}

	var groups [][]opcode
	var cur []opcode
	for _, op := range trimmed {
		if op.tag == "equal" && op.i2-op.i1 > 2*context {
			cur = append(cur, opcode{"equal", op.i1, min(op.i2, op.i1+context), op.j1, min(op.j2, op.j1+context)})
			groups = append(groups, cur)
			cur = []opcode{{"equal", max(op.i1, op.i2-context), op.i2, max(op.j1, op.j2-context), op.j2}}
			continue
		}
		cur = append(cur, op)
	}
	if len(cur) > 0 && !(len(cur) == 1 && cur[0].tag == "equal") {
		groups = append(groups, cur)
	}
	return groups
}

func writeHunk(sb *strings.Builder, group []opcode, a, b []string) {
	first, last := group[0], group[len(group)-1]
	i1, i2 := first.i1, last.i2
	j1, j2 := first.j1, last.j2
	fmt.Fprintf(sb, "@@ -%d,%d +%d,%d @@\n", i1+1, i2-i1, j1+1, j2-j1)
	for _, op := range group {
		switch op.tag {
		case "equal":
			for k := op.i1; k < op.i2; k++ {
				fmt.Fprintf(sb, " %s\n", a[k])
			}
		case "delete":
			for k := op.i1; k < op.i2; k++ {
				fmt.Fprintf(sb, "-%s\n", a[k])
			}
		case "insert":
			for k := op.j1; k < op.j2; k++ {
				fmt.Fprintf(sb, "+%s\n", b[k])
			}
		case "replace":
			for k := op.i1; k < op.i2; k++ {
				fmt.Fprintf(sb, "-%s\n", a[k])
			}
			for k := op.j1; k < op.j2; k++ {
				fmt.Fprintf(sb, "+%s\n", b[k])
			}
		}
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// GenerateDiffArtifact writes DIFF.txt into snapDir, diffing each
// touched file between the snapshot (pre-apply) and the workspace
// (post-apply).
func GenerateDiffArtifact(workspaceRoot, snapDir string, filesTouched []string) (string, error) {
	var sections []string
	for _, rel := range filesTouched {
		oldPath := filepath.Join(snapDir, rel)
		newPath := filepath.Join(workspaceRoot, rel)

		oldLines := readLinesIfExists(oldPath)
		newLines := readLinesIfExists(newPath)

		diff := UnifiedDiff(oldLines, newLines, "a/"+rel, "b/"+rel)
		if diff != "" {
			sections = append(sections, diff)
		}
	}

	diffPath := filepath.Join(snapDir, "DIFF.txt")
	content := "(no differences detected)\n"
	if len(sections) > 0 {
		content = strings.Join(sections, "\n\n")
	}
	if err := os.WriteFile(diffPath, []byte(content), 0o644); err != nil {
		return "", err
	}
	return diffPath, nil
}

func readLinesIfExists(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	text := string(data)
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
