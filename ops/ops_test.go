package ops

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/memos-run/memos/proposal"
	"github.com/memos-run/memos/workspace"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFileString(t *testing.T, dir, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, rel))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

const sampleDecisions = `[D-1]
Statement: use postgres
Status: active
History:
- created

[D-2]
Statement: use redis
Status: active
`

func TestAppendBlockAddsToEnd(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "decisions/DECISIONS.md", sampleDecisions)
	root, _ := workspace.NewRoot(dir)

	err := Execute(proposal.Op{Op: "append_block", File: "decisions/DECISIONS.md", Patch: "[D-3]\nStatement: use kafka\n"}, root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := readFileString(t, dir, "decisions/DECISIONS.md")
	if !strings.Contains(got, "[D-3]") || !strings.Contains(got, "use kafka") {
		t.Fatalf("expected appended block, got %q", got)
	}
}

func TestAppendBlockRejectsEmptyPatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "decisions/DECISIONS.md", sampleDecisions)
	root, _ := workspace.NewRoot(dir)

	err := Execute(proposal.Op{Op: "append_block", File: "decisions/DECISIONS.md", Patch: "  "}, root)
	ee, ok := err.(*ExecError)
	if !ok || ee.Reason != "empty patch" {
		t.Fatalf("expected empty patch ExecError, got %v", err)
	}
}

func TestUpdateFieldChangesValue(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "decisions/DECISIONS.md", sampleDecisions)
	root, _ := workspace.NewRoot(dir)

	err := Execute(proposal.Op{Op: "update_field", File: "decisions/DECISIONS.md", Target: "D-2", Field: "Status", Value: "superseded"}, root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := readFileString(t, dir, "decisions/DECISIONS.md")
	if !strings.Contains(got, "Status: superseded") {
		t.Fatalf("expected Status updated, got %q", got)
	}
	if !strings.Contains(got, "[D-1]") {
		t.Fatalf("expected D-1 untouched, got %q", got)
	}
}

func TestUpdateFieldMissingTarget(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "decisions/DECISIONS.md", sampleDecisions)
	root, _ := workspace.NewRoot(dir)

	err := Execute(proposal.Op{Op: "update_field", File: "decisions/DECISIONS.md", Target: "D-99", Field: "Status", Value: "x"}, root)
	ee, ok := err.(*ExecError)
	if !ok || ee.Reason != "target not found" {
		t.Fatalf("expected target not found, got %v", err)
	}
}

func TestUpdateFieldMissingField(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "decisions/DECISIONS.md", sampleDecisions)
	root, _ := workspace.NewRoot(dir)

	err := Execute(proposal.Op{Op: "update_field", File: "decisions/DECISIONS.md", Target: "D-1", Field: "Priority", Value: "P0"}, root)
	ee, ok := err.(*ExecError)
	if !ok || ee.Reason != "field not found" {
		t.Fatalf("expected field not found, got %v", err)
	}
}

func TestAppendListItemAddsAfterExistingItems(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "decisions/DECISIONS.md", sampleDecisions)
	root, _ := workspace.NewRoot(dir)

	err := Execute(proposal.Op{Op: "append_list_item", File: "decisions/DECISIONS.md", Target: "D-1", List: "History", Item: "revisited"}, root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := readFileString(t, dir, "decisions/DECISIONS.md")
	if !strings.Contains(got, "- created\n- revisited") {
		t.Fatalf("expected item appended after existing items, got %q", got)
	}
}

func TestInsertAfterBlockPlacesBetweenBlocks(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "decisions/DECISIONS.md", sampleDecisions)
	root, _ := workspace.NewRoot(dir)

	err := Execute(proposal.Op{Op: "insert_after_block", File: "decisions/DECISIONS.md", Target: "D-1", Patch: "[D-1a]\nStatement: interim note\n"}, root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := readFileString(t, dir, "decisions/DECISIONS.md")
	d1 := strings.Index(got, "[D-1]")
	d1a := strings.Index(got, "[D-1a]")
	d2 := strings.Index(got, "[D-2]")
	if !(d1 < d1a && d1a < d2) {
		t.Fatalf("expected D-1a between D-1 and D-2, got %q", got)
	}
}

func TestSetStatusUpdatesFieldAndHistory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "decisions/DECISIONS.md", sampleDecisions)
	root, _ := workspace.NewRoot(dir)

	err := Execute(proposal.Op{Op: "set_status", File: "decisions/DECISIONS.md", Target: "D-1", Status: "deprecated", History: "deprecated via review"}, root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := readFileString(t, dir, "decisions/DECISIONS.md")
	if !strings.Contains(got, "Status: deprecated") {
		t.Fatalf("expected status updated, got %q", got)
	}
	if !strings.Contains(got, "- deprecated via review") {
		t.Fatalf("expected history entry appended, got %q", got)
	}
}

func TestReplaceRangeReplacesLines(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "decisions/DECISIONS.md", sampleDecisions)
	root, _ := workspace.NewRoot(dir)

	err := Execute(proposal.Op{Op: "replace_range", File: "decisions/DECISIONS.md", Target: "D-2", Start: "Statement:", End: "Status:", Patch: "Statement: use dragonfly"}, root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := readFileString(t, dir, "decisions/DECISIONS.md")
	if !strings.Contains(got, "use dragonfly") || strings.Contains(got, "use redis") {
		t.Fatalf("expected statement replaced, got %q", got)
	}
}

func TestReplaceRangeRejectsMissingMarkers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "decisions/DECISIONS.md", sampleDecisions)
	root, _ := workspace.NewRoot(dir)

	err := Execute(proposal.Op{Op: "replace_range", File: "decisions/DECISIONS.md", Target: "D-2", Start: "nonexistent-marker", End: "also-missing", Patch: "x"}, root)
	ee, ok := err.(*ExecError)
	if !ok || ee.Reason != "markers not found" {
		t.Fatalf("expected markers not found, got %v", err)
	}
}

const sampleWithInvariant = `[D-5]
Statement: freeze schema
Status: active
Signature:
  subject: schema
  predicate: frozen
  object: true
  enforcement: invariant
`

func TestSupersedeDecisionRefusesInvariantProtected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "decisions/DECISIONS.md", sampleWithInvariant)
	root, _ := workspace.NewRoot(dir)

	err := Execute(proposal.Op{Op: "supersede_decision", File: "decisions/DECISIONS.md", Target: "D-5", NewBlock: "[D-6]\nStatement: unfreeze schema\n"}, root)
	ee, ok := err.(*ExecError)
	if !ok || ee.Reason != "invariant-protected supersede" {
		t.Fatalf("expected invariant-protected supersede refusal, got %v", err)
	}
}

func TestSupersedeDecisionMarksSupersededAndAppends(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "decisions/DECISIONS.md", sampleDecisions)
	root, _ := workspace.NewRoot(dir)

	err := Execute(proposal.Op{Op: "supersede_decision", File: "decisions/DECISIONS.md", Target: "D-2", NewBlock: "[D-7]\nStatement: use dragonfly instead\n"}, root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := readFileString(t, dir, "decisions/DECISIONS.md")
	if !strings.Contains(got, "[D-7]") {
		t.Fatalf("expected new block appended, got %q", got)
	}
	if !strings.Contains(got, "Status: superseded") {
		t.Fatalf("expected D-2 marked superseded, got %q", got)
	}
}

func TestExecuteRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	root, _ := workspace.NewRoot(dir)

	_, err := root.ResolveOp("../../etc/shadow")
	if err == nil {
		t.Fatal("expected traversal rejection from ResolveOp directly")
	}
	err = Execute(proposal.Op{Op: "append_block", File: "../../etc/shadow", Patch: "x"}, root)
	if err == nil {
		t.Fatal("expected Execute to refuse path traversal")
	}
	if _, ok := err.(*ExecError); ok {
		t.Fatal("expected a workspace.SafetyError, not an ExecError, for a traversal path")
	}
}

func TestExecuteUnknownOpType(t *testing.T) {
	dir := t.TempDir()
	root, _ := workspace.NewRoot(dir)

	err := Execute(proposal.Op{Op: "delete_everything", File: "x.md"}, root)
	ee, ok := err.(*ExecError)
	if !ok || !strings.Contains(ee.Reason, "unknown op type") {
		t.Fatalf("expected unknown op type ExecError, got %v", err)
	}
}
