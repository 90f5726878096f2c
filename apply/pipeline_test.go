package apply

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	mode := os.FileMode(0o644)
	if strings.HasSuffix(rel, ".sh") || strings.HasSuffix(rel, ".py") {
		mode = 0o755
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatal(err)
	}
}

func setupPassingCheckers(t *testing.T, root string) {
	writeTestFile(t, root, "maintenance/validate.sh", "#!/bin/sh\necho 'TOTAL: 0 issues'\n")
	writeTestFile(t, root, "maintenance/intel_scan.py", "#!/bin/sh\necho 'TOTAL: 0 critical'\n")
}

const decisionsFile = `[D-1]
Statement: use postgres
Status: active
`

func stagedProposal(id string) string {
	return `[` + id + `]
ProposalId: ` + id + `
Type: decision
Risk: low
Status: staged
Evidence:
- D-1
Rollback: revert appended block
TargetBlock: D-1
FilesTouched:
- decisions/DECISIONS.md
Created: 2026-02-01T00:00:00Z
Ops:
  op: append_block
  file: decisions/DECISIONS.md
  patch: [D-2]\nStatement: use kafka\n
`
}

func failingProposal(id string) string {
	return `[` + id + `]
ProposalId: ` + id + `
Type: decision
Risk: low
Status: staged
Evidence:
- D-1
Rollback: revert field update
TargetBlock: D-1
FilesTouched:
- decisions/DECISIONS.md
Created: 2026-02-01T00:00:00Z
Ops:
  op: update_field
  file: decisions/DECISIONS.md
  target: D-999
  field: Status
  value: superseded
`
}

func TestRunRollsBackAndMarksProposalOnOpFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts assumed")
	}
	root := t.TempDir()
	writeTestFile(t, root, "decisions/DECISIONS.md", decisionsFile)
	writeTestFile(t, root, "intelligence/proposed/DECISIONS_PROPOSED.md", failingProposal("P-1"))
	setupPassingCheckers(t, root)

	_, err := Run(context.Background(), root, "P-1", Options{Now: time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)})
	if err == nil {
		t.Fatal("expected op execution failure")
	}

	decisions, err := os.ReadFile(filepath.Join(root, "decisions/DECISIONS.md"))
	if err != nil {
		t.Fatal(err)
	}
	if string(decisions) != decisionsFile {
		t.Fatalf("expected workspace restored to snapshot, got %q", decisions)
	}

	proposedFile, err := os.ReadFile(filepath.Join(root, "intelligence/proposed/DECISIONS_PROPOSED.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(proposedFile), "Status: rolled_back") {
		t.Fatalf("expected proposal marked rolled_back, got %q", proposedFile)
	}
}

func TestRunAppliesProposalEndToEnd(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts assumed")
	}
	root := t.TempDir()
	writeTestFile(t, root, "decisions/DECISIONS.md", decisionsFile)
	writeTestFile(t, root, "intelligence/proposed/DECISIONS_PROPOSED.md", stagedProposal("P-1"))
	setupPassingCheckers(t, root)

	res, err := Run(context.Background(), root, "P-1", Options{Now: time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Applied {
		t.Fatalf("expected Applied, got %+v", res)
	}

	decisions, err := os.ReadFile(filepath.Join(root, "decisions/DECISIONS.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(decisions), "[D-2]") {
		t.Fatalf("expected new block appended, got %q", decisions)
	}

	proposedFile, err := os.ReadFile(filepath.Join(root, "intelligence/proposed/DECISIONS_PROPOSED.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(proposedFile), "Status: applied") {
		t.Fatalf("expected proposal marked applied, got %q", proposedFile)
	}

	receipt, err := os.ReadFile(res.ReceiptPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(receipt), "FinalStatus: applied") {
		t.Fatalf("expected receipt FinalStatus applied, got %q", receipt)
	}

	if _, err := os.Stat(res.DiffPath); err != nil {
		t.Fatalf("expected diff artifact written: %v", err)
	}
}

func TestRunDryRunMakesNoChanges(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts assumed")
	}
	root := t.TempDir()
	writeTestFile(t, root, "decisions/DECISIONS.md", decisionsFile)
	writeTestFile(t, root, "intelligence/proposed/DECISIONS_PROPOSED.md", stagedProposal("P-1"))
	setupPassingCheckers(t, root)

	res, err := Run(context.Background(), root, "P-1", Options{DryRun: true, Now: time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Applied {
		t.Fatal("expected dry-run to not apply")
	}

	decisions, err := os.ReadFile(filepath.Join(root, "decisions/DECISIONS.md"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(decisions), "[D-2]") {
		t.Fatal("expected dry-run to make no changes")
	}
}

func TestRunFailsOnMissingProposal(t *testing.T) {
	root := t.TempDir()
	setupPassingCheckers(t, root)

	_, err := Run(context.Background(), root, "P-missing", Options{Now: time.Now()})
	if err == nil {
		t.Fatal("expected error for missing proposal")
	}
	gf, ok := err.(*GateFailure)
	if !ok || gf.Gate != "locate" {
		t.Fatalf("expected locate GateFailure, got %v", err)
	}
}

func TestRunFailsBacklogGate(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts assumed")
	}
	root := t.TempDir()
	writeTestFile(t, root, "decisions/DECISIONS.md", decisionsFile)
	setupPassingCheckers(t, root)
	writeTestFile(t, root, "memory/intel-state.json", `{"proposal_budget": {"backlog_limit": 1}, "defer_cooldown_days": 7}`)

	var sb strings.Builder
	sb.WriteString(stagedProposal("P-1"))
	sb.WriteString("\n")
	sb.WriteString(strings.Replace(stagedProposal("P-2"), "TargetBlock: D-1", "TargetBlock: D-9", 1))
	writeTestFile(t, root, "intelligence/proposed/DECISIONS_PROPOSED.md", sb.String())

	_, err := Run(context.Background(), root, "P-1", Options{Now: time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)})
	if err == nil {
		t.Fatal("expected backlog gate failure")
	}
	gf, ok := err.(*GateFailure)
	if !ok || gf.Gate != "backlog" {
		t.Fatalf("expected backlog GateFailure, got %v", err)
	}
}

func TestRollbackRestoresSnapshot(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts assumed")
	}
	root := t.TempDir()
	writeTestFile(t, root, "decisions/DECISIONS.md", decisionsFile)
	writeTestFile(t, root, "intelligence/proposed/DECISIONS_PROPOSED.md", stagedProposal("P-1"))
	setupPassingCheckers(t, root)

	res, err := Run(context.Background(), root, "P-1", Options{Now: time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	ts := strings.TrimSuffix(strings.TrimPrefix(filepath.Dir(res.ReceiptPath), filepath.Join(root, "intelligence/applied")+"/"), "/")

	if err := Rollback(root, ts, time.Date(2026, 2, 13, 13, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	decisions, err := os.ReadFile(filepath.Join(root, "decisions/DECISIONS.md"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(decisions), "[D-2]") {
		t.Fatal("expected rollback to remove the applied block")
	}
	receipt, err := os.ReadFile(res.ReceiptPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(receipt), "FinalStatus: rolled_back") {
		t.Fatalf("expected receipt final status rolled_back, got %q", receipt)
	}
}
