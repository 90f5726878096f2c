// Package apply orchestrates the fourteen-gate Apply Pipeline (§4.L):
// locate, validate, fingerprint, dedup, backlog, cooldown, no-touch,
// preconditions, dry-run exit, snapshot, execute, post-check, diff, and
// commit — with an explicit rollback entry point outside the main flow.
package apply

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/memos-run/memos/intel"
	"github.com/memos-run/memos/ops"
	"github.com/memos-run/memos/precheck"
	"github.com/memos-run/memos/proposal"
	"github.com/memos-run/memos/snapshot"
	"github.com/memos-run/memos/workspace"
)

const noTouchWindow = 10 * time.Minute

// GateFailure is returned when a gate refuses the proposal; every gate
// except post_check fails before the snapshot is taken. Gate names the
// failing step for diagnostics.
type GateFailure struct {
	Gate   string
	Reason string
}

func (g *GateFailure) Error() string { return fmt.Sprintf("%s: %s", g.Gate, g.Reason) }

func fail(gate, reason string) error { return &GateFailure{Gate: gate, Reason: reason} }

// Options controls one Run invocation.
type Options struct {
	DryRun bool
	Now    time.Time
}

// Result summarizes a completed (non-error) run.
type Result struct {
	Applied     bool
	DryRun      bool
	Fingerprint string
	ReceiptPath string
	DiffPath    string
	Steps       []StepRecord
}

func (r *Result) record(name, status, detail string) {
	r.Steps = append(r.Steps, StepRecord{Name: name, State: status, Detail: detail})
}

// Run executes the full pipeline against the proposal identified by
// proposalID, rooted at workspaceRoot.
func Run(ctx context.Context, workspaceRoot, proposalID string, opts Options) (*Result, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	res := &Result{DryRun: opts.DryRun}

	root, err := workspace.NewRoot(workspaceRoot)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Join(workspaceRoot, filepath.Dir(intel.StatePath)), 0o755); err != nil {
		return nil, err
	}
	lock, err := workspace.Lock(filepath.Join(workspaceRoot, intel.StatePath), 30*time.Second)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	// 1. Locate
	p, err := proposal.Locate(workspaceRoot, proposalID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fail("locate", "proposal not found")
	}
	res.record("locate", string(StepCompleted), p.SourceFile)

	// 2. Validate
	vr := proposal.Validate(p, root)
	if !vr.IsValid() {
		return nil, fail("validate", vr.Error())
	}
	res.record("validate", string(StepCompleted), "")

	// 3. Fingerprint
	fp := Fingerprint(p)
	res.Fingerprint = fp
	res.record("fingerprint", string(StepCompleted), fp)

	all, err := proposal.LoadAll(workspaceRoot)
	if err != nil {
		return nil, err
	}

	// 4. Dedup
	for _, other := range all {
		if other.ProposalId == p.ProposalId {
			continue
		}
		if (other.Status == "staged" || other.Status == "deferred") && other.Fingerprint == fp {
			return nil, fail("dedup", fmt.Sprintf("duplicate proposal (matches %s)", other.ProposalId))
		}
	}
	res.record("dedup", string(StepCompleted), "")

	// 5. Backlog
	state, err := intel.Load(workspaceRoot)
	if err != nil {
		return nil, err
	}
	staged := 0
	for _, other := range all {
		if other.Status == "staged" {
			staged++
		}
	}
	if staged >= state.ProposalBudget.BacklogLimit {
		return nil, fail("backlog", fmt.Sprintf("backlog limit exceeded (%d staged)", staged))
	}
	res.record("backlog", string(StepCompleted), fmt.Sprintf("%d staged", staged))

	// 6. Cooldown
	if p.TargetBlock != "" {
		cutoff := now.Add(-time.Duration(state.DeferCooldownDays) * 24 * time.Hour)
		for _, other := range all {
			if other.TargetBlock != p.TargetBlock {
				continue
			}
			if other.Status != "rejected" && other.Status != "deferred" {
				continue
			}
			created, err := time.Parse(time.RFC3339, other.Created)
			if err != nil {
				continue
			}
			if created.After(cutoff) {
				return nil, fail("cooldown", fmt.Sprintf("target %s has %s proposal %s within %dd cooldown", p.TargetBlock, other.Status, other.ProposalId, state.DeferCooldownDays))
			}
		}
	}
	res.record("cooldown", string(StepCompleted), "")

	// 7. No-touch
	if last, ok := state.LastApplyTime(); ok {
		elapsed := now.Sub(last)
		if elapsed < noTouchWindow {
			remaining := noTouchWindow - elapsed
			reason := fmt.Sprintf("no-touch window: %s remaining", remaining.Round(time.Second))
			if !opts.DryRun {
				return nil, fail("no_touch", reason)
			}
			res.record("no_touch", string(StepSkipped), reason+" (dry-run, continuing)")
		} else {
			res.record("no_touch", string(StepCompleted), "")
		}
	} else {
		res.record("no_touch", string(StepCompleted), "no previous apply")
	}

	// 8. Preconditions
	preOK, preResults := precheck.RunAll(ctx, workspaceRoot)
	preReport := formatCheckerReport(preResults)
	if !preOK {
		return nil, fail("preconditions", "precondition check failed")
	}
	res.record("preconditions", string(StepCompleted), "")

	// 9. Dry-run exit
	if opts.DryRun {
		res.record("dry_run", string(StepCompleted), fmt.Sprintf("%d ops would execute", len(p.Ops)))
		return res, nil
	}

	// 10. Snapshot + receipt(in_progress)
	snap, err := snapshot.Create(workspaceRoot, now)
	if err != nil {
		return nil, err
	}
	ts := now.UTC().Format("20060102-150405")
	receiptPath, err := WriteReceipt(snap.Dir, p, ts, preReport, state.SelfCorrectingMode)
	if err != nil {
		return nil, err
	}
	res.ReceiptPath = receiptPath
	res.record("snapshot", string(StepCompleted), snap.Dir)

	// 11. Execute
	delta := Delta{}
	for i, op := range p.Ops {
		if err := ops.Execute(op, root); err != nil {
			restoreErr := snapshot.Restore(workspaceRoot, snap.Dir)
			_ = AppendUpdate(receiptPath, []string{"ABORTED: op failure"}, delta, "rolled_back")
			_ = markProposalStatus(root, p, "rolled_back")
			res.record(fmt.Sprintf("execute[%d]", i), string(StepFailed), err.Error())
			if restoreErr != nil {
				return nil, fmt.Errorf("op %d failed (%v); restore also failed: %w", i, err, restoreErr)
			}
			return nil, fmt.Errorf("op %d failed: %w", i, err)
		}
		if op.Op == "append_block" || op.Op == "insert_after_block" || op.Op == "supersede_decision" {
			delta.Created = append(delta.Created, orEOF(op.Target))
		} else {
			delta.Modified = append(delta.Modified, op.Target)
		}
	}
	res.record("execute", string(StepCompleted), fmt.Sprintf("%d ops", len(p.Ops)))

	// 12. Post-check
	postOK, postResults := precheck.RunAll(ctx, workspaceRoot)
	postReport := formatCheckerReport(postResults)
	if !postOK {
		_ = snapshot.Restore(workspaceRoot, snap.Dir)
		_ = AppendUpdate(receiptPath, postReport, delta, "rolled_back")
		_ = markProposalStatus(root, p, "rolled_back")
		res.record("post_check", string(StepFailed), "")
		return nil, fail("post_check", "post-checks failed, rolled back")
	}
	res.record("post_check", string(StepCompleted), "")

	// 13. Diff artifact
	diffPath, err := GenerateDiffArtifact(workspaceRoot, snap.Dir, p.FilesTouched)
	if err != nil {
		return nil, err
	}
	res.DiffPath = diffPath
	res.record("diff", string(StepCompleted), diffPath)

	// 14. Commit
	if err := AppendUpdate(receiptPath, postReport, delta, "applied"); err != nil {
		return nil, err
	}
	if err := markProposalStatus(root, p, "applied"); err != nil {
		return nil, err
	}
	state.TouchLastApply(now)
	if err := intel.Save(workspaceRoot, state); err != nil {
		return nil, err
	}
	res.record("commit", string(StepCompleted), "")
	res.Applied = true
	return res, nil
}

// Rollback restores the snapshot taken at receiptTS and marks its
// receipt rolled_back, independent of a live Run invocation.
func Rollback(workspaceRoot, receiptTS string, now time.Time) error {
	snapDir := filepath.Join(workspaceRoot, "intelligence", "applied", receiptTS)
	if err := snapshot.Restore(workspaceRoot, snapDir); err != nil {
		return err
	}
	receiptPath := filepath.Join(snapDir, receiptFileName)
	return AppendRollback(receiptPath, now)
}

func markProposalStatus(root *workspace.Root, p *proposal.Proposal, status string) error {
	return ops.Execute(proposalOp(p, status), root)
}

func proposalOp(p *proposal.Proposal, status string) proposal.Op {
	return proposal.Op{Op: "update_field", File: p.SourceFile, Target: p.ProposalId, Field: "Status", Value: status}
}

func orEOF(target string) string {
	if target == "" {
		return "new"
	}
	return target
}

func formatCheckerReport(results []precheck.Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
		}
		out[i] = fmt.Sprintf("%s: %s", r.Name, status)
	}
	return out
}
