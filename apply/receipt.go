package apply

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/memos-run/memos/proposal"
)

const receiptFileName = "APPLY_RECEIPT.md"

// WriteReceipt writes the initial in_progress receipt into snapDir,
// naming the snapshot timestamp ts and recording the precondition
// report gathered before execution.
func WriteReceipt(snapDir string, p *proposal.Proposal, ts string, preChecks []string, mode string) (string, error) {
	receiptPath := filepath.Join(snapDir, receiptFileName)

	var sb strings.Builder
	fmt.Fprintf(&sb, "[AR-%s]\n", ts)
	fmt.Fprintf(&sb, "ProposalId: %s\n", p.ProposalId)
	fmt.Fprintf(&sb, "Date: %s\n", time.Now().UTC().Format("2006-01-02"))
	fmt.Fprintf(&sb, "Time: %s\n", ts)
	fmt.Fprintf(&sb, "Mode: %s\n", mode)
	fmt.Fprintf(&sb, "Risk: %s\n", p.Risk)
	fmt.Fprintf(&sb, "TargetBlock: %s\n", p.TargetBlock)
	sb.WriteString("FilesTouched:\n")
	for _, f := range p.FilesTouched {
		fmt.Fprintf(&sb, "- %s\n", f)
	}
	sb.WriteString("PreChecks:\n")
	for _, c := range preChecks {
		fmt.Fprintf(&sb, "- %s\n", c)
	}
	fmt.Fprintf(&sb, "RollbackPlan: %s\n", p.Rollback)
	sb.WriteString("Status: in_progress\n")

	if err := os.WriteFile(receiptPath, []byte(sb.String()), 0o644); err != nil {
		return "", err
	}
	return receiptPath, nil
}

// Delta records which targets ops created versus modified, for the
// receipt's post-check summary.
type Delta struct {
	Created []string
	Modified []string
}

// AppendUpdate appends the post-check report, delta summary, and a
// terminal FinalStatus line to an existing receipt.
func AppendUpdate(receiptPath string, postChecks []string, delta Delta, status string) error {
	f, err := os.OpenFile(receiptPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	var sb strings.Builder
	sb.WriteString("PostChecks:\n")
	for _, c := range postChecks {
		fmt.Fprintf(&sb, "- %s\n", c)
	}
	sb.WriteString("Delta:\n")
	for _, c := range delta.Created {
		fmt.Fprintf(&sb, "- created: %s\n", c)
	}
	for _, m := range delta.Modified {
		fmt.Fprintf(&sb, "- modified: %s\n", m)
	}
	fmt.Fprintf(&sb, "FinalStatus: %s\n", status)

	_, err = f.WriteString(sb.String())
	return err
}

// AppendRollback appends the explicit rollback trailer to a receipt
// that is being restored from outside the normal apply flow.
func AppendRollback(receiptPath string, now time.Time) error {
	f, err := os.OpenFile(receiptPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "\nRolledBack: %s\nFinalStatus: rolled_back\n", now.UTC().Format("2006-01-02T15:04:05Z"))
	return err
}
