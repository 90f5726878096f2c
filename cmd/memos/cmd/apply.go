package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/memos-run/memos/apply"
)

var (
	applyDryRun   bool
	applyRollback string
)

var applyCmd = &cobra.Command{
	Use:   "apply [ProposalId]",
	Short: "run the fourteen-gate Apply Pipeline against a staged proposal (§4.L)",
	RunE:  runApply,
}

func init() {
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "run every gate but stop before snapshotting")
	applyCmd.Flags().StringVar(&applyRollback, "rollback", "", "restore the snapshot taken at this receipt timestamp")
}

func runApply(cmd *cobra.Command, args []string) error {
	if applyRollback != "" {
		if err := apply.Rollback(workspaceFlag, applyRollback, time.Now()); err != nil {
			return err
		}
		color.New(color.FgGreen).Println("rollback complete")
		return nil
	}

	if len(args) != 1 {
		return fmt.Errorf("apply requires exactly one ProposalId argument")
	}

	res, err := apply.Run(context.Background(), workspaceFlag, args[0], apply.Options{DryRun: applyDryRun, Now: time.Now()})
	if err != nil {
		return err
	}

	if jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if res.DryRun {
		color.New(color.FgYellow).Printf("dry-run OK: %d step(s) evaluated\n", len(res.Steps))
		return nil
	}
	color.New(color.FgGreen).Printf("applied: receipt %s, diff %s\n", res.ReceiptPath, res.DiffPath)
	return nil
}

// isValidationError reports whether err should map to exit code 2
// rather than the generic gate-failure/op-failure exit code 1 (§7):
// the "validate" gate covers malformed proposals, enum violations, and
// path traversal per proposal.Validate's own checks.
func isValidationError(err error) bool {
	gf, ok := err.(*apply.GateFailure)
	return ok && gf.Gate == "validate"
}
