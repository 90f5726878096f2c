package proposal

import (
	"fmt"

	"github.com/memos-run/memos/workspace"
)

// Validate enforces every structural and safety rule of §4.I, collecting
// every violation rather than stopping at the first.
func Validate(p *Proposal, root *workspace.Root) *Result {
	r := &Result{}

	if p.ProposalId == "" {
		r.add(CategoryField, "ProposalId is required")
	}
	if !Types[p.Type] {
		r.add(CategoryEnum, fmt.Sprintf("Type %q is not one of decision, task, edit", p.Type))
	}
	if !Risks[p.Risk] {
		r.add(CategoryEnum, fmt.Sprintf("Risk %q is not one of low, medium, high", p.Risk))
	}
	if p.Status != "staged" {
		r.add(CategoryEnum, fmt.Sprintf("Status %q must be staged on entry to the apply pipeline", p.Status))
	}
	if len(p.Evidence) == 0 {
		r.add(CategoryField, "Evidence must be non-empty")
	}
	if p.Rollback == "" {
		r.add(CategoryField, "Rollback is required")
	}
	if len(p.Ops) == 0 {
		r.add(CategoryOps, "Ops must be non-empty")
	}

	opFiles := map[string]bool{}
	for i, op := range p.Ops {
		if !OpNames[op.Op] {
			r.add(CategoryOps, fmt.Sprintf("op[%d]: unknown op type %q", i, op.Op))
			continue
		}
		if op.File == "" {
			r.add(CategoryOps, fmt.Sprintf("op[%d] (%s): file is required", i, op.Op))
		} else {
			opFiles[op.File] = true
		}
		if opsRequiringTarget[op.Op] && op.Target == "" {
			r.add(CategoryOps, fmt.Sprintf("op[%d] (%s): target is required", i, op.Op))
		}
	}

	if len(p.FilesTouched) > 0 {
		touched := map[string]bool{}
		for _, f := range p.FilesTouched {
			touched[f] = true
		}
		for f := range opFiles {
			if !touched[f] {
				r.add(CategoryOps, fmt.Sprintf("FilesTouched is missing op file %q", f))
			}
		}
	}

	if root != nil {
		for i, op := range p.Ops {
			if op.File == "" {
				continue
			}
			if _, err := root.ResolveOp(op.File); err != nil {
				if se, ok := workspace.IsSafetyError(err); ok {
					r.add(CategoryPath, fmt.Sprintf("op[%d] file %q rejected: %s", i, op.File, se.Reason))
				} else {
					r.add(CategoryPath, fmt.Sprintf("op[%d] file %q could not be resolved: %v", i, op.File, err))
				}
			}
		}
	}

	return r
}
