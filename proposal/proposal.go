// Package proposal implements the Proposal data model and the
// structural/safety validator that gates entry to the Apply Pipeline
// (§3 Proposal, §4.I). The error-collection shape (Category + a single
// fatal severity + Result.Merge/HasErrors) generalizes the teacher's
// ValidationError/ValidationResult framework from its DB/provider/
// environment checks down to this domain's narrower field/enum/ops/path
// categories.
package proposal

// Op is a typed mutation record. Not every field is meaningful for every
// Op name; each ops executor reads only the fields its op type uses.
type Op struct {
	Op       string
	File     string
	Target   string
	Patch    string
	Field    string
	Value    string
	List     string
	Item     string
	Status   string
	History  string
	Start    string
	End      string
	NewBlock string
}

// OpNames is the closed set of the seven typed mutations (§3 Op).
var OpNames = map[string]bool{
	"append_block":       true,
	"insert_after_block":  true,
	"update_field":        true,
	"append_list_item":    true,
	"set_status":          true,
	"replace_range":       true,
	"supersede_decision":  true,
}

// opsRequiringTarget is every op except append_block.
var opsRequiringTarget = map[string]bool{
	"insert_after_block": true,
	"update_field":       true,
	"append_list_item":   true,
	"set_status":         true,
	"replace_range":      true,
	"supersede_decision": true,
}

// Types is the closed Type enum.
var Types = map[string]bool{"decision": true, "task": true, "edit": true}

// Risks is the closed Risk enum.
var Risks = map[string]bool{"low": true, "medium": true, "high": true}

// Statuses is the closed Status enum (§3 Proposal).
var Statuses = map[string]bool{
	"staged": true, "applied": true, "rejected": true,
	"deferred": true, "expired": true, "rolled_back": true,
}

// Proposal is the pending-mutation block (§3).
type Proposal struct {
	ProposalId   string
	Type         string
	Risk         string
	Status       string
	Evidence     []string
	Rollback     string
	Ops          []Op
	TargetBlock  string
	FilesTouched []string
	Fingerprint  string
	Created      string

	SourceFile string
}
