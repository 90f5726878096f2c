package apply

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/memos-run/memos/proposal"
)

// Fingerprint computes the deterministic dedup key for a proposal: the
// first 16 hex characters of the SHA-256 digest of a canonical JSON
// object with sorted keys. Go's encoding/json sorts map keys on marshal,
// so building the payload as nested maps (rather than a struct, whose
// field order would otherwise leak) reproduces the canonicalization
// without a bespoke key sorter.
func Fingerprint(p *proposal.Proposal) string {
	ops := make([]map[string]interface{}, len(p.Ops))
	for i, op := range p.Ops {
		entry := map[string]interface{}{"op": op.Op, "file": op.File}
		if op.Target != "" {
			entry["target"] = op.Target
		} else {
			entry["target"] = nil
		}
		ops[i] = entry
	}
	payload := map[string]interface{}{
		"type":   p.Type,
		"target": p.TargetBlock,
		"ops":    ops,
	}
	canon, _ := json.Marshal(payload)
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:])[:16]
}
