package query

import "github.com/memos-run/memos/tokenize"

// DefaultMaxExpansions is the default bound on additive synonym terms.
const DefaultMaxExpansions = 3

// synonyms is a small closed table keyed by stems; its values are plain
// words, which Expand stems before adding them to the token set.
var synonyms = map[string][]string{
	"auth":   {"authentication", "login", "oauth", "jwt", "session"},
	"bug":    {"defect", "issue", "regression"},
	"fix":    {"patch", "repair", "resolve"},
	"delete": {"remove", "drop", "purge"},
	"cre":    {"add", "new", "insert"}, // stem of "create"
	"config": {"configuration", "setting", "option"},
	"error":  {"failure", "exception", "fault"},
	"test":   {"spec", "check", "verify"},
	"deploy": {"release", "ship", "publish"},
	"user":   {"account", "member", "customer"},
	"task":   {"todo", "action", "item"},
	"deci":   {"decision", "choice", "ruling"}, // stem of "decision"
	"revert": {"rollback", "undo"},
	"key":    {"credential", "secret", "token"},
	"merge":  {"combine", "integrate"},
}

// Expand stems each candidate synonym and appends distinct new terms not
// already present, never removing originals, capped at maxExpansions.
func Expand(stems []string, maxExpansions int) []string {
	if maxExpansions <= 0 {
		maxExpansions = DefaultMaxExpansions
	}
	present := map[string]bool{}
	for _, s := range stems {
		present[s] = true
	}

	out := append([]string{}, stems...)
	added := 0
	for _, s := range stems {
		for _, syn := range synonyms[s] {
			if added >= maxExpansions {
				return out
			}
			stemmed := tokenize.Stem(syn)
			if present[stemmed] {
				continue
			}
			present[stemmed] = true
			out = append(out, stemmed)
			added++
		}
	}
	return out
}
