// Package query implements the query classifier (§4.D) and the bounded
// synonym expander (§4.E).
package query

import (
	"regexp"
	"strings"
)

// Category is one of the four retrieval categories a query is assigned to.
type Category string

const (
	Temporal     Category = "temporal"
	Adversarial  Category = "adversarial"
	MultiHop     Category = "multi_hop"
	SingleHop    Category = "single_hop"
	classifyMinScore      = 3
)

var temporalPatterns = []string{
	"when", "before", "after", "during", "since", "until", "recently",
	"yesterday", "last week", "last month", "timeline", "history of",
	"date", "schedule", "deadline",
}

var adversarialPatterns = []string{
	"not", "never", "n't", "wrong", "incorrect", "contradict",
	"false", "actually", "really", "disagree", "mistaken",
}

var multiHopPatterns = []string{
	"and then", "after that", "related to", "connected to", "depends on",
	"because of", "leads to", "caused by", "both", "compare", "versus",
	"chain of", "all of", "across",
}

var auxNegationStart = regexp.MustCompile(`^(is|are|was|were|do|does|did|has|have|had|can|could|will|would|should)\b.*\b(not|never|n't)\b`)

// Classify scores a query against the three pattern families and returns
// the highest-scoring category, or SingleHop if nothing clears the
// threshold.
func Classify(queryText string) Category {
	lower := strings.ToLower(queryText)
	words := strings.Fields(lower)

	scores := map[Category]int{}
	scores[Temporal] = countHits(lower, temporalPatterns)
	scores[Adversarial] = countHits(lower, adversarialPatterns)
	scores[MultiHop] = countHits(lower, multiHopPatterns)

	if auxNegationStart.MatchString(lower) {
		scores[Adversarial] += 3
	}
	if containsWord(words, "ever") {
		scores[Adversarial] += 2
	}
	if len(words) > 15 && scores[MultiHop] > 0 {
		scores[MultiHop] += 2
	}

	best := SingleHop
	bestScore := classifyMinScore - 1
	for _, cat := range []Category{Temporal, Adversarial, MultiHop} {
		if scores[cat] > bestScore {
			best, bestScore = cat, scores[cat]
		}
	}
	if bestScore < classifyMinScore {
		return SingleHop
	}
	return best
}

func countHits(text string, patterns []string) int {
	n := 0
	for _, p := range patterns {
		if strings.Contains(text, p) {
			n++
		}
	}
	return n
}

func containsWord(words []string, w string) bool {
	for _, word := range words {
		if word == w {
			return true
		}
	}
	return false
}

// Params holds the retrieval parameters a query category selects.
type Params struct {
	RecencyWeight    float64
	DateBoost        float64
	ExpansionEnabled bool
	ExtraLimitFactor float64
	ForceGraph       bool
}

// ParamsFor returns the retrieval parameter set for a classified category.
func ParamsFor(cat Category) Params {
	switch cat {
	case Temporal:
		return Params{RecencyWeight: 0.6, DateBoost: 2.0, ExpansionEnabled: true, ExtraLimitFactor: 1.5, ForceGraph: false}
	case MultiHop:
		return Params{RecencyWeight: 0.3, DateBoost: 1.0, ExpansionEnabled: true, ExtraLimitFactor: 2.0, ForceGraph: true}
	case Adversarial:
		return Params{RecencyWeight: 0.3, DateBoost: 1.0, ExpansionEnabled: false, ExtraLimitFactor: 1.0, ForceGraph: true}
	default:
		return Params{RecencyWeight: 0.3, DateBoost: 1.0, ExpansionEnabled: true, ExtraLimitFactor: 1.0, ForceGraph: false}
	}
}
