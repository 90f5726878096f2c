// Package recall implements the field-weighted BM25F scorer with bigram
// and chunk boosting (§4.F), tying the loader, tokenizer, query
// classifier/expander, and cross-reference graph booster together into
// the recall pipeline.
package recall

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/memos-run/memos/block"
	"github.com/memos-run/memos/tokenize"
)

const (
	k1 = 1.2
	b  = 0.75

	idFieldWeight  = 2.0
	sigFieldWeight = 1.0

	chunkPrimaryMinLen = 200
	chunkSentenceSize   = 3
	chunkOverlap        = 1
	chunkBlendWeight    = 0.6

	bigramWeightPerPair = 0.25
	dateBoostTemporal   = 2.0

	statusActiveMultiplier   = 1.2
	statusTodoDoingMultiplier = 1.1
	priorityP0P1Multiplier    = 1.1

	fuzzyMinTokenLen  = 4
	fuzzyMaxNormRank  = 3
	fuzzyBaseScore    = 0.4
)

type fieldWeight struct {
	name   string
	weight float64
}

var fieldWeights = []fieldWeight{
	{"Statement", 3.0},
	{"Title", 2.5},
	{"Name", 2.0},
	{"Summary", 1.5},
	{"Description", 1.2},
	{"Context", 1.0},
	{"Evidence", 1.0},
	{"Rollback", 1.0},
	{"History", 0.3},
}

var sentenceBoundary = regexp.MustCompile(`(?:[.!?]+\s+|\n+)`)
var dateLayout = "2006-01-02"

// docStats is the per-block index entry the scorer operates over.
type docStats struct {
	block       *block.Block
	wdl         float64
	wtf         map[string]float64
	bigrams     map[string]bool
	primaryText string
}

// Index is the built BM25F index over a loaded block set.
type Index struct {
	docs  []docStats
	df    map[string]int
	n     int
	avgdl float64
	now   time.Time
}

// BuildIndex computes per-field weighted term frequencies, document
// frequencies, and average weighted length for a set of loaded blocks.
func BuildIndex(blocks []*block.Block, now time.Time) *Index {
	idx := &Index{
		docs: make([]docStats, len(blocks)),
		df:   map[string]int{},
		n:    len(blocks),
		now:  now,
	}

	var totalWDL float64
	for i, blk := range blocks {
		d := docStats{block: blk, wtf: map[string]float64{}}

		for _, fw := range fieldWeights {
			text := fieldText(blk, fw.name)
			if text == "" {
				continue
			}
			toks := tokenize.Tokenize(text)
			d.wdl += fw.weight * float64(len(toks))
			for _, t := range toks {
				d.wtf[t] += fw.weight
			}
		}

		idToks := tokenize.Tokenize(blk.ID)
		d.wdl += idFieldWeight * float64(len(idToks))
		for _, t := range idToks {
			d.wtf[t] += idFieldWeight
		}

		if sig := sigText(blk); sig != "" {
			toks := tokenize.Tokenize(sig)
			d.wdl += sigFieldWeight * float64(len(toks))
			for _, t := range toks {
				d.wtf[t] += sigFieldWeight
			}
		}

		d.primaryText = primaryText(blk)
		d.bigrams = bigramSet(tokenize.Tokenize(d.primaryText))

		for t := range d.wtf {
			idx.df[t]++
		}
		totalWDL += d.wdl
		idx.docs[i] = d
	}

	if idx.n > 0 {
		idx.avgdl = totalWDL / float64(idx.n)
	}
	return idx
}

func fieldText(blk *block.Block, name string) string {
	v := blk.Get(name)
	if v == nil {
		return ""
	}
	switch v.Kind {
	case block.KindString:
		return v.Str
	case block.KindList:
		return strings.Join(v.List, " ")
	default:
		return ""
	}
}

func sigText(blk *block.Block) string {
	var sb strings.Builder
	for _, name := range blk.FieldOrder {
		v := blk.Get(name)
		if v == nil || v.Kind != block.KindSignatures {
			continue
		}
		for _, rec := range v.Sigs {
			for _, val := range rec {
				sb.WriteString(val)
				sb.WriteByte(' ')
			}
		}
	}
	return sb.String()
}

// primaryText is the chunk-eligible text: the first non-empty of
// Statement or Title.
func primaryText(blk *block.Block) string {
	if s := blk.Str("Statement"); s != "" {
		return s
	}
	return blk.Str("Title")
}

func bigramSet(tokens []string) map[string]bool {
	set := map[string]bool{}
	for i := 0; i+1 < len(tokens); i++ {
		set[tokens[i]+"|"+tokens[i+1]] = true
	}
	return set
}

func bigramsOf(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for i := 0; i+1 < len(tokens); i++ {
		out = append(out, tokens[i]+"|"+tokens[i+1])
	}
	return out
}

func (idx *Index) idf(term string) float64 {
	df := float64(idx.df[term])
	return math.Log((float64(idx.n)-df+0.5)/(df+0.5) + 1)
}

// bm25 scores a single weighted-term-frequency map against query tokens.
func (idx *Index) bm25(wtf map[string]float64, wdl float64, tokens []string) float64 {
	var score float64
	for _, t := range tokens {
		tf, ok := wtf[t]
		if !ok {
			continue
		}
		idf := idx.idf(t)
		denom := tf + k1*(1-b+b*wdl/idx.avgdl)
		score += idf * (tf * (k1 + 1)) / denom
	}
	return score
}

// fuzzyScore is a typo-tolerant fallback used for documents whose BM25
// score is zero: each query token of fuzzyMinTokenLen or more is
// rank-matched (Levenshtein-normalized) against every term in wtf, and the
// single closest hit within fuzzyMaxNormRank over all tokens and terms
// gives the score, at most fuzzyBaseScore. That score is not capped below
// other documents' BM25 scores, so a fuzzy-only document can outrank a
// document with a weak exact match.
func fuzzyScore(wtf map[string]float64, tokens []string) float64 {
	var best float64
	for _, qt := range tokens {
		if len(qt) < fuzzyMinTokenLen {
			continue
		}
		for term := range wtf {
			if !fuzzy.MatchFold(qt, term) {
				continue
			}
			rank := fuzzy.RankMatchNormalizedFold(qt, term)
			if rank < 0 || rank > fuzzyMaxNormRank {
				continue
			}
			s := fuzzyBaseScore / float64(rank+1)
			if s > best {
				best = s
			}
		}
	}
	return best
}

// chunkScore splits text into overlapping sentence windows and returns
// the best window's BM25 score against the same df/avgdl statistics.
func (idx *Index) chunkScore(text string, tokens []string) float64 {
	sentences := sentenceBoundary.Split(strings.TrimSpace(text), -1)
	var best float64
	for start := 0; start < len(sentences); start += chunkSentenceSize - chunkOverlap {
		end := start + chunkSentenceSize
		if end > len(sentences) {
			end = len(sentences)
		}
		chunk := strings.Join(sentences[start:end], " ")
		chunkToks := tokenize.Tokenize(chunk)
		wtf := map[string]float64{}
		for _, t := range chunkToks {
			wtf[t]++
		}
		wdl := float64(len(chunkToks))
		if s := idx.bm25(wtf, wdl, tokens); s > best {
			best = s
		}
		if end == len(sentences) {
			break
		}
	}
	return best
}

func statusMultiplier(status string) float64 {
	switch status {
	case "active":
		return statusActiveMultiplier
	case "todo", "doing":
		return statusTodoDoingMultiplier
	default:
		return 1.0
	}
}

func priorityMultiplier(priority string) float64 {
	if priority == "P0" || priority == "P1" {
		return priorityP0P1Multiplier
	}
	return 1.0
}

func dateScoreFor(blk *block.Block, now time.Time) (float64, bool) {
	raw := blk.Str("Date")
	if raw == "" {
		return 0, false
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return 0, false
	}
	daysOld := now.Sub(t).Hours() / 24
	score := 1 - daysOld/365
	if score < 0.1 {
		score = 0.1
	}
	return score, true
}
