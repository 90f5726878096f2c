package recall

import (
	"math"
	"sort"
	"time"

	"github.com/memos-run/memos/block"
	"github.com/memos-run/memos/corpus"
	"github.com/memos-run/memos/query"
	"github.com/memos-run/memos/tokenize"
	"github.com/memos-run/memos/vectorstub"
	"github.com/memos-run/memos/xref"
)

// excerptFields is the priority order the original recall.py's
// get_excerpt consulted; reused verbatim per SPEC_FULL.md §12.
var excerptFields = []string{"Statement", "Title", "Summary", "Description", "Name", "Context"}

const excerptMaxLen = 120

// Excerpt returns the first non-empty excerpt field's text, truncated to
// 120 characters, falling back to the block's ID.
func Excerpt(blk *block.Block) string {
	for _, name := range excerptFields {
		if s := blk.Str(name); s != "" {
			return truncate(s, excerptMaxLen)
		}
	}
	return blk.ID
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Hit is one ranked result.
type Hit struct {
	ID       string
	Type     string
	Score    float64
	Excerpt  string
	File     string
	Line     int
	Status   string
	ViaGraph bool
}

// Options configures a single Recall call.
type Options struct {
	Limit      int
	ActiveOnly bool
	Graph      bool
	AgentID    string
	CanRead    corpus.CanReadFunc
}

// Engine is the recall pipeline over a single workspace root.
type Engine struct {
	Root    string
	Backend vectorstub.Backend
	Now     func() time.Time
}

// NewEngine constructs an Engine rooted at root. backend may be nil, in
// which case the engine always scores with BM25F.
func NewEngine(root string, backend vectorstub.Backend) *Engine {
	return &Engine{Root: root, Backend: backend, Now: time.Now}
}

// Recall runs Loader -> Tokenizer -> Classifier -> Expander -> Scorer ->
// Graph Booster and returns up to Options.Limit ranked hits.
func (e *Engine) Recall(queryText string, opts Options) ([]Hit, error) {
	if opts.Limit <= 0 {
		opts.Limit = 10
	}

	if e.Backend != nil {
		if vhits, err := e.Backend.Query(queryText, opts.Limit); err == nil {
			hits := make([]Hit, len(vhits))
			for i, v := range vhits {
				hits[i] = Hit(v)
			}
			return hits, nil
		}
		// fall through to BM25F on any backend error (§9 design note:
		// loader returns error-as-value, caller falls back to BM25)
	}

	loader := &corpus.Loader{
		Root:       e.Root,
		ActiveOnly: opts.ActiveOnly,
		AgentID:    opts.AgentID,
		CanRead:    opts.CanRead,
	}
	blocks, err := loader.Load()
	if err != nil {
		return nil, err
	}

	rawTokens := tokenize.Tokenize(queryText)
	if len(rawTokens) == 0 {
		return nil, nil
	}

	cat := query.Classify(queryText)
	params := query.ParamsFor(cat)

	scoreTokens := rawTokens
	if params.ExpansionEnabled {
		scoreTokens = query.Expand(rawTokens, query.DefaultMaxExpansions)
	}
	queryBigrams := bigramsOf(rawTokens)

	now := e.Now
	if now == nil {
		now = time.Now
	}
	idx := BuildIndex(blocks, now())

	hits := idx.score(scoreTokens, queryBigrams, params)
	sortHits(hits)

	candidateLimit := int(math.Ceil(float64(opts.Limit) * params.ExtraLimitFactor))
	if candidateLimit < opts.Limit {
		candidateLimit = opts.Limit
	}
	if len(hits) > candidateLimit {
		hits = hits[:candidateLimit]
	}

	if opts.Graph || params.ForceGraph {
		hits = applyGraphBoost(hits, blocks, opts.Limit)
	}

	sortHits(hits)
	if len(hits) > opts.Limit {
		hits = hits[:opts.Limit]
	}
	return hits, nil
}

func (idx *Index) score(tokens, queryBigrams []string, params query.Params) []Hit {
	hits := make([]Hit, 0, len(idx.docs))
	for _, d := range idx.docs {
		s := idx.bm25(d.wtf, d.wdl, tokens)
		if s <= 0 {
			s = fuzzyScore(d.wtf, tokens)
			if s <= 0 {
				continue
			}
		}

		m := 0
		for _, bg := range queryBigrams {
			if d.bigrams[bg] {
				m++
			}
		}
		if m > 0 {
			s *= 1 + bigramWeightPerPair*float64(m)
		}

		if len(d.primaryText) > chunkPrimaryMinLen {
			if cs := idx.chunkScore(d.primaryText, tokens); cs > s {
				s = chunkBlendWeight*cs + (1-chunkBlendWeight)*s
			}
		}

		if dateScore, hasDate := dateScoreFor(d.block, idx.now); hasDate {
			rw := params.RecencyWeight
			s *= 1 - rw + rw*dateScore
			if params.DateBoost != 1.0 {
				s *= params.DateBoost
			}
		}

		s *= statusMultiplier(d.block.Status())
		s *= priorityMultiplier(d.block.Str("Priority"))

		if s <= 0 {
			continue
		}

		hits = append(hits, Hit{
			ID:      d.block.ID,
			Type:    block.TypeOf(d.block.ID),
			Score:   round4(s),
			Excerpt: Excerpt(d.block),
			File:    d.block.SourceFile,
			Line:    d.block.SourceLine,
			Status:  d.block.Status(),
		})
	}
	return hits
}

func applyGraphBoost(hits []Hit, blocks []*block.Block, limit int) []Hit {
	byID := make(map[string]*block.Block, len(blocks))
	for _, b := range blocks {
		byID[b.ID] = b
	}

	seeds := make(map[string]float64, len(hits))
	for _, h := range hits {
		seeds[h.ID] = h.Score
	}

	g := xref.Build(blocks)
	additions, viaGraph := g.TwoHopBoost(seeds)

	present := make(map[string]bool, len(hits))
	for _, h := range hits {
		present[h.ID] = true
	}

	for id, score := range additions {
		if present[id] {
			continue
		}
		b := byID[id]
		if b == nil {
			continue
		}
		hits = append(hits, Hit{
			ID:       id,
			Type:     block.TypeOf(id),
			Score:    round4(score),
			Excerpt:  Excerpt(b),
			File:     b.SourceFile,
			Line:     b.SourceLine,
			Status:   b.Status(),
			ViaGraph: viaGraph[id],
		})
	}
	_ = limit
	return hits
}

func sortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
