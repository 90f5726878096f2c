package xref

// decaySchedule holds the per-hop decay factors for two-hop propagation.
var decaySchedule = []float64{0.3, 0.1}

// TwoHopBoost propagates score from a ranked seed set across the graph
// for len(decaySchedule) hops. seeds maps an already-ranked block ID to
// its BM25 score. It returns the accumulated neighbor_scores for every
// node discovered via the graph that was not already in seeds, plus a
// via_graph membership set for the same nodes.
func (g *Graph) TwoHopBoost(seeds map[string]float64) (additions map[string]float64, viaGraph map[string]bool) {
	ranked := make(map[string]float64, len(seeds))
	for id, s := range seeds {
		ranked[id] = s
	}
	neighborScores := map[string]float64{}
	viaGraph = map[string]bool{}

	current := seeds
	for _, decay := range decaySchedule {
		discoveredThisHop := map[string]bool{}
		for id, score := range current {
			for _, nb := range g.Neighbors(id) {
				if _, alreadyRanked := ranked[nb]; !alreadyRanked {
					neighborScores[nb] += score * decay
					viaGraph[nb] = true
					discoveredThisHop[nb] = true
				} else {
					neighborScores[nb] += score * decay * 0.5
				}
			}
		}
		next := map[string]float64{}
		for id := range discoveredThisHop {
			ranked[id] = neighborScores[id]
			next[id] = neighborScores[id]
		}
		current = next
	}

	additions = make(map[string]float64, len(viaGraph))
	for id := range viaGraph {
		additions[id] = neighborScores[id]
	}
	return additions, viaGraph
}
