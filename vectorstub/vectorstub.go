// Package vectorstub names the abstract embedding/vector backend plug
// point the Non-goals reserve without shipping an implementation
// (§4.P, §9's module-level backend selection note). recall.Engine
// queries a Backend first and falls back to BM25F whenever one is nil
// or returns an error.
package vectorstub

// Hit mirrors recall.Hit's shape so this package has no dependency on
// the recall package; Engine.Recall converts between the two.
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

// Backend is the pluggable alternative to the in-process BM25F scorer.
// No implementation ships with this module; mem-os.json's
// "recall.backend" key names which one a deployment wires in.
type Backend interface {
	Index(id string, text string) error
	Query(queryText string, limit int) ([]Hit, error)
}
