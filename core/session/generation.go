package session

import "sync"

// Generations guards views against stale in-flight responses: each issued
// query gets a generation number, and only the response carrying the latest
// generation for its key may be applied to view state. There is no request
// cancellation; a late response for an abandoned query is simply dropped.
type Generations struct {
	mu  sync.Mutex
	seq map[string]uint64
}

func NewGenerations() *Generations {
	return &Generations{seq: make(map[string]uint64)}
}

// Next issues the next generation for a query key, invalidating all
// previously issued generations for that key.
func (g *Generations) Next(key string) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq[key]++
	return g.seq[key]
}

// Latest reports whether gen is still the latest issued generation for key.
func (g *Generations) Latest(key string, gen uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq[key] == gen
}
