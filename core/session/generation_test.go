package session

import (
	"sync"
	"testing"
)

func TestGenerations(t *testing.T) {
	gens := NewGenerations()

	first := gens.Next("results:A")
	second := gens.Next("results:A")
	if second <= first {
		t.Fatalf("Next() = %d after %d; want monotonic increase", second, first)
	}

	// only the latest issued generation may be applied
	if gens.Latest("results:A", first) {
		t.Error("Latest(first) = true; superseded generation must be dropped")
	}
	if !gens.Latest("results:A", second) {
		t.Error("Latest(second) = false; want true")
	}

	// keys are independent
	other := gens.Next("results:B")
	if !gens.Latest("results:A", second) || !gens.Latest("results:B", other) {
		t.Error("generations for distinct keys interfere")
	}
}

func TestGenerations_concurrent(t *testing.T) {
	gens := NewGenerations()

	var wg sync.WaitGroup
	const n = 50
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			gens.Next("marks")
		}()
	}
	wg.Wait()

	if !gens.Latest("marks", n) {
		t.Errorf("after %d Next() calls the latest generation is not %d", n, n)
	}
}
