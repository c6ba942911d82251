package globals

import (
	"sync"
	"testing"
)

func TestCounters(t *testing.T) {
	InitCounter()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			IncrementNoOfCalls()
			IncrementReconnects()
			IncrementDroppedEvents()
		}()
	}
	wg.Wait()
	DecrementNoOfCalls()

	if got := GetNoOfCalls(); got != 49 {
		t.Errorf("calls = %d, want 49", got)
	}
	if got := GetReconnects(); got != 50 {
		t.Errorf("reconnects = %d, want 50", got)
	}
	if got := GetDroppedEvents(); got != 50 {
		t.Errorf("dropped = %d, want 50", got)
	}
}
