package coordinator

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestAdmitCreate_SerializesPerPath(t *testing.T) {
	c := New()

	if !c.AdmitCreate("/w/a.txt") {
		t.Fatal("first AdmitCreate should pass")
	}
	if c.AdmitCreate("/w/a.txt") {
		t.Error("second AdmitCreate should be rejected while in flight")
	}
	if !c.AdmitCreate("/w/b.txt") {
		t.Error("different path should be independent")
	}

	c.Release("/w/a.txt")
	if !c.AdmitCreate("/w/a.txt") {
		t.Error("AdmitCreate should pass again after Release")
	}
}

func TestAdmitModify_Debounces(t *testing.T) {
	c := NewWithOptions(Options{DebounceWindow: 50 * time.Millisecond})

	if !c.AdmitModify("/w/a.txt") {
		t.Fatal("first AdmitModify should pass")
	}
	c.Release("/w/a.txt")

	if c.AdmitModify("/w/a.txt") {
		t.Error("AdmitModify inside the debounce window should be rejected")
	}

	time.Sleep(70 * time.Millisecond)
	if !c.AdmitModify("/w/a.txt") {
		t.Error("AdmitModify after the window should pass")
	}
}

func TestAdmitModify_StampsEvenWhenBusy(t *testing.T) {
	c := NewWithOptions(Options{DebounceWindow: 50 * time.Millisecond})

	if !c.AdmitModify("/w/a.txt") {
		t.Fatal("first AdmitModify should pass")
	}

	// Let the original stamp age out, then get rejected by the
	// in-flight check. The rejection still refreshes the stamp.
	time.Sleep(70 * time.Millisecond)
	if c.AdmitModify("/w/a.txt") {
		t.Fatal("AdmitModify should be rejected while in flight")
	}

	c.Release("/w/a.txt")
	if c.AdmitModify("/w/a.txt") {
		t.Error("refreshed stamp should still debounce after Release")
	}

	time.Sleep(70 * time.Millisecond)
	if !c.AdmitModify("/w/a.txt") {
		t.Error("AdmitModify should pass once the refreshed stamp ages out")
	}
}

func TestAdmitCreate_IgnoresDebounce(t *testing.T) {
	c := NewWithOptions(Options{DebounceWindow: time.Hour})

	if !c.AdmitModify("/w/a.txt") {
		t.Fatal("first AdmitModify should pass")
	}
	c.Release("/w/a.txt")

	if !c.AdmitCreate("/w/a.txt") {
		t.Error("AdmitCreate should not consult the debounce stamp")
	}
}

func TestRelease_PrunesStaleStamps(t *testing.T) {
	c := NewWithOptions(Options{
		DebounceWindow: time.Millisecond,
		PruneThreshold: 4,
		PruneMaxAge:    10 * time.Millisecond,
	})

	paths := []string{"/w/a", "/w/b", "/w/c", "/w/d", "/w/e", "/w/f"}
	for _, p := range paths {
		if !c.AdmitModify(p) {
			t.Fatalf("AdmitModify(%s) should pass", p)
		}
	}

	time.Sleep(20 * time.Millisecond)
	c.Release(paths[0])

	c.mu.Lock()
	stamps := len(c.lastAccepted)
	c.mu.Unlock()
	if stamps != 0 {
		t.Errorf("got %d stamps after prune, want 0", stamps)
	}
}

func TestRelease_KeepsStampsBelowThreshold(t *testing.T) {
	c := NewWithOptions(Options{
		DebounceWindow: time.Millisecond,
		PruneThreshold: 10,
		PruneMaxAge:    time.Millisecond,
	})

	for _, p := range []string{"/w/a", "/w/b", "/w/c"} {
		c.AdmitModify(p)
	}

	time.Sleep(5 * time.Millisecond)
	c.Release("/w/a")

	c.mu.Lock()
	stamps := len(c.lastAccepted)
	c.mu.Unlock()
	if stamps != 3 {
		t.Errorf("got %d stamps, want 3 kept below threshold", stamps)
	}
}

func TestAdmitCreate_ConcurrentSinglePass(t *testing.T) {
	c := New()

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.AdmitCreate("/w/contended.txt") {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := admitted.Load(); got != 1 {
		t.Errorf("%d goroutines admitted, want exactly 1", got)
	}
	if got := c.InFlight(); got != 1 {
		t.Errorf("InFlight() = %d, want 1", got)
	}
}
