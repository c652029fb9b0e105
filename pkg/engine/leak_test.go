//go:build test

package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

var leakInputs = []string{
	"あ", "あい", "あり", "ありが", "ありがとう",
	"き", "きょ", "きょう", "きょうは", "きょうははれ",
	"が", "がっ", "がっこ", "がっこう",
}

// convert runs one full analyze/drain/destroy cycle.
func convert(t *testing.T, e *Engine, text string, confirm bool) {
	s, err := e.NewSession()
	if err != nil {
		t.Errorf("session: %v", err)
		return
	}
	defer s.Destroy()
	ok, err := s.Analyze(text, 0, len([]rune(text)), AnalyzeOptions{})
	if err != nil || !ok {
		return
	}
	c, err := s.NextCandidate()
	if err != nil {
		return
	}
	if confirm {
		if _, err := s.Confirm(c); err != nil {
			t.Errorf("confirm %q: %v", text, err)
		}
	}
}

type memSnapshot struct {
	alloc      int64
	goroutines int
}

func snapshot() memSnapshot {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	return memSnapshot{alloc: int64(m.Alloc), goroutines: runtime.NumGoroutine()}
}

func TestSessionMemoryBasic(t *testing.T) {
	for _, iterations := range []int{100, 500, 1000} {
		t.Run(fmt.Sprintf("iterations_%d", iterations), func(t *testing.T) {
			e := newEngine(t, t.TempDir(), DefaultOptions())
			baseline := snapshot()

			for i := 0; i < iterations; i++ {
				for _, text := range leakInputs {
					convert(t, e, text, false)
				}
			}

			final := snapshot()
			ops := iterations * len(leakInputs)
			memPerOp := float64(final.alloc-baseline.alloc) / float64(ops)
			t.Logf("iterations=%d ops=%d mem_delta=%d bytes mem_per_op=%.2f goroutine_delta=%d",
				iterations, ops, final.alloc-baseline.alloc, memPerOp, final.goroutines-baseline.goroutines)

			if memPerOp > 1000 {
				t.Errorf("excessive memory usage per operation: %.2f bytes", memPerOp)
			}
			if final.goroutines-baseline.goroutines > 2 {
				t.Errorf("goroutine leak detected: %d goroutines leaked", final.goroutines-baseline.goroutines)
			}
		})
	}
}

func TestSessionMemoryConcurrent(t *testing.T) {
	configs := []struct {
		workers             int
		iterationsPerWorker int
	}{
		{workers: 1, iterationsPerWorker: 400},
		{workers: 4, iterationsPerWorker: 100},
		{workers: 8, iterationsPerWorker: 50},
	}

	for _, cfg := range configs {
		t.Run(fmt.Sprintf("workers_%d_iter_%d", cfg.workers, cfg.iterationsPerWorker), func(t *testing.T) {
			memFile, err := os.Create(filepath.Join(t.TempDir(), "concurrent_memory.prof"))
			if err != nil {
				t.Fatalf("profile file creation failed: %v", err)
			}
			defer memFile.Close()

			e := newEngine(t, t.TempDir(), DefaultOptions())
			baseline := snapshot()

			var wg sync.WaitGroup
			for w := 0; w < cfg.workers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < cfg.iterationsPerWorker; i++ {
						for _, text := range leakInputs {
							convert(t, e, text, i%10 == 0)
						}
					}
				}()
			}
			wg.Wait()

			final := snapshot()
			ops := cfg.workers * cfg.iterationsPerWorker * len(leakInputs)
			memPerOp := float64(final.alloc-baseline.alloc) / float64(ops)
			t.Logf("workers=%d ops=%d mem_delta=%d bytes mem_per_op=%.2f goroutine_delta=%d",
				cfg.workers, ops, final.alloc-baseline.alloc, memPerOp, final.goroutines-baseline.goroutines)

			if err := pprof.WriteHeapProfile(memFile); err != nil {
				t.Errorf("heap profile write failed: %v", err)
			}
			// Learned entries grow with confirmations, so the bound is looser here.
			if memPerOp > 2000 {
				t.Errorf("excessive memory usage per operation: %.2f bytes", memPerOp)
			}
			if final.goroutines-baseline.goroutines > 3 {
				t.Errorf("goroutine leak detected: %d goroutines leaked", final.goroutines-baseline.goroutines)
			}
		})
	}
}
