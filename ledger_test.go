package duet

import (
	"sync"
	"testing"
)

func TestLedger_Record(t *testing.T) {
	l := NewLedger()

	l.Record(AdapterGemini, Usage{InputTokens: 100, OutputTokens: 50}, 0.25)
	l.Record(AdapterGemini, Usage{InputTokens: 40, OutputTokens: 10}, 0.25)
	l.Record(AdapterClaude, Usage{InputTokens: 30, OutputTokens: 20}, 0.5)

	gemini := l.AdapterTotals(AdapterGemini)
	if gemini.InputTokens != 140 || gemini.OutputTokens != 60 {
		t.Errorf("gemini tokens = %d/%d, want 140/60", gemini.InputTokens, gemini.OutputTokens)
	}
	if gemini.Cost != 0.5 {
		t.Errorf("gemini cost = %v, want 0.5", gemini.Cost)
	}

	totals, grand := l.TotalCosts()
	if len(totals) != 2 {
		t.Errorf("totals for %d adapters, want 2", len(totals))
	}
	if grand != 1.0 {
		t.Errorf("grand total = %v, want 1.0", grand)
	}
}

func TestLedger_UnknownAdapterIsZero(t *testing.T) {
	l := NewLedger()

	if got := l.AdapterTotals(AdapterClaude); got != (Totals{}) {
		t.Errorf("empty ledger totals = %+v, want zero", got)
	}
}

func TestLedger_SnapshotIsolation(t *testing.T) {
	l := NewLedger()
	l.Record(AdapterGemini, Usage{InputTokens: 1}, 1)

	totals, _ := l.TotalCosts()
	entry := totals[AdapterGemini]
	entry.Cost = 999
	totals[AdapterGemini] = entry

	if got := l.AdapterTotals(AdapterGemini); got.Cost != 1 {
		t.Errorf("ledger mutated through snapshot: cost = %v", got.Cost)
	}
}

func TestLedger_ConcurrentRecord(t *testing.T) {
	l := NewLedger()

	const workers = 8
	const perWorker = 100

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				l.Record(AdapterGemini, Usage{InputTokens: 1, OutputTokens: 2}, 0.5)
			}
		}()
	}
	wg.Wait()

	got := l.AdapterTotals(AdapterGemini)
	if got.InputTokens != workers*perWorker {
		t.Errorf("input tokens = %d, want %d", got.InputTokens, workers*perWorker)
	}
	if got.OutputTokens != 2*workers*perWorker {
		t.Errorf("output tokens = %d, want %d", got.OutputTokens, 2*workers*perWorker)
	}
	if got.Cost != 0.5*workers*perWorker {
		t.Errorf("cost = %v, want %v", got.Cost, 0.5*workers*perWorker)
	}
}
