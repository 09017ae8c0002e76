package duet

import "sync"

// Totals are the accumulated usage figures for one adapter.
type Totals struct {
	InputTokens  int     `json:"inputTokens"`
	OutputTokens int     `json:"outputTokens"`
	Cost         float64 `json:"cost"`
}

// Ledger accumulates token usage and cost per adapter for the lifetime of
// the process. Totals are monotonically non-decreasing; accumulation is
// lock-protected so concurrent session completions never lose updates.
type Ledger struct {
	mu     sync.Mutex
	totals map[AdapterID]*Totals
}

// NewLedger creates an empty cost ledger.
func NewLedger() *Ledger {
	return &Ledger{totals: make(map[AdapterID]*Totals)}
}

// Record adds one step's usage and cost to an adapter's running totals.
// Called synchronously by the engine whenever a step is recorded.
func (l *Ledger) Record(actor AdapterID, usage Usage, cost float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.totals[actor]
	if !ok {
		t = &Totals{}
		l.totals[actor] = t
	}
	t.InputTokens += usage.InputTokens
	t.OutputTokens += usage.OutputTokens
	t.Cost += cost
}

// AdapterTotals returns the current totals for one adapter.
func (l *Ledger) AdapterTotals(actor AdapterID) Totals {
	l.mu.Lock()
	defer l.mu.Unlock()

	if t, ok := l.totals[actor]; ok {
		return *t
	}
	return Totals{}
}

// TotalCosts returns a snapshot of all per-adapter totals plus the grand
// total cost.
func (l *Ledger) TotalCosts() (map[AdapterID]Totals, float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	snapshot := make(map[AdapterID]Totals, len(l.totals))
	var grand float64
	for actor, t := range l.totals {
		snapshot[actor] = *t
		grand += t.Cost
	}
	return snapshot, grand
}
