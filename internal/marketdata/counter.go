package marketdata

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// apiCallCounter persists a daily API-call count to disk, resetting at
// day rollover, matching the original's api_calls_today/last_call_date
// globals. The file is api_calls_today.json inside the market-data cache
// directory (data/cache by default), not under logs/. Not an invariant of the core
// exchange — a thin facade around the upstream vendor's call budget.
type apiCallCounter struct {
	path string
	mu   sync.Mutex
}

type counterState struct {
	Count     int       `json:"api_calls_today"`
	LastReset time.Time `json:"last_call_date"`
}

func newAPICallCounter(path string) *apiCallCounter {
	return &apiCallCounter{path: path}
}

func (c *apiCallCounter) load() counterState {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return counterState{LastReset: time.Now()}
	}
	var st counterState
	if err := json.Unmarshal(raw, &st); err != nil {
		return counterState{LastReset: time.Now()}
	}
	return st
}

func (c *apiCallCounter) save(st counterState) {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return
	}
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(c.path, raw, 0o644)
}

func (c *apiCallCounter) increment() {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.load()
	now := time.Now()
	if now.YearDay() != st.LastReset.YearDay() || now.Year() != st.LastReset.Year() {
		st.Count = 0
		st.LastReset = now
	}
	st.Count++
	c.save(st)
}
