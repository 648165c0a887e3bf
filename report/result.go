package report

import (
	"fmt"
	"sync"
	"time"

	"github.com/rlch/schemagate/engine"
)

// Entry is the outcome of one batch entity.
type Entry struct {
	// Source is the batch file the entity came from.
	Source string

	// Index is the position of the entity within its batch.
	Index int

	// Name describes the entity, e.g. "bob-[knows]->jim".
	Name string

	Kind    engine.Kind
	Outcome engine.Outcome
}

// Label returns "source#index name".
func (e Entry) Label() string {
	if e.Source == "" {
		return fmt.Sprintf("#%d %s", e.Index, e.Name)
	}

	return fmt.Sprintf("%s#%d %s", e.Source, e.Index, e.Name)
}

// Result accumulates entries during a run.
type Result struct {
	mu sync.RWMutex

	StartTime time.Time
	EndTime   time.Time

	Total       int
	Passed      int
	Failed      int
	StoreErrors int

	// Entries are in the order they were added.
	Entries []Entry
}

// NewResult creates an initialized Result.
func NewResult() *Result {
	return &Result{StartTime: time.Now()}
}

// Add records an entry.
func (r *Result) Add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Entries = append(r.Entries, e)
	r.Total++

	switch {
	case e.Outcome.Success:
		r.Passed++
	case e.Outcome.IsStoreError():
		r.StoreErrors++
	default:
		r.Failed++
	}
}

// Finish marks the result as complete.
func (r *Result) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.EndTime = time.Now()
}

// Elapsed returns the total run time.
func (r *Result) Elapsed() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.EndTime.IsZero() {
		return time.Since(r.StartTime)
	}

	return r.EndTime.Sub(r.StartTime)
}

// Ok returns true if every entity passed.
func (r *Result) Ok() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.Failed == 0 && r.StoreErrors == 0
}

// Failures returns the entries that did not pass, in order.
func (r *Result) Failures() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var failed []Entry

	for _, e := range r.Entries {
		if !e.Outcome.Success {
			failed = append(failed, e)
		}
	}

	return failed
}
