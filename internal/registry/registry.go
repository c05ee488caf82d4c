// Package registry owns the canonical record of every admitted task.
// It is passive storage: the runtime is the single writer and serializes all
// access through its coordination lock, so the registry itself carries no lock.
package registry

import (
	"errors"
	"time"
)

// Task statuses, mirrored from the public package to avoid an import cycle.
const (
	Queued    = "queued"
	Uploading = "uploading"
	Completed = "completed"
	Failed    = "failed"
	Cancelled = "cancelled"
)

// ErrNotFound is returned by Update when the id has been removed mid-flight,
// e.g. a discard racing an in-flight completion.
var ErrNotFound = errors.New("registry: task not found")

// Terminal reports whether a status accepts no further transitions.
func Terminal(status string) bool {
	return status == Completed || status == Cancelled
}

// Task is the mutable internal task record. Callers outside the runtime only
// ever see copies of it.
type Task struct {
	ID        string
	Name      string
	SizeBytes int64
	Type      string
	Payload   any
	Status    string
	Progress  int
	Attempts  int
	CreatedAt int64
	StartedAt int64
	EndedAt   int64
	LastError string
	// Retention is how long the record outlives a terminal transition.
	// Zero keeps it until an explicit removal.
	Retention time.Duration

	seq uint64
}

// Registry maps task ids to records and preserves admission order for listings.
type Registry struct {
	tasks   map[string]*Task
	nextSeq uint64
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{tasks: make(map[string]*Task)}
}

// Create inserts a record. It returns false when the id is already tracked;
// ids are never reused, so the caller must pick another.
func (r *Registry) Create(t *Task) bool {
	if _, ok := r.tasks[t.ID]; ok {
		return false
	}
	r.nextSeq++
	t.seq = r.nextSeq
	r.tasks[t.ID] = t
	return true
}

// Get returns the record for id, or false when unknown. The returned pointer
// is the live record; only the runtime may mutate it.
func (r *Registry) Get(id string) (*Task, bool) {
	t, ok := r.tasks[id]
	return t, ok
}

// Update applies mutate to the record for id. It returns ErrNotFound when the
// id is no longer tracked.
func (r *Registry) Update(id string, mutate func(*Task)) error {
	t, ok := r.tasks[id]
	if !ok {
		return ErrNotFound
	}
	mutate(t)
	return nil
}

// Remove deletes the record for id, reporting whether it existed.
func (r *Registry) Remove(id string) bool {
	if _, ok := r.tasks[id]; !ok {
		return false
	}
	delete(r.tasks, id)
	return true
}

// Len returns the number of tracked tasks.
func (r *Registry) Len() int { return len(r.tasks) }

// List returns copies of all records in admission order. When status is
// non-empty only matching records are returned.
func (r *Registry) List(status string) []Task {
	out := make([]Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		if status != "" && t.Status != status {
			continue
		}
		out = append(out, *t)
	}
	sortBySeq(out)
	return out
}

// CountByStatus returns how many tracked tasks are in the given status.
func (r *Registry) CountByStatus(status string) int {
	n := 0
	for _, t := range r.tasks {
		if t.Status == status {
			n++
		}
	}
	return n
}

func sortBySeq(tasks []Task) {
	// insertion sort: listings are small and mostly ordered already
	for i := 1; i < len(tasks); i++ {
		for j := i; j > 0 && tasks[j].seq < tasks[j-1].seq; j-- {
			tasks[j], tasks[j-1] = tasks[j-1], tasks[j]
		}
	}
}
