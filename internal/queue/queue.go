// Package queue provides the FIFO admission queue of task ids.
// It holds ids only; task records live in the registry. The queue is not
// safe for concurrent use on its own: the runtime serializes access through
// its single coordination lock.
package queue

// FIFO is an ordered queue of task ids supporting mid-queue removal, which a
// cancellation of a still-queued task needs.
type FIFO struct {
	ids  []string
	head int
}

// New creates an empty FIFO.
func New() *FIFO { return &FIFO{} }

// Push appends an id to the tail.
func (q *FIFO) Push(id string) {
	q.ids = append(q.ids, id)
}

// Pop removes and returns the head id. It returns false when the queue is empty.
func (q *FIFO) Pop() (string, bool) {
	if q.head >= len(q.ids) {
		return "", false
	}
	id := q.ids[q.head]
	q.ids[q.head] = ""
	q.head++
	if q.head == len(q.ids) {
		q.ids = q.ids[:0]
		q.head = 0
	}
	return id, true
}

// Remove deletes the first occurrence of id, preserving the order of the rest.
// It returns false when the id is not queued.
func (q *FIFO) Remove(id string) bool {
	for i := q.head; i < len(q.ids); i++ {
		if q.ids[i] == id {
			q.ids = append(q.ids[:i], q.ids[i+1:]...)
			if q.head == len(q.ids) {
				q.ids = q.ids[:0]
				q.head = 0
			}
			return true
		}
	}
	return false
}

// Contains reports whether id is currently queued.
func (q *FIFO) Contains(id string) bool {
	for i := q.head; i < len(q.ids); i++ {
		if q.ids[i] == id {
			return true
		}
	}
	return false
}

// Len returns the number of queued ids.
func (q *FIFO) Len() int { return len(q.ids) - q.head }

// Snapshot returns the queued ids in order. The returned slice is owned by the caller.
func (q *FIFO) Snapshot() []string {
	out := make([]string, q.Len())
	copy(out, q.ids[q.head:])
	return out
}
