package ferryq

import (
	"io"
	"sync"
)

// Event is a lifecycle or progress notification published by the Scheduler.
// Events for a single task are delivered in the order its transitions were
// applied; no ordering is guaranteed across different tasks.
type Event struct {
	// TaskID identifies the task the event refers to.
	TaskID string `json:"task_id"`
	// Status is the task status after the transition that produced the event.
	Status Status `json:"status"`
	// Progress is the transfer progress (0..100), meaningful for uploading events.
	Progress int `json:"progress,omitempty"`
	// Err is the error message for failure events.
	Err string `json:"err,omitempty"`
	// At is the emission timestamp (ms).
	At int64 `json:"at"`
}

// EventHandler consumes scheduler events. Handlers run on the scheduler's
// single dispatch goroutine; a slow handler delays delivery to every
// subscriber, so expensive work should be handed off by the handler itself.
type EventHandler func(Event)

// Subscription is an opaque handle identifying one subscriber.
type Subscription struct{ id uint64 }

// emitter fans events out to subscribers from a single dispatch goroutine,
// preserving publish order and isolating handler panics.
type emitter struct {
	mu      sync.Mutex
	subs    map[uint64]EventHandler
	nextID  uint64
	pending []Event
	wake    chan struct{}
	closed  bool
	wg      sync.WaitGroup
	log     Logger
}

func newEmitter(log Logger) *emitter {
	e := &emitter{
		subs: make(map[uint64]EventHandler),
		wake: make(chan struct{}, 1),
		log:  log,
	}
	e.wg.Add(1)
	go e.dispatchLoop()
	return e
}

func (e *emitter) subscribe(h EventHandler) Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.subs[id] = h
	return Subscription{id: id}
}

func (e *emitter) unsubscribe(s Subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.subs, s.id)
}

// publish appends the event to the pending buffer and wakes the dispatcher.
// It never blocks; the buffer grows with the backlog.
func (e *emitter) publish(ev Event) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.log.Debugf("emitter closed; dropping event id=%s status=%s", ev.TaskID, ev.Status)
		return
	}
	e.pending = append(e.pending, ev)
	e.mu.Unlock()
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// close stops accepting events, drains what was already published and waits
// for the dispatch goroutine to exit.
func (e *emitter) close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()
	select {
	case e.wake <- struct{}{}:
	default:
	}
	e.wg.Wait()
}

func (e *emitter) dispatchLoop() {
	defer e.wg.Done()
	for {
		e.mu.Lock()
		batch := e.pending
		e.pending = nil
		closed := e.closed
		handlers := make([]EventHandler, 0, len(e.subs))
		for _, h := range e.subs {
			handlers = append(handlers, h)
		}
		e.mu.Unlock()

		for _, ev := range batch {
			for _, h := range handlers {
				e.deliver(h, ev)
			}
		}

		if len(batch) == 0 {
			if closed {
				return
			}
			<-e.wake
		}
	}
}

// deliver invokes one handler, catching panics so a broken subscriber cannot
// stall delivery to the others or corrupt scheduler state.
func (e *emitter) deliver(h EventHandler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Errorf("event handler panic: id=%s status=%s panic=%v", ev.TaskID, ev.Status, r)
		}
	}()
	h(ev)
}

// NewJSONEventWriter returns a handler that writes each event as one JSON line
// to w, using the default encoder. Useful for feeding an out-of-process UI.
// Write errors are logged and otherwise ignored.
func NewJSONEventWriter(w io.Writer, log Logger) EventHandler {
	if log == nil {
		log = NewFmtLogger()
	}
	var enc Encoder = &JSONEncoder{}
	return func(ev Event) {
		b, err := enc.Encode(ev)
		if err != nil {
			log.Errorf("event encode failed: id=%s err=%v", ev.TaskID, err)
			return
		}
		if _, err := w.Write(append(b, '\n')); err != nil {
			log.Warnf("event write failed: id=%s err=%v", ev.TaskID, err)
		}
	}
}
