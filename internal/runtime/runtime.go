// Package runtime is the scheduler's coordination core. It owns the registry,
// the admission queue and the slot accounting, and serializes every state
// mutation through a single mutex: whichever transition takes the lock first
// wins, and late or contradictory executor reports are discarded.
package runtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/FerryQ/ferryq-go/internal/queue"
	"github.com/FerryQ/ferryq-go/internal/registry"
)

// Control errors, translated to public sentinels by the root package.
var (
	ErrNotFound       = errors.New("runtime: task not found")
	ErrDuplicateID    = errors.New("runtime: duplicate task id")
	ErrNotCancellable = errors.New("runtime: task not cancellable")
	ErrNotFailed      = errors.New("runtime: task is not failed")
	ErrNotTerminal    = errors.New("runtime: task is not terminal")
)

// Logger is a minimal logging interface used internally by the runtime.
// It mirrors the public logger in the root package to avoid an import cycle.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...any) {}
func (noopLogger) Infof(string, ...any)  {}
func (noopLogger) Warnf(string, ...any)  {}
func (noopLogger) Errorf(string, ...any) {}

// Event mirrors the public event shape to avoid an import cycle.
type Event struct {
	TaskID   string
	Status   string
	Progress int
	Err      string
	At       int64
}

// EmitFunc receives lifecycle and progress events. It is called while the
// runtime lock is held so per-task order is preserved; it must not block and
// must not call back into the runtime.
type EmitFunc func(Event)

// Executor runs one transfer attempt. It is invoked on its own goroutine,
// outside the runtime lock, with ctx cancelled on task cancellation or Stop.
type Executor func(ctx context.Context, t registry.Task, report func(int)) error

type Config struct {
	// MaxConcurrent is the slot bound N. Values below 1 are raised to 1.
	MaxConcurrent int
	// SweepInterval is the retention sweeper tick. Default 1s.
	SweepInterval time.Duration
	Logger        Logger
}

// Runtime drives tasks through their lifecycle under the slot bound.
type Runtime struct {
	mu      sync.Mutex
	cfg     Config
	reg     *registry.Registry
	fifo    *queue.FIFO
	running map[string]*attempt
	active  int
	started bool
	exec    Executor
	emit    EmitFunc
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	log     Logger
}

// attempt identifies one execution of one task. Progress and completion
// reports carry the attempt pointer so stale callbacks from a superseded
// attempt can be told apart from live ones.
type attempt struct {
	n      int
	cancel context.CancelFunc
}

// New creates a runtime. exec must be non-nil; emit may be nil.
func New(cfg Config, exec Executor, emit EmitFunc) *Runtime {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Second
	}
	lg := cfg.Logger
	if lg == nil {
		lg = noopLogger{}
	}
	if emit == nil {
		emit = func(Event) {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runtime{
		cfg:     cfg,
		reg:     registry.New(),
		fifo:    queue.New(),
		running: make(map[string]*attempt),
		exec:    exec,
		emit:    emit,
		ctx:     ctx,
		cancel:  cancel,
		log:     lg,
	}
}

// Start begins dispatching queued tasks and launches the retention sweeper.
// It is idempotent and non-blocking.
func (rt *Runtime) Start() {
	rt.mu.Lock()
	if rt.started {
		rt.log.Warnf("runtime already started; ignoring Start()")
		rt.mu.Unlock()
		return
	}
	rt.started = true
	rt.log.Infof("runtime starting: max_concurrent=%d", rt.cfg.MaxConcurrent)
	rt.dispatchLocked()
	rt.mu.Unlock()

	rt.wg.Add(1)
	go rt.sweepLoop()
}

// Stop cancels in-flight transfers and waits for their goroutines and the
// sweeper to exit. Tasks interrupted mid-transfer finish as failed with the
// error the executor returned (typically the context error).
func (rt *Runtime) Stop() {
	rt.mu.Lock()
	if !rt.started {
		rt.log.Warnf("runtime not started; ignoring Stop()")
		rt.mu.Unlock()
		return
	}
	rt.started = false
	rt.mu.Unlock()
	rt.log.Infof("runtime stopping")

	rt.cancel()
	rt.wg.Wait()
}

// Admit registers a validated task and queues it. The record's identity and
// metadata fields must be set by the caller; lifecycle fields are owned here.
func (rt *Runtime) Admit(t *registry.Task) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	t.Status = registry.Queued
	t.CreatedAt = nowMs()
	if !rt.reg.Create(t) {
		return ErrDuplicateID
	}
	rt.fifo.Push(t.ID)
	rt.emit(Event{TaskID: t.ID, Status: registry.Queued, At: t.CreatedAt})
	rt.dispatchLocked()
	return nil
}

// Cancel aborts a queued or uploading task. Queued tasks leave the admission
// queue without ever running; uploading tasks get their context cancelled and
// their slot freed immediately.
func (rt *Runtime) Cancel(id string) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	t, ok := rt.reg.Get(id)
	if !ok {
		return ErrNotFound
	}
	switch t.Status {
	case registry.Queued:
		rt.fifo.Remove(id)
	case registry.Uploading:
		at := rt.running[id]
		delete(rt.running, id)
		rt.active--
		if at != nil {
			at.cancel()
		}
	default:
		return ErrNotCancellable
	}

	t.Status = registry.Cancelled
	t.EndedAt = nowMs()
	rt.emit(Event{TaskID: id, Status: registry.Cancelled, At: t.EndedAt})
	rt.log.Infof("cancelled: id=%s", id)
	rt.dispatchLocked()
	return nil
}

// Retry moves a failed task back to the queue tail. Appending to the tail
// rather than the head keeps a persistently failing task from starving others.
func (rt *Runtime) Retry(id string) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	t, ok := rt.reg.Get(id)
	if !ok {
		return ErrNotFound
	}
	if t.Status != registry.Failed {
		return ErrNotFailed
	}

	t.Status = registry.Queued
	t.LastError = ""
	t.Progress = 0
	t.StartedAt = 0
	t.EndedAt = 0
	rt.fifo.Push(id)
	rt.emit(Event{TaskID: id, Status: registry.Queued, At: nowMs()})
	rt.log.Infof("retry queued: id=%s attempts=%d", id, t.Attempts)
	rt.dispatchLocked()
	return nil
}

// Discard removes a settled task from the registry. Queued and uploading
// tasks must be cancelled first.
func (rt *Runtime) Discard(id string) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	t, ok := rt.reg.Get(id)
	if !ok {
		return ErrNotFound
	}
	if t.Status == registry.Queued || t.Status == registry.Uploading {
		return ErrNotTerminal
	}
	rt.reg.Remove(id)
	rt.log.Debugf("discarded: id=%s status=%s", id, t.Status)
	return nil
}

// Get returns a copy of the task record for id.
func (rt *Runtime) Get(id string) (registry.Task, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	t, ok := rt.reg.Get(id)
	if !ok {
		return registry.Task{}, false
	}
	return *t, true
}

// List returns copies of all records in admission order, optionally filtered
// by status.
func (rt *Runtime) List(status string) []registry.Task {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.reg.List(status)
}

// Active returns the number of occupied slots.
func (rt *Runtime) Active() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.active
}

// QueueLen returns the number of tasks waiting for a slot.
func (rt *Runtime) QueueLen() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.fifo.Len()
}

// dispatchLocked fills free slots from the queue head. Work-conserving: it
// loops until the bound is hit or the queue drains. Callers hold rt.mu.
func (rt *Runtime) dispatchLocked() {
	if !rt.started || rt.ctx.Err() != nil {
		return
	}
	for rt.active < rt.cfg.MaxConcurrent {
		id, ok := rt.fifo.Pop()
		if !ok {
			return
		}
		t, ok := rt.reg.Get(id)
		if !ok {
			// queue/status consistency means this cannot happen; do not crash on it
			rt.log.Errorf("dispatch: queued id missing from registry: id=%s", id)
			continue
		}

		now := nowMs()
		t.Status = registry.Uploading
		t.Attempts++
		t.StartedAt = now
		t.EndedAt = 0
		t.Progress = 0

		actx, acancel := context.WithCancel(rt.ctx)
		at := &attempt{n: t.Attempts, cancel: acancel}
		rt.running[id] = at
		rt.active++

		rt.emit(Event{TaskID: id, Status: registry.Uploading, At: now})
		rt.log.Debugf("dispatch: id=%s attempt=%d active=%d", id, t.Attempts, rt.active)

		snapshot := *t
		rt.wg.Add(1)
		go rt.runAttempt(actx, snapshot, at)
	}
}

func (rt *Runtime) runAttempt(ctx context.Context, t registry.Task, at *attempt) {
	defer rt.wg.Done()
	defer at.cancel()
	report := func(p int) { rt.reportProgress(t.ID, at, p) }
	err := rt.exec(ctx, t, report)
	rt.finish(t.ID, at, err)
}

// reportProgress applies one progress callback. Reports from a superseded
// attempt, or for a task no longer uploading, are logged and dropped.
func (rt *Runtime) reportProgress(id string, at *attempt, percent int) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	cur, ok := rt.running[id]
	if !ok || cur != at {
		rt.log.Debugf("progress for inactive task discarded: id=%s percent=%d", id, percent)
		return
	}
	t, ok := rt.reg.Get(id)
	if !ok || t.Status != registry.Uploading {
		rt.log.Warnf("progress for non-uploading task discarded: id=%s", id)
		return
	}

	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}
	if percent <= t.Progress {
		// monotonic within an attempt; duplicates are not re-emitted
		return
	}
	t.Progress = percent
	rt.emit(Event{TaskID: id, Status: registry.Uploading, Progress: percent, At: nowMs()})
}

// finish settles one attempt. A duplicate or late outcome, including one for
// a task cancelled while the executor was still winding down, finds its
// running entry gone and is discarded without touching state.
func (rt *Runtime) finish(id string, at *attempt, execErr error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	cur, ok := rt.running[id]
	if !ok || cur != at {
		rt.log.Debugf("stale outcome discarded: id=%s err=%v", id, execErr)
		return
	}
	delete(rt.running, id)
	rt.active--

	now := nowMs()
	var ev Event
	err := rt.reg.Update(id, func(t *registry.Task) {
		t.EndedAt = now
		if execErr != nil {
			t.Status = registry.Failed
			t.LastError = execErr.Error()
			ev = Event{TaskID: id, Status: registry.Failed, Err: t.LastError, At: now}
		} else {
			t.Status = registry.Completed
			ev = Event{TaskID: id, Status: registry.Completed, At: now}
		}
	})
	if err != nil {
		// discarded mid-flight; the outcome has nowhere to land
		rt.log.Warnf("finished task no longer in registry: id=%s", id)
		rt.dispatchLocked()
		return
	}

	if execErr != nil {
		rt.log.Warnf("transfer failed: id=%s attempt=%d err=%v", id, at.n, execErr)
	} else {
		rt.log.Debugf("transfer completed: id=%s attempt=%d", id, at.n)
	}
	rt.emit(ev)
	rt.dispatchLocked()
}

// sweepLoop periodically removes terminal tasks whose retention window has
// elapsed. Failed tasks are never swept: they wait for an explicit retry or
// discard so the failure stays visible.
func (rt *Runtime) sweepLoop() {
	defer rt.wg.Done()
	ticker := time.NewTicker(rt.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rt.ctx.Done():
			return
		case <-ticker.C:
			rt.sweep()
		}
	}
}

func (rt *Runtime) sweep() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	now := nowMs()
	for _, t := range rt.reg.List("") {
		if !registry.Terminal(t.Status) || t.Retention <= 0 {
			continue
		}
		if t.EndedAt+t.Retention.Milliseconds() <= now {
			rt.reg.Remove(t.ID)
			rt.log.Debugf("retention sweep: id=%s status=%s", t.ID, t.Status)
		}
	}
}

func nowMs() int64 { return time.Now().UnixMilli() }
