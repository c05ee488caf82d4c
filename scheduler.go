// Package ferryq is a bounded-concurrency upload scheduler. It admits and
// validates file transfer tasks, queues them FIFO, runs at most a configured
// number concurrently through an injected transfer executor, and publishes
// lifecycle and progress events for UI consumers.
package ferryq

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/FerryQ/ferryq-go/internal/registry"
	rtm "github.com/FerryQ/ferryq-go/internal/runtime"
	"github.com/google/uuid"
)

// Config defines the configuration for a Scheduler.
type Config struct {
	// MaxConcurrent is the number of transfers allowed to run at once. Default 3.
	MaxConcurrent int
	// MaxPayloadSize is the admission size cap in bytes. Default DefaultMaxPayloadSize.
	MaxPayloadSize int64
	// AllowedTypes is the admission allow-list of declared types. Empty accepts all.
	AllowedTypes []string
	// TerminalRetention is how long completed and cancelled tasks stay queryable
	// before the sweeper removes them. Zero keeps them until Discard.
	TerminalRetention time.Duration
	// Logger is the logger used for scheduler events.
	Logger Logger
}

// Scheduler coordinates upload tasks for one client session. The admission
// queue is unbounded: only running transfers count against MaxConcurrent, so
// callers wanting backpressure must watch QueueLen themselves.
//
// A Scheduler must be constructed with New, started with Start and released
// with Stop.
type Scheduler struct {
	rt      *rtm.Runtime
	em      *emitter
	policy  Policy
	cfg     Config
	mu      sync.Mutex
	started bool
	log     Logger
}

// New creates a Scheduler with the given configuration and transfer executor.
func New(cfg Config, exec Executor) *Scheduler {
	l := cfg.Logger
	if l == nil {
		l = NewFmtLogger()
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 3
	}

	em := newEmitter(l)
	emit := func(ev rtm.Event) {
		em.publish(Event{
			TaskID:   ev.TaskID,
			Status:   Status(ev.Status),
			Progress: ev.Progress,
			Err:      ev.Err,
			At:       ev.At,
		})
	}
	run := func(ctx context.Context, t registry.Task, report func(int)) error {
		return exec.Execute(ctx, viewOf(t), t.Payload, ProgressFunc(report))
	}

	rt := rtm.New(rtm.Config{
		MaxConcurrent: cfg.MaxConcurrent,
		Logger:        rtLogger{Logger: l},
	}, run, emit)

	return &Scheduler{
		rt:     rt,
		em:     em,
		policy: Policy{MaxPayloadSize: cfg.MaxPayloadSize, AllowedTypes: cfg.AllowedTypes},
		cfg:    cfg,
		log:    l,
	}
}

// Start launches the dispatch of queued tasks and the retention sweeper.
// It is idempotent and non-blocking. Tasks may be admitted before Start;
// they wait in the queue.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.log.Warnf("scheduler already started; ignoring Start()")
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()
	s.log.Infof("starting scheduler: max_concurrent=%d", s.cfg.MaxConcurrent)
	s.rt.Start()
}

// Stop cancels in-flight transfers, waits for them to settle and flushes
// pending events to subscribers. A stopped scheduler cannot be restarted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	wasStarted := s.started
	s.started = false
	s.mu.Unlock()
	if wasStarted {
		s.log.Infof("stopping scheduler")
		s.rt.Stop()
	} else {
		s.log.Warnf("scheduler not started; stopping event delivery only")
	}
	s.em.close()
}

// Admit validates a submission and, if accepted, registers and queues it.
// Rejection is reported synchronously through the result's Reasons together
// with ErrRejected; rejected tasks never enter the registry. The payload is
// held by reference only and handed to the executor untouched.
func (s *Scheduler) Admit(meta FileMeta, payload any, opts ...Option) (AdmissionResult, error) {
	if reasons := s.policy.Validate(meta); len(reasons) > 0 {
		s.log.Debugf("admission rejected: name=%q reasons=%v", meta.Name, reasons)
		return AdmissionResult{Accepted: false, Reasons: reasons}, ErrRejected
	}

	cfg := &options{}
	for _, opt := range opts {
		opt(cfg)
	}
	id := cfg.id
	if id == "" {
		id = uuid.NewString()
	}
	retention := s.cfg.TerminalRetention
	if cfg.retentionSet {
		retention = cfg.retention
	}

	rec := &registry.Task{
		ID:        id,
		Name:      meta.Name,
		SizeBytes: meta.SizeBytes,
		Type:      meta.Type,
		Payload:   payload,
		Retention: retention,
	}
	if err := s.rt.Admit(rec); err != nil {
		return AdmissionResult{}, mapErr(err)
	}
	s.log.Debugf("admitted: id=%s name=%q size=%d", id, meta.Name, meta.SizeBytes)
	return AdmissionResult{Accepted: true, ID: id}, nil
}

// Cancel aborts a queued or uploading task. It returns ErrTaskNotFound for
// unknown ids and ErrNotCancellable for tasks that already settled.
func (s *Scheduler) Cancel(id string) error {
	return mapErr(s.rt.Cancel(id))
}

// Retry re-queues a failed task at the tail of the admission queue, clearing
// its last error. It returns ErrNotFailed for tasks in any other state.
func (s *Scheduler) Retry(id string) error {
	return mapErr(s.rt.Retry(id))
}

// Discard removes a completed, cancelled or failed task from the registry.
// It returns ErrNotTerminal while the task could still make progress.
func (s *Scheduler) Discard(id string) error {
	return mapErr(s.rt.Discard(id))
}

// GetTask returns a read-only view of the task, or ErrTaskNotFound.
func (s *Scheduler) GetTask(id string) (TaskView, error) {
	t, ok := s.rt.Get(id)
	if !ok {
		return TaskView{}, ErrTaskNotFound
	}
	return viewOf(t), nil
}

// ListTasks returns views of all tracked tasks in admission order. A
// non-empty status restricts the listing to that state.
func (s *Scheduler) ListTasks(status Status) []TaskView {
	recs := s.rt.List(string(status))
	out := make([]TaskView, 0, len(recs))
	for _, t := range recs {
		out = append(out, viewOf(t))
	}
	return out
}

// Active returns the number of occupied transfer slots.
func (s *Scheduler) Active() int { return s.rt.Active() }

// QueueLen returns the number of tasks waiting for a slot.
func (s *Scheduler) QueueLen() int { return s.rt.QueueLen() }

// Subscribe registers an event handler and returns its handle.
func (s *Scheduler) Subscribe(h EventHandler) Subscription {
	return s.em.subscribe(h)
}

// Unsubscribe removes a previously registered handler.
func (s *Scheduler) Unsubscribe(sub Subscription) {
	s.em.unsubscribe(sub)
}

// Snapshot encodes the full admission-ordered task listing with the default
// encoder, for export to out-of-process consumers.
func (s *Scheduler) Snapshot() ([]byte, error) {
	var enc Encoder = &JSONEncoder{}
	return enc.Encode(s.ListTasks(""))
}

// ParseSnapshot decodes a listing produced by Snapshot.
func ParseSnapshot(data []byte) ([]TaskView, error) {
	var enc Encoder = &JSONEncoder{}
	var out []TaskView
	if err := enc.Decode(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func viewOf(t registry.Task) TaskView {
	return TaskView{
		ID:        t.ID,
		Name:      t.Name,
		SizeBytes: t.SizeBytes,
		Type:      t.Type,
		Status:    Status(t.Status),
		Progress:  t.Progress,
		Attempts:  t.Attempts,
		CreatedAt: t.CreatedAt,
		StartedAt: t.StartedAt,
		EndedAt:   t.EndedAt,
		LastError: t.LastError,
	}
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rtm.ErrNotFound):
		return ErrTaskNotFound
	case errors.Is(err, rtm.ErrDuplicateID):
		return ErrDuplicateTask
	case errors.Is(err, rtm.ErrNotCancellable):
		return ErrNotCancellable
	case errors.Is(err, rtm.ErrNotFailed):
		return ErrNotFailed
	case errors.Is(err, rtm.ErrNotTerminal):
		return ErrNotTerminal
	}
	return err
}

// rtLogger adapts the public Logger to the internal runtime logger interface.
type rtLogger struct{ Logger }
