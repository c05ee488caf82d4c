package ferryq

import "context"

// ProgressFunc reports transfer progress as a percentage (0..100).
// The scheduler clamps out-of-range values and discards regressions and
// reports arriving after the task left the uploading state.
type ProgressFunc func(percent int)

// Executor performs the actual byte transfer for a task. The scheduler calls
// Execute once per attempt, outside of any internal lock, with ctx cancelled
// when the task is cancelled or the scheduler stops. The returned error is the
// single done outcome: nil completes the task, non-nil fails it. Execute must
// stop calling report after it returns or after observing ctx cancellation;
// stray reports are tolerated and discarded.
type Executor interface {
	Execute(ctx context.Context, task TaskView, payload any, report ProgressFunc) error
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(ctx context.Context, task TaskView, payload any, report ProgressFunc) error

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, task TaskView, payload any, report ProgressFunc) error {
	return f(ctx, task, payload, report)
}

// Middleware is a function that wraps an ExecutorFunc to provide cross-cutting concerns.
type Middleware func(ExecutorFunc) ExecutorFunc

// Mux routes tasks to executors based on their declared type. It implements
// Executor itself, so it can be handed directly to NewScheduler.
type Mux struct {
	executors   map[string]Executor
	fallback    Executor
	middlewares []Middleware
}

// NewMux creates a new executor Mux.
func NewMux() *Mux {
	return &Mux{
		executors: make(map[string]Executor),
	}
}

// Handle registers an executor for a specific declared file type.
func (m *Mux) Handle(fileType string, e Executor) {
	m.executors[fileType] = e
}

// Default registers the executor used when no type-specific one matches.
func (m *Mux) Default(e Executor) {
	m.fallback = e
}

// Use adds middleware(s) to the mux. Middlewares are executed in the order they are added.
func (m *Mux) Use(mw Middleware) {
	m.middlewares = append(m.middlewares, mw)
}

// Execute dispatches to the executor registered for the task's declared type,
// falling back to the default. It returns ErrNoExecutor when neither exists.
func (m *Mux) Execute(ctx context.Context, task TaskView, payload any, report ProgressFunc) error {
	e, ok := m.executors[task.Type]
	if !ok {
		e = m.fallback
	}
	if e == nil {
		return ErrNoExecutor
	}
	fn := ExecutorFunc(e.Execute)
	for i := len(m.middlewares) - 1; i >= 0; i-- {
		fn = m.middlewares[i](fn)
	}
	return fn(ctx, task, payload, report)
}
