package ferryq

import "time"

type options struct {
	id           string
	retention    time.Duration
	retentionSet bool
}

// Option is a function that configures task behavior during Admit.
type Option func(*options)

// TaskID sets a custom ID for the task. If not provided, a random UUID will be
// generated. Admitting a second task with the same ID yields ErrDuplicateTask.
func TaskID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

// Retention overrides the scheduler-wide terminal retention window for this
// task. Zero keeps the task until it is explicitly discarded.
func Retention(d time.Duration) Option {
	return func(o *options) {
		o.retention = d
		o.retentionSet = true
	}
}
