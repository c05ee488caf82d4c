package ferryq

// Status represents a task lifecycle state managed by the Scheduler.
// Use the exported constants (StatusQueued, StatusUploading, etc.) instead of
// raw strings to avoid typos.
type Status string

const (
	// StatusQueued contains tasks admitted and waiting for a free slot.
	StatusQueued Status = "queued"
	// StatusUploading contains tasks currently held by the transfer executor.
	StatusUploading Status = "uploading"
	// StatusCompleted contains tasks whose transfer finished successfully.
	StatusCompleted Status = "completed"
	// StatusFailed contains tasks whose transfer reported an error; recoverable via Retry.
	StatusFailed Status = "failed"
	// StatusCancelled contains tasks aborted by caller request.
	StatusCancelled Status = "cancelled"
)

// AllStatuses lists every valid task status in a stable order.
var AllStatuses = []Status{StatusQueued, StatusUploading, StatusCompleted, StatusFailed, StatusCancelled}

// String returns the raw string value of the status.
func (s Status) String() string { return string(s) }

// Terminal reports whether the status accepts no further transitions.
// Failed is not terminal: an explicit Retry moves it back to Queued.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseStatus converts a string into a Status, returning an error for unknown values.
func ParseStatus(s string) (Status, error) {
	switch s {
	case string(StatusQueued):
		return StatusQueued, nil
	case string(StatusUploading):
		return StatusUploading, nil
	case string(StatusCompleted):
		return StatusCompleted, nil
	case string(StatusFailed):
		return StatusFailed, nil
	case string(StatusCancelled):
		return StatusCancelled, nil
	default:
		return "", ErrUnknownStatus
	}
}
