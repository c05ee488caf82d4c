package ferryq

// FileMeta describes a submitted file at admission time.
// The payload itself is never inspected; only the declared metadata is validated.
type FileMeta struct {
	// Name is the display name of the file. Informational only.
	Name string `json:"name,omitempty"`
	// SizeBytes is the declared payload size.
	SizeBytes int64 `json:"size_bytes"`
	// Type is the declared extension or MIME category (e.g. "pdf", "image/png").
	Type string `json:"type"`
}

// TaskView is a read-only projection of a tracked task.
// It is safe to retain: the Scheduler copies it out of the registry on every
// query and never hands out the mutable internal record.
type TaskView struct {
	// ID is the unique identifier assigned at admission. Never reused.
	ID string `json:"id"`
	// Name is the display name captured from the submitted FileMeta.
	Name string `json:"name,omitempty"`
	// SizeBytes is the declared payload size captured at admission.
	SizeBytes int64 `json:"size_bytes"`
	// Type is the declared file type captured at admission.
	Type string `json:"type"`
	// Status is the current lifecycle state.
	Status Status `json:"status"`
	// Progress is the transfer progress (0..100). Only meaningful while
	// Status is StatusUploading; consumers must treat the status as
	// authoritative over a stale progress number.
	Progress int `json:"progress,omitempty"`
	// Attempts counts how many times the task entered the uploading state.
	Attempts int `json:"attempts"`
	// CreatedAt is the timestamp (ms) when the task was admitted.
	CreatedAt int64 `json:"created_at,omitempty"`
	// StartedAt is the timestamp (ms) when the current or last attempt began.
	StartedAt int64 `json:"started_at,omitempty"`
	// EndedAt is the timestamp (ms) when the task left the uploading state.
	EndedAt int64 `json:"ended_at,omitempty"`
	// LastError is the error message from the last failed attempt.
	// Populated only while Status is StatusFailed; cleared on retry.
	LastError string `json:"last_error,omitempty"`
}

// AdmissionResult is the synchronous outcome of Admit.
type AdmissionResult struct {
	// Accepted reports whether the task entered the registry and queue.
	Accepted bool `json:"accepted"`
	// ID is the assigned task identifier. Empty when rejected.
	ID string `json:"id,omitempty"`
	// Reasons lists every validation violation when rejected.
	Reasons []RejectReason `json:"reasons,omitempty"`
}
