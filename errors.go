package ferryq

import "errors"

// ErrDuplicateTask is returned when Admit is called with a TaskID that is already tracked.
var ErrDuplicateTask = errors.New("ferryq: duplicate task id")

// ErrUnknownStatus is returned when an invalid status string is used.
var ErrUnknownStatus = errors.New("ferryq: unknown status")

// ErrTaskNotFound is returned when a task with the specified ID is not in the registry.
var ErrTaskNotFound = errors.New("ferryq: task not found")

// ErrNotCancellable is returned by Cancel when the task is already terminal or failed.
var ErrNotCancellable = errors.New("ferryq: task not cancellable")

// ErrNotFailed is returned by Retry when the task is not in the failed state.
var ErrNotFailed = errors.New("ferryq: task is not failed")

// ErrNotTerminal is returned by Discard when the task could still make progress.
var ErrNotTerminal = errors.New("ferryq: task is not terminal")

// ErrRejected is returned by Admit when validation rejects the submission.
// The AdmissionResult carries the individual reasons.
var ErrRejected = errors.New("ferryq: submission rejected")

// ErrNoExecutor is returned by Mux when no executor matches the task's declared
// type and no default is registered. The task moves to the failed state.
var ErrNoExecutor = errors.New("ferryq: no executor for file type")