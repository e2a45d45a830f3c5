package task

import "errors"

var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrWorkerNotFound     = errors.New("worker not found")
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrWorkerNotIdle      = errors.New("worker is not idle")
	ErrTaskNotPending     = errors.New("task is not pending")
	ErrWorkerMismatch     = errors.New("task is not assigned to this worker")
	ErrCancelNotPermitted = errors.New("task cannot be canceled in its current state")
)
