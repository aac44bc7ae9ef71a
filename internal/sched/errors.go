package sched

import "errors"

// Sentinel errors rendering the taxonomy of spec §7. NoSubflow is not
// really an error condition — a ⊥ return from the selector is an ordinary
// "nothing to send right now" outcome — but it is still useful as a typed
// value wherever a caller wants errors.Is against it.
var (
	// ErrInvalid is returned when registering a scheduler missing a
	// required vtable function.
	ErrInvalid = errors.New("sched: invalid scheduler registration")

	// ErrExists is returned when registering a name already present in
	// the registry.
	ErrExists = errors.New("sched: scheduler already registered")

	// ErrNotFound is returned when looking up or setting a scheduler name
	// that is not (and, after autoload, still is not) registered.
	ErrNotFound = errors.New("sched: scheduler not found")

	// ErrPermissionDenied is returned when a non-privileged caller invokes
	// an administrative registry operation.
	ErrPermissionDenied = errors.New("sched: permission denied")

	// ErrNoSubflow indicates the scheduler had nothing available to
	// return. Not a failure: callers interpret it as "try again later".
	ErrNoSubflow = errors.New("sched: no subflow available")
)
