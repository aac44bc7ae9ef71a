// Package prefstore holds the per-connection scheduler name a privileged
// caller pinned via bind_to_connection, so the choice survives a subflow
// reconnect or migration for the same meta connection, mirroring the way
// the teacher's session store backs connection state across gateway
// restarts. registry.BindToConnection does not read a Store itself; it
// takes the explicit name as an argument.
package prefstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no preference has been recorded for a
// connection ID.
var ErrNotFound = errors.New("prefstore: no scheduler preference for connection")

// Store records which scheduler name a connection has been explicitly
// bound to.
type Store interface {
	// Get returns the scheduler name bound to connID, or ErrNotFound.
	Get(ctx context.Context, connID string) (string, error)
	// Set records schedName as the preference for connID.
	Set(ctx context.Context, connID, schedName string) error
	// Delete removes any preference recorded for connID.
	Delete(ctx context.Context, connID string) error
}
