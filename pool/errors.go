package pool

import "errors"

var (
	// ErrPoolClosed is returned by Acquire after the pool has been shut down.
	ErrPoolClosed = errors.New("pool: closed")

	// ErrAcquireTimeout is returned when no session became available
	// within the configured connection timeout.
	ErrAcquireTimeout = errors.New("pool: acquire timed out")

	// ErrHandleClosed is returned when a handle is used after being
	// closed or discarded.
	ErrHandleClosed = errors.New("pool: handle already closed")
)
