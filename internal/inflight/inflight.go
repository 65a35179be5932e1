// Package inflight tracks the one query each session is allowed to have running.
package inflight

import (
	"context"
	"errors"
)

// ErrDuplicate is returned by Acquire when the same query is already running for the session.
var ErrDuplicate = errors.New("query already in flight")

// Token identifies one acquisition. Only the holder of the current token may commit or release.
type Token struct {
	Session string
	Key     string
	ID      string
}

// Guard provides per-session in-flight markers.
type Guard interface {
	// Acquire makes key the current query for session, superseding any different key.
	Acquire(ctx context.Context, session, key string) (Token, error)

	// IsCurrent reports whether tok still owns the session marker.
	IsCurrent(ctx context.Context, tok Token) (bool, error)

	// Release clears the marker if tok still owns it. Releasing a superseded token is a no-op.
	Release(ctx context.Context, tok Token) error

	// Close releases backend connections.
	Close() error
}
