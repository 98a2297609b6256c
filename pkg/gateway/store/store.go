// Package store persists call session records.
package store

import (
	"context"
	"errors"

	"github.com/nishuastic/tech-europe/pkg/core/bridge"
)

// ErrNotFound is returned when no session exists for a call id.
var ErrNotFound = errors.New("store: session not found")

// SessionStore is the durable session record store. Upserts are keyed
// by call id.
type SessionStore interface {
	UpsertSession(ctx context.Context, s *bridge.CallSession) error
	GetSession(ctx context.Context, callID string) (*bridge.CallSession, error)
	ListSessions(ctx context.Context) ([]*bridge.CallSession, error)
	Close()
}
