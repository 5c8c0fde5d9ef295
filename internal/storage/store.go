// Package storage persists recorded IPTS report streams for later
// replay, debugging and visualization.
package storage

import (
	"context"
	"time"

	"github.com/linux-surface/iptsgo/pkg/ipts"
)

// Session describes one recording: the device it was taken from and its
// metadata snapshot, if the device had one.
type Session struct {
	ID        int64
	StartedAt time.Time
	Device    string
	Info      ipts.DeviceInfo
	Metadata  *ipts.Metadata
}

// Store manages recorded report streams. All writes are atomic; a
// recording that is interrupted mid-frame leaves no partial frame behind.
type Store interface {
	// CreateSession starts a new recording for the given device and
	// returns its identifier.
	CreateSession(ctx context.Context, device string, info ipts.DeviceInfo, meta *ipts.Metadata) (int64, error)

	// AppendFrame stores one raw report buffer in a session.
	AppendFrame(ctx context.Context, sessionID int64, data []byte) error

	// Session retrieves a single session, or nil if it does not exist.
	Session(ctx context.Context, id int64) (*Session, error)

	// Sessions lists all recordings, ordered by start time.
	Sessions(ctx context.Context) ([]*Session, error)

	// Frames iterates over the raw buffers of a session in capture
	// order.
	Frames(ctx context.Context, sessionID int64) (*FrameIterator, error)

	// Close releases all database resources. It is safe to call
	// multiple times.
	Close() error
}
