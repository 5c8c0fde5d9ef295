package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/linux-surface/iptsgo/internal/hidraw"
	"github.com/linux-surface/iptsgo/internal/log"
	"github.com/linux-surface/iptsgo/internal/storage"
)

// RunDevice reads touch data from a hidraw device and feeds it to the
// processor until ctx is cancelled or the device goes away.
//
// Parse errors are logged and skipped: the stream is noisy and a single
// bad buffer must not take the daemon down.
func RunDevice(ctx context.Context, dev *hidraw.Device, proc *Processor, logger *slog.Logger, raw log.RawLogger) error {
	// Closing the device unblocks the pending read.
	stop := context.AfterFunc(ctx, func() { _ = dev.Close() })
	defer stop()

	buf := make([]byte, dev.BufferSize())

	for {
		n, err := dev.Read(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, fs.ErrClosed) {
				return ctx.Err()
			}
			return fmt.Errorf("reading device: %w", err)
		}

		if !dev.IsTouchData(buf[:n]) {
			continue
		}

		if raw != nil {
			raw.Log("hidraw", buf[:n])
		}

		if err := proc.Process(buf[:n]); err != nil {
			logger.Warn("dropping malformed buffer", "error", err)
		}
	}
}

// RunReplay feeds the recorded frames of a session to the processor.
func RunReplay(ctx context.Context, store storage.Store, sessionID int64, proc *Processor, logger *slog.Logger, raw log.RawLogger) error {
	frames, err := store.Frames(ctx, sessionID)
	if err != nil {
		return err
	}
	defer frames.Close()

	count := 0
	for frames.Next() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		count++

		data := frames.Data()
		if raw != nil {
			raw.Log("replay", data)
		}

		if err := proc.Process(data); err != nil {
			logger.Warn("dropping malformed buffer", "frame", count, "error", err)
		}
	}
	if err := frames.Err(); err != nil {
		return fmt.Errorf("iterating frames: %w", err)
	}

	logger.Info("replay finished", "frames", count)
	return nil
}
