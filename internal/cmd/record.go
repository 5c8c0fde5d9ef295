package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/linux-surface/iptsgo/internal/hidraw"
	"github.com/linux-surface/iptsgo/internal/log"
	"github.com/linux-surface/iptsgo/internal/storage"
)

// Record captures the raw touch data stream of a device into a session
// of the recording database, for later replay with the daemon, print or
// plot commands.
type Record struct {
	Device string `arg:"" optional:"" help:"The hidraw node of the touchscreen. Autodetected when omitted." type:"path"`
	Db     string `help:"Database to record into." default:"iptsgo.db" type:"path"`
}

// Run is called by kong when the record command is executed.
func (r *Record) Run(logger *slog.Logger, raw log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var dev *hidraw.Device
	var err error

	if r.Device != "" {
		dev, err = hidraw.Open(r.Device)
	} else {
		dev, err = hidraw.FindDevice()
	}
	if err != nil {
		return err
	}
	defer dev.Close()

	info := dev.Info()
	logger.Info("Connected to device",
		"device", dev.Path(),
		"id", fmt.Sprintf("%04X:%04X", info.Vendor, info.Product))

	meta, err := dev.Metadata()
	if err != nil {
		logger.Warn("failed to read metadata", "error", err)
	}

	store := storage.NewSqliteStore(r.Db)
	defer store.Close()

	session, err := store.CreateSession(ctx, dev.Path(), info, meta)
	if err != nil {
		return err
	}
	logger.Info("Recording", "session", session, "db", r.Db)

	if err := dev.SetMode(hidraw.ModeMultitouch); err != nil {
		return fmt.Errorf("enabling multitouch mode: %w", err)
	}

	// Closing the device unblocks the pending read.
	cancel := context.AfterFunc(ctx, func() { _ = dev.Close() })
	defer cancel()

	buf := make([]byte, dev.BufferSize())

	frames := 0
	total := uint64(0)

	for ctx.Err() == nil {
		n, err := dev.Read(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, os.ErrClosed) {
				break
			}
			return fmt.Errorf("reading device: %w", err)
		}

		if !dev.IsTouchData(buf[:n]) {
			continue
		}

		if raw != nil {
			raw.Log("hidraw", buf[:n])
		}

		if err := store.AppendFrame(context.WithoutCancel(ctx), session, buf[:n]); err != nil {
			return err
		}

		frames++
		total += uint64(n)
	}

	logger.Info("Recorded",
		"session", session,
		"frames", frames,
		"size", humanize.Bytes(total))
	return nil
}
