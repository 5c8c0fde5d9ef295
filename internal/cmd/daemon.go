package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/linux-surface/iptsgo/internal/app"
	"github.com/linux-surface/iptsgo/internal/hidraw"
	"github.com/linux-surface/iptsgo/internal/log"
	"github.com/linux-surface/iptsgo/internal/storage"
	"github.com/linux-surface/iptsgo/internal/uinput"
	"github.com/linux-surface/iptsgo/pkg/config"
	"github.com/linux-surface/iptsgo/pkg/ipts"
)

// Daemon is the main mode of operation: read touch data, decode it and
// feed the result into the kernel input subsystem.
type Daemon struct {
	Device string `arg:"" optional:"" help:"The hidraw node of the touchscreen. Autodetected when omitted." type:"path"`

	Replay int64  `help:"Replay the recorded session with this ID instead of reading a device."`
	Db     string `help:"Recording database used by --replay." default:"iptsgo.db" type:"path"`

	DryRun bool `help:"Log stylus state changes instead of creating a uinput device."`

	Tuning config.Config `embed:""`
}

// Run is called by kong when the daemon command is executed.
func (d *Daemon) Run(logger *slog.Logger, raw log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if d.Replay != 0 {
		return d.replay(ctx, logger, raw)
	}
	return d.device(ctx, logger, raw)
}

func (d *Daemon) device(ctx context.Context, logger *slog.Logger, raw log.RawLogger) error {
	var dev *hidraw.Device
	var err error

	if d.Device != "" {
		dev, err = hidraw.Open(d.Device)
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
	logMetadata(logger, meta)

	cfg := d.Tuning
	cfg.ApplyMetadata(meta)

	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("invalid config: the screen size is 0")
	}

	proc := app.NewProcessor(cfg, info, meta)

	sink, closeSink, err := d.makeSink(cfg, info, logger)
	if err != nil {
		return err
	}
	defer closeSink()
	proc.OnStylus = sink

	if err := dev.SetMode(hidraw.ModeMultitouch); err != nil {
		return fmt.Errorf("enabling multitouch mode: %w", err)
	}

	err = app.RunDevice(ctx, dev, proc, logger, raw)
	if err == context.Canceled || ctx.Err() != nil {
		logger.Info("Stopping")
		return nil
	}
	return err
}

func (d *Daemon) replay(ctx context.Context, logger *slog.Logger, raw log.RawLogger) error {
	store := storage.NewSqliteStore(d.Db)
	defer store.Close()

	sess, err := store.Session(ctx, d.Replay)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("no session %d in %s", d.Replay, d.Db)
	}

	logger.Info("Replaying session",
		"session", sess.ID,
		"id", fmt.Sprintf("%04X:%04X", sess.Info.Vendor, sess.Info.Product))

	cfg := d.Tuning
	cfg.ApplyMetadata(sess.Metadata)

	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("invalid config: the screen size is 0")
	}

	proc := app.NewProcessor(cfg, sess.Info, sess.Metadata)

	sink, closeSink, err := d.makeSink(cfg, sess.Info, logger)
	if err != nil {
		return err
	}
	defer closeSink()
	proc.OnStylus = sink

	return app.RunReplay(ctx, store, sess.ID, proc, logger, raw)
}

// makeSink builds the stylus consumer: a virtual uinput device, or a
// state-change logger when --dry-run is set.
func (d *Daemon) makeSink(cfg config.Config, info ipts.DeviceInfo, logger *slog.Logger) (func(ipts.StylusData), func(), error) {
	if d.DryRun {
		var last ipts.StylusData

		sink := func(s ipts.StylusData) {
			if s == last {
				return
			}
			last = s

			logger.Info("stylus",
				"proximity", s.Proximity, "contact", s.Contact,
				"button", s.Button, "rubber", s.Rubber,
				"x", s.X, "y", s.Y, "pressure", s.Pressure)
		}
		return sink, func() {}, nil
	}

	stylus, err := uinput.CreateStylus(cfg, info)
	if err != nil {
		return nil, nil, err
	}

	sink := func(s ipts.StylusData) {
		if err := stylus.Emit(s); err != nil {
			logger.Warn("failed to emit stylus state", "error", err)
		}
	}
	return sink, func() { _ = stylus.Close() }, nil
}

func logMetadata(logger *slog.Logger, meta *ipts.Metadata) {
	if meta == nil {
		return
	}

	logger.Info("Metadata",
		"rows", meta.Size.Rows, "columns", meta.Size.Columns,
		"width", meta.Size.Width, "height", meta.Size.Height)
	logger.Debug("Metadata transform",
		"xx", meta.Transform.XX, "yx", meta.Transform.YX, "tx", meta.Transform.TX,
		"xy", meta.Transform.XY, "yy", meta.Transform.YY, "ty", meta.Transform.TY)
}
