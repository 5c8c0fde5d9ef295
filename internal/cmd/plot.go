package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/linux-surface/iptsgo/internal/app"
	"github.com/linux-surface/iptsgo/internal/log"
	"github.com/linux-surface/iptsgo/internal/render"
	"github.com/linux-surface/iptsgo/internal/storage"
	"github.com/linux-surface/iptsgo/pkg/config"
	"github.com/linux-surface/iptsgo/pkg/ipts"
)

// Plot renders the DFT windows of a recorded session into PNG heatmap
// images, one file per rendered window.
type Plot struct {
	Session int64  `arg:"" help:"The recorded session to render."`
	Db      string `help:"Recording database to read from." default:"iptsgo.db" type:"path"`

	Out   string `help:"Output directory." default:"plots" type:"path"`
	Cell  int    `help:"Cell edge length in pixels." default:"12"`
	Every int    `help:"Only render every Nth window." default:"1"`
}

// Run is called by kong when the plot command is executed.
func (p *Plot) Run(logger *slog.Logger, raw log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if p.Every < 1 {
		p.Every = 1
	}

	store := storage.NewSqliteStore(p.Db)
	defer store.Close()

	sess, err := store.Session(ctx, p.Session)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("no session %d in %s", p.Session, p.Db)
	}

	if err := os.MkdirAll(p.Out, 0o755); err != nil {
		return err
	}

	renderer, err := render.New(p.Cell)
	if err != nil {
		return err
	}

	cfg := config.Default()
	cfg.ApplyMetadata(sess.Metadata)

	windows := 0
	rendered := 0

	proc := app.NewProcessor(cfg, sess.Info, sess.Metadata)
	proc.OnDft = func(w *ipts.DftWindow) {
		windows++
		if (windows-1)%p.Every != 0 {
			return
		}

		img, err := renderer.Render(w)
		if err != nil {
			logger.Warn("failed to render window", "window", windows, "error", err)
			return
		}

		path := filepath.Join(p.Out, fmt.Sprintf("window-%06d.png", windows))
		if err := render.WritePNG(path, img); err != nil {
			logger.Warn("failed to write image", "path", path, "error", err)
			return
		}
		rendered++
	}

	if err := app.RunReplay(ctx, store, sess.ID, proc, logger, raw); err != nil {
		return err
	}

	logger.Info("Rendered", "windows", windows, "images", rendered, "out", p.Out)
	return nil
}
