package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/linux-surface/iptsgo/internal/app"
	"github.com/linux-surface/iptsgo/internal/log"
	"github.com/linux-surface/iptsgo/internal/storage"
	"github.com/linux-surface/iptsgo/pkg/config"
	"github.com/linux-surface/iptsgo/pkg/ipts"
)

// Print dumps the DFT windows of a recorded session in a textual form,
// optionally interleaved with the decoded stylus state.
type Print struct {
	Session int64  `arg:"" help:"The recorded session to print."`
	Db      string `help:"Recording database to read from." default:"iptsgo.db" type:"path"`

	Position bool `help:"Print position windows."`
	Button   bool `help:"Print button windows."`
	Pressure bool `help:"Print pressure windows."`
	Unknown  bool `help:"Print windows of other types."`
	Stylus   bool `help:"Print the decoded stylus state after every window."`

	NoColor bool `help:"Disable colored output."`

	Tuning config.Config `embed:""`
}

const (
	colorReset = "\x1b[0m"
	colorBold  = "\x1b[1m"
)

// Run is called by kong when the print command is executed.
func (p *Print) Run(logger *slog.Logger, raw log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// With no selection at all, print everything.
	if !p.Position && !p.Button && !p.Pressure && !p.Unknown && !p.Stylus {
		p.Position = true
		p.Button = true
		p.Pressure = true
		p.Unknown = true
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

	cfg := p.Tuning
	cfg.ApplyMetadata(sess.Metadata)

	color := !p.NoColor && term.IsTerminal(int(os.Stdout.Fd()))

	proc := app.NewProcessor(cfg, sess.Info, sess.Metadata)
	proc.OnDft = func(w *ipts.DftWindow) {
		if p.selected(w.Type) {
			header := fmt.Sprintf("=== DFT type %2d === rows: %d group: %d", w.Type, w.Rows, w.Group)
			if color {
				header = colorBold + header + colorReset
			}
			fmt.Println(header)
			fmt.Print(stringifyWindow(w))
		}

		if p.Stylus {
			fmt.Println(stringifyStylus(proc.Stylus()))
		}
	}

	return app.RunReplay(ctx, store, sess.ID, proc, logger, raw)
}

func (p *Print) selected(typ ipts.DftType) bool {
	switch typ {
	case ipts.DftTypePosition, ipts.DftTypePosition2:
		return p.Position
	case ipts.DftTypeButton:
		return p.Button
	case ipts.DftTypePressure:
		return p.Pressure
	default:
		return p.Unknown
	}
}

func stringifyRow(row *ipts.Row) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "freq: %9d ", row.Frequency)
	fmt.Fprintf(&sb, "mag: %9d ", row.Magnitude)
	fmt.Fprintf(&sb, "first: %5d ", row.First)
	fmt.Fprintf(&sb, "last: %d ", row.Last)
	fmt.Fprintf(&sb, "mid: %d ", row.Mid)
	fmt.Fprintf(&sb, "zero: %d ", row.Zero)

	sb.WriteString("IQ: [")
	for i := 0; i < ipts.NumComponents; i++ {
		fmt.Fprintf(&sb, "(%6d,%6d),", row.Real[i], row.Imag[i])
	}
	sb.WriteString("]")

	return sb.String()
}

func stringifyWindow(w *ipts.DftWindow) string {
	var sb strings.Builder

	for i := 0; i < int(w.Rows); i++ {
		fmt.Fprintf(&sb, "x[%2d]: %s\n", i, stringifyRow(&w.X[i]))
		fmt.Fprintf(&sb, "y[%2d]: %s\n", i, stringifyRow(&w.Y[i]))
	}

	return sb.String()
}

func stringifyStylus(s ipts.StylusData) string {
	return fmt.Sprintf(
		"stylus: proximity: %5v contact: %5v button: %5v rubber: %5v x: %.4f y: %.4f pressure: %.4f",
		s.Proximity, s.Contact, s.Button, s.Rubber, s.X, s.Y, s.Pressure)
}
