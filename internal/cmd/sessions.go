package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/linux-surface/iptsgo/internal/storage"
)

// Sessions lists the recordings in a database.
type Sessions struct {
	Db string `help:"Recording database to read from." default:"iptsgo.db" type:"path"`
}

// Run is called by kong when the sessions command is executed.
func (s *Sessions) Run(logger *slog.Logger) error {
	store := storage.NewSqliteStore(s.Db)
	defer store.Close()

	sessions, err := store.Sessions(context.Background())
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		logger.Info("No sessions recorded", "db", s.Db)
		return nil
	}

	for _, sess := range sessions {
		meta := "no metadata"
		if sess.Metadata != nil {
			meta = fmt.Sprintf("%dx%d", sess.Metadata.Size.Columns, sess.Metadata.Size.Rows)
		}

		fmt.Printf("%4d  %04X:%04X  %-24s  %-12s  %s\n",
			sess.ID,
			sess.Info.Vendor, sess.Info.Product,
			sess.Device,
			meta,
			humanize.Time(sess.StartedAt))
	}

	return nil
}
