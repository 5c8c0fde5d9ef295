package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/linux-surface/iptsgo/pkg/ipts"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    device      TEXT     NOT NULL,
    vendor      INTEGER  NOT NULL,
    product     INTEGER  NOT NULL,
    buffer_size INTEGER  NOT NULL,
    metadata    TEXT
);

CREATE TABLE IF NOT EXISTS frames (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id  INTEGER  NOT NULL REFERENCES sessions (id),
    captured_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    size        INTEGER  NOT NULL,
    data        BLOB     NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_frames_session ON frames (session_id);
`

const (
	insertSessionSQL = `
INSERT INTO sessions (device, vendor, product, buffer_size, metadata)
VALUES (?, ?, ?, ?, ?)`

	insertFrameSQL = `
INSERT INTO frames (session_id, size, data)
VALUES (?, ?, ?)`

	selectSessionSQL = `
SELECT id, started_at, device, vendor, product, buffer_size, metadata
FROM sessions
WHERE id = ?`

	selectSessionsSQL = `
SELECT id, started_at, device, vendor, product, buffer_size, metadata
FROM sessions
ORDER BY started_at, id`

	selectFramesSQL = `
SELECT data
FROM frames
WHERE session_id = ?
ORDER BY id`
)

// SqliteStore is the sqlite-backed Store implementation.
type SqliteStore struct {
	dbPath string

	db     *sql.DB
	dbOnce sync.Once
	dbErr  error

	insertFrame     *sql.Stmt
	insertFrameOnce sync.Once
	insertFrameErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a store backed by the sqlite database at
// dbPath. The database and its schema are created lazily on first use.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func (s *SqliteStore) getDB() (*sql.DB, error) {
	s.dbOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL", s.dbPath))
		if err != nil {
			s.dbErr = fmt.Errorf("opening database: %w", err)
			return
		}

		if _, err := db.Exec(schemaSQL); err != nil {
			_ = db.Close()
			s.dbErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.db = db
	})

	return s.db, s.dbErr
}

func (s *SqliteStore) CreateSession(ctx context.Context, device string, info ipts.DeviceInfo, meta *ipts.Metadata) (int64, error) {
	db, err := s.getDB()
	if err != nil {
		return 0, err
	}

	var metadata sql.NullString
	if meta != nil {
		p, err := json.Marshal(meta)
		if err != nil {
			return 0, fmt.Errorf("marshaling metadata: %w", err)
		}
		metadata.Valid = true
		metadata.String = string(p)
	}

	result, err := db.ExecContext(ctx, insertSessionSQL,
		device, info.Vendor, info.Product, info.BufferSize, metadata)
	if err != nil {
		return 0, fmt.Errorf("inserting session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting session id: %w", err)
	}
	return id, nil
}

func (s *SqliteStore) AppendFrame(ctx context.Context, sessionID int64, data []byte) error {
	s.insertFrameOnce.Do(func() {
		db, err := s.getDB()
		if err != nil {
			s.insertFrameErr = err
			return
		}

		stmt, err := db.PrepareContext(ctx, insertFrameSQL)
		if err != nil {
			s.insertFrameErr = fmt.Errorf("preparing frame insert: %w", err)
			return
		}
		s.insertFrame = stmt
	})
	if s.insertFrameErr != nil {
		return s.insertFrameErr
	}

	if _, err := s.insertFrame.ExecContext(ctx, sessionID, len(data), data); err != nil {
		return fmt.Errorf("inserting frame: %w", err)
	}
	return nil
}

func scanSession(row interface{ Scan(...any) error }) (*Session, error) {
	var sess Session
	var metadata sql.NullString

	err := row.Scan(&sess.ID, &sess.StartedAt, &sess.Device,
		&sess.Info.Vendor, &sess.Info.Product, &sess.Info.BufferSize, &metadata)
	if err != nil {
		return nil, err
	}

	if metadata.Valid {
		var meta ipts.Metadata
		if err := json.Unmarshal([]byte(metadata.String), &meta); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
		sess.Metadata = &meta
	}

	return &sess, nil
}

func (s *SqliteStore) Session(ctx context.Context, id int64) (*Session, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	sess, err := scanSession(db.QueryRowContext(ctx, selectSessionSQL, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying session %d: %w", id, err)
	}
	return sess, nil
}

func (s *SqliteStore) Sessions(ctx context.Context) ([]*Session, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *SqliteStore) Frames(ctx context.Context, sessionID int64) (*FrameIterator, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, selectFramesSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying frames of session %d: %w", sessionID, err)
	}

	return &FrameIterator{rows: rows}, nil
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		if s.insertFrame != nil {
			s.closeErr = s.insertFrame.Close()
		}
		if s.db != nil {
			if err := s.db.Close(); err != nil && s.closeErr == nil {
				s.closeErr = err
			}
		}
	})
	return s.closeErr
}
