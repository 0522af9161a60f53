// Package ledger mirrors the revision log to a SQLite database, so a
// resumed run can recover its cursor without re-parsing the full
// intermediate JSON document. Grounded on the teacher's
// internal/fetcher/store (meddler-backed SQLite persistence) and
// internal/migrations (rubenv/sql-migrate schema management).
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/russross/meddler"

	"github.com/lucasvanbramer/talkpipeline/internal/applier"
	"github.com/lucasvanbramer/talkpipeline/internal/common"
	"github.com/lucasvanbramer/talkpipeline/internal/db"
	"github.com/lucasvanbramer/talkpipeline/internal/driver"
	"github.com/lucasvanbramer/talkpipeline/internal/logger"
	"github.com/lucasvanbramer/talkpipeline/internal/migrations"
	"github.com/lucasvanbramer/talkpipeline/pkg/config"
	"github.com/lucasvanbramer/talkpipeline/pkg/revision"
)

type dbRevision struct {
	RevisionID int64  `meddler:"revision_id,pk"`
	Seq        int    `meddler:"seq"`
	Behaviors  string `meddler:"behaviors"`
	Timestamp  string `meddler:"timestamp"`
}

type dbPage struct {
	Title        string `meddler:"title,pk"`
	LastRevision int64  `meddler:"last_revision"`
	UpdatedAt    string `meddler:"updated_at"`
}

// Ledger is a SQLite-backed mirror of the revision log for one or more
// pages, keyed by page title.
type Ledger struct {
	db   *sql.DB
	path string
	log  *logger.Logger
}

// Open applies pending migrations and returns a Ledger backed by
// cfg.DB.Path.
func Open(cfg config.LedgerConfig, log *logger.Logger) (*Ledger, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	cfg.DB.ApplyDefaults()

	if err := migrations.RunMigrations(cfg.DB.Path); err != nil {
		return nil, fmt.Errorf("ledger: run migrations: %w", err)
	}

	conn, err := db.NewSQLiteDBFromConfig(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("ledger: open db: %w", err)
	}

	return &Ledger{db: conn, path: cfg.DB.Path, log: log}, nil
}

// largeLedgerWarningMB is the size, in megabytes, above which Compact logs a
// warning that a single-page revision log has grown unexpectedly large.
const largeLedgerWarningMB = 500

// Compact runs a VACUUM (or WAL checkpoint, depending on journal mode)
// against the ledger database and reports its size afterward, in bytes.
func (l *Ledger) Compact() (int64, error) {
	preSize, err := db.DBTotalSize(l.path)
	if err != nil {
		return 0, fmt.Errorf("ledger: measure size: %w", err)
	}
	if uint64(preSize) > common.MBToBytes(largeLedgerWarningMB) {
		l.log.Warnf("ledger is %d MB before compaction, larger than expected for a single page", common.BytesToMB(uint64(preSize)))
	}

	if err := db.Vacuum(l.db); err != nil {
		return 0, fmt.Errorf("ledger: vacuum: %w", err)
	}
	size, err := db.DBTotalSize(l.path)
	if err != nil {
		return 0, fmt.Errorf("ledger: measure size: %w", err)
	}
	l.log.Infof("ledger compacted: %d MB on disk", common.BytesToMB(uint64(size)))
	return size, nil
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Append mirrors entry for title, recording its position in the log as seq.
func (l *Ledger) Append(ctx context.Context, title string, seq int, entry driver.LogEntry) error {
	behaviors, err := json.Marshal(entry.Behaviors)
	if err != nil {
		return fmt.Errorf("ledger: marshal behaviors: %w", err)
	}

	row := &dbRevision{
		RevisionID: int64(entry.RevisionID.Value()),
		Seq:        seq,
		Behaviors:  string(behaviors),
		Timestamp:  entry.Timestamp.Format(time.RFC3339),
	}
	if err := meddler.Insert(l.db, "revisions", row); err != nil {
		return fmt.Errorf("ledger: insert revision: %w", err)
	}

	page := &dbPage{
		Title:        title,
		LastRevision: int64(entry.RevisionID.Value()),
		UpdatedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	if err := l.upsertPage(page); err != nil {
		return fmt.Errorf("ledger: upsert page: %w", err)
	}

	return nil
}

func (l *Ledger) upsertPage(page *dbPage) error {
	const upsert = `
		INSERT INTO pages (title, last_revision, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(title) DO UPDATE SET last_revision = excluded.last_revision, updated_at = excluded.updated_at
	`
	_, err := l.db.Exec(upsert, page.Title, page.LastRevision, page.UpdatedAt)
	return err
}

// Load returns the full mirrored revision log, ordered by sequence.
func (l *Ledger) Load(ctx context.Context) ([]driver.LogEntry, error) {
	var rows []*dbRevision
	if err := meddler.QueryAll(l.db, &rows, "SELECT * FROM revisions ORDER BY seq ASC"); err != nil {
		return nil, fmt.Errorf("ledger: query revisions: %w", err)
	}

	entries := make([]driver.LogEntry, len(rows))
	for i, r := range rows {
		var behaviors []applier.Behavior
		if err := json.Unmarshal([]byte(r.Behaviors), &behaviors); err != nil {
			return nil, fmt.Errorf("ledger: unmarshal behaviors for revision %d: %w", r.RevisionID, err)
		}
		ts, err := time.Parse(time.RFC3339, r.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("ledger: parse timestamp for revision %d: %w", r.RevisionID, err)
		}
		entries[i] = driver.LogEntry{
			RevisionID: revision.Known(uint64(r.RevisionID)),
			Behaviors:  behaviors,
			Timestamp:  ts,
		}
	}
	return entries, nil
}

// LastRevision returns the last mirrored revision id for title, or
// revision.Unknown if title has never been recorded.
func (l *Ledger) LastRevision(ctx context.Context, title string) (revision.ID, error) {
	var page dbPage
	err := meddler.QueryRow(l.db, &page, "SELECT * FROM pages WHERE title = ?", title)
	if err == sql.ErrNoRows {
		return revision.Unknown, nil
	}
	if err != nil {
		return revision.Unknown, fmt.Errorf("ledger: query page: %w", err)
	}
	return revision.Known(uint64(page.LastRevision)), nil
}
