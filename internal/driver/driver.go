// Package driver implements the revision driver of spec.md §4.4: it
// iterates a talk page's revisions in chronological order, fetches the
// pairwise diff for each adjacent pair, and submits it to the applier,
// maintaining the revision log. Grounded on
// revision_pipeline/pipeline.py's _process_revisions_since_revid, and on
// the teacher's internal/downloader sync-loop shape (sequential
// processing of adjacent ranges with progress reporting and a resumable
// cursor).
package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/lucasvanbramer/talkpipeline/internal/applier"
	"github.com/lucasvanbramer/talkpipeline/internal/logger"
	"github.com/lucasvanbramer/talkpipeline/internal/metrics"
	"github.com/lucasvanbramer/talkpipeline/pkg/block"
	"github.com/lucasvanbramer/talkpipeline/pkg/diffrow"
	"github.com/lucasvanbramer/talkpipeline/pkg/revision"
)

// RevisionSource is the collaborator boundary spec.md §6 names:
// list_revisions, fetch_diff, and last_revision_id. Implemented outside
// the core by internal/mediawiki.
type RevisionSource interface {
	ListRevisions(ctx context.Context, title string, sinceID revision.ID) ([]applier.RevisionMeta, error)
	FetchDiff(ctx context.Context, title string, fromID, toID revision.ID) ([]diffrow.Row, error)
	LastRevisionID(ctx context.Context, title string) (revision.ID, error)
}

// LogEntry is one row of the revision log described in spec.md §3.
type LogEntry struct {
	RevisionID revision.ID
	Behaviors  []applier.Behavior
	Timestamp  time.Time
}

// ProgressFunc is invoked after each revision pair is applied, letting
// callers (the CLI's per-revision progress log line, in particular) observe driver
// progress without the core depending on any UI concern.
type ProgressFunc func(done, total int)

// Driver applies every revision pair for a page to a block store,
// appending to a revision log as it goes.
type Driver struct {
	source RevisionSource
	log    *logger.Logger
}

// New returns a Driver that pulls revisions and diffs from source.
func New(source RevisionSource, log *logger.Logger) *Driver {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Driver{source: source, log: log}
}

// Run fetches every revision since the last entry in revisionLog (or the
// page's first revision if revisionLog is empty), applies each adjacent
// pair to store, and returns the updated revision log. Processing is
// strictly sequential and synchronous per spec.md §5: one revision pair
// is fully applied before the next begins.
func (d *Driver) Run(
	ctx context.Context,
	title string,
	store *block.Store,
	revisionLog []LogEntry,
	onProgress ProgressFunc,
) ([]LogEntry, error) {
	sinceID := revision.Unknown
	if n := len(revisionLog); n > 0 {
		sinceID = revisionLog[n-1].RevisionID
	}

	revisions, err := d.source.ListRevisions(ctx, title, sinceID)
	if err != nil {
		return revisionLog, fmt.Errorf("driver: list revisions: %w", err)
	}

	total := len(revisions) - 1
	if total < 1 {
		return revisionLog, nil
	}

	for i := 1; i < len(revisions); i++ {
		if err := ctx.Err(); err != nil {
			d.log.Infof("driver: cancelled before revision %s; store left at last clean boundary", revisions[i].ID)
			return revisionLog, err
		}

		prev, curr := revisions[i-1], revisions[i]
		start := time.Now()

		rows, err := d.source.FetchDiff(ctx, title, prev.ID, curr.ID)
		var result applier.Result
		if err != nil {
			result = applier.Result{Behaviors: []applier.Behavior{applier.BehaviorError}, Err: fmt.Errorf("fetch diff: %w", err)}
		} else {
			result = applier.Apply(store, prev, curr, rows)
		}

		if result.Err != nil {
			d.log.Warnf("driver: revision %s tagged error: %v", curr.ID, result.Err)
			metrics.ApplierErrorsInc(title)
		}

		revisionLog = append(revisionLog, LogEntry{
			RevisionID: curr.ID,
			Behaviors:  result.Behaviors,
			Timestamp:  curr.Timestamp,
		})

		for _, b := range result.Behaviors {
			metrics.RevisionsProcessedInc(title, string(b))
		}
		if curr.ID.IsKnown() {
			metrics.LastProcessedRevisionSet(title, curr.ID.Value())
		}
		metrics.BlockStoreSizeSet(title, store.Len())
		metrics.RevisionProcessingTimeLog(title, time.Since(start))

		if onProgress != nil {
			onProgress(i, total)
		}
	}

	return revisionLog, nil
}

// UpToDate reports whether revisionLog's last entry already reflects
// title's most recent revision, letting callers skip driver work
// entirely — the freshness short-circuit from
// pipeline.py's accum_up_to_date.
func (d *Driver) UpToDate(ctx context.Context, title string, revisionLog []LogEntry) (bool, error) {
	if len(revisionLog) == 0 {
		return false, nil
	}
	last, err := d.source.LastRevisionID(ctx, title)
	if err != nil {
		return false, fmt.Errorf("driver: last revision id: %w", err)
	}
	return revisionLog[len(revisionLog)-1].RevisionID.Equal(last), nil
}
