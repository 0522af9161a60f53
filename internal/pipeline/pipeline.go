// Package pipeline wires the collaborators spec.md separates into one
// end-to-end run: fetch outstanding revisions for a talk page, apply
// them to the block store, fold the result into a corpus, and persist
// the intermediate state for the next run. Grounded on the teacher's
// internal/downloader.Downloader, which plays the same orchestrator role
// over LogFetcher/SyncManager/ReorgDetector/IndexerCoordinator.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/lucasvanbramer/talkpipeline/internal/corpus"
	"github.com/lucasvanbramer/talkpipeline/internal/driver"
	"github.com/lucasvanbramer/talkpipeline/internal/intermediate"
	"github.com/lucasvanbramer/talkpipeline/internal/ledger"
	"github.com/lucasvanbramer/talkpipeline/internal/logger"
	"github.com/lucasvanbramer/talkpipeline/pkg/block"
	"github.com/lucasvanbramer/talkpipeline/pkg/config"
)

// Pipeline coordinates a driver.Driver against a single title, persisting
// the intermediate document across runs and mirroring the revision log
// to the SQLite ledger when one is configured.
type Pipeline struct {
	cfg    config.Config
	driver *driver.Driver
	ledger *ledger.Ledger
	log    *logger.Logger
}

// New returns a Pipeline driving source for cfg.Title. ledgerStore may be
// nil, in which case the revision log is mirrored only in the
// intermediate JSON document.
func New(cfg config.Config, source driver.RevisionSource, ledgerStore *ledger.Ledger, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Pipeline{
		cfg:    cfg,
		driver: driver.New(source, log),
		ledger: ledgerStore,
		log:    log,
	}
}

// Result is what a completed Run produces: the updated store, the
// revision log driving it, and the assembled corpus.
type Result struct {
	Store     *block.Store
	Revisions []driver.LogEntry
	Corpus    corpus.Corpus
}

// Run loads the cached intermediate state (if any), fetches and applies
// every outstanding revision, assembles the corpus in the configured
// mode, and — when cfg.Persist is set — writes the updated intermediate
// document back out before returning. New revision log entries are
// appended to the ledger whenever one is configured, whatever cfg.Persist
// says.
func (p *Pipeline) Run(ctx context.Context, onProgress driver.ProgressFunc) (Result, error) {
	// The cached JSON document and the SQLite ledger are independent reads
	// from unrelated stores; load them concurrently the way the teacher's
	// indexer coordinator fans out its per-indexer work with errgroup.
	var doc intermediate.Document
	var mirrored []driver.LogEntry

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := intermediate.Load(p.cfg.CacheFolder, p.cfg.Title)
		if err != nil {
			return fmt.Errorf("load intermediate state: %w", err)
		}
		doc = d
		return nil
	})
	if p.ledger != nil {
		g.Go(func() error {
			m, err := p.ledger.Load(gctx)
			if err != nil {
				return fmt.Errorf("load ledger: %w", err)
			}
			mirrored = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("pipeline: %w", err)
	}

	store := intermediate.ToStore(doc)
	revisionLog := doc.Revisions
	if len(mirrored) > len(revisionLog) {
		revisionLog = mirrored
	}

	upToDate, err := p.driver.UpToDate(ctx, p.cfg.Title, revisionLog)
	if err != nil {
		p.log.Warnf("pipeline: freshness check failed, proceeding anyway: %v", err)
	}

	startAt := len(revisionLog)
	if !upToDate {
		revisionLog, err = p.driver.Run(ctx, p.cfg.Title, store, revisionLog, onProgress)
		if err != nil && !errors.Is(err, context.Canceled) {
			return Result{}, fmt.Errorf("pipeline: driver run: %w", err)
		}
	}

	if p.ledger != nil {
		for i := startAt; i < len(revisionLog); i++ {
			if err := p.ledger.Append(ctx, p.cfg.Title, i, revisionLog[i]); err != nil {
				p.log.Warnf("pipeline: ledger append failed for revision %s: %v", revisionLog[i].RevisionID, err)
			}
		}
	}

	result := Result{Store: store, Revisions: revisionLog}

	c, err := p.assembleCorpus(store)
	if err != nil {
		return result, fmt.Errorf("pipeline: assemble corpus: %w", err)
	}
	result.Corpus = c

	if p.cfg.Persist {
		out := intermediate.FromStore(store, revisionLog)
		if err := intermediate.Save(p.cfg.CacheFolder, p.cfg.Title, out); err != nil {
			return result, fmt.Errorf("pipeline: persist intermediate state: %w", err)
		}
	}

	return result, nil
}

func (p *Pipeline) assembleCorpus(store *block.Store) (corpus.Corpus, error) {
	if p.cfg.Rough {
		return corpus.AssembleRough(store, p.log)
	}
	return corpus.Assemble(store, p.log)
}
