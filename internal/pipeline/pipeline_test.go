package pipeline

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lucasvanbramer/talkpipeline/internal/applier"
	"github.com/lucasvanbramer/talkpipeline/internal/ledger"
	"github.com/lucasvanbramer/talkpipeline/internal/logger"
	"github.com/lucasvanbramer/talkpipeline/pkg/config"
	"github.com/lucasvanbramer/talkpipeline/pkg/diffrow"
	"github.com/lucasvanbramer/talkpipeline/pkg/revision"
	"github.com/lucasvanbramer/talkpipeline/pkg/user"
)

// fakeSource implements driver.RevisionSource with a fixed script of
// revisions and diffs, mirroring the teacher's mockIndexer approach of
// hand-rolling the collaborator interface instead of a mocking library.
type fakeSource struct {
	revisions []applier.RevisionMeta
	diffs     map[string][]diffrow.Row
}

func diffKey(from, to revision.ID) string {
	return from.String() + "->" + to.String()
}

func (f *fakeSource) ListRevisions(ctx context.Context, title string, sinceID revision.ID) ([]applier.RevisionMeta, error) {
	var out []applier.RevisionMeta
	if !sinceID.IsKnown() {
		out = append(out, f.revisions...)
		return out, nil
	}
	found := false
	for _, r := range f.revisions {
		if found {
			out = append(out, r)
			continue
		}
		if r.ID.Equal(sinceID) {
			found = true
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSource) FetchDiff(ctx context.Context, title string, fromID, toID revision.ID) ([]diffrow.Row, error) {
	return f.diffs[diffKey(fromID, toID)], nil
}

func (f *fakeSource) LastRevisionID(ctx context.Context, title string) (revision.ID, error) {
	return f.revisions[len(f.revisions)-1].ID, nil
}

func newThreeRevisionSource() *fakeSource {
	rev1 := applier.RevisionMeta{ID: revision.Known(1), Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), User: user.NewNamed("Alice")}
	rev2 := applier.RevisionMeta{ID: revision.Known(2), Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), User: user.NewNamed("Bob")}
	rev3 := applier.RevisionMeta{ID: revision.Known(3), Timestamp: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), User: user.NewNamed("Carol")}

	return &fakeSource{
		revisions: []applier.RevisionMeta{rev1, rev2, rev3},
		diffs: map[string][]diffrow.Row{
			diffKey(revision.Unknown, revision.Known(1)): {},
			diffKey(revision.Known(1), revision.Known(2)): {
				{Cells: []diffrow.Cell{
					{Text: "", Class: "diff-empty"},
					{Text: "", Class: "diff-empty"},
					{Text: "== Discussion ==", Class: "diff-addedline"},
				}},
			},
			diffKey(revision.Known(2), revision.Known(3)): {},
		},
	}
}

func TestPipeline_Run_NoPersist(t *testing.T) {
	cfg := config.Config{
		Title:       "Talk:Epistemology",
		CacheFolder: t.TempDir(),
		Persist:     false,
		Rough:       false,
	}

	p := New(cfg, newThreeRevisionSource(), nil, logger.NewNopLogger())

	result, err := p.Run(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, result.Store)
	require.Len(t, result.Revisions, 2)
}

func TestPipeline_Run_PersistsIntermediateDocument(t *testing.T) {
	cacheFolder := t.TempDir()
	cfg := config.Config{
		Title:       "Talk:Epistemology",
		CacheFolder: cacheFolder,
		Persist:     true,
	}

	p := New(cfg, newThreeRevisionSource(), nil, logger.NewNopLogger())

	_, err := p.Run(context.Background(), nil)
	require.NoError(t, err)

	// A second run against the same cache folder should observe the
	// page as already up to date and do no further work.
	p2 := New(cfg, newThreeRevisionSource(), nil, logger.NewNopLogger())
	result2, err := p2.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, result2.Revisions, 2)
}

func TestPipeline_Run_MirrorsToLedgerConcurrently(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "pipeline_ledger_test_*.db")
	require.NoError(t, err)
	tmpFile.Close()
	defer os.Remove(tmpFile.Name())

	ledgerStore, err := ledger.Open(config.LedgerConfig{DB: config.DatabaseConfig{Path: tmpFile.Name()}}, logger.NewNopLogger())
	require.NoError(t, err)
	defer ledgerStore.Close()

	cfg := config.Config{
		Title:       "Talk:Epistemology",
		CacheFolder: t.TempDir(),
	}

	p := New(cfg, newThreeRevisionSource(), ledgerStore, logger.NewNopLogger())
	result, err := p.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, result.Revisions, 2)

	mirrored, err := ledgerStore.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, mirrored, 2)

	// A second run reads the intermediate document and the ledger back in
	// via the same concurrent load path and must still agree on the log.
	p2 := New(cfg, newThreeRevisionSource(), ledgerStore, logger.NewNopLogger())
	result2, err := p2.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, result2.Revisions, 2)
}

func TestPipeline_Run_RoughMode(t *testing.T) {
	cfg := config.Config{
		Title:       "Talk:Epistemology",
		CacheFolder: t.TempDir(),
		Rough:       true,
	}

	p := New(cfg, newThreeRevisionSource(), nil, logger.NewNopLogger())

	result, err := p.Run(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, result.Store)
}
