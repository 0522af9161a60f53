package intermediate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lucasvanbramer/talkpipeline/internal/applier"
	"github.com/lucasvanbramer/talkpipeline/internal/driver"
	"github.com/lucasvanbramer/talkpipeline/pkg/block"
	"github.com/lucasvanbramer/talkpipeline/pkg/hashing"
	"github.com/lucasvanbramer/talkpipeline/pkg/revision"
	"github.com/lucasvanbramer/talkpipeline/pkg/user"
)

var currentHash = hashing.Fingerprint("a comment")

func sampleDocument() Document {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return Document{
		HashLookup: map[string]string{"stale-hash": currentHash, currentHash: currentHash},
		Blocks: map[string]block.Block{
			currentHash: {
				Text: "a comment", Timestamp: ts, User: user.NewNamed("Alice"),
				Ingested: true, RevisionIDs: []revision.ID{revision.Unknown, revision.Known(5)},
				ReplyChain: []string{currentHash}, IsHeader: false, RootHash: "root-hash",
			},
		},
		Revisions: []driver.LogEntry{
			{RevisionID: revision.Known(5), Behaviors: []applier.Behavior{applier.BehaviorModify}, Timestamp: ts},
		},
	}
}

func TestMarshalUnmarshal_RoundTrip(t *testing.T) {
	doc := sampleDocument()

	data, err := Marshal(doc)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)

	require.Equal(t, doc.HashLookup, got.HashLookup)
	require.Equal(t, doc.Revisions, got.Revisions)
	require.Equal(t, doc.Blocks[currentHash].Text, got.Blocks[currentHash].Text)
	require.True(t, doc.Blocks[currentHash].Timestamp.Equal(got.Blocks[currentHash].Timestamp))
	require.Equal(t, doc.Blocks[currentHash].User, got.Blocks[currentHash].User)
	require.Equal(t, doc.Blocks[currentHash].RevisionIDs, got.Blocks[currentHash].RevisionIDs)
}

func TestMarshal_RevisionTupleIsThreeElementArray(t *testing.T) {
	doc := sampleDocument()
	data, err := Marshal(doc)
	require.NoError(t, err)
	require.Contains(t, string(data), `"modify"`)
	require.Contains(t, string(data), `"revisions"`)

	var raw struct {
		Revisions [][]json.RawMessage `json:"revisions"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw.Revisions, 1)
	require.Len(t, raw.Revisions[0], 3)
}

func TestToStoreFromStore_RoundTrip(t *testing.T) {
	doc := sampleDocument()
	store := ToStore(doc)

	canon, ok := store.Resolve("stale-hash")
	require.True(t, ok)
	require.Equal(t, currentHash, canon)

	got, ok := store.Get(currentHash)
	require.True(t, ok)
	require.Equal(t, "a comment", got.Text)

	out := FromStore(store, doc.Revisions)
	require.Equal(t, doc.Revisions, out.Revisions)
	require.Equal(t, currentHash, out.HashLookup["stale-hash"])
	require.Contains(t, out.Blocks, currentHash)
}

func TestTitleToFilename(t *testing.T) {
	require.Equal(t, "Example_page.json", TitleToFilename("Talk:Example page"))
	require.Equal(t, "Example_Sub_page.json", TitleToFilename("Talk:Example/Sub page"))
	require.Equal(t, "No_prefix.json", TitleToFilename("No prefix"))
}

func TestLoad_MissingFileReturnsEmptyDocument(t *testing.T) {
	doc, err := Load(t.TempDir(), "Talk:Never Saved")
	require.NoError(t, err)
	require.Empty(t, doc.Blocks)
	require.Empty(t, doc.HashLookup)
	require.Empty(t, doc.Revisions)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	title := "Talk:Example page"
	doc := sampleDocument()

	require.NoError(t, Save(dir, title, doc))
	require.FileExists(t, filepath.Join(dir, "Example_page.json"))

	got, err := Load(dir, title)
	require.NoError(t, err)
	require.Equal(t, doc.HashLookup, got.HashLookup)
	require.Equal(t, doc.Revisions, got.Revisions)
}

func TestLoad_MalformedFileReturnsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Broken.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := Load(dir, "Talk:Broken")
	require.Error(t, err)
}
