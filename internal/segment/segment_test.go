package segment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lucasvanbramer/talkpipeline/pkg/block"
	"github.com/lucasvanbramer/talkpipeline/pkg/hashing"
	"github.com/lucasvanbramer/talkpipeline/pkg/revision"
	"github.com/lucasvanbramer/talkpipeline/pkg/user"
)

func insertBlock(t *testing.T, s *block.Store, text string, u user.User) string {
	t.Helper()
	h := hashing.Fingerprint(text)
	b := block.Block{
		Text:        text,
		Timestamp:   time.Now(),
		User:        u,
		Ingested:    true,
		RevisionIDs: []revision.ID{revision.Known(1)},
		ReplyChain:  []string{h},
	}
	require.NoError(t, s.Insert(h, b))
	return h
}

func TestSegments_SingleAuthorChain(t *testing.T) {
	s := block.NewStore()
	alice := user.NewNamed("Alice")
	a := insertBlock(t, s, "first", alice)
	b := insertBlock(t, s, "second", alice)
	c := insertBlock(t, s, "third", alice)

	segments, err := Segments(s, []string{a, b, c})
	require.NoError(t, err)
	require.Len(t, segments, 1)
	require.Equal(t, Segment{a, b, c}, segments[0])
}

func TestSegments_AlternatingAuthors(t *testing.T) {
	s := block.NewStore()
	alice := user.NewNamed("Alice")
	bob := user.NewNamed("Bob")
	a1 := insertBlock(t, s, "alice one", alice)
	b1 := insertBlock(t, s, "bob one", bob)
	a2 := insertBlock(t, s, "alice two", alice)

	segments, err := Segments(s, []string{a1, b1, a2})
	require.NoError(t, err)
	require.Equal(t, []Segment{{a1}, {b1}, {a2}}, segments)
}

func TestSegments_ContiguousRunsMerge(t *testing.T) {
	s := block.NewStore()
	alice := user.NewNamed("Alice")
	bob := user.NewNamed("Bob")
	a1 := insertBlock(t, s, "alice one", alice)
	a2 := insertBlock(t, s, "alice two", alice)
	b1 := insertBlock(t, s, "bob one", bob)
	b2 := insertBlock(t, s, "bob two", bob)
	a3 := insertBlock(t, s, "alice three", alice)

	segments, err := Segments(s, []string{a1, a2, b1, b2, a3})
	require.NoError(t, err)
	require.Equal(t, []Segment{{a1, a2}, {b1, b2}, {a3}}, segments)
}

func TestSegments_EmptyChain(t *testing.T) {
	s := block.NewStore()
	segments, err := Segments(s, nil)
	require.NoError(t, err)
	require.Nil(t, segments)
}

func TestSegments_UnresolvedHash(t *testing.T) {
	s := block.NewStore()
	alice := user.NewNamed("Alice")
	a := insertBlock(t, s, "alice one", alice)

	_, err := Segments(s, []string{a, "never-seen"})
	require.Error(t, err)

	var unresolved *UnresolvedError
	require.ErrorAs(t, err, &unresolved)
	require.Equal(t, "never-seen", unresolved.Hash)
}

func TestSegments_ResolvesAliases(t *testing.T) {
	s := block.NewStore()
	alice := user.NewNamed("Alice")
	oldText := "before edit"
	oldHash := hashing.Fingerprint(oldText)
	require.NoError(t, s.Insert(oldHash, block.Block{
		Text:        oldText,
		Timestamp:   time.Now(),
		User:        alice,
		Ingested:    true,
		RevisionIDs: []revision.ID{revision.Known(1)},
		ReplyChain:  []string{oldHash},
	}))

	newText := "after edit"
	newHash := hashing.Fingerprint(newText)
	require.NoError(t, s.Rekey(oldHash, newHash, func(b block.Block) block.Block {
		b.Text = newText
		b.ReplyChain = []string{newHash}
		return b
	}))

	segments, err := Segments(s, []string{oldHash})
	require.NoError(t, err)
	require.Equal(t, []Segment{{newHash}}, segments)
}
