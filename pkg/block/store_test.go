package block

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lucasvanbramer/talkpipeline/pkg/hashing"
	"github.com/lucasvanbramer/talkpipeline/pkg/revision"
	"github.com/lucasvanbramer/talkpipeline/pkg/user"
)

func newTestBlock(text string) Block {
	h := hashing.Fingerprint(text)
	return Block{
		Text:        text,
		Timestamp:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		User:        user.NewNamed("Alice"),
		Ingested:    true,
		RevisionIDs: []revision.ID{revision.Known(1)},
		ReplyChain:  []string{h},
	}
}

func TestStore_InsertAndGet(t *testing.T) {
	s := NewStore()
	b := newTestBlock("hello world")
	h := hashing.Fingerprint("hello world")

	err := s.Insert(h, b)
	require.NoError(t, err)

	got, ok := s.Get(h)
	require.True(t, ok)
	require.Equal(t, b.Text, got.Text)
	require.Equal(t, 1, s.Len())
}

func TestStore_Insert_HashMismatch(t *testing.T) {
	s := NewStore()
	b := newTestBlock("hello world")

	err := s.Insert("not-the-right-hash", b)
	require.Error(t, err)
	require.Equal(t, 0, s.Len())
}

func TestStore_Remove(t *testing.T) {
	s := NewStore()
	h := hashing.Fingerprint("hello world")
	require.NoError(t, s.Insert(h, newTestBlock("hello world")))

	s.Remove(h)

	_, ok := s.Get(h)
	require.False(t, ok)
	_, ok = s.Resolve(h)
	require.False(t, ok)
}

func TestStore_Remove_Idempotent(t *testing.T) {
	s := NewStore()
	s.Remove("never-inserted")
	require.Equal(t, 0, s.Len())
}

func TestStore_Resolve_SelfAlias(t *testing.T) {
	s := NewStore()
	h := hashing.Fingerprint("hello world")
	require.NoError(t, s.Insert(h, newTestBlock("hello world")))

	canon, ok := s.Resolve(h)
	require.True(t, ok)
	require.Equal(t, h, canon)
}

func TestStore_Resolve_Unknown(t *testing.T) {
	s := NewStore()
	_, ok := s.Resolve("never-seen")
	require.False(t, ok)
}

func TestStore_Rekey(t *testing.T) {
	s := NewStore()
	oldText := "hello world"
	oldHash := hashing.Fingerprint(oldText)
	require.NoError(t, s.Insert(oldHash, newTestBlock(oldText)))

	newText := "hello world, edited"
	newHash := hashing.Fingerprint(newText)

	err := s.Rekey(oldHash, newHash, func(b Block) Block {
		b.Text = newText
		b.ReplyChain = []string{newHash}
		return b
	})
	require.NoError(t, err)

	_, ok := s.Get(oldHash)
	require.False(t, ok, "old hash should no longer resolve directly")

	got, ok := s.Get(newHash)
	require.True(t, ok)
	require.Equal(t, newText, got.Text)

	canon, ok := s.Resolve(oldHash)
	require.True(t, ok)
	require.Equal(t, newHash, canon)
}

func TestStore_Rekey_MissingOldHash(t *testing.T) {
	s := NewStore()
	err := s.Rekey("missing", "whatever", func(b Block) Block { return b })
	require.Error(t, err)
}

func TestStore_Resolve_PathCompression(t *testing.T) {
	s := NewStore()
	a := hashing.Fingerprint("a")
	bb := hashing.Fingerprint("b")
	c := hashing.Fingerprint("c")

	require.NoError(t, s.Insert(a, newTestBlock("a")))
	require.NoError(t, s.Rekey(a, bb, func(blk Block) Block {
		blk.Text = "b"
		blk.ReplyChain = []string{bb}
		return blk
	}))
	require.NoError(t, s.Rekey(bb, c, func(blk Block) Block {
		blk.Text = "c"
		blk.ReplyChain = []string{c}
		return blk
	}))

	canon, ok := s.Resolve(a)
	require.True(t, ok)
	require.Equal(t, c, canon)

	// Path compression should now point a directly at c.
	aliases := s.AllAliases()
	require.Equal(t, c, aliases[a])
}

func TestStore_RestoreAlias(t *testing.T) {
	s := NewStore()
	h := hashing.Fingerprint("hello world")
	require.NoError(t, s.Insert(h, newTestBlock("hello world")))
	s.RestoreAlias("stale-hash", h)

	canon, ok := s.Resolve("stale-hash")
	require.True(t, ok)
	require.Equal(t, h, canon)
}

func TestStore_AllAliases_IsACopy(t *testing.T) {
	s := NewStore()
	h := hashing.Fingerprint("hello world")
	require.NoError(t, s.Insert(h, newTestBlock("hello world")))

	aliases := s.AllAliases()
	aliases["injected"] = "should-not-leak"

	_, ok := s.Resolve("injected")
	require.False(t, ok, "mutating the returned map must not affect the store")
}

func TestStore_ResolveBlock(t *testing.T) {
	s := NewStore()
	h := hashing.Fingerprint("hello world")
	b := newTestBlock("hello world")
	require.NoError(t, s.Insert(h, b))

	got, canon, ok := s.ResolveBlock(h)
	require.True(t, ok)
	require.Equal(t, h, canon)
	require.Equal(t, b.Text, got.Text)
}

func TestStore_ResolveBlock_Unknown(t *testing.T) {
	s := NewStore()
	_, _, ok := s.ResolveBlock("never-seen")
	require.False(t, ok)
}

func TestBlock_OwnHash(t *testing.T) {
	b := Block{ReplyChain: []string{"root", "child", "grandchild"}}
	require.Equal(t, "grandchild", b.OwnHash())

	empty := Block{}
	require.Equal(t, "", empty.OwnHash())
}

func TestBlock_Clone_IsIndependent(t *testing.T) {
	b := newTestBlock("hello world")
	clone := b.Clone()

	clone.ReplyChain[0] = "mutated"
	clone.RevisionIDs[0] = revision.Known(999)

	require.NotEqual(t, clone.ReplyChain[0], b.ReplyChain[0])
	require.NotEqual(t, clone.RevisionIDs[0], b.RevisionIDs[0])
}
