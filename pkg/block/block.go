// Package block defines the atomic content-addressed unit of the talk
// page model and the store that holds it, per spec.md §3 and §4.3.
// Grounded on revision_pipeline/block.py's Block and
// revision_pipeline/intermediate.py's Intermediate hash/block maps.
package block

import (
	"time"

	"github.com/lucasvanbramer/talkpipeline/pkg/revision"
	"github.com/lucasvanbramer/talkpipeline/pkg/user"
)

// Block is a contiguous paragraph-like unit of talk page text, keyed in
// the Store by the md5 fingerprint of its current text.
type Block struct {
	// Text is the raw textual content of this block.
	Text string
	// Timestamp is the revision timestamp at which this block reached its
	// current form.
	Timestamp time.Time
	// User is the author of the current form, or the Unknown/Hidden sentinel.
	User user.User
	// Ingested is true if this exact text was observed being added in a
	// tracked revision, false if only observed as pre-existing or edited
	// from unseen prior content.
	Ingested bool
	// RevisionIDs is the ordered sequence of revisions in which this block
	// was added or modified; revision.Unknown may occupy the first slot.
	RevisionIDs []revision.ID
	// ReplyChain is the ordered sequence of block hashes from the section
	// root down to and including this block.
	ReplyChain []string
	// IsFollowed is true if, within the same revision that added this
	// block, another block by the same author was appended immediately
	// after it.
	IsFollowed bool
	// IsHeader is true iff this block's text is a section heading.
	IsHeader bool
	// RootHash is the hash of the section-heading block for this block's
	// conversation. A header block's RootHash is its own hash, so the
	// invariant "root_hash resolves to a block with IsHeader=true" holds
	// uniformly for every block, header or not.
	RootHash string
}

// OwnHash is the last element of ReplyChain, which the store invariant
// requires to equal the block's own store key.
func (b Block) OwnHash() string {
	if len(b.ReplyChain) == 0 {
		return ""
	}
	return b.ReplyChain[len(b.ReplyChain)-1]
}

// Clone returns a deep-enough copy of b safe to mutate independently
// (copies the ReplyChain and RevisionIDs slices).
func (b Block) Clone() Block {
	out := b
	out.ReplyChain = append([]string(nil), b.ReplyChain...)
	out.RevisionIDs = append([]revision.ID(nil), b.RevisionIDs...)
	return out
}
