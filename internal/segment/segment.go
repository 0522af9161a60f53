// Package segment implements author-contiguous segmentation of a reply
// chain, per spec.md §4.7. Grounded on
// revision_pipeline/intermediate.py's segment_contiguous_blocks.
package segment

import (
	"github.com/lucasvanbramer/talkpipeline/pkg/block"
	"github.com/lucasvanbramer/talkpipeline/pkg/user"
)

// Segment is a maximal run of canonical block hashes authored by the same
// user within a reply chain.
type Segment []string

// Segments resolves every hash in replyChain to canonical form and
// partitions the result into maximal runs of equal author. It returns an
// error only if a hash in the chain cannot be resolved to a stored block,
// which the spec treats as a corrupted chain rather than an expected
// condition.
func Segments(store *block.Store, replyChain []string) ([]Segment, error) {
	canon := make([]string, len(replyChain))
	for i, h := range replyChain {
		c, ok := store.Resolve(h)
		if !ok {
			return nil, unresolvedErr(h)
		}
		canon[i] = c
	}

	if len(canon) == 0 {
		return nil, nil
	}

	segments := make([]Segment, 0, 4)
	lastUser, ok := userOf(store, canon[0])
	if !ok {
		return nil, unresolvedErr(canon[0])
	}
	current := Segment{canon[0]}

	for _, h := range canon[1:] {
		u, ok := userOf(store, h)
		if !ok {
			return nil, unresolvedErr(h)
		}
		if u.Equal(lastUser) {
			current = append(current, h)
		} else {
			segments = append(segments, current)
			current = Segment{h}
		}
		lastUser = u
	}
	segments = append(segments, current)

	return segments, nil
}

func userOf(store *block.Store, hash string) (user.User, bool) {
	b, ok := store.Get(hash)
	if !ok {
		return user.User{}, false
	}
	return b.User, true
}

func unresolvedErr(hash string) error {
	return &UnresolvedError{Hash: hash}
}

// UnresolvedError reports that a reply chain references a hash the store
// can no longer resolve — an inconsistent chain, never expected in
// practice but guarded against rather than panicking.
type UnresolvedError struct {
	Hash string
}

func (e *UnresolvedError) Error() string {
	return "segment: cannot resolve hash " + e.Hash
}
