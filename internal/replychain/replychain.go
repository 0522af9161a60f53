// Package replychain computes the reply target for a newly ingested or
// modified comment, per spec.md §4.6. It is the part of the reply-chain
// reconstruction that the diff applier consults for every added or edited
// comment; the other half, author-contiguous segmentation, lives in
// internal/segment.
//
// Grounded on revision_pipeline/intermediate.py's compute_reply_hash.
package replychain

import "github.com/lucasvanbramer/talkpipeline/pkg/block"

// TargetHash returns the canonical hash of the block that a comment at
// thisDepth, following a block at (prevHash, prevDepth), replies to.
// It returns ("", false) when the comment is top-level within its
// section, or when the ancestor walk cannot resolve a shallower block.
func TargetHash(store *block.Store, prevHash string, prevDepth, thisDepth int) (string, bool) {
	if thisDepth == 0 {
		return "", false
	}
	if thisDepth > prevDepth {
		canon, ok := store.Resolve(prevHash)
		if !ok {
			return "", false
		}
		return canon, true
	}

	hash := prevHash
	depth := prevDepth
	for depth > thisDepth {
		canon, ok := store.Resolve(hash)
		if !ok {
			return "", false
		}
		b, ok := store.Get(canon)
		if !ok {
			return "", false
		}
		parent := parentOf(b)
		if parent == "" {
			return "", false
		}
		hash = parent
		depth--
	}

	canon, ok := store.Resolve(hash)
	if !ok {
		return "", false
	}
	return canon, true
}

// parentOf returns the last-but-one element of a block's reply chain —
// the hash of the block it replies to — or "" if it is top-level.
func parentOf(b block.Block) string {
	if len(b.ReplyChain) < 2 {
		return ""
	}
	return b.ReplyChain[len(b.ReplyChain)-2]
}

// Extend returns a new reply chain formed by copying target's own chain
// (target is looked up as given, not resolved) and appending newHash, the shape every add/modify path in the
// applier needs whether the target came from same-author continuation
// or from TargetHash.
func Extend(store *block.Store, target string, newHash string) ([]string, bool) {
	b, ok := store.Get(target)
	if !ok {
		return nil, false
	}
	chain := append([]string(nil), b.ReplyChain...)
	chain = append(chain, newHash)
	return chain, true
}
