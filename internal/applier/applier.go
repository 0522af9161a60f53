// Package applier implements the diff-driven block accumulator's state
// machine, the part of spec.md identified as THE CORE: for one revision
// pair it walks the diff's rows in document order and mutates the block
// store accordingly. Grounded on revision_pipeline/pipeline.py's
// _parse_diff, re-architected per spec.md §9 so that an unclassifiable
// row returns an error value consumed by the caller instead of raising
// an exception mid-walk.
package applier

import (
	"fmt"
	"time"

	"github.com/lucasvanbramer/talkpipeline/internal/replychain"
	"github.com/lucasvanbramer/talkpipeline/pkg/block"
	"github.com/lucasvanbramer/talkpipeline/pkg/diffrow"
	"github.com/lucasvanbramer/talkpipeline/pkg/hashing"
	"github.com/lucasvanbramer/talkpipeline/pkg/revision"
	"github.com/lucasvanbramer/talkpipeline/pkg/user"
)

// Behavior is one tag recorded against a revision in the revision log.
type Behavior string

const (
	BehaviorCreateSection Behavior = "create_section"
	BehaviorAddComment    Behavior = "add_comment"
	BehaviorModify        Behavior = "modify"
	BehaviorMove          Behavior = "move"
	BehaviorRemoval       Behavior = "removal"
	BehaviorError         Behavior = "error"
)

// RevisionMeta is the chronological/authorial metadata the driver fetches
// for each revision via list_revisions.
type RevisionMeta struct {
	ID        revision.ID
	Timestamp time.Time
	User      user.User
}

// Result is what Apply reports back to the revision driver: the behavior
// tags observed (a multiset, duplicates preserved) and, if the walk had
// to stop early, the row-level error that caused it.
type Result struct {
	Behaviors []Behavior
	Err       error
}

// state is the per-diff local state threaded through one call to Apply,
// meaningful only within a single revision per spec.md §5.
type state struct {
	store *block.Store

	lastHash          string
	lastDepth         int
	lastBlockIngested bool
	currSectionHash   string
}

// Apply consumes rows (one diff, i.e. one revision pair) in document
// order and mutates store. prev/curr are the revisions the diff compares.
// Row-level classification failures stop the walk for this revision (the
// store is left exactly as advanced through the last clean row) and are
// reported via Result.Err with BehaviorError included in Result.Behaviors;
// they are never returned as a Go error from Apply itself, matching
// spec.md §7's "resilient at the row level within an otherwise-fatal
// revision" policy.
func Apply(store *block.Store, prev, curr RevisionMeta, rows []diffrow.Row) Result {
	st := &state{store: store}
	var behaviors []Behavior

	for i, row := range rows {
		tag, err := diffrow.Classify(row)
		if err != nil {
			behaviors = append(behaviors, BehaviorError)
			return Result{Behaviors: behaviors, Err: fmt.Errorf("applier: row %d: %w", i, err)}
		}

		var b Behavior
		var applyErr error
		switch tag {
		case diffrow.LineNumber:
			continue
		case diffrow.Unedited:
			applyUnedited(st, row, prev)
		case diffrow.NewContent:
			b, applyErr = applyNewContent(st, row, curr)
		case diffrow.MovedRight:
			b, applyErr = applyMovedRight(st, row, curr)
		case diffrow.Removal:
			applyRemoval(st, row)
		case diffrow.MovedLeft:
			b = BehaviorRemoval
		case diffrow.Modification:
			b, applyErr = applyModification(st, row, curr)
		default:
			applyErr = fmt.Errorf("applier: unhandled tag %d", tag)
		}

		if applyErr != nil {
			behaviors = append(behaviors, BehaviorError)
			return Result{Behaviors: behaviors, Err: fmt.Errorf("applier: %w", applyErr)}
		}
		if b != "" {
			behaviors = append(behaviors, b)
		}
	}

	return Result{Behaviors: behaviors}
}

// applyUnedited handles a row whose text is unchanged between revisions.
func applyUnedited(st *state, row diffrow.Row, prev RevisionMeta) {
	text := row.UneditedText()
	if hashing.IsBlank(text) {
		return
	}

	h := hashing.Fingerprint(text)
	d := hashing.Depth(text)

	if _, ok := st.store.Get(h); !ok {
		b := block.Block{
			Text:        text,
			Timestamp:   prev.Timestamp,
			User:        user.NewUnknown(),
			Ingested:    false,
			RevisionIDs: []revision.ID{revision.Unknown},
			ReplyChain:  []string{h},
		}
		if hashing.IsSectionHeading(text) {
			b.IsHeader = true
			b.RootHash = h
			st.currSectionHash = h
		}
		_ = st.store.Insert(h, b)
	} else {
		canon, _ := st.store.Resolve(h)
		if existing, ok := st.store.Get(canon); ok {
			st.currSectionHash = existing.RootHash
		}
	}

	st.lastHash = h
	st.lastDepth = d
	st.lastBlockIngested = false
}

// applyNewContent handles a three-cell added-text row that is not a move.
func applyNewContent(st *state, row diffrow.Row, curr RevisionMeta) (Behavior, error) {
	added := row.AddedText()
	if hashing.IsBlank(added) {
		return "", nil
	}

	h := hashing.Fingerprint(added)
	d := hashing.Depth(added)

	b := block.Block{
		Text:        added,
		Timestamp:   curr.Timestamp,
		User:        curr.User,
		Ingested:    true,
		RevisionIDs: []revision.ID{curr.ID},
	}

	var behavior Behavior
	if hashing.IsSectionHeading(added) {
		b.ReplyChain = []string{h}
		b.IsHeader = true
		b.RootHash = h
		st.currSectionHash = h
		behavior = BehaviorCreateSection
	} else {
		b.IsHeader = false
		b.RootHash = st.currSectionHash
		chain, followedHash := replyChainFor(st, h, d)
		b.ReplyChain = chain
		if followedHash != "" {
			markFollowed(st.store, followedHash)
		}
		behavior = BehaviorAddComment
	}

	if err := st.store.Insert(h, b); err != nil {
		return "", err
	}
	st.lastHash = h
	st.lastDepth = d
	st.lastBlockIngested = true
	return behavior, nil
}

// replyChainFor computes the reply chain for a newly added or modified
// comment at depth d whose fingerprint is h, per spec.md §4.5/§4.6. It
// returns the hash whose IsFollowed should be set, if any.
func replyChainFor(st *state, h string, d int) (chain []string, followedHash string) {
	if st.lastBlockIngested {
		if extended, ok := replychain.Extend(st.store, st.lastHash, h); ok {
			return extended, st.lastHash
		}
	} else if target, ok := replychain.TargetHash(st.store, st.lastHash, st.lastDepth, d); ok {
		if extended, ok := replychain.Extend(st.store, target, h); ok {
			return extended, ""
		}
	}
	return []string{h}, ""
}

func markFollowed(store *block.Store, hash string) {
	canon, ok := store.Resolve(hash)
	if !ok {
		return
	}
	b, ok := store.Get(canon)
	if !ok {
		return
	}
	b.IsFollowed = true
	store.Insert(canon, b) //nolint:errcheck // re-inserting the same key always matches its own fingerprint
}

// applyMovedRight handles a NewContent row whose anchor pairs it with a
// removed paragraph elsewhere in the diff (a relocation, not creation).
func applyMovedRight(st *state, row diffrow.Row, curr RevisionMeta) (Behavior, error) {
	added := row.AddedText()
	if hashing.IsBlank(added) {
		return "", nil
	}

	hNew := hashing.Fingerprint(added)
	d := hashing.Depth(added)

	var hOld string
	if row.PairedText != "" {
		hOld = hashing.Fingerprint(row.PairedText)
	}
	if hOld != "" {
		if _, ok := st.store.Get(hOld); ok {
			err := st.store.Rekey(hOld, hNew, func(old block.Block) block.Block {
				newBlock := old.Clone()
				if hOld != hNew {
					newBlock.Text = added
					newBlock.User = curr.User
				}
				newBlock.Timestamp = curr.Timestamp
				newBlock.RevisionIDs = append(newBlock.RevisionIDs, curr.ID)
				newBlock.RootHash = st.currSectionHash
				if hOld != hNew {
					newBlock.ReplyChain = append(append([]string(nil), old.ReplyChain[:len(old.ReplyChain)-1]...), hNew)
				}
				return newBlock
			})
			if err != nil {
				return "", err
			}
			st.lastHash = hNew
			st.lastDepth = d
			st.lastBlockIngested = true
			return BehaviorMove, nil
		}
	}

	// Paired text is unknown: treat like an unseen modification (spec.md §4.5).
	b := block.Block{
		Text:        added,
		Timestamp:   curr.Timestamp,
		User:        curr.User,
		Ingested:    false,
		RevisionIDs: []revision.ID{revision.Unknown, curr.ID},
		ReplyChain:  []string{hNew},
		RootHash:    st.currSectionHash,
	}
	if err := st.store.Insert(hNew, b); err != nil {
		return "", err
	}
	st.lastHash = hNew
	st.lastDepth = d
	st.lastBlockIngested = true
	return BehaviorMove, nil
}

// applyRemoval handles a pure removal row (moved-left rows are tagged
// separately and never reach this function).
func applyRemoval(st *state, row diffrow.Row) {
	removed := row.RemovedText()
	if removed == "" {
		return
	}
	h := hashing.Fingerprint(removed)
	st.store.Remove(h)
}

// applyModification handles a four-cell row replacing old text with new
// text in place.
func applyModification(st *state, row diffrow.Row, curr RevisionMeta) (Behavior, error) {
	oldText := row.OldText()
	newText := row.NewText()
	hOld := hashing.Fingerprint(oldText)
	hNew := hashing.Fingerprint(newText)
	d := hashing.Depth(newText)

	if _, ok := st.store.Get(hOld); ok {
		err := st.store.Rekey(hOld, hNew, func(old block.Block) block.Block {
			newBlock := old.Clone()
			newBlock.Text = newText
			newBlock.Timestamp = curr.Timestamp
			newBlock.User = curr.User
			newBlock.RevisionIDs = append(newBlock.RevisionIDs, curr.ID)
			newBlock.Ingested = true
			return newBlock
		})
		if err != nil {
			return "", err
		}

		chain, followedHash := replyChainFor(st, hNew, d)
		if followedHash != "" {
			markFollowed(st.store, followedHash)
		}
		b, _ := st.store.Get(hNew)
		b.ReplyChain = chain
		if err := st.store.Insert(hNew, b); err != nil {
			return "", err
		}
	} else {
		b := block.Block{
			Text:        newText,
			Timestamp:   curr.Timestamp,
			User:        curr.User,
			Ingested:    false,
			RevisionIDs: []revision.ID{revision.Unknown, curr.ID},
			ReplyChain:  []string{hNew},
			RootHash:    st.currSectionHash,
		}
		if err := st.store.Insert(hNew, b); err != nil {
			return "", err
		}
	}

	st.lastHash = hNew
	st.lastDepth = d
	st.lastBlockIngested = true
	return BehaviorModify, nil
}
