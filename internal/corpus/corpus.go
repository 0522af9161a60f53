// Package corpus folds the block store into a conversation corpus of
// reply-threaded utterances, per spec.md §4.8 (structured mode) and §4.9
// (rough mode). Grounded on revision_pipeline/pipeline.py's
// convert_intermediate_to_corpus and rough_convert_intermediate_to_corpus.
package corpus

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lucasvanbramer/talkpipeline/internal/logger"
	"github.com/lucasvanbramer/talkpipeline/internal/segment"
	"github.com/lucasvanbramer/talkpipeline/pkg/block"
	"github.com/lucasvanbramer/talkpipeline/pkg/revision"
	"github.com/lucasvanbramer/talkpipeline/pkg/user"
)

// Utterance is one output unit of the corpus: one or more blocks posted
// by one author in sequence, with a single reply target.
type Utterance struct {
	ID        string
	User      user.User
	Root      string
	ReplyTo   string // "" if none
	HasReply  bool
	Timestamp time.Time
	Text      string
	Meta      Meta
}

// Meta carries the utterance's constituent block hashes and the latest
// real (non-sentinel) revision that touched it.
type Meta struct {
	ConstituentBlocks []string
	LastRevision      revision.ID
}

// Corpus is the final product: an unordered set of utterances plus the
// reverse index from block hash to utterance id.
type Corpus struct {
	Utterances        []Utterance
	ReverseBlockIndex map[string]string
}

type completedUtterance struct {
	segments   []segment.Segment // full chain's segments; last is this utterance's own
	ownSegment segment.Segment
}

// collectCompleteUtterances walks every block, computes its reply
// chain's segments, and gathers every segment that qualifies as a
// "complete utterance" per spec.md §4.8, de-duplicated by concatenated
// segment key so a segment reached from multiple blocks is only emitted
// once.
func collectCompleteUtterances(store *block.Store, log *logger.Logger) map[string]completedUtterance {
	seen := make(map[string]completedUtterance)

	for hash, b := range store.All() {
		segments, err := segment.Segments(store, b.ReplyChain)
		if err != nil {
			log.Debugf("corpus: skipping block %q: %v", truncate(b.Text, 32), err)
			continue
		}
		if len(segments) == 0 {
			continue
		}
		last := segments[len(segments)-1]
		if last[len(last)-1] != hash {
			// Reply chain's tail doesn't match the block's own canonical
			// hash; an inconsistent chain, skip per spec.md §7.
			continue
		}

		for _, seg := range segments[:len(segments)-1] {
			key := segKey(seg)
			seen[key] = completedUtterance{segments: segments, ownSegment: seg}
		}

		lastBlock, ok := store.Get(last[len(last)-1])
		if !ok {
			continue
		}
		if b.IsHeader || !lastBlock.IsFollowed {
			key := segKey(last)
			seen[key] = completedUtterance{segments: segments, ownSegment: last}
		}
	}

	return seen
}

func segKey(seg segment.Segment) string {
	return strings.Join(seg, " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Assemble builds the structured-mode corpus: reply_to is derived from
// each utterance's owning chain, per spec.md §4.8.
func Assemble(store *block.Store, log *logger.Logger) (Corpus, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	complete := collectCompleteUtterances(store, log)
	utterances := make([]Utterance, 0, len(complete))
	reverseIndex := make(map[string]string)

	for _, cu := range complete {
		utt, err := buildUtterance(store, cu)
		if err != nil {
			log.Debugf("corpus: skipping utterance: %v", err)
			continue
		}
		for _, h := range cu.ownSegment {
			reverseIndex[h] = utt.ID
		}
		utterances = append(utterances, utt)
	}

	sort.Slice(utterances, func(i, j int) bool { return utterances[i].ID < utterances[j].ID })

	return Corpus{Utterances: utterances, ReverseBlockIndex: reverseIndex}, nil
}

func buildUtterance(store *block.Store, cu completedUtterance) (Utterance, error) {
	seg := cu.ownSegment
	firstHash := seg[0]
	firstBlock, ok := store.Get(firstHash)
	if !ok {
		return Utterance{}, fmt.Errorf("corpus: missing first block %s", firstHash)
	}

	root, ok := store.Resolve(firstBlock.RootHash)
	if !ok {
		root = firstBlock.RootHash
	}

	texts := make([]string, len(seg))
	for i, h := range seg {
		b, ok := store.Get(h)
		if !ok {
			return Utterance{}, fmt.Errorf("corpus: missing constituent block %s", h)
		}
		texts[i] = b.Text
	}

	lastRevision := firstBlock.RevisionIDs[len(firstBlock.RevisionIDs)-1]
	if !lastRevision.IsKnown() {
		// The corpus metadata field reports the latest *real* revision id,
		// normalizing the unknown-origin sentinel to 0 rather than
		// propagating the "unknown" tag (original_source/pipeline.py: "…
		// if … != 'unknown' else 0").
		lastRevision = revision.Known(0)
	}

	// Identify which segment of the owning chain this one is, to find the
	// previous segment for reply_to.
	ownIndex := -1
	for i, s := range cu.segments {
		if segKey(s) == segKey(seg) {
			ownIndex = i
			break
		}
	}

	replyTo := ""
	hasReply := false
	if ownIndex > 0 {
		replyTo = cu.segments[ownIndex-1][0]
		hasReply = true
	}

	return Utterance{
		ID:        firstHash,
		User:      firstBlock.User,
		Root:      root,
		ReplyTo:   replyTo,
		HasReply:  hasReply,
		Timestamp: firstBlock.Timestamp,
		Text:      strings.Join(texts, "\n"),
		Meta: Meta{
			ConstituentBlocks: append([]string(nil), seg...),
			LastRevision:      lastRevision,
		},
	}, nil
}

// AssembleRough builds the rough-mode corpus: reply_to is set later, by
// sorting each section's utterances chronologically and linking each to
// the previous distinct one, per spec.md §4.9.
func AssembleRough(store *block.Store, log *logger.Logger) (Corpus, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	complete := collectCompleteUtterances(store, log)
	byRoot := make(map[string][]Utterance)

	for _, cu := range complete {
		utt, err := buildUtterance(store, cu)
		if err != nil {
			log.Debugf("corpus: skipping utterance: %v", err)
			continue
		}
		utt.ReplyTo = ""
		utt.HasReply = false
		if utt.Root == "" {
			continue
		}
		byRoot[utt.Root] = append(byRoot[utt.Root], utt)
	}

	var utterances []Utterance
	for root, list := range byRoot {
		sort.Slice(list, func(i, j int) bool { return list[i].Timestamp.Before(list[j].Timestamp) })

		headerIdx := -1
		for i, u := range list {
			if u.ID == root {
				headerIdx = i
				break
			}
		}
		if headerIdx < 0 {
			log.Warnf("corpus: rough mode: no header utterance found for root %s; dropping section", root)
			continue
		}
		if headerIdx > 0 {
			// Move the header to the front without disturbing the relative,
			// timestamp-sorted order of everything else (original_source's
			// utt_list.insert(0, utt_list.pop(ind_of_root))), since the
			// chaining pass below links each utterance to the one
			// immediately before it in this list.
			header := list[headerIdx]
			list = append(list[:headerIdx:headerIdx], list[headerIdx+1:]...)
			list = append([]Utterance{header}, list...)
		}

		utterances = append(utterances, list[0])
		added := map[string]bool{list[0].ID: true}
		lastIdx := 0
		for j := 1; j < len(list); j++ {
			if added[list[j].ID] {
				continue
			}
			list[j].ReplyTo = list[lastIdx].ID
			list[j].HasReply = true
			added[list[j].ID] = true
			utterances = append(utterances, list[j])
			lastIdx = j
		}
	}

	sort.Slice(utterances, func(i, j int) bool { return utterances[i].ID < utterances[j].ID })

	return Corpus{Utterances: utterances}, nil
}
