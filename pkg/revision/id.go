// Package revision holds the tagged revision identifier used throughout
// the block accumulator, replacing the source's "unknown" string sentinel.
package revision

import (
	"encoding/json"
	"fmt"
)

// ID identifies the revision in which a block was added or modified, or
// the Unknown sentinel for content observed before tracking began.
type ID struct {
	known bool
	value uint64
}

// Known returns an ID wrapping a real MediaWiki revision id.
func Known(value uint64) ID {
	return ID{known: true, value: value}
}

// Unknown is the sentinel occupying revision_ids[0] for pre-existing blocks.
var Unknown = ID{}

// IsKnown reports whether this ID wraps a real revision id.
func (id ID) IsKnown() bool {
	return id.known
}

// Value returns the wrapped revision id. Only meaningful when IsKnown().
func (id ID) Value() uint64 {
	return id.value
}

// String renders the id for logging; the intermediate codec has its own
// sentinel encoding and does not use this method.
func (id ID) String() string {
	if !id.known {
		return "unknown"
	}
	return fmt.Sprintf("%d", id.value)
}

// Equal reports whether two IDs denote the same revision (or are both Unknown).
func (id ID) Equal(other ID) bool {
	return id.known == other.known && (!id.known || id.value == other.value)
}

// MarshalJSON renders a known ID as its numeric value and Unknown as the
// string "unknown", matching the intermediate document's sentinel encoding.
func (id ID) MarshalJSON() ([]byte, error) {
	if !id.known {
		return json.Marshal("unknown")
	}
	return json.Marshal(id.value)
}

// UnmarshalJSON accepts either a JSON number or the string "unknown".
func (id *ID) UnmarshalJSON(data []byte) error {
	var asNumber uint64
	if err := json.Unmarshal(data, &asNumber); err == nil {
		id.known = true
		id.value = asNumber
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err != nil {
		return fmt.Errorf("revision: id is neither a number nor a string: %w", err)
	}
	if asString != "unknown" {
		return fmt.Errorf("revision: unrecognized id sentinel %q", asString)
	}
	*id = Unknown
	return nil
}

// Less orders two IDs, treating Unknown as less than every known id —
// used to assert the revision log is strictly increasing.
func (id ID) Less(other ID) bool {
	if !id.known {
		return other.known
	}
	if !other.known {
		return false
	}
	return id.value < other.value
}
