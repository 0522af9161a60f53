// Package diffrow classifies one row of a MediaWiki compare-endpoint diff
// table into the tag the applier state machine switches on. Grounded on
// revision_pipeline/helpers.py's is_unedited_tr/is_new_content_tr/
// is_removal_tr/is_modification_tr/is_line_number_tr family, generalized
// into a single exhaustive classifier per spec.md §4.2.
package diffrow

import "fmt"

// Cell is one <td> of a diff row: its rendered text and its CSS class
// (e.g. "diff-addedline", "diff-deletedline", "diff-empty", "diff-lineno").
type Cell struct {
	Text  string
	Class string
}

// Row is one <tr> of the compare table, pre-extracted by the HTML diff
// tokenizer collaborator (internal/mediawiki/htmldiff). Anchor and
// PairedAnchor are set only for moved-row variants: Anchor is this row's
// own named anchor (if any) and PairedAnchor is the anchor of the
// opposite-side row this one was moved against.
type Row struct {
	Cells        []Cell
	Anchor       string
	PairedAnchor string
	// PairedText is the opposite-side paragraph text a MovedRight row was
	// relocated from, resolved by the tokenizer from PairedAnchor. Empty
	// when the anchor could not be resolved (treated as an unseen move).
	PairedText string
}

// Tag is the exhaustive classification of a diff row.
type Tag int

const (
	// Unedited is a four-cell row whose left and right text are identical.
	Unedited Tag = iota
	// NewContent is a three-cell row introducing text on the right.
	NewContent
	// Removal is a three-cell row removing text from the left.
	Removal
	// Modification is a four-cell row replacing left text with right text.
	Modification
	// MovedRight is a NewContent row whose added text was relocated from elsewhere.
	MovedRight
	// MovedLeft is a Removal row whose removed text reappears elsewhere as MovedRight.
	MovedLeft
	// LineNumber is a two-cell row of line-number gutters; always ignored.
	LineNumber
)

const (
	classEmpty       = "diff-empty"
	classAddedLine   = "diff-addedline"
	classDeletedLine = "diff-deletedline"
	classLineNo      = "diff-lineno"
)

// UnclassifiableError is returned by Classify when a row matches none of
// the known shapes. The applier logs it and tags the enclosing revision
// "error" rather than treating it as fatal, per spec.md §7.
type UnclassifiableError struct {
	Row Row
}

func (e *UnclassifiableError) Error() string {
	return fmt.Sprintf("diffrow: unclassifiable row with %d cells", len(e.Row.Cells))
}

// Classify maps a parsed diff row to exactly one Tag, or returns an
// UnclassifiableError.
func Classify(row Row) (Tag, error) {
	cells := row.Cells

	switch len(cells) {
	case 2:
		if cells[0].Class == classLineNo && cells[1].Class == classLineNo {
			return LineNumber, nil
		}
	case 3:
		if cells[0].Class == classEmpty && cells[2].Class == classAddedLine {
			if row.PairedAnchor != "" {
				return MovedRight, nil
			}
			return NewContent, nil
		}
		if cells[1].Class == classDeletedLine && cells[2].Class == classEmpty {
			if row.PairedAnchor != "" {
				return MovedLeft, nil
			}
			return Removal, nil
		}
	case 4:
		if cells[1].Text == cells[3].Text {
			return Unedited, nil
		}
		if cells[1].Class == classDeletedLine && cells[3].Class == classAddedLine {
			return Modification, nil
		}
	}

	return 0, &UnclassifiableError{Row: row}
}

// AddedText returns the new-content text of a NewContent/MovedRight row.
func (r Row) AddedText() string {
	return r.Cells[2].Text
}

// RemovedText returns the deleted text of a Removal/MovedLeft row.
func (r Row) RemovedText() string {
	return r.Cells[1].Text
}

// OldText returns the pre-edit text of a Modification row.
func (r Row) OldText() string {
	return r.Cells[1].Text
}

// NewText returns the post-edit text of a Modification row.
func (r Row) NewText() string {
	return r.Cells[3].Text
}

// UneditedText returns the unchanged text of an Unedited row.
func (r Row) UneditedText() string {
	return r.Cells[1].Text
}
