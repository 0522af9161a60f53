// Package htmldiff tokenizes the HTML table MediaWiki's action=compare
// endpoint returns into the classified diffrow.Row sequence the applier
// consumes, per spec.md §4.2. This is the "HTML tokenizer" collaborator
// spec.md explicitly keeps out of the core's scope.
//
// Grounded on revision_pipeline/helpers.py's row-shape heuristics
// (reused directly in pkg/diffrow's classifier) for what a row's cells
// mean; the HTML walk itself has no example-repo analog in the retrieved
// pack; of the examples only golang.org/x/net/html is reachable from any
// repo in the corpus's module graph (transitively, via the teacher's own
// dependency tree), so it is adopted here as the HTML parser rather than
// hand-rolling a lexer.
package htmldiff

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/lucasvanbramer/talkpipeline/pkg/diffrow"
)

const (
	classLineNo      = "diff-lineno"
	classEmpty       = "diff-empty"
	classAddedLine   = "diff-addedline"
	classDeletedLine = "diff-deletedline"
)

// Parse walks a MediaWiki compare-table HTML fragment and returns its rows
// in document order, ready for diffrow.Classify.
func Parse(fragment string) ([]diffrow.Row, error) {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("htmldiff: parse: %w", err)
	}

	var rows []diffrow.Row
	anchorText := make(map[string]string)

	for _, n := range nodes {
		walk(n, func(tr *html.Node) {
			row := parseRow(tr)
			rows = append(rows, row)
			if row.Anchor != "" && len(row.Cells) > 0 {
				anchorText[row.Anchor] = lastNonEmptyCellText(row)
			}
		})
	}

	for i, row := range rows {
		if row.PairedAnchor != "" {
			rows[i].PairedText = anchorText[row.PairedAnchor]
		}
	}

	return rows, nil
}

func walk(n *html.Node, visit func(*html.Node)) {
	if n.Type == html.ElementNode && n.Data == "tr" {
		visit(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func parseRow(tr *html.Node) diffrow.Row {
	var row diffrow.Row

	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.Data != "td" && c.Data != "th") {
			continue
		}
		cell := diffrow.Cell{
			Text:  cellText(c),
			Class: cellClass(c),
		}
		row.Cells = append(row.Cells, cell)

		if a, ok := anchorName(c); ok {
			row.Anchor = a
		}
		if p, ok := pairedAnchor(c); ok {
			row.PairedAnchor = p
		}
	}

	return row
}

func cellClass(td *html.Node) string {
	classes := attr(td, "class")
	switch {
	case strings.Contains(classes, classAddedLine):
		return classAddedLine
	case strings.Contains(classes, classDeletedLine):
		return classDeletedLine
	case strings.Contains(classes, classEmpty):
		return classEmpty
	case strings.Contains(classes, classLineNo):
		return classLineNo
	default:
		return classes
	}
}

func cellText(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return sb.String()
}

// anchorName finds this cell's own named anchor, e.g. <a name="moved-12">.
func anchorName(n *html.Node) (string, bool) {
	var found string
	var ok bool
	var walkAnchor func(*html.Node)
	walkAnchor = func(node *html.Node) {
		if ok {
			return
		}
		if node.Type == html.ElementNode && node.Data == "a" {
			if name := attr(node, "name"); name != "" {
				found, ok = name, true
				return
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walkAnchor(c)
		}
	}
	walkAnchor(n)
	return found, ok
}

// pairedAnchor finds this cell's link to the opposite-side moved row,
// e.g. <a href="#moved-12">.
func pairedAnchor(n *html.Node) (string, bool) {
	var found string
	var ok bool
	var walkLink func(*html.Node)
	walkLink = func(node *html.Node) {
		if ok {
			return
		}
		if node.Type == html.ElementNode && node.Data == "a" {
			if href := attr(node, "href"); strings.HasPrefix(href, "#") {
				found, ok = strings.TrimPrefix(href, "#"), true
				return
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walkLink(c)
		}
	}
	walkLink(n)
	return found, ok
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func lastNonEmptyCellText(row diffrow.Row) string {
	for i := len(row.Cells) - 1; i >= 0; i-- {
		if strings.TrimSpace(row.Cells[i].Text) != "" {
			return row.Cells[i].Text
		}
	}
	return ""
}
