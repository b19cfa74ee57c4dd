package htmlutil

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"eduassist-backend/lib/textutil"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// Table is a typed view over a <table> selection so parser logic can
// reason about rows and cleaned cell text instead of raw selections.
type Table struct {
	rows [][]string
}

// NewTable snapshots every <tr> of the selection, cleaning each cell
// with textutil.CollapseWhitespace (the legacy server loves littering
// cells with <br> and stray newlines).
func NewTable(sel *goquery.Selection) Table {
	var rows [][]string
	sel.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, textutil.CollapseWhitespace(cell.Text()))
		})
		rows = append(rows, cells)
	})
	return Table{rows: rows}
}

func (t Table) RowCount() int {
	return len(t.rows)
}

// Row returns the cleaned cells of row i, or nil when out of range.
func (t Table) Row(i int) []string {
	if i < 0 || i >= len(t.rows) {
		return nil
	}
	return t.rows[i]
}

// Cell returns the cleaned text at (row, col), empty string when the
// coordinate does not exist. Ragged legacy tables make missing cells
// an expected condition, not a panic.
func (t Table) Cell(row, col int) string {
	r := t.Row(row)
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// FindTableByFirstHeader locates the single table whose first header
// cell equals `label` exactly.
func FindTableByFirstHeader(doc *goquery.Document, label string) (Table, bool) {
	var found Table
	ok := false
	doc.Find("table").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		table := NewTable(sel)
		if table.Cell(0, 0) == label {
			found = table
			ok = true
			return false
		}
		return true
	})
	return found, ok
}

// FindTableByHeading locates the innermost table whose first row
// contains `heading`. The legacy server renders section titles as the
// leading row of the section's own table, so the title doubles as a
// structural anchor.
func FindTableByHeading(doc *goquery.Document, heading string) (Table, bool) {
	var found Table
	ok := false
	doc.Find("table").Each(func(_ int, sel *goquery.Selection) {
		// nested tables repeat the parent's text, keep the innermost hit
		table := NewTable(sel)
		if table.RowCount() == 0 {
			return
		}
		for _, cell := range table.Row(0) {
			if strings.Contains(cell, heading) {
				found = table
				ok = true
				return
			}
		}
	})
	return found, ok
}

// FindTableByHeaderAttr locates the first table whose header row cells
// carry the given attribute value, ex. bgcolor fingerprints that tell
// the profile summary table apart from the main data table.
func FindTableByHeaderAttr(doc *goquery.Document, attr, value string) (Table, bool) {
	var found Table
	ok := false
	doc.Find("table").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		first := sel.Find("tr").First()
		hit := false
		first.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			if cell.AttrOr(attr, "") == value {
				hit = true
			}
		})
		if !hit {
			return true
		}
		found = NewTable(sel)
		ok = true
		return false
	})
	return found, ok
}
