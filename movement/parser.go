// Package movement extracts case movement records from Projudi result
// pages. Parsing is a pure function of the page content: no network,
// no session state, deterministic output for a given input.
package movement

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Parse extracts the ordered movement list from a result page.
//
// The page may contain more than one resultTable (the portal splits
// recent and older movements across fragments); rows are collected in
// document order, which is the chronological order the portal presents.
// Returns ErrNoMovements when no resultTable region exists at all,
// which means the page is not a result page or the site layout changed.
func Parse(html string) ([]Movement, error) {
	return ParseReader(strings.NewReader(html))
}

// ParseReader is like Parse but reads the page from r.
func ParseReader(r io.Reader) ([]Movement, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPage, err)
	}

	tables := doc.Find("table.resultTable")
	if tables.Length() == 0 {
		return nil, ErrNoMovements
	}

	var movements []Movement
	tables.Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(i int, row *goquery.Selection) {
			if i == 0 {
				// Header row.
				return
			}
			if m, ok := parseRow(row); ok {
				movements = append(movements, m)
			}
		})
	})

	return movements, nil
}

// parseRow converts a single resultTable row. Rows with fewer than five
// cells are spacers or pagination controls and are skipped, not errors.
func parseRow(row *goquery.Selection) (Movement, bool) {
	cells := row.Find("td")
	if cells.Length() < 5 {
		return Movement{}, false
	}

	m := Movement{
		Seq:            collapse(cells.Eq(1).Text()),
		Data:           collapse(cells.Eq(2).Text()),
		Evento:         collapse(cells.Eq(3).Text()),
		MovimentadoPor: movedBy(cells.Eq(4)),
		Documentos:     documents(cells.Eq(3)),
	}
	return m, true
}

// movedBy assembles the responsible party from the fifth column, which
// holds a free text name followed by a bolded role. Either part may be
// missing.
func movedBy(cell *goquery.Selection) string {
	role := collapse(cell.Find("b").First().Text())

	var name string
	cell.Contents().EachWithBreak(func(_ int, node *goquery.Selection) bool {
		if goquery.NodeName(node) != "#text" {
			return true
		}
		if text := collapse(node.Text()); text != "" {
			name = text
			return false
		}
		return true
	})

	switch {
	case name != "" && role != "":
		return name + " - " + role
	case name != "":
		return name
	case role != "":
		return role
	default:
		return collapse(cell.Text())
	}
}

// documents harvests link references from the event cell. A movement
// without attachments is normal and yields nil.
func documents(cell *goquery.Selection) []Document {
	var docs []Document
	cell.Find("a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || href == "" || strings.HasPrefix(href, "javascript:") {
			return
		}
		docs = append(docs, Document{
			Descricao: collapse(a.Text()),
			URL:       href,
		})
	})
	return docs
}

// collapse trims and normalizes internal whitespace runs to single
// spaces, matching how the portal renders multi-line cells.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
