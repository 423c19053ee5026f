package dataprocessing

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"slotledger/internal/errors"
	"slotledger/pkg/contracts/domain"
)

// minDataCells is the smallest cell count a row needs to be read as data.
// Shorter rows are headers or decoration.
const minDataCells = 2

// ExtractStats describes what the extractor saw while reading a document.
type ExtractStats struct {
	TotalRows      int
	DataRows       int
	SkippedRows    int
	ShortRows      int
	DuplicateIDs   int
	EmptyComposite int
}

// Parser turns a slot data HTML table into a Snapshot.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a parser. A nil logger uses slog.Default.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger.With(slog.String("component", "parser"))}
}

// Extract reads the markup and returns the snapshot for date.
//
// The first <tr> in the document is skipped as the header. Every later row
// with at least two <td> cells becomes one record built from cells 1..10;
// positions the row does not have are left empty. A document without data
// rows yields an empty snapshot. Only an unreadable document is an error.
func (p *Parser) Extract(r io.Reader, date time.Time) (*domain.Snapshot, ExtractStats, error) {
	var stats ExtractStats

	doc, err := html.Parse(r)
	if err != nil {
		return nil, stats, errors.NewParsingError("failed to parse markup", err)
	}

	rows := findAll(doc, atom.Tr)
	stats.TotalRows = len(rows)
	snapshot := domain.NewSnapshot(date)

	if len(rows) <= 1 {
		p.logger.Warn("markup has no data rows",
			slog.Int("total_rows", len(rows)),
			slog.String("date", snapshot.Date.Format(domain.FileDateLayout)))
		return snapshot, stats, nil
	}

	for i, row := range rows[1:] {
		cells := findAll(row, atom.Td)
		if len(cells) < minDataCells {
			stats.SkippedRows++
			continue
		}

		values := make([]string, domain.FieldCount)
		for j := range values {
			if j+1 < len(cells) {
				values[j] = textContent(cells[j+1])
			}
		}
		if len(cells) < domain.FieldCount+1 {
			stats.ShortRows++
			p.logger.Debug("row has fewer cells than fields",
				slog.Int("row_index", i+1),
				slog.Int("cells", len(cells)))
		}

		rec := domain.RecordFromValues(values)
		if rec.CompositeProbability == "" {
			stats.EmptyComposite++
		}
		if snapshot.Put(rec) {
			stats.DuplicateIDs++
			p.logger.Warn("duplicate machine id in markup, keeping last row",
				slog.String("machine_id", rec.MachineID),
				slog.Int("row_index", i+1))
		}
		stats.DataRows++
	}

	p.logger.Info("markup extracted",
		slog.String("date", snapshot.Date.Format(domain.FileDateLayout)),
		slog.Int("total_rows", stats.TotalRows),
		slog.Int("records", snapshot.Len()),
		slog.Int("skipped_rows", stats.SkippedRows),
		slog.Int("short_rows", stats.ShortRows),
		slog.Int("duplicate_ids", stats.DuplicateIDs))

	return snapshot, stats, nil
}

// findAll returns every descendant element of n with the given tag, in
// document order.
func findAll(n *html.Node, tag atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == tag {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// textContent concatenates all text below n without trimming.
func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
