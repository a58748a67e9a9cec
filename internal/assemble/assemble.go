// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assemble merges numbered notebooks into one report notebook with a
// generated title page and table of contents.
package assemble

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pdiddy/notebook-report/internal/notebook"
	"github.com/pdiddy/notebook-report/pkg/types"
)

const (
	// DefaultTitle is the title page heading when none is configured.
	DefaultTitle = "NBA Pattern Analysis"
	// DefaultSubtitle is the line under the title.
	DefaultSubtitle = "Final Project Report"

	// PageBreak is the markup renderers treat as a forced page break.
	PageBreak = `<div style="break-after: page"></div>`

	notebookExt = ".ipynb"
	dateLayout  = "January 2006"
)

// Options control the generated front matter.
type Options struct {
	Title    string
	Subtitle string
	// Now supplies the month and year printed on the title page.
	Now time.Time
}

func (o Options) withDefaults() Options {
	if o.Title == "" {
		o.Title = DefaultTitle
	}
	if o.Subtitle == "" {
		o.Subtitle = DefaultSubtitle
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	return o
}

// Section is the heading derived from one input notebook's filename.
type Section struct {
	// Label is the human-readable title, e.g. "Shot Patterns".
	Label string
	// Anchor is the link target, e.g. "shot-patterns".
	Anchor string
}

// SectionFor derives the section label and anchor from a notebook path.
// The numeric prefix before the first underscore is dropped; the remaining
// underscore-separated words are title-cased.
func SectionFor(path string) Section {
	name := strings.TrimSuffix(filepath.Base(path), notebookExt)
	words := strings.Split(name, "_")
	label := titleCase(strings.Join(words[1:], " "))
	return Section{
		Label:  label,
		Anchor: strings.ReplaceAll(strings.ToLower(label), " ", "-"),
	}
}

// titleCase upper-cases the first letter of every run of letters and
// lower-cases the rest, so "3pt shooting" becomes "3Pt Shooting".
func titleCase(s string) string {
	caser := cases.Title(language.Und)
	var b, run strings.Builder
	flush := func() {
		if run.Len() > 0 {
			b.WriteString(caser.String(run.String()))
			run.Reset()
		}
	}
	for _, r := range s {
		if unicode.IsLetter(r) {
			run.WriteRune(r)
			continue
		}
		flush()
		b.WriteRune(r)
	}
	flush()
	return b.String()
}

// TitleCell builds the centered title page, ending in a page break.
func TitleCell(opts Options) types.Cell {
	opts = opts.withDefaults()
	src := fmt.Sprintf(`
<div style="text-align: center; padding: 100px 0;">
    <h1 style="font-size: 2.5em; color: #333;">%s</h1>
    <p style="font-size: 1.2em; color: #666; margin-top: 20px;">%s</p>
    <p style="font-size: 1.1em; color: #666; margin-top: 50px;">%s</p>
</div>

%s
`, opts.Title, opts.Subtitle, opts.Now.Format(dateLayout), PageBreak)
	return types.NewMarkdownCell(src)
}

// TOCCell builds the table of contents with one link per section.
func TOCCell(sections []Section) types.Cell {
	var b strings.Builder
	b.WriteString("\n# Table of Contents\n\n")
	for _, s := range sections {
		fmt.Fprintf(&b, "- [%s](#%s)\n", s.Label, s.Anchor)
	}
	return types.NewMarkdownCell(b.String())
}

// HeaderCell builds the anchored heading that opens a section.
func HeaderCell(s Section) types.Cell {
	return types.NewMarkdownCell(fmt.Sprintf("\n<h1 id=\"%s\">%s</h1>\n", s.Anchor, s.Label))
}

// PageBreakCell builds a markdown cell holding only a page break.
func PageBreakCell() types.Cell {
	return types.NewMarkdownCell(PageBreak)
}

// NormalizeCells drops code cells with blank source and gives every kept
// code cell an outputs list, returning the kept cells and the drop count.
func NormalizeCells(cells []types.Cell) ([]types.Cell, int) {
	kept := make([]types.Cell, 0, len(cells))
	dropped := 0
	for _, c := range cells {
		if c.IsCode() {
			if c.Outputs == nil {
				c.Outputs = []types.Output{}
			}
			if strings.TrimSpace(c.Source.String()) == "" {
				dropped++
				continue
			}
		}
		kept = append(kept, c)
	}
	return kept, dropped
}

// Merge reads each notebook in paths, in order, and assembles the report:
// title, table of contents, page break, then per notebook a header, its
// normalized cells, and a page break.
func Merge(paths []string, opts Options) (*types.Notebook, error) {
	opts = opts.withDefaults()

	sections := make([]Section, len(paths))
	for i, p := range paths {
		sections[i] = SectionFor(p)
	}

	merged := types.NewNotebook()
	merged.Metadata["title"] = opts.Title
	merged.Cells = append(merged.Cells, TitleCell(opts), TOCCell(sections), PageBreakCell())
	seen := map[string]bool{}
	for _, c := range merged.Cells {
		seen[c.ID] = true
	}

	for i, p := range paths {
		nb, err := notebook.Read(p)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			inheritMetadata(merged, nb)
		}

		cells, dropped := NormalizeCells(nb.Cells)
		log.Debug().
			Str("notebook", p).
			Str("anchor", sections[i].Anchor).
			Int("cells", len(cells)).
			Int("dropped", dropped).
			Msg("merged notebook")

		part := make([]types.Cell, 0, len(cells)+2)
		part = append(part, HeaderCell(sections[i]))
		part = append(part, cells...)
		part = append(part, PageBreakCell())
		assignCellIDs(part, seen)
		merged.Cells = append(merged.Cells, part...)
	}
	return merged, nil
}

// assignCellIDs gives every cell an id unique within the merged notebook.
// Missing ids and ids already used by an earlier cell are replaced.
func assignCellIDs(cells []types.Cell, seen map[string]bool) {
	for i := range cells {
		for cells[i].ID == "" || seen[cells[i].ID] {
			cells[i].ID = types.NewCellID()
		}
		seen[cells[i].ID] = true
	}
}

// inheritMetadata copies kernel and language info from the first input so
// renderers pick the right syntax highlighting.
func inheritMetadata(dst, src *types.Notebook) {
	for _, key := range []string{"kernelspec", "language_info"} {
		if v, ok := src.Metadata[key]; ok {
			dst.Metadata[key] = v
		}
	}
}
