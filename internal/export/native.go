// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"golang.org/x/net/html"

	"github.com/pdiddy/notebook-report/pkg/types"
)

// NativeRenderer lays out notebooks as PDF in-process. Markdown goes through
// goldmark, the resulting HTML is walked node by node and drawn with gofpdf.
// Only the tags notebooks commonly produce are styled; others fall through
// as plain text.
type NativeRenderer struct {
	md goldmark.Markdown
}

// NewNativeRenderer creates a renderer with GFM markdown support.
func NewNativeRenderer() *NativeRenderer {
	return &NativeRenderer{md: newMarkdown()}
}

// Render converts nb to HTML and lays it out on A4 pages.
func (r *NativeRenderer) Render(nb *types.Notebook, opts types.ExportOptions) ([]byte, error) {
	doc, err := notebookHTML(r.md, nb, opts)
	if err != nil {
		return nil, err
	}
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("parsing rendered HTML: %w", err)
	}

	title, _ := nb.Metadata["title"].(string)
	l := newLayout(title)
	l.render(root)
	return l.finish()
}
