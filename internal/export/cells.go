// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"

	"github.com/pdiddy/notebook-report/pkg/types"
)

// ansiPattern matches terminal color escapes found in tracebacks.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)

// imageMimeTypes lists the image outputs the layout engine can place, in
// order of preference.
var imageMimeTypes = []string{"image/png", "image/jpeg"}

// newMarkdown returns the goldmark converter used for markdown cells. Raw
// HTML is passed through since notebooks embed it for layout.
func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)
}

// notebookHTML renders every cell of nb into one HTML document.
func notebookHTML(md goldmark.Markdown, nb *types.Notebook, opts types.ExportOptions) (string, error) {
	var b bytes.Buffer
	b.WriteString("<html><body>\n")
	for i, c := range nb.Cells {
		var err error
		switch c.CellType {
		case types.CellMarkdown:
			err = markdownHTML(&b, md, c.Source.String())
		case types.CellCode:
			err = codeHTML(&b, md, c, opts)
		default:
			fmt.Fprintf(&b, "<pre>%s</pre>\n", html.EscapeString(c.Source.String()))
		}
		if err != nil {
			return "", fmt.Errorf("rendering cell %d: %w", i, err)
		}
	}
	b.WriteString("</body></html>\n")
	return b.String(), nil
}

func markdownHTML(b *bytes.Buffer, md goldmark.Markdown, src string) error {
	b.WriteString("<div class=\"markdown\">\n")
	if err := md.Convert([]byte(src), b); err != nil {
		return fmt.Errorf("converting markdown: %w", err)
	}
	b.WriteString("</div>\n")
	return nil
}

func codeHTML(b *bytes.Buffer, md goldmark.Markdown, c types.Cell, opts types.ExportOptions) error {
	b.WriteString("<div class=\"code\">\n")
	if !opts.ExcludeInputPrompt {
		fmt.Fprintf(b, "<p class=\"prompt\">In [%s]:</p>\n", executionLabel(c.ExecutionCount))
	}
	fmt.Fprintf(b, "<pre class=\"input\">%s</pre>\n", html.EscapeString(c.Source.String()))

	for _, o := range c.Outputs {
		switch o.OutputType {
		case types.OutputStream:
			fmt.Fprintf(b, "<pre class=\"stream\">%s</pre>\n", html.EscapeString(o.Text.String()))
		case types.OutputError:
			tb := ansiPattern.ReplaceAllString(strings.Join(o.Traceback, "\n"), "")
			if tb == "" {
				tb = o.EName + ": " + o.EValue
			}
			fmt.Fprintf(b, "<pre class=\"error\">%s</pre>\n", html.EscapeString(tb))
		case types.OutputExecuteResult, types.OutputDisplayData:
			if o.OutputType == types.OutputExecuteResult && !opts.ExcludeOutputPrompt {
				fmt.Fprintf(b, "<p class=\"prompt\">Out[%s]:</p>\n", executionLabel(o.ExecutionCount))
			}
			if err := dataHTML(b, md, o); err != nil {
				return err
			}
		default:
			log.Debug().Str("output_type", string(o.OutputType)).Msg("skipping unknown output")
		}
	}
	b.WriteString("</div>\n")
	return nil
}

// dataHTML writes the richest representation of a mime bundle the layout
// engine supports: image, HTML, markdown, then plain text.
func dataHTML(b *bytes.Buffer, md goldmark.Markdown, o types.Output) error {
	for _, mime := range imageMimeTypes {
		if data, ok := o.DataText(mime); ok {
			fmt.Fprintf(b, "<img src=\"data:%s;base64,%s\">\n", mime, strings.Join(strings.Fields(data), ""))
			return nil
		}
	}
	if s, ok := o.DataText("text/html"); ok {
		b.WriteString("<div class=\"output-html\">\n")
		b.WriteString(s)
		b.WriteString("\n</div>\n")
		return nil
	}
	if s, ok := o.DataText("text/markdown"); ok {
		return markdownHTML(b, md, s)
	}
	if s, ok := o.DataText("text/plain"); ok {
		fmt.Fprintf(b, "<pre class=\"result\">%s</pre>\n", html.EscapeString(s))
	}
	return nil
}

func executionLabel(n *int) string {
	if n == nil {
		return " "
	}
	return fmt.Sprint(*n)
}
