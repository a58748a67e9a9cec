// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/notebook-report/internal/assemble"
	"github.com/pdiddy/notebook-report/pkg/types"
)

func intPtr(n int) *int { return &n }

// pngBase64 returns a small solid PNG encoded as a notebook would store it.
func pngBase64(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		for y := 0; y < 20; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func mimeBundle(t *testing.T, kv map[string]string) map[string]json.RawMessage {
	t.Helper()
	out := map[string]json.RawMessage{}
	for k, v := range kv {
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		out[k] = raw
	}
	return out
}

func sampleReport(t *testing.T) *types.Notebook {
	t.Helper()
	sections := []assemble.Section{
		assemble.SectionFor("01_intro.ipynb"),
		assemble.SectionFor("02_shot_patterns.ipynb"),
	}
	opts := assemble.Options{Now: time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)}

	nb := types.NewNotebook()
	nb.Metadata["title"] = assemble.DefaultTitle
	nb.Cells = append(nb.Cells,
		assemble.TitleCell(opts),
		assemble.TOCCell(sections),
		assemble.PageBreakCell(),

		assemble.HeaderCell(sections[0]),
		types.NewMarkdownCell("Some **bold** and *italic* text with `code`.\n\n1. first\n2. second"),
		types.Cell{
			CellType:       types.CellCode,
			Source:         "import pandas as pd\nprint('loaded')",
			ExecutionCount: intPtr(1),
			Outputs:        []types.Output{{OutputType: types.OutputStream, Name: "stdout", Text: "loaded\n"}},
		},
		assemble.PageBreakCell(),

		assemble.HeaderCell(sections[1]),
		types.Cell{
			CellType:       types.CellCode,
			Source:         "df.head()",
			ExecutionCount: intPtr(2),
			Outputs: []types.Output{{
				OutputType:     types.OutputExecuteResult,
				ExecutionCount: intPtr(2),
				Data: mimeBundle(t, map[string]string{
					"text/plain": "   team  pts\n0  BOS  112",
					"text/html":  "<table><tr><th>team</th><th>pts</th></tr><tr><td>BOS</td><td>112</td></tr></table>",
				}),
			}},
		},
		types.Cell{
			CellType:       types.CellCode,
			Source:         "plot()",
			ExecutionCount: intPtr(3),
			Outputs: []types.Output{
				{OutputType: types.OutputDisplayData, Data: mimeBundle(t, map[string]string{"image/png": pngBase64(t)})},
				{OutputType: types.OutputError, EName: "KeyError", EValue: "'x'", Traceback: []string{"\x1b[0;31mKeyError\x1b[0m: 'x'"}},
			},
		},
		assemble.PageBreakCell(),
	)
	return nb
}

func TestNativeRenderer_Render(t *testing.T) {
	data, err := NewNativeRenderer().Render(sampleReport(t), types.ExportOptions{
		ExcludeInputPrompt:  true,
		ExcludeOutputPrompt: true,
	})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	pages, err := pageCountBytes(data)
	require.NoError(t, err)
	// Title, contents, one page per section; the trailing break adds nothing.
	assert.Equal(t, 4, pages)
}

func TestNativeRenderer_EmptyNotebook(t *testing.T) {
	data, err := NewNativeRenderer().Render(types.NewNotebook(), types.ExportOptions{})
	require.NoError(t, err)
	pages, err := pageCountBytes(data)
	require.NoError(t, err)
	assert.Equal(t, 1, pages)
}

func TestNativeRenderer_SkipsBadImage(t *testing.T) {
	nb := types.NewNotebook()
	nb.Cells = append(nb.Cells, types.Cell{
		CellType: types.CellCode,
		Source:   "plot()",
		Outputs: []types.Output{{
			OutputType: types.OutputDisplayData,
			Data:       mimeBundle(t, map[string]string{"image/png": base64.StdEncoding.EncodeToString([]byte("not a png"))}),
		}},
	})
	_, err := NewNativeRenderer().Render(nb, types.ExportOptions{})
	assert.NoError(t, err)
}

func TestNativeRenderer_DeepPNG(t *testing.T) {
	img := image.NewNRGBA64(image.Rect(0, 0, 30, 10))
	for x := 0; x < 30; x++ {
		for y := 0; y < 10; y++ {
			img.Set(x, y, color.NRGBA64{R: 0xffff, G: 0x8000, A: 0xffff})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.False(t, pdfReadyPNG(buf.Bytes()), "fixture should be 16-bit")

	nb := types.NewNotebook()
	nb.Cells = append(nb.Cells, types.Cell{
		CellType: types.CellCode,
		Source:   "plot()",
		Outputs: []types.Output{{
			OutputType: types.OutputDisplayData,
			Data:       mimeBundle(t, map[string]string{"image/png": base64.StdEncoding.EncodeToString(buf.Bytes())}),
		}},
	})
	data, err := NewNativeRenderer().Render(nb, types.ExportOptions{})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestToPlainPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray16(image.Rect(0, 0, 4, 4))))
	require.False(t, pdfReadyPNG(buf.Bytes()))

	out, err := toPlainPNG(buf.Bytes())
	require.NoError(t, err)
	assert.True(t, pdfReadyPNG(out))

	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Width)

	_, err = toPlainPNG([]byte("nope"))
	assert.Error(t, err)
	assert.False(t, pdfReadyPNG([]byte("short")))
}

func TestNotebookHTML_Prompts(t *testing.T) {
	nb := types.NewNotebook()
	nb.Cells = append(nb.Cells, types.Cell{
		CellType:       types.CellCode,
		Source:         "1 < 2",
		ExecutionCount: intPtr(7),
		Outputs: []types.Output{{
			OutputType:     types.OutputExecuteResult,
			ExecutionCount: intPtr(7),
			Data:           mimeBundle(t, map[string]string{"text/plain": "True"}),
		}},
	})

	tests := []struct {
		name       string
		opts       types.ExportOptions
		wantIn     bool
		wantOutTag bool
	}{
		{name: "both prompts", opts: types.ExportOptions{}, wantIn: true, wantOutTag: true},
		{name: "no input prompt", opts: types.ExportOptions{ExcludeInputPrompt: true}, wantOutTag: true},
		{name: "no prompts", opts: types.ExportOptions{ExcludeInputPrompt: true, ExcludeOutputPrompt: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := notebookHTML(newMarkdown(), nb, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIn, strings.Contains(doc, "In [7]:"))
			assert.Equal(t, tt.wantOutTag, strings.Contains(doc, "Out[7]:"))
			assert.Contains(t, doc, "1 &lt; 2")
			assert.Contains(t, doc, `<pre class="result">True</pre>`)
		})
	}
}

func TestNotebookHTML_Outputs(t *testing.T) {
	nb := types.NewNotebook()
	nb.Cells = append(nb.Cells,
		types.NewMarkdownCell("## Heading\n\n<div style=\"break-after: page\"></div>"),
		types.Cell{
			CellType: types.CellCode,
			Source:   "x",
			Outputs: []types.Output{
				{OutputType: types.OutputDisplayData, Data: mimeBundle(t, map[string]string{"image/png": "iVBO\nRw0K", "text/plain": "<Figure>"})},
				{OutputType: types.OutputError, EName: "ValueError", Traceback: []string{"\x1b[1;31mValueError\x1b[0m: boom"}},
				{OutputType: types.OutputError, EName: "KeyError", EValue: "'k'"},
			},
		},
		types.Cell{CellType: types.CellRaw, Source: "raw <text>"},
	)

	doc, err := notebookHTML(newMarkdown(), nb, types.ExportOptions{})
	require.NoError(t, err)

	assert.Contains(t, doc, "<h2>Heading</h2>")
	assert.Contains(t, doc, `<div style="break-after: page"></div>`)
	assert.Contains(t, doc, `<img src="data:image/png;base64,iVBORw0K">`)
	assert.NotContains(t, doc, "&lt;Figure&gt;", "image should win over text/plain")
	assert.Contains(t, doc, "ValueError: boom")
	assert.NotContains(t, doc, "\x1b[")
	assert.Contains(t, doc, "KeyError: &#39;k&#39;")
	assert.Contains(t, doc, "raw &lt;text&gt;")
}

func TestParseStyle(t *testing.T) {
	got := parseStyle("text-align: center; padding: 100px 0;Color:#333")
	assert.Equal(t, "center", got["text-align"])
	assert.Equal(t, "100px 0", got["padding"])
	assert.Equal(t, "#333", got["color"])
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in     string
		want   rgb
		wantOK bool
	}{
		{"#333", rgb{0x33, 0x33, 0x33}, true},
		{"#1a0dab", rgb{0x1a, 0x0d, 0xab}, true},
		{"red", rgb{}, false},
		{"", rgb{}, false},
		{"#zzzzzz", rgb{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseColor(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
