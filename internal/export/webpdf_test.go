// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/notebook-report/internal/notebook"
	"github.com/pdiddy/notebook-report/pkg/types"
)

// fakeRuntime implements container.Runtime, handing stdin to runFunc.
type fakeRuntime struct {
	imageErr error
	runFunc  func(image string, args []string, stdin io.Reader, stdout io.Writer) error
}

func (f *fakeRuntime) Name() string                   { return "docker" }
func (f *fakeRuntime) Available() bool                { return true }
func (f *fakeRuntime) ImageExists(image string) error { return f.imageErr }

func (f *fakeRuntime) Run(image string, args []string, stdin io.Reader, stdout io.Writer) error {
	return f.runFunc(image, args, stdin, stdout)
}

func TestNewWebPDFRenderer_MissingImage(t *testing.T) {
	_, err := NewWebPDFRenderer(&fakeRuntime{imageErr: errors.New("no such image")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nbconvert image not available in docker")
	assert.Contains(t, err.Error(), "mage image")
}

func TestWebPDFImageRecipe(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "build", "nbconvert-webpdf", "Dockerfile"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "nbconvert[webpdf]")
	assert.Contains(t, string(data), "chromium")
}

func TestWebPDFRenderer_Render(t *testing.T) {
	var gotImage string
	var gotArgs []string
	var gotCells int
	rt := &fakeRuntime{
		runFunc: func(image string, args []string, stdin io.Reader, stdout io.Writer) error {
			gotImage, gotArgs = image, args
			nb, err := notebook.Decode(stdin)
			if err != nil {
				return err
			}
			gotCells = len(nb.Cells)
			_, err = stdout.Write([]byte("%PDF-1.7 fake"))
			return err
		},
	}
	r, err := NewWebPDFRenderer(rt)
	require.NoError(t, err)

	nb := types.NewNotebook()
	nb.Cells = append(nb.Cells, types.NewMarkdownCell("# A"), types.Cell{CellType: types.CellCode, Source: "1+1"})

	data, err := r.Render(nb, types.ExportOptions{ExcludeInputPrompt: true, ExcludeOutputPrompt: false})
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 fake", string(data))
	assert.Equal(t, imageWebPDF, gotImage)
	assert.Equal(t, 2, gotCells)
	assert.Equal(t, []string{
		"jupyter", "nbconvert", "--to", "webpdf", "--stdin", "--stdout",
		"--TemplateExporter.exclude_input_prompt=True",
		"--TemplateExporter.exclude_output_prompt=False",
	}, gotArgs)
}

func TestWebPDFRenderer_BadOutput(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		runErr  error
		wantErr string
	}{
		{name: "empty output", wantErr: "empty output"},
		{name: "not a pdf", out: "<html>", wantErr: "not a PDF"},
		{name: "container failure", runErr: errors.New("exit status 1"), wantErr: "exit status 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := &fakeRuntime{
				runFunc: func(image string, args []string, stdin io.Reader, stdout io.Writer) error {
					_, _ = stdout.Write([]byte(tt.out))
					return tt.runErr
				},
			}
			r, err := NewWebPDFRenderer(rt)
			require.NoError(t, err)
			_, err = r.Render(types.NewNotebook(), types.ExportOptions{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
