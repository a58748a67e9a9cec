// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"bytes"
	"fmt"

	"github.com/pdiddy/notebook-report/internal/container"
	"github.com/pdiddy/notebook-report/internal/notebook"
	"github.com/pdiddy/notebook-report/pkg/types"
)

const imageWebPDF = "nbconvert-webpdf:latest"

var pdfMagic = []byte("%PDF-")

// WebPDFRenderer pipes the notebook through nbconvert's webpdf exporter
// running in a container. The image must provide jupyter nbconvert with
// the webpdf extra and a bundled Chromium.
type WebPDFRenderer struct {
	runtime container.Runtime
}

// NewWebPDFRenderer verifies that the nbconvert image exists in rt.
func NewWebPDFRenderer(rt container.Runtime) (*WebPDFRenderer, error) {
	if err := rt.ImageExists(imageWebPDF); err != nil {
		return nil, fmt.Errorf("nbconvert image not available in %s (build it with mage image): %w", rt.Name(), err)
	}
	return &WebPDFRenderer{runtime: rt}, nil
}

// Render encodes nb, runs it through nbconvert, and returns the PDF bytes.
func (r *WebPDFRenderer) Render(nb *types.Notebook, opts types.ExportOptions) ([]byte, error) {
	var in bytes.Buffer
	if err := notebook.Encode(&in, nb); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if err := r.runtime.Run(imageWebPDF, webPDFArgs(opts), &in, &out); err != nil {
		return nil, fmt.Errorf("converting with nbconvert webpdf: %w", err)
	}
	if out.Len() == 0 {
		return nil, fmt.Errorf("nbconvert webpdf produced empty output")
	}
	if !bytes.HasPrefix(out.Bytes(), pdfMagic) {
		return nil, fmt.Errorf("nbconvert webpdf output is not a PDF")
	}
	return out.Bytes(), nil
}

// webPDFArgs builds the nbconvert command line for opts.
func webPDFArgs(opts types.ExportOptions) []string {
	return []string{
		"jupyter", "nbconvert",
		"--to", "webpdf",
		"--stdin", "--stdout",
		"--TemplateExporter.exclude_input_prompt=" + pyBool(opts.ExcludeInputPrompt),
		"--TemplateExporter.exclude_output_prompt=" + pyBool(opts.ExcludeOutputPrompt),
	}
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
