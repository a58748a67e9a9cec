// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export renders an assembled notebook to PDF through a pluggable
// backend and writes the result to disk.
package export

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/notebook-report/internal/container"
	"github.com/pdiddy/notebook-report/pkg/types"
)

// Renderer turns a notebook into PDF bytes. Backends (in-process layout,
// nbconvert in a container) implement this interface.
type Renderer interface {
	Render(nb *types.Notebook, opts types.ExportOptions) ([]byte, error)
}

// NewRenderer returns the renderer for backend. The webpdf backend needs a
// working container runtime with the nbconvert image present.
func NewRenderer(backend types.Backend) (Renderer, error) {
	switch backend {
	case types.BackendNative, "":
		return NewNativeRenderer(), nil
	case types.BackendWebPDF:
		rt, err := container.DetectRuntime()
		if err != nil {
			return nil, err
		}
		return NewWebPDFRenderer(rt)
	default:
		return nil, fmt.Errorf("unknown backend %q: use %s or %s", backend, types.BackendNative, types.BackendWebPDF)
	}
}

// Export renders nb and writes the PDF to outPath, replacing any existing
// file. Nothing is written when rendering fails.
func Export(r Renderer, nb *types.Notebook, opts types.ExportOptions, outPath string, w io.Writer) error {
	fmt.Fprintln(w, "Converting to PDF...")
	data, err := r.Render(nb, opts)
	if err != nil {
		return fmt.Errorf("converting to PDF: %w", err)
	}

	fmt.Fprintf(w, "Saving %s...\n", outPath)
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	return nil
}

// PageCount opens the PDF at path and returns its number of pages.
func PageCount(path string) (int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening PDF %s: %w", path, err)
	}
	defer f.Close()
	return r.NumPage(), nil
}

// pageCountBytes is PageCount for an in-memory PDF.
func pageCountBytes(data []byte) (int, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("parsing PDF: %w", err)
	}
	return r.NumPage(), nil
}
