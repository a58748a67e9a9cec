// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package notebook reads and writes Jupyter notebooks in nbformat v4.
package notebook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pdiddy/notebook-report/pkg/types"
)

// supportedMajor is the only nbformat major version accepted.
const supportedMajor = 4

// Read decodes the notebook at path.
func Read(path string) (*types.Notebook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening notebook %s: %w", path, err)
	}
	defer f.Close()

	nb, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("reading notebook %s: %w", path, err)
	}
	return nb, nil
}

// Decode parses an nbformat v4 notebook from r.
func Decode(r io.Reader) (*types.Notebook, error) {
	var nb types.Notebook
	if err := json.NewDecoder(r).Decode(&nb); err != nil {
		return nil, fmt.Errorf("parsing notebook JSON: %w", err)
	}
	if nb.NBFormat != supportedMajor {
		return nil, fmt.Errorf("unsupported nbformat %d (want %d)", nb.NBFormat, supportedMajor)
	}
	if nb.Metadata == nil {
		nb.Metadata = map[string]any{}
	}
	return &nb, nil
}

// Encode writes nb as JSON with Jupyter's one-space indentation.
func Encode(w io.Writer, nb *types.Notebook) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(nb); err != nil {
		return fmt.Errorf("encoding notebook: %w", err)
	}
	return nil
}

// Write encodes nb to path, replacing any existing file.
func Write(path string, nb *types.Notebook) error {
	var buf bytes.Buffer
	if err := Encode(&buf, nb); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing notebook %s: %w", path, err)
	}
	return nil
}
