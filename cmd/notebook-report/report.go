// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pdiddy/notebook-report/internal/assemble"
	"github.com/pdiddy/notebook-report/internal/discover"
	"github.com/pdiddy/notebook-report/internal/export"
	"github.com/pdiddy/notebook-report/internal/notebook"
	"github.com/pdiddy/notebook-report/pkg/types"
)

// rendererFactory builds the renderer for a backend; tests swap it out.
type rendererFactory func(types.Backend) (export.Renderer, error)

func newRenderer(b types.Backend) (export.Renderer, error) {
	return export.NewRenderer(b)
}

// runReport discovers, merges, and exports, printing progress to w. Finding
// no notebooks is not an error: it prints a notice and writes nothing.
func runReport(cfg types.ReportConfig, w io.Writer, mkRenderer rendererFactory, now time.Time) error {
	notebooks, err := discover.Notebooks(cfg.NotebooksDir)
	if err != nil {
		return err
	}
	if len(notebooks) == 0 {
		fmt.Fprintln(w, "No notebooks found!")
		return nil
	}

	fmt.Fprintf(w, "Found %d notebooks to merge:\n", len(notebooks))
	for _, nb := range notebooks {
		fmt.Fprintf(w, "  - %s\n", nb)
	}

	r, err := mkRenderer(cfg.Backend)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "\nMerging notebooks...")
	merged, err := assemble.Merge(notebooks, assemble.Options{
		Title:    cfg.Title,
		Subtitle: cfg.Subtitle,
		Now:      now,
	})
	if err != nil {
		return err
	}
	log.Debug().Int("cells", len(merged.Cells)).Msg("assembled report")

	if cfg.KeepMerged != "" {
		if err := notebook.Write(cfg.KeepMerged, merged); err != nil {
			return err
		}
		fmt.Fprintf(w, "Wrote merged notebook %s\n", cfg.KeepMerged)
	}

	if err := export.Export(r, merged, cfg.Export, cfg.OutputPath, w); err != nil {
		return err
	}

	pages, err := export.PageCount(cfg.OutputPath)
	if err != nil {
		log.Warn().Err(err).Str("output", cfg.OutputPath).Msg("could not count pages")
		fmt.Fprintln(w, "Done! PDF has been created.")
		return nil
	}
	fmt.Fprintf(w, "Done! PDF has been created (%d pages).\n", pages)
	return nil
}
