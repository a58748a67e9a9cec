//go:build mage

// Package main contains Mage build targets for notebook-report developer tooling.
package main

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"

	"github.com/pdiddy/notebook-report/internal/container"
)

const (
	binDir       = "bin"
	binName      = "notebook-report"
	cmdPkg       = "./cmd/notebook-report"
	notebooksDir = "notebooks"

	webPDFImage   = "nbconvert-webpdf:latest"
	webPDFContext = "build/nbconvert-webpdf"
)

// Init creates the notebooks directory the report reads from.
func Init() error {
	if err := os.MkdirAll(notebooksDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", notebooksDir, err)
	}
	fmt.Println("  ", notebooksDir)
	fmt.Println("Project directories initialized.")
	return nil
}

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil {
		version = "dev"
	}
	ldflags := "-X main.version=" + version
	if err := sh.RunV("go", "build", "-ldflags", ldflags, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Report builds the CLI and generates the PDF from notebooks/.
func Report() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName))
}

// Image builds the nbconvert image the webpdf backend runs, using docker or
// podman, whichever is available.
func Image() error {
	rt, err := container.DetectRuntime()
	if err != nil {
		return err
	}
	if err := sh.RunV(rt.Name(), "build", "-t", webPDFImage, webPDFContext); err != nil {
		return fmt.Errorf("building %s: %w", webPDFImage, err)
	}
	fmt.Printf("Built image %s with %s\n", webPDFImage, rt.Name())
	return nil
}

// Test runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Stats prints Go production and test line counts.
func Stats() error {
	var prod, test int
	err := filepath.WalkDir(".", func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), "_") || d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		n, err := countLines(path)
		if err != nil {
			return err
		}
		if strings.HasSuffix(path, "_test.go") {
			test += n
		} else {
			prod += n
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Printf("Lines of code (Go, production): %d\n", prod)
	fmt.Printf("Lines of code (Go, tests):      %d\n", test)
	return nil
}

// countLines counts non-blank lines in a file.
func countLines(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	n := 0
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			n++
		}
	}
	return n, sc.Err()
}
