package types

// Backend identifies the PDF rendering engine.
type Backend string

const (
	// BackendNative lays out pages in-process.
	BackendNative Backend = "native"
	// BackendWebPDF runs nbconvert's webpdf exporter in a container.
	BackendWebPDF Backend = "webpdf"
)

// ExportOptions are the formatting switches handed to a renderer.
type ExportOptions struct {
	// ExcludeInputPrompt hides the "In [n]:" label on code cells.
	ExcludeInputPrompt bool `json:"exclude_input_prompt" yaml:"exclude_input_prompt"`

	// ExcludeOutputPrompt hides the "Out[n]:" label on execution results.
	ExcludeOutputPrompt bool `json:"exclude_output_prompt" yaml:"exclude_output_prompt"`
}

// ReportConfig holds the resolved settings for one report run.
type ReportConfig struct {
	// NotebooksDir is the directory scanned for numbered notebooks.
	NotebooksDir string `json:"notebooks_dir" yaml:"notebooks_dir"`

	// OutputPath is the PDF written on success (overwritten if present).
	OutputPath string `json:"output" yaml:"output"`

	// Title is the heading of the generated title page.
	Title string `json:"title" yaml:"title"`

	// Subtitle is the line under the title.
	Subtitle string `json:"subtitle" yaml:"subtitle"`

	// Backend selects the renderer: native or webpdf.
	Backend Backend `json:"backend" yaml:"backend"`

	// KeepMerged, when set, is where the assembled notebook is also written.
	KeepMerged string `json:"keep_merged,omitempty" yaml:"keep_merged,omitempty"`

	Export ExportOptions `json:"export" yaml:"export"`
}
