package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/notebook-report/pkg/types"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved configuration as YAML",
	Long: `Config prints the settings a report run would use after merging flags,
NOTEBOOK_REPORT_* environment variables, and the config file. The output is a
valid notebook-report.yaml.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeConfig(os.Stdout, reportConfig())
	},
}

func writeConfig(w io.Writer, cfg types.ReportConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func init() {
	rootCmd.AddCommand(configCmd)
}
