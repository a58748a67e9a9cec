// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the notebook-report CLI. Run with no
// arguments it merges notebooks/[0-9]*.ipynb into a single PDF report.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/notebook-report/internal/assemble"
	"github.com/pdiddy/notebook-report/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Viper keys; they match the yaml tags of types.ReportConfig.
const (
	keyNotebooksDir = "notebooks_dir"
	keyOutput       = "output"
	keyTitle        = "title"
	keySubtitle     = "subtitle"
	keyBackend      = "backend"
	keyKeepMerged   = "keep_merged"
	keyVerbose      = "verbose"
	keyExcludeIn    = "export.exclude_input_prompt"
	keyExcludeOut   = "export.exclude_output_prompt"
)

var rootCmd = &cobra.Command{
	Use:   "notebook-report",
	Short: "Merge numbered notebooks into a single PDF report",
	Long: `notebook-report collects the numbered notebooks in the notebooks directory
(01_intro.ipynb, 02_shot_patterns.ipynb, ...), merges them in order behind a
generated title page and table of contents, and exports the result to PDF.

Empty code cells are dropped. Each notebook starts on a new page under a
heading derived from its filename.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(viper.GetBool(keyVerbose))
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(reportConfig(), os.Stdout, newRenderer, time.Now())
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: notebook-report.yaml in . or ~/.config/notebook-report)")
	flags.String("notebooks-dir", "notebooks", "directory holding the numbered notebooks")
	flags.StringP("output", "o", "nba_pattern_analysis.pdf", "PDF file to write (overwritten if present)")
	flags.String("title", assemble.DefaultTitle, "title page heading")
	flags.String("subtitle", assemble.DefaultSubtitle, "title page subtitle")
	flags.String("backend", string(types.BackendNative), "PDF backend: native or webpdf")
	flags.String("keep-merged", "", "also write the merged notebook to this path")
	flags.BoolP("verbose", "v", false, "enable debug logging on stderr")

	for key, flag := range map[string]string{
		keyNotebooksDir: "notebooks-dir",
		keyOutput:       "output",
		keyTitle:        "title",
		keySubtitle:     "subtitle",
		keyBackend:      "backend",
		keyKeepMerged:   "keep-merged",
		keyVerbose:      "verbose",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
	viper.SetDefault(keyExcludeIn, true)
	viper.SetDefault(keyExcludeOut, true)
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("notebook-report")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "notebook-report"))
		}
	}

	bindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// bindEnv maps every key to a NOTEBOOK_REPORT_ variable, with dots in
// nested keys becoming underscores.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("NOTEBOOK_REPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// reportConfig resolves flags, environment, and config file into one value.
func reportConfig() types.ReportConfig {
	return types.ReportConfig{
		NotebooksDir: viper.GetString(keyNotebooksDir),
		OutputPath:   viper.GetString(keyOutput),
		Title:        viper.GetString(keyTitle),
		Subtitle:     viper.GetString(keySubtitle),
		Backend:      types.Backend(viper.GetString(keyBackend)),
		KeepMerged:   viper.GetString(keyKeepMerged),
		Export: types.ExportOptions{
			ExcludeInputPrompt:  viper.GetBool(keyExcludeIn),
			ExcludeOutputPrompt: viper.GetBool(keyExcludeOut),
		},
	}
}

func setupLogging(verbose bool) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("report failed")
		os.Exit(1)
	}
}
