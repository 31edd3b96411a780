// Package main is the pattactl command line tool. It runs the land-rights
// document pipeline on local files, serves the HTTP API and evaluates scheme
// eligibility.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/pattadocumentflow/internal/app"
	"github.com/Lllllllleong/pattadocumentflow/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "pattactl",
	Short: "Digitize Forest Rights Act land-rights documents",
	Long: `pattactl reads scanned patta documents, extracts their text with OCR,
translates it when needed and pulls out the named entities of a land-rights
claim. Results are kept in the configured result store and can be exported
as JSON, plain text or a spreadsheet.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./pattaflow.yaml or ~/.config/pattaflow/pattaflow.yaml)")
}

// loadApp reads the configuration named by --config and wires the app.
func loadApp(cmd *cobra.Command) (*app.App, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	return app.New(cmd.Context(), cfg, app.Options{})
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
