package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/pattadocumentflow/internal/schemes"
)

var schemesCmd = &cobra.Command{
	Use:   "schemes",
	Short: "List the welfare schemes a claimant is eligible for",
	Long: `Schemes evaluates the eligibility rule table for a claimant profile read
from --claimant, or for the built-in sample claimant.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		claimant := schemes.DefaultClaimant()
		if path, _ := cmd.Flags().GetString("claimant"); path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			claimant = schemes.Claimant{}
			if err := json.Unmarshal(data, &claimant); err != nil {
				return fmt.Errorf("parse %s: %w", path, err)
			}
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(map[string]any{
			"claimant":         claimant.Summary(),
			"eligible_schemes": schemes.Recommend(claimant),
		})
	},
}

func init() {
	schemesCmd.Flags().String("claimant", "", "claimant profile JSON file")
	rootCmd.AddCommand(schemesCmd)
}
