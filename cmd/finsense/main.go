// Finsense is the budget-analysis service: a five-stage pipeline that
// scores a user's spending, enriches it with live market data,
// retrieves financial-literacy passages, and generates a roast plus a
// coach plan through a quota-resilient LLM client.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "finsense",
	Short: "AI budget coach: spending analysis, live data, roasts and coach plans",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config YAML")
	rootCmd.AddCommand(serveCmd, indexCmd, analyzeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
