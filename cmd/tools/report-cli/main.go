// cmd/tools/report-cli/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "report-cli",
	Short: "Operator tool for the vehicle report service",
	Long: `Operator tool for the vehicle report service.

Available subcommands:
  post     - POST a JSON payload to an endpoint and print the response
  generate - Run validation and report generation once, locally`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(newPostCmd())
	rootCmd.AddCommand(newGenerateCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
