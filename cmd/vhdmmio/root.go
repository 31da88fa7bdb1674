// Package main provides the command-line interface for compiling and
// inspecting register files.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use: "vhdmmio",
	Short: "vhdmmio compiles register file descriptions into address " +
		"decoders and a bus-accessible model.",
	Long: `vhdmmio compiles register file descriptions into address ` +
		`decoders and a bus-accessible model. It checks the address map ` +
		`and field capabilities for conflicts, and can record or serve ` +
		`the compiled model for inspection.`,
}

func main() {
	// A .env file next to the working directory may carry defaults
	// such as VHDMMIO_PORT. Missing files are fine.
	_ = godotenv.Load()

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
