// Command kcstage runs the keratoconus severity staging workflow: a
// five-stage training pipeline over synthetic Pentacam data and a web form
// serving predictions from the trained model.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	kclog "github.com/bhanuswaroop1247/keratoconus-severity-ml/pkg/log"
)

// version is set via -ldflags at build time.
var version = "(devel)"

var rootCmd = &cobra.Command{
	Use:   "kcstage",
	Short: "Keratoconus severity staging from Pentacam parameters",
	Long: "kcstage trains a random forest to stage keratoconus severity (0-4)\n" +
		"from three corneal measurements and serves an interactive prediction form.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		kclog.SetupLogger(level)
		kclog.InstallWarningSink(os.Stderr)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("kcstage", version)
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info",
		"Log level: debug, info, warn or error")

	rootCmd.AddCommand(pipelineCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
