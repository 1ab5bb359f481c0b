package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "edupanel",
	Short: "EduPanel education portal API server",
	Long: `EduPanel backend: identity and approval lifecycle for students,
faculty, and department heads, plus the supporting worker processes.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
