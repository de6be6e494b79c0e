package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the calassist application
var rootCmd = &cobra.Command{
	Use:   "calassist",
	Short: "Conversational Google Calendar assistant",
	Long: `calassist is a chat assistant that reads and changes a Google Calendar
through a language model with function calling.

Changes are staged: the assistant previews every create, update and delete
and only executes it after the user confirms.

It can run as:
  - An HTTP chat service with Google OAuth login (serve)
  - An MCP (Model Context Protocol) server exposing the calendar tools (serve --mcp-transport)`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "calassist version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
