package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tome-labs/tome/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "tome",
		Short: "Tome CLI - personal knowledge base assistant",
		Long: `Tome CLI provides commands to index documents, search them, and chat
with an assistant grounded in your knowledge base.

Environment variables:
  TOME_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")

	rootCmd.AddCommand(client.AddCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.ListCmd())
	rootCmd.AddCommand(client.GetCmd())
	rootCmd.AddCommand(client.DeleteCmd())
	rootCmd.AddCommand(client.ChatCmd())
	rootCmd.AddCommand(client.StatusCmd())
	rootCmd.AddCommand(client.ProgressCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
