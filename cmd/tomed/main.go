package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tome-labs/tome/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tomed",
		Short: "Tome daemon",
		Long:  "Tome daemon for running the knowledge base API server",
	}

	rootCmd.AddCommand(admin.ServeCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
