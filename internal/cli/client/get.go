package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// GetCmd creates the get command.
func GetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runGet(cmd, args[0], outputJSON)
		},
	}

	return cmd
}

func runGet(cmd *cobra.Command, id string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/documents/" + id)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(doc, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("ID:      %s\n", doc.ID)
	fmt.Printf("Source:  %s\n", doc.Source)
	fmt.Printf("Type:    %s\n", doc.ContentType)
	fmt.Printf("Status:  %s\n", doc.Status)
	fmt.Printf("Chunks:  %d\n", doc.ChunkCount)
	fmt.Printf("Size:    %d bytes\n", doc.FileSize)
	fmt.Printf("Created: %s\n", doc.CreatedAt)
	if doc.ErrorMessage != "" {
		fmt.Printf("Error:   %s\n", doc.ErrorMessage)
	}

	return nil
}
