package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// StatusResponse represents the status API response.
type StatusResponse struct {
	Documents       int64  `json:"documents"`
	DocumentsReady  int64  `json:"documents_ready"`
	DocumentsFailed int64  `json:"documents_failed"`
	Chunks          int64  `json:"chunks"`
	EmbeddingModel  string `json:"embedding_model"`
}

// StatusCmd creates the status command.
func StatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show knowledge base status",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runStatus(cmd, outputJSON)
		},
	}

	return cmd
}

func runStatus(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/")
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	var status StatusResponse
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Documents: %d (%d ready, %d failed)\n", status.Documents, status.DocumentsReady, status.DocumentsFailed)
	fmt.Printf("Chunks:    %d\n", status.Chunks)
	fmt.Printf("Model:     %s\n", status.EmbeddingModel)

	return nil
}
