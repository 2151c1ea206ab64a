package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// SearchRequest represents the search API request.
type SearchRequest struct {
	Query      string `json:"query"`
	TopK       *int   `json:"top_k,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
}

// SearchResult represents a search result.
type SearchResult struct {
	ID         string  `json:"id"`
	DocumentID string  `json:"document_id"`
	Content    string  `json:"content"`
	Source     string  `json:"source"`
	Score      float32 `json:"score"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var (
		topK       int
		documentID string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the knowledge base",
		Long:  "Searches indexed documents using semantic search.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSearch(cmd, args[0], topK, documentID, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "n", 0, "Maximum number of results (server default: 5)")
	cmd.Flags().StringVarP(&documentID, "document", "d", "", "Limit search to a single document")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, topK int, documentID string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	req := SearchRequest{
		Query:      query,
		DocumentID: documentID,
	}
	if topK > 0 {
		req.TopK = &topK
	}

	resp, err := api.Post("/search", req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	var results []SearchResult
	if err := json.Unmarshal(resp.Data, &results); err != nil {
		return fmt.Errorf("failed to parse search results: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(results))
	for i, result := range results {
		fmt.Printf("%d. %s (%.4f)\n", i+1, result.Source, result.Score)
		content := result.Content
		if len(content) > 100 {
			content = content[:97] + "..."
		}
		fmt.Printf("   %s\n", content)
		fmt.Printf("   ID: %s\n", result.ID)
		if i < len(results)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	return nil
}
