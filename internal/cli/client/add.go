package client

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// IndexRequest represents the index API request.
type IndexRequest struct {
	Filename    string `json:"filename,omitempty"`
	Source      string `json:"source,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Content     string `json:"content"`
}

// Document represents a document returned by the API.
type Document struct {
	ID           string `json:"id"`
	Filename     string `json:"filename,omitempty"`
	Source       string `json:"source"`
	ContentType  string `json:"content_type"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	ChunkCount   int    `json:"chunk_count"`
	FileSize     int64  `json:"file_size"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// AddCmd creates the add command.
func AddCmd() *cobra.Command {
	var (
		source      string
		contentType string
	)

	cmd := &cobra.Command{
		Use:   "add [file...]",
		Short: "Index files into the knowledge base",
		Long: `Add files to the knowledge base for semantic search.

With no arguments, content is read from stdin and --source is required.
Markdown files are detected by extension; use --type to override.

Examples:
  tome add notes.md
  tome add chapter1.md chapter2.md
  cat notes.txt | tome add --source notes.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			if len(args) == 0 {
				return runAddStdin(cmd, source, contentType, outputJSON)
			}
			return runAddFiles(cmd, args, contentType, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "Source label (required when reading stdin)")
	cmd.Flags().StringVarP(&contentType, "type", "t", "", "Content type: text or markdown (default: by extension)")

	return cmd
}

func runAddFiles(cmd *cobra.Command, paths []string, contentType string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	var docs []Document
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		doc, err := indexContent(api, IndexRequest{
			Filename:    filepath.Base(path),
			ContentType: resolveContentType(path, contentType),
			Content:     string(content),
		})
		if err != nil {
			return fmt.Errorf("failed to index %s: %w", path, err)
		}
		docs = append(docs, *doc)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(docs, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	for _, doc := range docs {
		fmt.Printf("Queued: %s (%s)\n", doc.Source, doc.ID)
	}
	return nil
}

func runAddStdin(cmd *cobra.Command, source, contentType string, outputJSON bool) error {
	if source == "" {
		return fmt.Errorf("--source is required when reading from stdin")
	}

	content, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}
	if len(content) == 0 {
		return fmt.Errorf("no input provided")
	}

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	doc, err := indexContent(api, IndexRequest{
		Source:      source,
		ContentType: resolveContentType(source, contentType),
		Content:     string(content),
	})
	if err != nil {
		return fmt.Errorf("failed to index: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(doc, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Queued: %s (%s)\n", doc.Source, doc.ID)
	return nil
}

func indexContent(api *APIClient, req IndexRequest) (*Document, error) {
	resp, err := api.Post("/index", req)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &doc, nil
}

func resolveContentType(path, override string) string {
	if override != "" {
		return override
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return "markdown"
	default:
		return ""
	}
}
