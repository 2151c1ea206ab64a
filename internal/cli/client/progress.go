package client

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// LearningItem represents a tracked book or course.
type LearningItem struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Author            string `json:"author,omitempty"`
	Type              string `json:"type"`
	TotalChapters     int    `json:"total_chapters"`
	CompletedChapters int    `json:"completed_chapters"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

// Chapter represents a chapter of a learning item.
type Chapter struct {
	ID     string `json:"id"`
	Index  int    `json:"index"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

// ProgressCmd creates the progress command group.
func ProgressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Track reading and course progress",
	}

	cmd.AddCommand(progressAddCmd())
	cmd.AddCommand(progressListCmd())
	cmd.AddCommand(progressShowCmd())
	cmd.AddCommand(progressMarkCmd())

	return cmd
}

func progressAddCmd() *cobra.Command {
	var (
		author   string
		itemType string
		chapters int
		titles   []string
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Start tracking a book or course",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			body := map[string]any{
				"title":          args[0],
				"author":         author,
				"type":           itemType,
				"total_chapters": chapters,
			}
			if len(titles) > 0 {
				body["chapter_titles"] = titles
			}

			resp, err := api.Post("/progress", body)
			if err != nil {
				return fmt.Errorf("failed to create item: %w", err)
			}

			var item LearningItem
			if err := json.Unmarshal(resp.Data, &item); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if outputJSON {
				output, _ := json.MarshalIndent(item, "", "  ")
				fmt.Println(string(output))
				return nil
			}

			fmt.Printf("Tracking: %s (%s, %d chapters)\n", item.Title, item.ID, item.TotalChapters)
			return nil
		},
	}

	cmd.Flags().StringVar(&author, "author", "", "Author or instructor")
	cmd.Flags().StringVarP(&itemType, "type", "t", "book", "Item type: book or course")
	cmd.Flags().IntVarP(&chapters, "chapters", "n", 0, "Number of chapters")
	cmd.Flags().StringSliceVar(&titles, "chapter-titles", nil, "Chapter titles (overrides --chapters)")

	return cmd
}

func progressListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked items",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get("/progress")
			if err != nil {
				return fmt.Errorf("failed to list items: %w", err)
			}

			var items []LearningItem
			if err := json.Unmarshal(resp.Data, &items); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if outputJSON {
				output, _ := json.MarshalIndent(items, "", "  ")
				fmt.Println(string(output))
				return nil
			}

			if len(items) == 0 {
				fmt.Println("Nothing tracked yet.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tTYPE\tPROGRESS")
			for _, item := range items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\n", item.ID, item.Title, item.Type, item.CompletedChapters, item.TotalChapters)
			}
			return w.Flush()
		},
	}

	return cmd
}

func progressShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an item with its chapters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get("/progress/" + args[0])
			if err != nil {
				return fmt.Errorf("failed to get item: %w", err)
			}

			var detail struct {
				Item     LearningItem `json:"item"`
				Chapters []Chapter    `json:"chapters"`
			}
			if err := json.Unmarshal(resp.Data, &detail); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if outputJSON {
				output, _ := json.MarshalIndent(detail, "", "  ")
				fmt.Println(string(output))
				return nil
			}

			fmt.Printf("%s (%d/%d chapters)\n\n", detail.Item.Title, detail.Item.CompletedChapters, detail.Item.TotalChapters)
			for _, ch := range detail.Chapters {
				marker := " "
				switch ch.Status {
				case "done":
					marker = "x"
				case "reading":
					marker = ">"
				}
				fmt.Printf("  [%s] %d. %s (%s)\n", marker, ch.Index, ch.Title, ch.ID)
			}
			return nil
		},
	}

	return cmd
}

func progressMarkCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "mark <chapter-id>",
		Short: "Update a chapter's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Patch("/progress/chapters/"+args[0], map[string]string{"status": status})
			if err != nil {
				return fmt.Errorf("failed to update chapter: %w", err)
			}

			var chapter Chapter
			if err := json.Unmarshal(resp.Data, &chapter); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			fmt.Printf("Chapter %d (%s): %s\n", chapter.Index, chapter.Title, chapter.Status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "done", "New status: pending, reading, or done")

	return cmd
}
