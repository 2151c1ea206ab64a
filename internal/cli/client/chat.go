package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// ChatRequest represents the chat API request.
type ChatRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
}

// ChatEvent is one frame of the chat stream.
type ChatEvent struct {
	Type           string `json:"type"`
	Text           string `json:"text,omitempty"`
	Sources        []struct {
		Content string  `json:"content"`
		Source  string  `json:"source"`
		Score   float32 `json:"score"`
	} `json:"sources,omitempty"`
	Message        string `json:"message,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ChatCmd creates the chat command.
func ChatCmd() *cobra.Command {
	var conversationID string

	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Ask the assistant a question",
		Long: `Chat with the assistant over your knowledge base.

The reply streams to stdout as it is generated. Pass --conversation to
continue an earlier conversation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, conversationID, args[0])
		},
	}

	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "Conversation ID to continue")

	return cmd
}

func runChat(cmd *cobra.Command, conversationID, message string) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.PostStream("/chat", ChatRequest{
		ConversationID: conversationID,
		Message:        message,
	})
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var event ChatEvent
		// malformed frames are skipped, not fatal
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			continue
		}

		switch event.Type {
		case "text":
			fmt.Print(event.Text)
		case "source":
			for _, src := range event.Sources {
				fmt.Fprintf(os.Stderr, "[source: %s (%.4f)]\n", src.Source, src.Score)
			}
		case "error":
			fmt.Println()
			return fmt.Errorf("assistant error: %s", event.Message)
		case "done":
			fmt.Println()
			if conversationID == "" && event.ConversationID != "" {
				fmt.Fprintf(os.Stderr, "(conversation: %s)\n", event.ConversationID)
			}
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stream interrupted: %w", err)
	}

	fmt.Println()
	return nil
}
