package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/recallkit/recall/internal/assistant"
	"github.com/recallkit/recall/internal/client"
)

var askSession string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question against stored memories",
	Long:  "Ask retrieves relevant memories and has the configured LLM answer with them. Uses a running daemon when one is up, otherwise wires the stack in-process.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askSession, "session", "", "chat session id to continue")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	// Prefer a running daemon: it holds the warm index and the LLM wiring.
	if c := client.New(); c.Healthy() {
		return askDaemon(c, question)
	}

	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	if d.llm == nil {
		return fmt.Errorf("no LLM configured: set llm.provider in config or export ANTHROPIC_API_KEY / OPENAI_API_KEY")
	}

	asst := assistant.New(d.manager, d.memories, d.db, d.llm, assistant.Config{ExtractFacts: true}, d.log)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	res, err := asst.Ask(ctx, askSession, question)
	if err != nil {
		return err
	}
	printAnswer(res.SessionID, res.Answer)
	return nil
}

func askDaemon(c *client.Client, question string) error {
	payload, err := json.Marshal(map[string]string{
		"session_id": askSession,
		"message":    question,
	})
	if err != nil {
		return err
	}

	data, err := c.Post("/api/chat", payload)
	if err != nil {
		return fmt.Errorf("ask daemon at %s: %w", c.URL(), err)
	}

	var res struct {
		SessionID string `json:"session_id"`
		Answer    string `json:"answer"`
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return fmt.Errorf("decode answer: %w", err)
	}
	printAnswer(res.SessionID, res.Answer)
	return nil
}

func printAnswer(sessionID, answer string) {
	fmt.Println(answer)
	fmt.Fprintf(os.Stderr, "\nsession: %s\n", sessionID)
}
