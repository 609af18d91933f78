package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/recallkit/recall/internal/memory"
)

var (
	searchK    int
	searchMode string
	searchAll  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search memories",
	Long:  "Search stored memories with vector similarity. Modes: plain (similarity order), basic (time-weighted), intelligent (multi-query expansion, needs an LLM).",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchK, "k", memory.DefaultK, "number of results")
	searchCmd.Flags().StringVarP(&searchMode, "mode", "m", "basic", "retrieval mode: plain, basic, or intelligent")
	searchCmd.Flags().BoolVar(&searchAll, "all", false, "merge in substring matches from the permanent store")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	var timeWeighted bool
	switch searchMode {
	case "plain":
	case "basic", "intelligent":
		timeWeighted = true
	default:
		return fmt.Errorf("mode must be plain, basic, or intelligent")
	}

	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	if searchMode == "intelligent" && d.llm == nil {
		fmt.Fprintln(os.Stderr, "note: intelligent mode needs an LLM; falling back to basic scoring")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	var items []memory.Item
	if searchAll {
		items, err = d.memories.SearchAll(ctx, query, searchK)
	} else {
		items, err = d.manager.Search(ctx, query, searchK, timeWeighted)
	}
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if len(items) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	for i, it := range items {
		fmt.Printf("%d. %s\n", i+1, firstLine(it.Content, 120))
		fmt.Printf("   id=%s", it.ID)
		if created := it.MetaString(memory.MetaCreatedAt); created != "" {
			fmt.Printf("  created=%s", created)
		}
		if source := it.MetaString(memory.MetaSource); source != "" {
			fmt.Printf("  source=%s", source)
		}
		fmt.Print("\n\n")
	}
	return nil
}

// firstLine clips content to its first line, capped at max runes.
func firstLine(s string, max int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
