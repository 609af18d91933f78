package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/recallkit/recall/internal/ingest"
	"github.com/recallkit/recall/internal/memory"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Ingest markdown notes into memory",
	Long:  "Ingest splits a markdown file, or every .md file under a directory, into chunks and stores them with their creation dates.",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	var items []memory.Item
	if info.IsDir() {
		items, err = ingest.LoadDir(path)
	} else {
		items, err = ingest.LoadMarkdown(path)
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	if len(items) == 0 {
		fmt.Println("Nothing to ingest.")
		return nil
	}

	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	// Each chunk is embedded on write; give remote embedders room.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	sum, err := d.memories.Save(ctx, items, true)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}

	fmt.Printf("Ingested %d chunks from %s\n", sum.VectorUpserts, path)
	return nil
}
