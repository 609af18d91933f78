package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/recallkit/recall/internal/memory"
)

var rememberType string

var rememberCmd = &cobra.Command{
	Use:   "remember [content]",
	Short: "Save one memory",
	Long:  "Remember stores a single memory. Core types (fact, preference, profile, user_core) are also mirrored into the permanent store and surface in the user context block.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRemember,
}

func init() {
	rememberCmd.Flags().StringVarP(&rememberType, "type", "t", memory.TypeFact, "memory type: fact, preference, profile, user_core, or document")
}

func runRemember(cmd *cobra.Command, args []string) error {
	content := strings.Join(args, " ")

	typ := strings.ToLower(strings.TrimSpace(rememberType))
	switch typ {
	case memory.TypeFact, memory.TypePreference, memory.TypeProfile, memory.TypeUserCore, memory.TypeDocument:
	default:
		return fmt.Errorf("unknown type %q: use fact, preference, profile, user_core, or document", rememberType)
	}

	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	item := memory.Item{
		Content: content,
		Metadata: map[string]any{
			memory.MetaType:   typ,
			memory.MetaSource: "manual",
		},
	}
	sum, err := d.memories.Save(ctx, []memory.Item{item}, true)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}

	fmt.Printf("Remembered %s (%s)\n", sum.IDs[0], typ)
	return nil
}
