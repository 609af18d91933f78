package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	forgetIDs []string
	forgetAll bool
)

var forgetCmd = &cobra.Command{
	Use:   "forget",
	Short: "Delete memories",
	RunE:  runForget,
}

func init() {
	forgetCmd.Flags().StringSliceVar(&forgetIDs, "id", nil, "memory id to delete (repeatable)")
	forgetCmd.Flags().BoolVar(&forgetAll, "all", false, "delete every stored memory")
}

func runForget(cmd *cobra.Command, args []string) error {
	if forgetAll && len(forgetIDs) > 0 {
		return fmt.Errorf("pass --id or --all, not both")
	}
	if !forgetAll && len(forgetIDs) == 0 {
		return fmt.Errorf("nothing to forget: pass --id or --all")
	}

	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if forgetAll {
		sum, err := d.memories.Wipe(ctx)
		if err != nil {
			return fmt.Errorf("wipe: %w", err)
		}
		fmt.Printf("Forgot everything: %d memories, %d permanent rows\n",
			sum.VectorDeletes, sum.PermanentDeletes)
		return nil
	}

	sum, err := d.memories.Delete(ctx, forgetIDs)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	fmt.Printf("Forgot %d memories (%d permanent rows)\n",
		sum.VectorDeletes, sum.PermanentDeletes)
	return nil
}
