package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/recallkit/recall/internal/assistant"
	"github.com/recallkit/recall/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the recall daemon",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	d, err := openDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	var asst *assistant.Assistant
	if d.llm != nil {
		asst = assistant.New(d.manager, d.memories, d.db, d.llm, assistant.Config{ExtractFacts: true}, d.log)
		fmt.Fprintf(os.Stderr, "  llm: %s (%s)\n", d.cfg.LLM.Provider, d.cfg.LLM.Model)
	}
	fmt.Fprintf(os.Stderr, "  embedder: %s (%d dims)\n", d.embedder.Model(), d.embedder.Dimensions())

	srv := server.New(d.db, d.manager, d.memories, asst, VersionString(), d.log)
	addr := d.cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "recall serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  db: %s\n", d.dbPath)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}
