package cli

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/recallkit/recall/internal/config"
	"github.com/recallkit/recall/internal/embedding"
	"github.com/recallkit/recall/internal/llm"
	"github.com/recallkit/recall/internal/logging"
	"github.com/recallkit/recall/internal/memory"
	"github.com/recallkit/recall/internal/router"
	"github.com/recallkit/recall/internal/store"
)

// deps bundles the in-process retrieval stack for commands that run without
// a daemon.
type deps struct {
	cfg      config.Config
	log      *zap.Logger
	db       *store.DB
	dbPath   string
	embedder embedding.Embedder
	manager  *memory.Manager
	memories *router.Router
	llm      llm.Client // nil when no provider is configured
}

func (d *deps) Close() {
	d.db.Close()
	_ = d.log.Sync()
}

// openDeps loads configuration and wires the full stack in-process. The LLM
// is optional: when no provider is configured the deps still work for
// ingestion and basic search, with llm left nil.
func openDeps() (*deps, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	cfg.LLM = detectLLM(cfg.LLM)

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	llmClient, err := llm.NewClient(cfg.LLM)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: LLM not configured (%v), chat and query expansion disabled\n", err)
		llmClient = nil
	}

	embedder, err := embedding.NewFromConfig(cfg.Embedding, log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init embedder: %w", err)
	}

	index := store.NewVectorIndex(db, embedder, log)
	var expander *memory.Expander
	if llmClient != nil && cfg.Retrieval.MultiQuery {
		expander = memory.NewExpander(llmClient, log)
	}
	manager := memory.NewManager(index, expander, memory.ManagerConfig{
		DecayRate:  cfg.Retrieval.DecayRate,
		Attempts:   cfg.Retrieval.Attempts,
		RetryDelay: cfg.Retrieval.RetryDelay,
	}, log)

	return &deps{
		cfg:      cfg,
		log:      log,
		db:       db,
		dbPath:   dbPath,
		embedder: embedder,
		manager:  manager,
		memories: router.New(manager, db, log),
		llm:      llmClient,
	}, nil
}

// detectLLM fills provider credentials from conventional env vars when the
// config leaves them unset, so `export ANTHROPIC_API_KEY=...` is enough to
// enable chat.
func detectLLM(cfg config.LLMConfig) config.LLMConfig {
	switch cfg.Provider {
	case "anthropic":
		if cfg.AnthropicKey == "" {
			cfg.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	case "openai":
		if cfg.OpenAIKey == "" {
			cfg.OpenAIKey = os.Getenv("OPENAI_API_KEY")
		}
	case "":
		if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
			cfg.Provider = "anthropic"
			cfg.AnthropicKey = key
		} else if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.Provider = "openai"
			cfg.OpenAIKey = key
		}
	}
	return cfg
}
