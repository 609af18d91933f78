package memory

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	defaultSearchAttempts = 5
	defaultRetryDelay     = 2 * time.Second
)

// DefaultK is the result count used when a caller passes k <= 0.
const DefaultK = 5

// Manager is the single entry point for ingestion and search. It owns the
// choice between plain, basic time-weighted, and multi-query retrieval, and
// the retry loop that papers over the index's eventual consistency on the
// plain path. k is always a per-call parameter; the Manager holds no
// per-request state and is safe for concurrent use.
type Manager struct {
	store       Store
	retriever   *Retriever
	intelligent *IntelligentRetriever
	attempts    int
	delay       time.Duration
	sleep       func(time.Duration)
	now         func() time.Time
	log         *zap.Logger
}

// ManagerConfig tunes the Manager. Zero values select the defaults.
type ManagerConfig struct {
	DecayRate  float64       // hourly decay rate for the scored retrievers
	Attempts   int           // plain-path retries on empty results
	RetryDelay time.Duration // fixed inter-attempt delay
}

// NewManager wires a Manager over a store. A nil expander disables
// multi-query retrieval; time-weighted searches then use the basic retriever.
func NewManager(store Store, expander *Expander, cfg ManagerConfig, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = defaultSearchAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}

	m := &Manager{
		store:     store,
		retriever: NewRetriever(store, cfg.DecayRate, log),
		attempts:  cfg.Attempts,
		delay:     cfg.RetryDelay,
		sleep:     time.Sleep,
		now:       func() time.Time { return time.Now().UTC() },
		log:       log,
	}
	if expander != nil {
		m.intelligent = NewIntelligentRetriever(store, expander, cfg.DecayRate, log)
	}
	return m
}

// Ingest converts chunks into items and upserts them as one batch. A chunk's
// content becomes the item body and its remaining fields become metadata.
// Missing ids are derived from the ingestion time and content; created_at is
// stamped when the chunk did not carry one.
func (m *Manager) Ingest(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	now := m.now()
	items := make([]Item, len(chunks))
	for i, c := range chunks {
		item := Item{ID: c.ID, Content: c.Content, Metadata: cloneMeta(c.Metadata)}
		if item.ID == "" {
			item.ID = DeriveID(c.Content, now)
		}
		if item.MetaString(MetaCreatedAt) == "" {
			item.SetMeta(MetaCreatedAt, FormatTimestamp(now))
		}
		items[i] = item
	}

	if _, err := m.store.Upsert(ctx, items); err != nil {
		return fmt.Errorf("ingest %d chunks: %w", len(items), err)
	}
	m.log.Debug("ingested", zap.Int("chunks", len(items)))
	return nil
}

// Search returns up to k items for query. With timeWeighted set the scored
// retrievers run (multi-query when an expander is wired, basic otherwise);
// without it the plain similarity path runs with the retry-on-empty loop.
func (m *Manager) Search(ctx context.Context, query string, k int, timeWeighted bool) ([]Item, error) {
	if k <= 0 {
		k = DefaultK
	}
	if timeWeighted {
		if m.intelligent != nil {
			return m.intelligent.Retrieve(ctx, query, k)
		}
		return m.retriever.Retrieve(ctx, query, k)
	}
	return m.plainSearch(ctx, query, k)
}

// plainSearch queries the index directly, retrying on empty results because a
// just-written item may not be searchable yet. It returns on the first
// non-empty attempt; an empty slice after the final attempt is a valid
// answer, not an error. The scored retrievers never retry — they run after
// ingestion has settled and treat empty results as meaningful.
func (m *Manager) plainSearch(ctx context.Context, query string, k int) ([]Item, error) {
	for attempt := 1; ; attempt++ {
		items, err := m.store.Search(ctx, query, k)
		if err != nil {
			return nil, fmt.Errorf("similarity search: %w", err)
		}
		if len(items) > 0 {
			return items, nil
		}
		if attempt >= m.attempts {
			return items, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m.log.Debug("empty result, retrying",
			zap.String("query", query),
			zap.Int("attempt", attempt),
			zap.Duration("delay", m.delay))
		m.sleep(m.delay)
	}
}
