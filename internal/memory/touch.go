package memory

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// touchItems refreshes last_accessed_at on the final selection and writes the
// whole batch back in one upsert. Every item in the batch gets the identical
// timestamp, computed once per retrieval. The write-back is best-effort
// telemetry for recency scoring: failures are logged and swallowed, never
// surfaced to the read path.
func touchItems(ctx context.Context, store Store, items []Item, now time.Time, log *zap.Logger) {
	if len(items) == 0 {
		return
	}

	stamp := FormatTimestamp(now)
	for i := range items {
		items[i].SetMeta(MetaLastAccessed, stamp)
	}

	if _, err := store.Upsert(ctx, items); err != nil {
		log.Warn("touch write-back failed",
			zap.Int("items", len(items)),
			zap.Error(soft(KindWriteBack, err)))
	}
}
