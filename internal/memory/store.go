package memory

import "context"

// Store is the capability the retrievers need from a backing index.
//
// Search returns items most-relevant first; order is the only ranking signal
// (no score field), and fewer than k results — or none at all — is normal,
// not an error. Upsert overwrites by id and reports the ids written. The
// index is allowed to be eventually consistent: a just-upserted item may not
// be searchable immediately.
type Store interface {
	Search(ctx context.Context, query string, k int) ([]Item, error)
	Upsert(ctx context.Context, items []Item) ([]string, error)
}
