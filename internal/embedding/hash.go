package embedding

import "context"

const defaultHashDims = 384

// Hash is a deterministic, model-free embedder. Bytes of the input fold into
// a fixed-width vector which is then L2-normalized, so identical texts always
// land on the same unit vector. It keeps search working when no embedding
// service is reachable; the vectors carry no semantics beyond byte overlap.
type Hash struct {
	dims int
}

// NewHash creates a hash embedder. dims <= 0 selects the default width.
func NewHash(dims int) *Hash {
	if dims <= 0 {
		dims = defaultHashDims
	}
	return &Hash{dims: dims}
}

func (h *Hash) Model() string   { return "hash" }
func (h *Hash) Dimensions() int { return h.dims }

// Embed folds the text's bytes into the vector. Empty text embeds to the
// zero vector.
func (h *Hash) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, h.dims)
	if text == "" {
		return vec, nil
	}
	for i := 0; i < len(text); i++ {
		vec[i%h.dims] += float64(text[i]%53) / 53.0
	}
	normalize(vec)
	return vec, nil
}
