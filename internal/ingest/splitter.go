package ingest

import "github.com/tmc/langchaingo/textsplitter"

const (
	chunkSize    = 512
	chunkOverlap = 50
)

// SplitText breaks text into overlapping chunks sized for embedding. Every
// loader uses this one strategy so chunk boundaries stay comparable across
// sources.
func SplitText(text string) ([]string, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
		textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
	)
	return splitter.SplitText(text)
}
