package chunker

import (
	"strings"

	"docsum/internal/domain"
	"docsum/internal/textutil"
)

// SentenceChunker groups consecutive sentences into chunks. Neighbouring
// chunks repeat the trailing overlap sentences of their predecessor.
type SentenceChunker struct {
	per     int
	overlap int
}

func NewSentenceChunker(sentencesPerChunk, overlapSentences int) *SentenceChunker {
	c := &SentenceChunker{per: sentencesPerChunk, overlap: overlapSentences}
	if c.per <= 0 {
		c.per = 5
	}
	if c.overlap < 0 || c.overlap >= c.per {
		c.overlap = 0
	}
	return c
}

func (c *SentenceChunker) Chunk(filename, text string) ([]domain.Chunk, error) {
	sentences := textutil.Sentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}
	step := c.per - c.overlap
	var chunks []domain.Chunk
	for start := 0; ; start += step {
		end := min(start+c.per, len(sentences))
		chunks = append(chunks, newChunk(filename, len(chunks), strings.Join(sentences[start:end], " ")))
		if end == len(sentences) {
			return chunks, nil
		}
	}
}
