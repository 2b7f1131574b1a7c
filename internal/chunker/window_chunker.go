package chunker

import (
	"strconv"
	"strings"
	"unicode"

	"docsum/internal/domain"
)

// WindowChunker splits text into fixed-size windows of runes that overlap by
// a fixed amount. A window end is pulled back to the last whitespace inside
// the window when one exists, so words are rarely cut.
type WindowChunker struct {
	size    int
	overlap int
}

// NewWindowChunker returns a chunker producing windows of size runes with
// overlap runes shared between neighbours.
func NewWindowChunker(size, overlap int) *WindowChunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &WindowChunker{size: size, overlap: overlap}
}

func (c *WindowChunker) Chunk(filename, text string) ([]domain.Chunk, error) {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil, nil
	}
	var chunks []domain.Chunk
	start := 0
	for start < len(runes) {
		end := start + c.size
		if end >= len(runes) {
			end = len(runes)
		} else if cut := lastSpace(runes[start:end]); cut > c.overlap {
			end = start + cut
		}
		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			chunks = append(chunks, newChunk(filename, len(chunks), piece))
		}
		if end == len(runes) {
			break
		}
		start = end - c.overlap
	}
	return chunks, nil
}

func lastSpace(rs []rune) int {
	for i := len(rs) - 1; i > 0; i-- {
		if unicode.IsSpace(rs[i]) {
			return i
		}
	}
	return -1
}

func newChunk(filename string, idx int, text string) domain.Chunk {
	return domain.Chunk{
		Filename: filename,
		ChunkID:  filename + ":" + strconv.Itoa(idx),
		Text:     text,
		Index:    idx,
	}
}
