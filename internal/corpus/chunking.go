package corpus

import (
	"strings"
	"unicode"
)

// ChunkConfig controls how source documents are split into corpus rows.
type ChunkConfig struct {
	MaxChars  int
	MinChars  int
	Overlap   int
	MaxChunks int
}

// DefaultChunkConfig returns the settings used by corpus builds.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars:  800,
		MinChars:  200,
		Overlap:   100,
		MaxChunks: 0,
	}
}

// ChunkText splits text on whitespace boundaries into windows of at most
// MaxChars runes, each sharing Overlap runes with its predecessor. MaxChunks
// of zero means no limit.
func ChunkText(text string, cfg ChunkConfig) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}
	runes := []rune(clean)
	if len(runes) <= cfg.MaxChars {
		return []string{clean}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		if cfg.MaxChunks > 0 && len(chunks) >= cfg.MaxChunks {
			break
		}

		end := min(start+cfg.MaxChars, len(runes))
		if end < len(runes) {
			end = cutAtSpace(runes, start, end, cfg.MinChars)
		}
		if end <= start {
			break
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end >= len(runes) {
			break
		}

		next := end
		if cfg.Overlap > 0 && end-start > cfg.Overlap {
			next = end - cfg.Overlap
			// start the overlap on a word boundary
			for next < end && !unicode.IsSpace(runes[next-1]) {
				next++
			}
		}
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

func cutAtSpace(runes []rune, start, end, minChars int) int {
	floor := start + minChars
	if floor > end {
		floor = start
	}
	for i := end; i > floor; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}
