// Package embedding provides the local query embedder.
package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/cloo-solutions/vdoc/internal/domain"
)

// DefaultDimension matches all-MiniLM-L6-v2, the model the reference corpora
// were indexed with.
const DefaultDimension = 384

const hashModelName = "hash-bow-v1"

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"can": {}, "do": {}, "does": {}, "for": {}, "from": {}, "how": {}, "i": {}, "in": {},
	"include": {}, "includes": {}, "is": {}, "it": {}, "me": {}, "my": {}, "of": {}, "on": {},
	"or": {}, "should": {}, "that": {}, "the": {}, "this": {}, "to": {}, "was": {}, "what": {},
	"when": {}, "which": {}, "who": {}, "why": {}, "with": {}, "you": {}, "your": {},
}

// HashEmbedder is a deterministic bag-of-words embedder using signed feature
// hashing. Vectors are L2-normalised so Euclidean and cosine rankings agree.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a hash embedder with the given dimension.
func NewHashEmbedder(dimension int) (*HashEmbedder, error) {
	if dimension <= 0 {
		return nil, domain.Wrap(domain.ErrModelNotLoaded, fmt.Errorf("invalid dimension %d", dimension))
	}
	return &HashEmbedder{dim: dimension}, nil
}

// Embed maps text to a unit-length vector. Whitespace-only input is rejected.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e == nil || e.dim <= 0 {
		return nil, domain.ErrModelNotLoaded
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyText
	}

	vec := make([]float32, e.dim)
	counts := make(map[string]int)
	for _, tok := range Tokenize(text) {
		counts[tok]++
	}
	for tok, n := range counts {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()
		idx := int(sum % uint64(e.dim))
		weight := float32(1 + math.Log(float64(n)))
		if sum>>63 == 1 {
			weight = -weight
		}
		vec[idx] += weight
	}

	Normalize(vec)
	return vec, nil
}

// Dimension returns the embedding dimension
func (e *HashEmbedder) Dimension() int {
	return e.dim
}

// ModelInfo returns model information
func (e *HashEmbedder) ModelInfo() string {
	return fmt.Sprintf("%s-%d", hashModelName, e.dim)
}

// Tokenize lower-cases text, splits on anything that is not a letter or digit,
// drops stop words and folds simple plurals.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		if _, stop := stopWords[f]; stop {
			continue
		}
		tokens = append(tokens, stem(f))
	}
	return tokens
}

func stem(tok string) string {
	switch {
	case len(tok) > 4 && strings.HasSuffix(tok, "ies"):
		return tok[:len(tok)-3] + "y"
	case len(tok) > 3 && strings.HasSuffix(tok, "s") && !strings.HasSuffix(tok, "ss") && !strings.HasSuffix(tok, "us"):
		return tok[:len(tok)-1]
	}
	return tok
}

// Normalize scales v to unit length in place. Zero vectors are left as-is.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
