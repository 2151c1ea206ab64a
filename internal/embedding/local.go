package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultLocalDimensions is the vector length for the local provider.
const DefaultLocalDimensions = 256

// LocalProvider embeds text with a hashed bag-of-words: each token is
// hashed into a fixed-length vector which is then L2-normalized, so dot
// products behave as cosine similarity. It needs no network, never fails,
// and is deterministic, which makes it the default for tests and for
// deployments without an embedding API.
type LocalProvider struct {
	dimensions int
}

func NewLocalProvider(dimensions int) *LocalProvider {
	if dimensions <= 0 {
		dimensions = DefaultLocalDimensions
	}
	return &LocalProvider{dimensions: dimensions}
}

func (p *LocalProvider) Dimension() int    { return p.dimensions }
func (p *LocalProvider) ModelName() string { return "hashed-bow" }

func (p *LocalProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return p.embed(text), nil
}

func (p *LocalProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = p.embed(t)
	}
	return vectors, nil
}

func (p *LocalProvider) embed(text string) []float32 {
	vec := make([]float32, p.dimensions)

	for _, token := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		sum := h.Sum32()
		// low bit picks the sign, remaining bits pick the slot
		slot := int(sum>>1) % p.dimensions
		if sum&1 == 0 {
			vec[slot]++
		} else {
			vec[slot]--
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}

	return vec
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
