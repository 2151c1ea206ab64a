// Package chunker splits normalized document text into fixed-width,
// overlapping windows. Windows are measured in runes so multi-byte text
// chunks the same way regardless of encoding width.
package chunker

import (
	"strings"

	"github.com/tome-labs/tome/internal/domain"
)

const (
	DefaultChunkSize = 500
	DefaultOverlap   = 50
)

// ValidateConfig rejects chunk configurations that cannot make progress.
// Violations are configuration errors regardless of input text.
func ValidateConfig(size, overlap int) error {
	if size <= 0 {
		return domain.NewDomainError(domain.ErrCodeConfiguration, "chunk size must be positive")
	}
	if overlap < 0 {
		return domain.NewDomainError(domain.ErrCodeConfiguration, "chunk overlap cannot be negative")
	}
	if overlap >= size {
		return domain.ErrInvalidChunkConfig
	}
	return nil
}

// Split cuts text into windows of length size advancing by size-overlap, so
// consecutive windows share overlap runes of context. The final window may be
// shorter. Empty or whitespace-only input yields no chunks. Deterministic:
// identical input and config always produce the identical sequence.
func Split(text string, size, overlap int) ([]string, error) {
	if err := ValidateConfig(size, overlap); err != nil {
		return nil, err
	}

	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil, nil
	}

	runes := []rune(clean)
	if len(runes) <= size {
		return []string{clean}, nil
	}

	stride := size - overlap
	chunks := make([]string, 0, 1+(len(runes)-overlap)/stride)
	for start := 0; start < len(runes); start += stride {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}

	return chunks, nil
}
