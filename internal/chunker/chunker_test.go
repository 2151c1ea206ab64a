package chunker

import (
	"strings"
	"testing"

	"github.com/tome-labs/tome/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEmptyInput(t *testing.T) {
	chunks, err := Split("", 100, 10)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = Split("   \n\t  ", 100, 10)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplitShortInput(t *testing.T) {
	chunks, err := Split("hello", 100, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello", chunks[0])
}

func TestSplitOverlapWindows(t *testing.T) {
	text := "abcdefghij" // 10 runes
	chunks, err := Split(text, 4, 1)
	require.NoError(t, err)

	// stride 3: abcd, defg, ghij
	require.Equal(t, []string{"abcd", "defg", "ghij"}, chunks)

	// consecutive windows share exactly overlap runes
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		assert.Equal(t, string(prev[len(prev)-1:]), string([]rune(chunks[i])[:1]))
	}
}

func TestSplitReconstructsText(t *testing.T) {
	cases := []struct {
		text    string
		size    int
		overlap int
	}{
		{strings.Repeat("x", 1000), 100, 20},
		{"The quick brown fox jumps over the lazy dog", 7, 3},
		{strings.Repeat("知识库检索", 40), 16, 5},
		{strings.Repeat("ab", 51), 10, 0},
	}

	for _, tc := range cases {
		chunks, err := Split(tc.text, tc.size, tc.overlap)
		require.NoError(t, err)
		require.NotEmpty(t, chunks)

		var rebuilt strings.Builder
		rebuilt.WriteString(chunks[0])
		for _, c := range chunks[1:] {
			runes := []rune(c)
			rebuilt.WriteString(string(runes[tc.overlap:]))
		}
		assert.Equal(t, tc.text, rebuilt.String())
	}
}

func TestSplitChunkCount(t *testing.T) {
	// count = ceil((n - overlap) / (size - overlap)) for n > size
	cases := []struct {
		n, size, overlap, want int
	}{
		{10, 4, 1, 3},
		{10, 8, 4, 2},
		{13, 8, 4, 3},
		{1000, 100, 20, 13},
		{500, 500, 50, 1},
	}
	for _, tc := range cases {
		text := strings.Repeat("a", tc.n)
		chunks, err := Split(text, tc.size, tc.overlap)
		require.NoError(t, err)
		stride := tc.size - tc.overlap
		expected := (tc.n - tc.overlap + stride - 1) / stride
		if tc.n <= tc.size {
			expected = 1
		}
		assert.Equal(t, expected, len(chunks), "n=%d size=%d overlap=%d", tc.n, tc.size, tc.overlap)
		assert.Equal(t, tc.want, len(chunks))
	}
}

func TestSplitDeterministic(t *testing.T) {
	text := strings.Repeat("deterministic input ", 50)
	first, err := Split(text, 64, 16)
	require.NoError(t, err)
	second, err := Split(text, 64, 16)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSplitInvalidConfig(t *testing.T) {
	cases := []struct {
		name    string
		size    int
		overlap int
	}{
		{"OverlapEqualsSize", 10, 10},
		{"OverlapExceedsSize", 10, 20},
		{"ZeroSize", 0, 0},
		{"NegativeSize", -5, 0},
		{"NegativeOverlap", 10, -1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Split("some text", tc.size, tc.overlap)
			require.Error(t, err)
			assert.True(t, domain.IsConfiguration(err))

			// config failure does not depend on input
			_, err = Split("", tc.size, tc.overlap)
			require.Error(t, err)
		})
	}
}
