package document

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSplitter_Validation(t *testing.T) {
	_, err := NewSplitter(0, 0)
	assert.Error(t, err)

	_, err = NewSplitter(100, 100)
	assert.Error(t, err)

	_, err = NewSplitter(100, -1)
	assert.Error(t, err)

	_, err = NewSplitter(100, 99)
	assert.NoError(t, err)
}

func TestSplit_Walk(t *testing.T) {
	s, err := NewSplitter(10, 3)
	require.NoError(t, err)

	text := "abcdefghijklmnopqrst" // 20 runes
	chunks := s.Split(text, "doc.txt")

	// step = 7: starts at 0, 7, 14
	require.Len(t, chunks, 3)
	assert.Equal(t, "abcdefghij", chunks[0].Text)
	assert.Equal(t, "hijklmnopq", chunks[1].Text)
	assert.Equal(t, "opqrst", chunks[2].Text) // final chunk may be short
	for i, c := range chunks {
		assert.Equal(t, i, c.Seq)
		assert.Equal(t, "doc.txt", c.Document)
	}
}

func TestSplit_Deterministic(t *testing.T) {
	s, err := NewSplitter(50, 10)
	require.NoError(t, err)

	text := strings.Repeat("the quick brown fox ", 40)
	first := s.Split(text, "d")
	second := s.Split(text, "d")
	assert.Equal(t, first, second)
}

func TestSplit_FullCoverage(t *testing.T) {
	// Every rune of the input appears in some chunk, across a range of
	// chunk size and overlap combinations.
	text := strings.Repeat("0123456789", 37)
	for _, tc := range []struct{ size, overlap int }{
		{10, 0}, {10, 3}, {100, 99}, {1000, 100}, {7, 2}, {1, 0},
	} {
		s, err := NewSplitter(tc.size, tc.overlap)
		require.NoError(t, err)

		chunks := s.Split(text, "d")
		require.NotEmpty(t, chunks)

		// Reconstruct: drop each chunk's overlapping prefix after the first.
		var rebuilt strings.Builder
		for i, c := range chunks {
			runes := []rune(c.Text)
			if i > 0 && len(runes) > tc.overlap {
				runes = runes[tc.overlap:]
			} else if i > 0 {
				continue // fully contained in the previous chunk
			}
			rebuilt.WriteString(string(runes))
		}
		assert.Equal(t, text, rebuilt.String(), "size=%d overlap=%d", tc.size, tc.overlap)
	}
}

func TestSplit_ShortInput(t *testing.T) {
	s, err := NewSplitter(1000, 100)
	require.NoError(t, err)

	chunks := s.Split("tiny", "d")
	require.Len(t, chunks, 1)
	assert.Equal(t, "tiny", chunks[0].Text)
}

func TestSplit_Empty(t *testing.T) {
	s, err := NewSplitter(1000, 100)
	require.NoError(t, err)
	assert.Empty(t, s.Split("", "d"))
}

func TestSplit_MultiByte(t *testing.T) {
	s, err := NewSplitter(4, 1)
	require.NoError(t, err)

	chunks := s.Split("héllo wörld", "d")
	var total string
	for i, c := range chunks {
		runes := []rune(c.Text)
		if i > 0 {
			runes = runes[1:]
		}
		total += string(runes)
	}
	assert.Equal(t, "héllo wörld", total)
}

// fakeEmbedder returns deterministic vectors keyed by input order.
type fakeEmbedder struct {
	dimension int
	err       error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, f.dimension)
		v[i%f.dimension] = 1
		vectors[i] = v
	}
	return vectors, nil
}

func (f *fakeEmbedder) Dimension() int { return f.dimension }

func TestIngest_Success(t *testing.T) {
	s, err := NewSplitter(10, 2)
	require.NoError(t, err)

	ing := NewIngestor(s, &fakeEmbedder{dimension: 4}, nil)
	entries, err := ing.Ingest(context.Background(), Document{
		Name: "notes.txt",
		Text: strings.Repeat("x", 25),
	})
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for i, e := range entries {
		assert.Equal(t, i, e.Seq)
		assert.Len(t, e.Vector, 4)
		assert.NotEmpty(t, e.Text)
	}
}

func TestIngest_EmptyDocument(t *testing.T) {
	s, err := NewSplitter(1000, 100)
	require.NoError(t, err)

	ing := NewIngestor(s, &fakeEmbedder{dimension: 4}, nil)

	for _, text := range []string{"", "   ", "\n\t  \n"} {
		_, err := ing.Ingest(context.Background(), Document{Name: "empty.txt", Text: text})
		assert.ErrorIs(t, err, ErrIngestion)
		assert.ErrorIs(t, err, ErrEmptyDocument)
	}
}

func TestIngest_EmbeddingFailureFailsBatch(t *testing.T) {
	s, err := NewSplitter(10, 0)
	require.NoError(t, err)

	boom := errors.New("backend unavailable")
	ing := NewIngestor(s, &fakeEmbedder{dimension: 4, err: boom}, nil)

	entries, err := ing.Ingest(context.Background(), Document{Name: "d", Text: strings.Repeat("y", 50)})
	assert.Nil(t, entries)
	assert.ErrorIs(t, err, ErrIngestion)
	assert.ErrorIs(t, err, boom)
}
