// Package document handles the ingestion side of the pipeline: splitting
// an uploaded document into overlapping chunks and embedding them into
// index entries. Ingestion is all-or-nothing; a failed batch leaves no
// partial state behind.
package document

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oselz/docent/internal/index"
	"github.com/oselz/docent/internal/log"
)

var (
	// ErrIngestion indicates document ingestion failed; the session's
	// prior index, if any, is untouched.
	ErrIngestion = errors.New("document ingestion failed")

	// ErrEmptyDocument indicates the document contained no usable text.
	ErrEmptyDocument = errors.New("document is empty")
)

// Document is an uploaded document awaiting ingestion.
type Document struct {
	Name string
	Text string
}

// Chunk is one contiguous span of a document, in document order.
type Chunk struct {
	Seq      int
	Text     string
	Document string
}

// Splitter cuts text into fixed-size chunks with overlap. Sizes are in
// runes so multi-byte text never splits mid-character.
type Splitter struct {
	chunkSize int
	overlap   int
}

// NewSplitter validates the chunking parameters: chunkSize must be
// positive and overlap in [0, chunkSize).
func NewSplitter(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize < 1 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must be in [0, %d), got %d", chunkSize, overlap)
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}, nil
}

// Split cuts text into chunks starting at positions 0, chunkSize-overlap,
// 2*(chunkSize-overlap), and so on. The final chunk may be shorter than
// chunkSize. Splitting is deterministic and covers every rune of the
// input. Empty input yields no chunks.
func (s *Splitter) Split(text, documentName string) []Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := s.chunkSize - s.overlap
	var chunks []Chunk
	for i := 0; i < len(runes); i += step {
		end := i + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			Seq:      len(chunks),
			Text:     string(runes[i:end]),
			Document: documentName,
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// Embedder is the slice of the provider the ingestor depends on.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Ingestor turns documents into index entries: split, embed, assemble.
type Ingestor struct {
	splitter *Splitter
	embedder Embedder
	logger   log.Logger
}

// NewIngestor creates an Ingestor. A nil logger is replaced by a no-op.
func NewIngestor(splitter *Splitter, embedder Embedder, logger log.Logger) *Ingestor {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Ingestor{splitter: splitter, embedder: embedder, logger: logger}
}

// Ingest splits and embeds doc, returning one index entry per chunk.
// A document with no text (or only whitespace) fails with ErrEmptyDocument
// wrapped in ErrIngestion. Any embedding failure fails the whole batch;
// entries are returned only on full success so the caller can swap them
// in atomically.
func (ing *Ingestor) Ingest(ctx context.Context, doc Document) ([]index.Entry, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return nil, fmt.Errorf("%w: %w: %q", ErrIngestion, ErrEmptyDocument, doc.Name)
	}

	chunks := ing.splitter.Split(doc.Text, doc.Name)
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := ing.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding %q: %w", ErrIngestion, doc.Name, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks", ErrIngestion, len(vectors), len(chunks))
	}

	dim := ing.embedder.Dimension()
	entries := make([]index.Entry, len(chunks))
	for i, c := range chunks {
		if len(vectors[i]) != dim {
			return nil, fmt.Errorf("%w: chunk %d has dimension %d, want %d",
				ErrIngestion, c.Seq, len(vectors[i]), dim)
		}
		entries[i] = index.Entry{Seq: c.Seq, Text: c.Text, Vector: vectors[i]}
	}

	ing.logger.Debug("ingested document",
		"document", doc.Name, "chunks", len(entries), "dimension", dim)
	return entries, nil
}
