// Package ingest runs documents through the ingestion pipeline: chunking,
// optional embedding generation, and indexing into the graph store. The
// document status field tracks progress and is the only coordination between
// stages.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/eventstream"
	"github.com/papercomputeco/engram/pkg/eventstream/nop"
	"github.com/papercomputeco/engram/pkg/graph"
	"github.com/papercomputeco/engram/pkg/segment"
)

// Store is the slice of the graph client the pipeline writes through.
type Store interface {
	CreateDocument(ctx context.Context, doc *graph.Document) error
	UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status graph.DocumentStatus) error
	CreateChunk(ctx context.Context, chunk *graph.Chunk) error
	DeleteDocumentChunks(ctx context.Context, documentID uuid.UUID) error
}

// Config holds pipeline settings.
type Config struct {
	// Store is the graph store the pipeline writes to. Required.
	Store Store

	// Embedder generates chunk embeddings. Optional; without one chunks
	// are stored unembedded.
	Embedder embeddings.Embedder

	// Publisher receives lifecycle events. Defaults to a no-op publisher.
	Publisher eventstream.Publisher

	// Chunking configures the splitter.
	Chunking segment.Options

	// SkipEmbeddings stores chunks without vectors even when an embedder
	// is configured.
	SkipEmbeddings bool

	// Logger defaults to a discard logger.
	Logger *slog.Logger
}

// Assembler drives a document through the ingestion stages.
type Assembler struct {
	store     Store
	embedder  embeddings.Embedder
	publisher eventstream.Publisher
	chunking  segment.Options
	skipEmbed bool
	logger    *slog.Logger
}

// Result summarizes a completed ingestion.
type Result struct {
	DocumentID uuid.UUID
	ChunkCount int
}

// New builds an Assembler.
func New(cfg Config) (*Assembler, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("a store is required")
	}
	if cfg.Publisher == nil {
		cfg.Publisher = nop.NewPublisher()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	return &Assembler{
		store:     cfg.Store,
		embedder:  cfg.Embedder,
		publisher: cfg.Publisher,
		chunking:  cfg.Chunking,
		skipEmbed: cfg.SkipEmbeddings,
		logger:    cfg.Logger,
	}, nil
}

// ProcessDocument ingests one document end-to-end. The document node is
// created first, then chunked, embedded, and indexed, with the status field
// updated at each stage boundary. An embedding failure leaves the document
// in the error state with no chunks written; chunk indices are assigned
// before any network call so a retry produces the same layout.
func (a *Assembler) ProcessDocument(ctx context.Context, doc *graph.Document) (*Result, error) {
	if err := a.store.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("creating document: %w", err)
	}

	log := a.logger.With("document_id", doc.ID, "container", doc.ContainerTag)

	if err := a.setStatus(ctx, doc, graph.StatusChunking); err != nil {
		return nil, err
	}

	spans := a.split(doc)
	log.Debug("document chunked", "chunks", len(spans), "content_type", doc.ContentType)

	if len(spans) == 0 {
		if err := a.setStatus(ctx, doc, graph.StatusDone); err != nil {
			return nil, err
		}
		a.publishIngested(ctx, doc, 0)
		return &Result{DocumentID: doc.ID, ChunkCount: 0}, nil
	}

	var vectors [][]float32
	if a.embedder != nil && !a.skipEmbed {
		if err := a.setStatus(ctx, doc, graph.StatusEmbedding); err != nil {
			return nil, err
		}

		embedded, err := a.embedder.EmbedBatch(ctx, spans)
		if err != nil {
			a.fail(ctx, doc, err)
			return nil, fmt.Errorf("embedding document %s: %w", doc.ID, err)
		}
		vectors = embedded
	}

	if err := a.setStatus(ctx, doc, graph.StatusIndexing); err != nil {
		return nil, err
	}

	// Re-ingesting merges into the same document node; clear any chunks a
	// previous run left so the stored set matches this split exactly.
	if err := a.store.DeleteDocumentChunks(ctx, doc.ID); err != nil {
		a.fail(ctx, doc, err)
		return nil, fmt.Errorf("clearing prior chunks of document %s: %w", doc.ID, err)
	}

	for i, span := range spans {
		chunk := &graph.Chunk{
			Content:      span,
			ChunkIndex:   i,
			TokenCount:   approximateTokens(span),
			ContainerTag: doc.ContainerTag,
			SourceDocID:  doc.ID,
		}
		if vectors != nil {
			chunk.Embedding = vectors[i]
		}

		if err := a.store.CreateChunk(ctx, chunk); err != nil {
			a.fail(ctx, doc, err)
			return nil, fmt.Errorf("indexing chunk %d of document %s: %w", i, doc.ID, err)
		}
	}

	if err := a.setStatus(ctx, doc, graph.StatusDone); err != nil {
		return nil, err
	}

	log.Info("document ingested", "chunks", len(spans))
	a.publishIngested(ctx, doc, len(spans))

	return &Result{DocumentID: doc.ID, ChunkCount: len(spans)}, nil
}

// split chunks the raw content by strategy and normalizes the spans: each
// is trimmed and empties are dropped, so stored chunk indices stay
// contiguous from zero.
func (a *Assembler) split(doc *graph.Document) []string {
	strategy := segment.StrategyProse
	if doc.ContentType == graph.ContentTypeConversation {
		strategy = segment.StrategyConversation
	}

	raw := segment.Split(doc.RawContent, strategy, a.chunking)

	spans := make([]string, 0, len(raw))
	for _, span := range raw {
		span = strings.TrimSpace(span)
		if span == "" {
			continue
		}
		spans = append(spans, span)
	}
	return spans
}

func (a *Assembler) setStatus(ctx context.Context, doc *graph.Document, status graph.DocumentStatus) error {
	if err := a.store.UpdateDocumentStatus(ctx, doc.ID, status); err != nil {
		return fmt.Errorf("moving document %s to %s: %w", doc.ID, status, err)
	}
	doc.Status = status
	return nil
}

// fail moves the document to the error state and emits a failure event.
// Both are best-effort; the original error is what the caller reports.
func (a *Assembler) fail(ctx context.Context, doc *graph.Document, cause error) {
	if err := a.store.UpdateDocumentStatus(ctx, doc.ID, graph.StatusError); err != nil {
		a.logger.Error("failed to mark document errored", "document_id", doc.ID, "error", err)
	}
	doc.Status = graph.StatusError

	event := &eventstream.DocumentEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeDocumentFailed,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		DocumentID:    doc.ID.String(),
		ContainerTag:  doc.ContainerTag,
		Status:        string(graph.StatusError),
		Error:         cause.Error(),
	}
	if err := a.publisher.PublishDocument(ctx, event); err != nil {
		a.logger.Warn("failed to publish failure event", "document_id", doc.ID, "error", err)
	}
}

func (a *Assembler) publishIngested(ctx context.Context, doc *graph.Document, chunks int) {
	event := &eventstream.DocumentEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeDocumentIngested,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		DocumentID:    doc.ID.String(),
		ContainerTag:  doc.ContainerTag,
		Status:        string(graph.StatusDone),
		ChunkCount:    chunks,
	}
	if err := a.publisher.PublishDocument(ctx, event); err != nil {
		a.logger.Warn("failed to publish ingested event", "document_id", doc.ID, "error", err)
	}
}

// approximateTokens estimates token count at four characters per token,
// which is close enough for budgeting without a tokenizer dependency.
func approximateTokens(text string) int {
	n := len(text) / 4
	if n == 0 && text != "" {
		n = 1
	}
	return n
}
