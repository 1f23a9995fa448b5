// Package memory is the write path for the temporally versioned memory
// graph. It layers revision semantics (create, update, extend, derive,
// forget) and optional embedding generation over the graph store.
package memory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/papercomputeco/engram/pkg/graph"
)

// Store is the slice of the graph client the service writes through.
type Store interface {
	InsertMemory(ctx context.Context, memory *graph.Memory) (*graph.Memory, error)
	SupersedeMemory(ctx context.Context, priorID uuid.UUID, memory *graph.Memory) (*graph.Memory, error)
	ExtendMemory(ctx context.Context, relatedID uuid.UUID, memory *graph.Memory) (*graph.Memory, error)
	DeriveMemory(ctx context.Context, sourceIDs []uuid.UUID, memory *graph.Memory) (*graph.Memory, error)
	ForgetMemory(ctx context.Context, id uuid.UUID) error
	LatestMemories(ctx context.Context, containerTag string, limit int) ([]*graph.Memory, error)
	LinkMemorySource(ctx context.Context, memoryID, sourceID uuid.UUID) error
}

// Embedder is the single-text embedding seam the service needs; it is
// satisfied by any embeddings provider.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Candidate is a memory statement about to be written, before revision
// semantics and embedding are applied.
type Candidate struct {
	Content      string
	Type         graph.MemoryType
	ContainerTag string
	Confidence   float64

	// SourceDocID, when set, links the written memory EXTRACTED_FROM its
	// source document or chunk in addition to stamping the property.
	SourceDocID uuid.UUID
}

// Revision says how a candidate relates to what is already in the graph.
// Exactly one of the concrete revisions applies per write.
type Revision interface {
	revision()
}

// Create introduces a new root memory with no lineage.
type Create struct{}

// Update supersedes an existing memory: the prior node is demoted and its
// validity window closed in the same write.
type Update struct {
	PriorID uuid.UUID
}

// Extend adds detail alongside an existing memory without displacing it.
type Extend struct {
	RelatedID uuid.UUID
}

// Derive synthesizes a conclusion from two or more existing memories.
type Derive struct {
	SourceIDs []uuid.UUID
}

func (Create) revision() {}
func (Update) revision() {}
func (Extend) revision() {}
func (Derive) revision() {}

// Service writes memories through a graph store, embedding content when an
// embedder is configured.
type Service struct {
	store    Store
	embedder Embedder
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithEmbedder attaches an embedder; written memories then carry content
// embeddings. Without one, memories are stored unembedded.
func WithEmbedder(e Embedder) Option {
	return func(s *Service) { s.embedder = e }
}

// WithLogger attaches a logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New builds a Service over a graph store.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upsert writes a candidate according to its revision and returns the new
// memory node. The embedding, when an embedder is configured, is computed
// before anything touches the store, so an embedding failure leaves the
// graph untouched.
func (s *Service) Upsert(ctx context.Context, candidate Candidate, rev Revision) (*graph.Memory, error) {
	if candidate.Content == "" {
		return nil, fmt.Errorf("memory content is required")
	}

	memory := &graph.Memory{
		Content:      candidate.Content,
		MemoryType:   candidate.Type,
		ContainerTag: candidate.ContainerTag,
		Confidence:   candidate.Confidence,
		SourceDocID:  candidate.SourceDocID,
	}

	if s.embedder != nil {
		embedding, err := s.embedder.Embed(ctx, candidate.Content)
		if err != nil {
			return nil, fmt.Errorf("embedding memory content: %w", err)
		}
		memory.Embedding = embedding
	}

	var (
		written *graph.Memory
		err     error
	)

	switch r := rev.(type) {
	case Create:
		written, err = s.store.InsertMemory(ctx, memory)
	case Update:
		written, err = s.store.SupersedeMemory(ctx, r.PriorID, memory)
	case Extend:
		written, err = s.store.ExtendMemory(ctx, r.RelatedID, memory)
	case Derive:
		written, err = s.store.DeriveMemory(ctx, r.SourceIDs, memory)
	default:
		return nil, fmt.Errorf("unknown revision %T", rev)
	}
	if err != nil {
		return nil, err
	}

	if candidate.SourceDocID != uuid.Nil {
		if err := s.store.LinkMemorySource(ctx, written.ID, candidate.SourceDocID); err != nil {
			return nil, fmt.Errorf("linking memory %s to its source: %w", written.ID, err)
		}
	}

	s.logger.Debug("memory written",
		"id", written.ID,
		"revision", fmt.Sprintf("%T", rev),
		"container", written.ContainerTag,
	)

	return written, nil
}

// Forget marks a memory forgotten. Safe to call repeatedly.
func (s *Service) Forget(ctx context.Context, id uuid.UUID) error {
	return s.store.ForgetMemory(ctx, id)
}

// Latest returns the current memories in a container, newest first.
func (s *Service) Latest(ctx context.Context, containerTag string, limit int) ([]*graph.Memory, error) {
	return s.store.LatestMemories(ctx, containerTag, limit)
}
