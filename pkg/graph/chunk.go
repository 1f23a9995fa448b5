package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// CreateChunk persists a chunk node and links it PART_OF its parent
// document: two related writes per chunk. A nil embedding is stored as null
// (embedding generation skipped); a non-nil embedding must match the
// configured dimension.
func (c *Client) CreateChunk(ctx context.Context, chunk *Chunk) error {
	if chunk.Embedding != nil && uint(len(chunk.Embedding)) != c.dimensions {
		return fmt.Errorf("%w: chunk %d has %d, want %d",
			ErrDimensionMismatch, chunk.ChunkIndex, len(chunk.Embedding), c.dimensions)
	}
	if chunk.ID == uuid.Nil {
		chunk.ID = uuid.New()
	}
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = time.Now().UTC()
	}

	metadata, err := encodeMetadata(chunk.Metadata)
	if err != nil {
		return err
	}

	session := c.writeSession(ctx)
	defer session.Close(ctx)

	createQuery := `
		MERGE (c:Chunk {id: $id})
		ON CREATE SET
			c.content = $content,
			c.token_count = $token_count,
			c.chunk_index = $chunk_index,
			c.embedding = $embedding,
			c.container_tag = $container_tag,
			c.metadata = $metadata,
			c.source_doc_id = $source_doc_id,
			c.created_at = $created_at
	`

	_, err = session.Run(ctx, createQuery, map[string]any{
		"id":            chunk.ID.String(),
		"content":       chunk.Content,
		"token_count":   chunk.TokenCount,
		"chunk_index":   chunk.ChunkIndex,
		"embedding":     vectorParam(chunk.Embedding),
		"container_tag": chunk.ContainerTag,
		"metadata":      metadata,
		"source_doc_id": chunk.SourceDocID.String(),
		"created_at":    chunk.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("creating chunk %d: %w", chunk.ChunkIndex, err)
	}

	linkQuery := `
		MATCH (c:Chunk {id: $chunk_id})
		MATCH (d:Document {id: $document_id})
		MERGE (c)-[r:PART_OF]->(d)
		SET r.chunk_index = $chunk_index
	`

	_, err = session.Run(ctx, linkQuery, map[string]any{
		"chunk_id":    chunk.ID.String(),
		"document_id": chunk.SourceDocID.String(),
		"chunk_index": chunk.ChunkIndex,
	})
	if err != nil {
		return fmt.Errorf("linking chunk %d to document: %w", chunk.ChunkIndex, err)
	}

	return nil
}

// DocumentChunks returns a document's chunks ordered by chunk index.
func (c *Client) DocumentChunks(ctx context.Context, documentID uuid.UUID) ([]*Chunk, error) {
	session := c.readSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (c:Chunk)-[:PART_OF]->(d:Document {id: $document_id})
		RETURN c
		ORDER BY c.chunk_index
	`

	result, err := session.Run(ctx, query, map[string]any{
		"document_id": documentID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}

	var chunks []*Chunk
	for result.Next(ctx) {
		value, _ := result.Record().Get("c")
		if node, ok := value.(dbtype.Node); ok {
			chunks = append(chunks, chunkFromNode(node))
		}
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}

	return chunks, nil
}

// DeleteDocumentChunks removes every chunk of a document. Chunks are only
// ever deleted alongside their parent; this is a maintenance operation, not
// part of the ingestion path.
func (c *Client) DeleteDocumentChunks(ctx context.Context, documentID uuid.UUID) error {
	session := c.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (c:Chunk)-[:PART_OF]->(d:Document {id: $document_id})
		DETACH DELETE c
	`

	if _, err := session.Run(ctx, query, map[string]any{
		"document_id": documentID.String(),
	}); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}

	return nil
}
