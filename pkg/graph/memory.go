package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

func (c *Client) validateMemory(m *Memory) error {
	if m.Confidence < 0 || m.Confidence > 1 {
		return fmt.Errorf("%w: got %g", ErrConfidenceRange, m.Confidence)
	}
	if m.Embedding != nil && uint(len(m.Embedding)) != c.dimensions {
		return fmt.Errorf("%w: memory has %d, want %d",
			ErrDimensionMismatch, len(m.Embedding), c.dimensions)
	}
	return nil
}

// fillMemoryDefaults assigns an ID and the temporal validity window for a
// freshly written memory. Every new memory starts open-ended and latest.
func fillMemoryDefaults(m *Memory, now time.Time) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.MemoryType == "" {
		m.MemoryType = MemoryTypeFact
	}
	m.IsLatest = true
	m.ValidFrom = now
	m.ValidTo = nil
	m.ForgottenAt = nil
	m.CreatedAt = now
}

func memoryParams(m *Memory) map[string]any {
	return map[string]any{
		"id":            m.ID.String(),
		"content":       m.Content,
		"memory_type":   string(m.MemoryType),
		"container_tag": m.ContainerTag,
		"confidence":    m.Confidence,
		"embedding":     vectorParam(m.Embedding),
		"valid_from":    m.ValidFrom.Format(time.RFC3339Nano),
		"created_at":    m.CreatedAt.Format(time.RFC3339Nano),
		"source_doc_id": m.SourceDocID.String(),
	}
}

const memoryCreateFragment = `
	CREATE (new:Memory {
		id: $id,
		content: $content,
		memory_type: $memory_type,
		container_tag: $container_tag,
		is_latest: true,
		confidence: $confidence,
		embedding: $embedding,
		valid_from: $valid_from,
		valid_to: null,
		forgotten_at: null,
		created_at: $created_at,
		source_doc_id: $source_doc_id
	})
`

func (c *Client) runMemoryWrite(ctx context.Context, query string, params map[string]any, op string) (*Memory, error) {
	session := c.writeSession(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	record, err := result.Single(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	value, _ := record.Get("new")
	node, ok := value.(dbtype.Node)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected record shape", op)
	}

	return memoryFromNode(node), nil
}

// InsertMemory writes a new root memory with an open validity window.
func (c *Client) InsertMemory(ctx context.Context, memory *Memory) (*Memory, error) {
	if err := c.validateMemory(memory); err != nil {
		return nil, err
	}

	fillMemoryDefaults(memory, time.Now().UTC())

	query := memoryCreateFragment + " RETURN new"
	return c.runMemoryWrite(ctx, query, memoryParams(memory), "inserting memory")
}

// SupersedeMemory writes a replacement memory that takes over from prior.
// The new node, the UPDATES edge, and the demotion of the prior node (clear
// is_latest, close valid_to at the new node's valid_from) happen in one
// query, so no reader ever observes two latest memories in the lineage or a
// gap with none.
func (c *Client) SupersedeMemory(ctx context.Context, priorID uuid.UUID, memory *Memory) (*Memory, error) {
	if err := c.validateMemory(memory); err != nil {
		return nil, err
	}

	fillMemoryDefaults(memory, time.Now().UTC())

	query := `
		MATCH (old:Memory {id: $prior_id})
	` + memoryCreateFragment + `
		CREATE (new)-[:UPDATES]->(old)
		SET old.is_latest = false,
		    old.valid_to = $valid_from
		RETURN new
	`

	params := memoryParams(memory)
	params["prior_id"] = priorID.String()

	return c.runMemoryWrite(ctx, query, params,
		fmt.Sprintf("superseding memory %s", priorID))
}

// ExtendMemory writes a new memory linked to a related one with an EXTENDS
// edge. The related memory keeps its own validity window untouched; both
// remain latest in their lineages.
func (c *Client) ExtendMemory(ctx context.Context, relatedID uuid.UUID, memory *Memory) (*Memory, error) {
	if err := c.validateMemory(memory); err != nil {
		return nil, err
	}

	fillMemoryDefaults(memory, time.Now().UTC())

	query := `
		MATCH (rel:Memory {id: $related_id})
	` + memoryCreateFragment + `
		CREATE (new)-[:EXTENDS]->(rel)
		RETURN new
	`

	params := memoryParams(memory)
	params["related_id"] = relatedID.String()

	return c.runMemoryWrite(ctx, query, params,
		fmt.Sprintf("extending memory %s", relatedID))
}

// DeriveMemory writes a derived memory with DERIVES edges to at least two
// source memories. All sources are matched before anything is created; a
// missing source fails the whole write.
func (c *Client) DeriveMemory(ctx context.Context, sourceIDs []uuid.UUID, memory *Memory) (*Memory, error) {
	if len(sourceIDs) < 2 {
		return nil, fmt.Errorf("deriving memory: need at least 2 sources, got %d", len(sourceIDs))
	}
	if err := c.validateMemory(memory); err != nil {
		return nil, err
	}

	fillMemoryDefaults(memory, time.Now().UTC())
	memory.MemoryType = MemoryTypeDerived

	ids := make([]string, len(sourceIDs))
	for i, id := range sourceIDs {
		ids[i] = id.String()
	}

	query := `
		MATCH (src:Memory)
		WHERE src.id IN $source_ids
		WITH collect(src) AS sources
		WHERE size(sources) = size($source_ids)
	` + memoryCreateFragment + `
		WITH new, sources
		UNWIND sources AS src
		CREATE (new)-[:DERIVES]->(src)
		RETURN DISTINCT new
	`

	params := memoryParams(memory)
	params["source_ids"] = ids
	params["memory_type"] = string(MemoryTypeDerived)

	return c.runMemoryWrite(ctx, query, params, "deriving memory")
}

// ForgetMemory marks a memory forgotten. Idempotent: the first call stamps
// forgotten_at and closes valid_to; repeats leave the original timestamps
// in place. The node is never deleted.
func (c *Client) ForgetMemory(ctx context.Context, id uuid.UUID) error {
	session := c.writeSession(ctx)
	defer session.Close(ctx)

	now := time.Now().UTC().Format(time.RFC3339Nano)

	query := `
		MATCH (m:Memory {id: $id})
		SET m.forgotten_at = coalesce(m.forgotten_at, $now),
		    m.valid_to = coalesce(m.valid_to, $now),
		    m.is_latest = false
		RETURN m.id
	`

	result, err := session.Run(ctx, query, map[string]any{
		"id":  id.String(),
		"now": now,
	})
	if err != nil {
		return fmt.Errorf("forgetting memory %s: %w", id, err)
	}

	if _, err := result.Single(ctx); err != nil {
		return fmt.Errorf("%w: memory %s", ErrNotFound, id)
	}

	return nil
}

// GetMemory fetches a memory by ID, forgotten or not.
func (c *Client) GetMemory(ctx context.Context, id uuid.UUID) (*Memory, error) {
	session := c.readSession(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		"MATCH (m:Memory {id: $id}) RETURN m",
		map[string]any{"id": id.String()},
	)
	if err != nil {
		return nil, fmt.Errorf("getting memory: %w", err)
	}

	record, err := result.Single(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: memory %s", ErrNotFound, id)
	}

	value, _ := record.Get("m")
	node, ok := value.(dbtype.Node)
	if !ok {
		return nil, fmt.Errorf("unexpected record shape for memory %s", id)
	}

	return memoryFromNode(node), nil
}

// LatestMemories returns the current (latest, unforgotten) memories in a
// container, newest first.
func (c *Client) LatestMemories(ctx context.Context, containerTag string, limit int) ([]*Memory, error) {
	if limit <= 0 {
		limit = 100
	}

	session := c.readSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (m:Memory {container_tag: $container_tag})
		WHERE m.is_latest = true AND m.forgotten_at IS NULL
		RETURN m
		ORDER BY m.valid_from DESC
		LIMIT $limit
	`

	result, err := session.Run(ctx, query, map[string]any{
		"container_tag": containerTag,
		"limit":         limit,
	})
	if err != nil {
		return nil, fmt.Errorf("listing memories: %w", err)
	}

	var memories []*Memory
	for result.Next(ctx) {
		value, _ := result.Record().Get("m")
		node, ok := value.(dbtype.Node)
		if !ok {
			continue
		}
		memories = append(memories, memoryFromNode(node))
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("listing memories: %w", err)
	}

	return memories, nil
}

// LinkMemorySource records the document or chunk a memory was extracted
// from with an EXTRACTED_FROM edge. The source may be either node kind;
// anything else is treated as not found.
func (c *Client) LinkMemorySource(ctx context.Context, memoryID, sourceID uuid.UUID) error {
	session := c.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (m:Memory {id: $memory_id})
		MATCH (src {id: $source_id})
		WHERE src:Chunk OR src:Document
		MERGE (m)-[:EXTRACTED_FROM]->(src)
		RETURN m.id
	`

	result, err := session.Run(ctx, query, map[string]any{
		"memory_id": memoryID.String(),
		"source_id": sourceID.String(),
	})
	if err != nil {
		return fmt.Errorf("linking memory %s to source %s: %w", memoryID, sourceID, err)
	}

	if _, err := result.Single(ctx); err != nil {
		return fmt.Errorf("%w: memory %s or source %s", ErrNotFound, memoryID, sourceID)
	}

	return nil
}

// LinkOwner attaches a memory to its owning user with a BELONGS_TO edge.
// The user label comes from configuration and is interpolated, so it passes
// through SanitizeIdentifier first.
func (c *Client) LinkOwner(ctx context.Context, memoryID uuid.UUID, userLabel, userID string) error {
	label, err := SanitizeIdentifier(userLabel)
	if err != nil {
		return fmt.Errorf("linking owner: %w", err)
	}

	session := c.writeSession(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx, ownerLinkQuery(label), map[string]any{
		"memory_id": memoryID.String(),
		"user_id":   userID,
	})
	if err != nil {
		return fmt.Errorf("linking owner of memory %s: %w", memoryID, err)
	}

	if _, err := result.Single(ctx); err != nil {
		return fmt.Errorf("%w: memory %s or user %s", ErrNotFound, memoryID, userID)
	}

	return nil
}
