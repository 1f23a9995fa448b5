package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// observeEntityQuery appends only the observations the entity does not
// already carry, in input order. Existing observations are never touched,
// so concurrent observers converge by union rather than last-writer-wins.
const observeEntityQuery = `
	MERGE (e:Entity {name: $name})
	ON CREATE SET
		e.observations = [],
		e.access_count = 0,
		e.status = 'active',
		e.created_at = $now,
		e.last_accessed_at = $now
	SET
		e.entityType = $entity_type,
		e.updated_at = $now,
		e.embedding = coalesce($embedding, e.embedding),
		e.observations = e.observations +
			[obs IN $observations WHERE NOT obs IN e.observations]
	RETURN e
`

// ObserveEntity merges an entity by name. Existing observations are
// preserved; only observations not already present (by exact string match)
// are appended, keeping insertion order. entityType and updated_at are
// overwritten unconditionally. The union and field updates happen in a
// single query, so concurrent observers converge via observation-union
// rather than last-writer-wins. Access tracking is a separate operation
// (TouchEntity), not part of this path.
func (c *Client) ObserveEntity(ctx context.Context, entity *Entity) (*Entity, error) {
	if entity.Name == "" {
		return nil, fmt.Errorf("entity name is required")
	}
	if entity.Embedding != nil && uint(len(entity.Embedding)) != c.dimensions {
		return nil, fmt.Errorf("%w: entity %q has %d, want %d",
			ErrDimensionMismatch, entity.Name, len(entity.Embedding), c.dimensions)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	session := c.writeSession(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx, observeEntityQuery, map[string]any{
		"name":         entity.Name,
		"entity_type":  entity.EntityType,
		"observations": entity.Observations,
		"embedding":    vectorParam(entity.Embedding),
		"now":          now,
	})
	if err != nil {
		return nil, fmt.Errorf("observing entity %q: %w", entity.Name, err)
	}

	record, err := result.Single(ctx)
	if err != nil {
		return nil, fmt.Errorf("observing entity %q: %w", entity.Name, err)
	}

	value, _ := record.Get("e")
	node, ok := value.(dbtype.Node)
	if !ok {
		return nil, fmt.Errorf("unexpected record shape for entity %q", entity.Name)
	}

	return entityFromNode(node), nil
}

// TouchEntity bumps an entity's access counter and last-accessed timestamp.
func (c *Client) TouchEntity(ctx context.Context, name string) error {
	session := c.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (e:Entity {name: $name})
		SET e.access_count = coalesce(e.access_count, 0) + 1,
		    e.last_accessed_at = $now
		RETURN e.name
	`

	result, err := session.Run(ctx, query, map[string]any{
		"name": name,
		"now":  time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("touching entity %q: %w", name, err)
	}

	if _, err := result.Single(ctx); err != nil {
		return fmt.Errorf("%w: entity %q", ErrNotFound, name)
	}

	return nil
}

// RelateEntities merges a typed, weighted RELATES_TO edge between two
// entities. Re-relating the same pair updates type and weight in place.
func (c *Client) RelateEntities(ctx context.Context, from, to, relType string, weight float64) error {
	session := c.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (a:Entity {name: $from})
		MATCH (b:Entity {name: $to})
		MERGE (a)-[r:RELATES_TO]->(b)
		SET r.type = $rel_type, r.weight = $weight
		RETURN a.name
	`

	result, err := session.Run(ctx, query, map[string]any{
		"from":     from,
		"to":       to,
		"rel_type": relType,
		"weight":   weight,
	})
	if err != nil {
		return fmt.Errorf("relating entities %q -> %q: %w", from, to, err)
	}

	if _, err := result.Single(ctx); err != nil {
		return fmt.Errorf("%w: entities %q, %q", ErrNotFound, from, to)
	}

	return nil
}

// GetEntity fetches an entity by name.
func (c *Client) GetEntity(ctx context.Context, name string) (*Entity, error) {
	session := c.readSession(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		"MATCH (e:Entity {name: $name}) RETURN e",
		map[string]any{"name": name},
	)
	if err != nil {
		return nil, fmt.Errorf("getting entity: %w", err)
	}

	record, err := result.Single(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: entity %q", ErrNotFound, name)
	}

	value, _ := record.Get("e")
	node, ok := value.(dbtype.Node)
	if !ok {
		return nil, fmt.Errorf("unexpected record shape for entity %q", name)
	}

	return entityFromNode(node), nil
}
