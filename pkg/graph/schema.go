package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Uniqueness constraints required before any other component runs.
var schemaConstraints = []string{
	"CREATE CONSTRAINT entity_name IF NOT EXISTS FOR (e:Entity) REQUIRE e.name IS UNIQUE",
	"CREATE CONSTRAINT memory_id IF NOT EXISTS FOR (m:Memory) REQUIRE m.id IS UNIQUE",
	"CREATE CONSTRAINT document_id IF NOT EXISTS FOR (d:Document) REQUIRE d.id IS UNIQUE",
	"CREATE CONSTRAINT chunk_id IF NOT EXISTS FOR (c:Chunk) REQUIRE c.id IS UNIQUE",
	"CREATE CONSTRAINT user_id IF NOT EXISTS FOR (u:User) REQUIRE u.user_id IS UNIQUE",
}

// Secondary indexes backing the hot memory-retrieval predicates.
var schemaIndexes = []string{
	"CREATE INDEX memory_container IF NOT EXISTS FOR (m:Memory) ON (m.container_tag)",
	"CREATE INDEX memory_latest IF NOT EXISTS FOR (m:Memory) ON (m.is_latest)",
	"CREATE INDEX memory_type IF NOT EXISTS FOR (m:Memory) ON (m.memory_type)",
	"CREATE INDEX memory_forgotten IF NOT EXISTS FOR (m:Memory) ON (m.forgotten_at)",
	"CREATE INDEX memory_valid_to IF NOT EXISTS FOR (m:Memory) ON (m.valid_to)",
	"CREATE INDEX document_status IF NOT EXISTS FOR (d:Document) ON (d.status)",
}

type vectorIndex struct {
	name     string
	label    string
	property string
}

var vectorIndexes = []vectorIndex{
	{name: "entity_embeddings", label: "Entity", property: "embedding"},
	{name: "memory_embeddings", label: "Memory", property: "embedding"},
	{name: "chunk_embeddings", label: "Chunk", property: "embedding"},
}

// benignSchemaCodes are store error codes reported when a schema object
// already exists. During bootstrap they are swallowed as success; anything
// else is fatal.
var benignSchemaCodes = map[string]bool{
	"Neo.ClientError.Schema.EquivalentSchemaRuleAlreadyExists": true,
	"Neo.ClientError.Schema.ConstraintAlreadyExists":           true,
	"Neo.ClientError.Schema.ConstraintWithNameAlreadyExists":   true,
	"Neo.ClientError.Schema.IndexAlreadyExists":                true,
	"Neo.ClientError.Schema.IndexWithNameAlreadyExists":        true,
}

func isBenignSchemaError(err error) bool {
	var neoErr *neo4j.Neo4jError
	if !errors.As(err, &neoErr) {
		return false
	}
	return benignSchemaCodes[neoErr.Code]
}

// EnsureSchema idempotently creates all uniqueness constraints, secondary
// indexes, and vector indexes. Vector index creation has no native
// IF NOT EXISTS guard, so existence is checked first; the already-exists
// catch remains as a backstop for concurrent bootstrap attempts.
func (c *Client) EnsureSchema(ctx context.Context) error {
	session := c.writeSession(ctx)
	defer session.Close(ctx)

	for _, query := range append(append([]string{}, schemaConstraints...), schemaIndexes...) {
		if _, err := session.Run(ctx, query, nil); err != nil {
			if isBenignSchemaError(err) {
				continue
			}
			return fmt.Errorf("creating schema object: %w", err)
		}
	}

	for _, idx := range vectorIndexes {
		if err := c.ensureVectorIndex(ctx, session, idx); err != nil {
			return err
		}
	}

	c.logger.Info("graph schema ensured",
		"constraints", len(schemaConstraints),
		"indexes", len(schemaIndexes),
		"vector_indexes", len(vectorIndexes),
	)

	return nil
}

func (c *Client) ensureVectorIndex(ctx context.Context, session neo4j.SessionWithContext, idx vectorIndex) error {
	exists, err := c.vectorIndexExists(ctx, session, idx.name)
	if err != nil {
		return err
	}
	if exists {
		c.logger.Debug("vector index already present", "name", idx.name)
		return nil
	}

	// Index and label names are structural identifiers that cannot be
	// bound as parameters; validate each before interpolating.
	name, err := SanitizeIdentifier(idx.name)
	if err != nil {
		return err
	}
	label, err := SanitizeIdentifier(idx.label)
	if err != nil {
		return err
	}
	property, err := SanitizeIdentifier(idx.property)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		"CALL db.index.vector.createNodeIndex('%s', '%s', '%s', %d, 'cosine')",
		name, label, property, c.dimensions,
	)

	if _, err := session.Run(ctx, query, nil); err != nil {
		// Another bootstrapper may have won the race.
		if isBenignSchemaError(err) {
			return nil
		}
		return fmt.Errorf("creating vector index %s: %w", idx.name, err)
	}

	c.logger.Info("created vector index",
		"name", idx.name,
		"label", idx.label,
		"dimensions", c.dimensions,
	)

	return nil
}

func (c *Client) vectorIndexExists(ctx context.Context, session neo4j.SessionWithContext, name string) (bool, error) {
	result, err := session.Run(ctx,
		"SHOW INDEXES YIELD name WHERE name = $name RETURN name",
		map[string]any{"name": name},
	)
	if err != nil {
		return false, fmt.Errorf("checking vector index %s: %w", name, err)
	}

	record, err := result.Single(ctx)
	if err != nil {
		// No row means the index is absent.
		return false, nil
	}
	return record != nil, nil
}
