package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// CreateDocument persists a document node. The write is a MERGE on id so a
// retried ingestion request converges on one node. Missing id, timestamps,
// and status are filled in; the passed document is updated in place.
func (c *Client) CreateDocument(ctx context.Context, doc *Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	if doc.Status == "" {
		doc.Status = StatusQueued
	}
	if doc.ContentType == "" {
		doc.ContentType = ContentTypeText
	}

	metadata, err := encodeMetadata(doc.Metadata)
	if err != nil {
		return err
	}

	session := c.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		MERGE (d:Document {id: $id})
		ON CREATE SET
			d.title = $title,
			d.source_url = $source_url,
			d.content_type = $content_type,
			d.raw_content = $raw_content,
			d.container_tag = $container_tag,
			d.metadata = $metadata,
			d.status = $status,
			d.created_at = $created_at,
			d.updated_at = $updated_at
		ON MATCH SET
			d.updated_at = $updated_at
		RETURN d
	`

	_, err = session.Run(ctx, query, map[string]any{
		"id":            doc.ID.String(),
		"title":         doc.Title,
		"source_url":    doc.SourceURL,
		"content_type":  string(doc.ContentType),
		"raw_content":   doc.RawContent,
		"container_tag": doc.ContainerTag,
		"metadata":      metadata,
		"status":        string(doc.Status),
		"created_at":    doc.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":    doc.UpdatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("creating document: %w", err)
	}

	c.logger.Debug("document created",
		"document_id", doc.ID,
		"container_tag", doc.ContainerTag,
		"content_type", doc.ContentType,
	)

	return nil
}

// UpdateDocumentStatus advances the document's pipeline state machine.
func (c *Client) UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status DocumentStatus) error {
	session := c.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (d:Document {id: $id})
		SET d.status = $status, d.updated_at = $now
		RETURN d.id
	`

	result, err := session.Run(ctx, query, map[string]any{
		"id":     id.String(),
		"status": string(status),
		"now":    time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("updating document status: %w", err)
	}

	if _, err := result.Single(ctx); err != nil {
		return fmt.Errorf("%w: document %s", ErrNotFound, id)
	}

	c.logger.Debug("document status updated", "document_id", id, "status", status)
	return nil
}

// GetDocument fetches a document by id.
func (c *Client) GetDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	session := c.readSession(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		"MATCH (d:Document {id: $id}) RETURN d",
		map[string]any{"id": id.String()},
	)
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}

	record, err := result.Single(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: document %s", ErrNotFound, id)
	}

	value, _ := record.Get("d")
	node, ok := value.(dbtype.Node)
	if !ok {
		return nil, fmt.Errorf("unexpected record shape for document %s", id)
	}

	return documentFromNode(node), nil
}
