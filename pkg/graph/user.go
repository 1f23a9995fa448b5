package graph

import (
	"context"
	"fmt"
	"time"
)

// userMergeQuery merges on user_id, the property the uniqueness constraint
// protects, so concurrent merges converge on one node instead of racing
// into duplicates.
func userMergeQuery(label string) string {
	return fmt.Sprintf(`
		MERGE (u:%s {user_id: $user_id})
		ON CREATE SET u.created_at = $now
		RETURN u.user_id
	`, label)
}

// ownerLinkQuery matches the owner on the same constrained user_id key.
func ownerLinkQuery(label string) string {
	return fmt.Sprintf(`
		MATCH (m:Memory {id: $memory_id})
		MATCH (u:%s {user_id: $user_id})
		MERGE (m)-[:BELONGS_TO]->(u)
		RETURN m.id
	`, label)
}

// GetOrCreateUser merges an owner node by ID. The label is configurable
// per deployment and is interpolated into the query, so it must pass
// SanitizeIdentifier.
func (c *Client) GetOrCreateUser(ctx context.Context, userLabel, userID string) error {
	label, err := SanitizeIdentifier(userLabel)
	if err != nil {
		return fmt.Errorf("ensuring user: %w", err)
	}
	if userID == "" {
		return fmt.Errorf("ensuring user: id is required")
	}

	session := c.writeSession(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx, userMergeQuery(label), map[string]any{
		"user_id": userID,
		"now":     time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("ensuring user %q: %w", userID, err)
	}

	if _, err := result.Single(ctx); err != nil {
		return fmt.Errorf("ensuring user %q: %w", userID, err)
	}

	return nil
}
