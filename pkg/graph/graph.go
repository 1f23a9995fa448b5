// Package graph persists documents, chunks, entities, and temporally
// versioned memories in a Neo4j property graph.
//
// The Client is an explicitly constructed, injected handle over the driver
// with a create/close lifecycle. All persistence goes through parameterized
// Cypher; the only structural interpolation (index names during schema
// bootstrap) is gated by SanitizeIdentifier. Writes use MERGE semantics so
// concurrent non-coordinated callers converge instead of corrupting state.
package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// DefaultDimensions is the embedding dimension enforced on chunk and memory
// vectors when Config.Dimensions is unset.
const DefaultDimensions = 3072

// Config holds connection settings for the graph store.
type Config struct {
	// URI is the bolt URI, e.g. "bolt://localhost:7687".
	URI string

	// Username and Password authenticate against the store.
	Username string
	Password string

	// Database selects a named database. Empty uses the server default.
	Database string

	// Dimensions is the embedding dimension D enforced on vectors and used
	// for vector indexes. Defaults to DefaultDimensions.
	Dimensions uint
}

// Client is a handle on the graph store. It is safe for concurrent use and
// must be closed when no longer needed.
type Client struct {
	driver     neo4j.DriverWithContext
	database   string
	dimensions uint
	logger     *slog.Logger
}

// New connects to the graph store and verifies connectivity.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("graph URI is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = DefaultDimensions
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating graph driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	logger.Info("connected to graph store", "uri", cfg.URI, "dimensions", dimensions)

	return &Client{
		driver:     driver,
		database:   cfg.Database,
		dimensions: dimensions,
		logger:     logger,
	}, nil
}

// Dimensions reports the embedding dimension D the client enforces.
func (c *Client) Dimensions() uint {
	return c.dimensions
}

// Close releases the underlying driver and its connection pool.
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func (c *Client) writeSession(ctx context.Context) neo4j.SessionWithContext {
	return c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.database,
	})
}

func (c *Client) readSession(ctx context.Context) neo4j.SessionWithContext {
	return c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: c.database,
	})
}
