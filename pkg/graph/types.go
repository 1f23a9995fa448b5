package graph

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// ContentType tags the kind of raw content a document carries and selects
// the chunking strategy.
type ContentType string

const (
	ContentTypeText         ContentType = "text"
	ContentTypeURL          ContentType = "url"
	ContentTypePDF          ContentType = "pdf"
	ContentTypeImage        ContentType = "image"
	ContentTypeVideo        ContentType = "video"
	ContentTypeAudio        ContentType = "audio"
	ContentTypeConversation ContentType = "conversation"
)

// DocumentStatus is the coarse state machine a document moves through during
// ingestion. The status field is the single-writer-at-a-time guard per
// document; there is no separate lock.
type DocumentStatus string

const (
	StatusQueued     DocumentStatus = "queued"
	StatusExtracting DocumentStatus = "extracting"
	StatusChunking   DocumentStatus = "chunking"
	StatusEmbedding  DocumentStatus = "embedding"
	StatusIndexing   DocumentStatus = "indexing"
	StatusDone       DocumentStatus = "done"
	StatusError      DocumentStatus = "error"
)

// MemoryType classifies a memory node.
type MemoryType string

const (
	MemoryTypeFact       MemoryType = "fact"
	MemoryTypePreference MemoryType = "preference"
	MemoryTypeEpisode    MemoryType = "episode"
	MemoryTypeDerived    MemoryType = "derived"
)

// Document is a :Document node. Free-form metadata is JSON-encoded at the
// storage boundary since the store has no nested map support.
type Document struct {
	ID           uuid.UUID
	Title        string
	SourceURL    string
	ContentType  ContentType
	RawContent   string
	ContainerTag string
	Metadata     map[string]any
	Status       DocumentStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Chunk is a :Chunk node, immutable once created. Embedding may be unset
// when embedding generation was skipped; when set its length must equal the
// configured dimension.
type Chunk struct {
	ID           uuid.UUID
	Content      string
	TokenCount   int
	ChunkIndex   int
	Embedding    []float32
	ContainerTag string
	Metadata     map[string]any
	SourceDocID  uuid.UUID
	CreatedAt    time.Time
}

// Entity is a :Entity knowledge-graph node keyed by name. Observations are
// append-only and deduplicated by merge-on-write.
type Entity struct {
	Name           string
	EntityType     string
	Observations   []string
	Embedding      []float32
	Status         string
	AccessCount    int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastAccessedAt time.Time
}

// Memory is a :Memory node carrying a temporal validity window. Within a
// lineage at most one memory has IsLatest set; ForgottenAt, once set, is
// terminal.
type Memory struct {
	ID           uuid.UUID
	Content      string
	MemoryType   MemoryType
	ContainerTag string
	IsLatest     bool
	Confidence   float64
	Embedding    []float32
	ValidFrom    time.Time
	ValidTo      *time.Time
	ForgottenAt  *time.Time
	SourceDocID  uuid.UUID
	CreatedAt    time.Time
}

// encodeMetadata serializes a metadata map for storage. Nil maps become
// empty JSON objects so reads always decode cleanly.
func encodeMetadata(m map[string]any) (string, error) {
	if m == nil {
		m = map[string]any{}
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encoding metadata: %w", err)
	}
	return string(raw), nil
}

func decodeMetadata(s string) map[string]any {
	if s == "" {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return map[string]any{}
	}
	return m
}

// vectorParam converts an embedding to the float64 list form the driver
// serializes. Nil stays nil so the property is stored as null.
func vectorParam(v []float32) any {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

func vectorFromProp(value any) []float32 {
	items, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]float32, len(items))
	for i, item := range items {
		f, ok := item.(float64)
		if !ok {
			return nil
		}
		out[i] = float32(f)
	}
	return out
}

func stringProp(props map[string]any, key string) string {
	s, _ := props[key].(string)
	return s
}

func int64Prop(props map[string]any, key string) int64 {
	n, _ := props[key].(int64)
	return n
}

func boolProp(props map[string]any, key string) bool {
	b, _ := props[key].(bool)
	return b
}

func float64Prop(props map[string]any, key string) float64 {
	switch v := props[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

// timeProp parses an RFC3339 timestamp property. Times are persisted as
// strings for portability across store versions.
func timeProp(props map[string]any, key string) time.Time {
	s, ok := props[key].(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func timePtrProp(props map[string]any, key string) *time.Time {
	s, ok := props[key].(string)
	if !ok || s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &t
}

func uuidProp(props map[string]any, key string) uuid.UUID {
	id, err := uuid.Parse(stringProp(props, key))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func stringsProp(props map[string]any, key string) []string {
	items, ok := props[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func documentFromNode(node dbtype.Node) *Document {
	props := node.Props
	return &Document{
		ID:           uuidProp(props, "id"),
		Title:        stringProp(props, "title"),
		SourceURL:    stringProp(props, "source_url"),
		ContentType:  ContentType(stringProp(props, "content_type")),
		RawContent:   stringProp(props, "raw_content"),
		ContainerTag: stringProp(props, "container_tag"),
		Metadata:     decodeMetadata(stringProp(props, "metadata")),
		Status:       DocumentStatus(stringProp(props, "status")),
		CreatedAt:    timeProp(props, "created_at"),
		UpdatedAt:    timeProp(props, "updated_at"),
	}
}

func chunkFromNode(node dbtype.Node) *Chunk {
	props := node.Props
	return &Chunk{
		ID:           uuidProp(props, "id"),
		Content:      stringProp(props, "content"),
		TokenCount:   int(int64Prop(props, "token_count")),
		ChunkIndex:   int(int64Prop(props, "chunk_index")),
		Embedding:    vectorFromProp(props["embedding"]),
		ContainerTag: stringProp(props, "container_tag"),
		Metadata:     decodeMetadata(stringProp(props, "metadata")),
		SourceDocID:  uuidProp(props, "source_doc_id"),
		CreatedAt:    timeProp(props, "created_at"),
	}
}

func entityFromNode(node dbtype.Node) *Entity {
	props := node.Props
	return &Entity{
		Name:           stringProp(props, "name"),
		EntityType:     stringProp(props, "entityType"),
		Observations:   stringsProp(props, "observations"),
		Embedding:      vectorFromProp(props["embedding"]),
		Status:         stringProp(props, "status"),
		AccessCount:    int64Prop(props, "access_count"),
		CreatedAt:      timeProp(props, "created_at"),
		UpdatedAt:      timeProp(props, "updated_at"),
		LastAccessedAt: timeProp(props, "last_accessed_at"),
	}
}

func memoryFromNode(node dbtype.Node) *Memory {
	props := node.Props
	return &Memory{
		ID:           uuidProp(props, "id"),
		Content:      stringProp(props, "content"),
		MemoryType:   MemoryType(stringProp(props, "memory_type")),
		ContainerTag: stringProp(props, "container_tag"),
		IsLatest:     boolProp(props, "is_latest"),
		Confidence:   float64Prop(props, "confidence"),
		Embedding:    vectorFromProp(props["embedding"]),
		ValidFrom:    timeProp(props, "valid_from"),
		ValidTo:      timePtrProp(props, "valid_to"),
		ForgottenAt:  timePtrProp(props, "forgotten_at"),
		SourceDocID:  uuidProp(props, "source_doc_id"),
		CreatedAt:    timeProp(props, "created_at"),
	}
}
