package eventstream

import (
	"time"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeDocumentIngested is emitted after a document finishes
	// ingestion with all of its chunks written.
	EventTypeDocumentIngested = "engram.document.ingested"

	// EventTypeDocumentFailed is emitted when ingestion of a document
	// stops in the error state.
	EventTypeDocumentFailed = "engram.document.failed"

	// EventTypeMemoryWritten is emitted after a memory revision is
	// persisted to the graph.
	EventTypeMemoryWritten = "engram.memory.written"
)

// DocumentEvent is a transport-neutral event payload describing a change in
// a document's ingestion lifecycle.
type DocumentEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	DocumentID    string    `json:"document_id"`
	ContainerTag  string    `json:"container_tag,omitempty"`
	Status        string    `json:"status"`
	ChunkCount    int       `json:"chunk_count"`
	Error         string    `json:"error,omitempty"`
}

// MemoryEvent is a transport-neutral event payload for a persisted memory
// revision.
type MemoryEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	MemoryID      string    `json:"memory_id"`
	ContainerTag  string    `json:"container_tag,omitempty"`
	MemoryType    string    `json:"memory_type"`
	Revision      string    `json:"revision"`
}
