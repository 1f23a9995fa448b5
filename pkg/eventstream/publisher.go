package eventstream

import "context"

// Publisher publishes ingestion and memory events to an event stream
// backend.
type Publisher interface {
	PublishDocument(ctx context.Context, event *DocumentEvent) error
	PublishMemory(ctx context.Context, event *MemoryEvent) error
	Close() error
}
