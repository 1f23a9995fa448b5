package config

const (
	defaultGraphURI      = "bolt://localhost:7687"
	defaultGraphUsername = "neo4j"
	defaultGraphDatabase = ""

	defaultEmbeddingProvider   = "openai"
	defaultEmbeddingTarget     = "https://api.openai.com/v1"
	defaultEmbeddingModel      = "text-embedding-3-large"
	defaultEmbeddingDimensions = 3072

	defaultChunkingMaxChars = 4096
	defaultChunkingMinChars = 2048
	defaultChunkingOverlap  = 0

	defaultIngestWorkers   = 3
	defaultIngestQueueSize = 256

	defaultEventStreamProvider = "nop"
	defaultEventStreamTopic    = "engram.events"

	defaultMemoryUserLabel    = "User"
	defaultMemoryContainerTag = "default"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Graph: GraphConfig{
			URI:      defaultGraphURI,
			Username: defaultGraphUsername,
			Database: defaultGraphDatabase,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Chunking: ChunkingConfig{
			MaxChars: defaultChunkingMaxChars,
			MinChars: defaultChunkingMinChars,
			Overlap:  defaultChunkingOverlap,
		},
		Ingest: IngestConfig{
			Workers:   defaultIngestWorkers,
			QueueSize: defaultIngestQueueSize,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
		Memory: MemoryConfig{
			UserLabel:    defaultMemoryUserLabel,
			ContainerTag: defaultMemoryContainerTag,
		},
	}
}
