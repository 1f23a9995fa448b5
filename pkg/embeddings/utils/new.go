// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/embeddings/ollama"
	"github.com/papercomputeco/engram/pkg/embeddings/openai"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
	Dimensions   uint
	Logger       *slog.Logger
}

func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	switch o.ProviderType {
	case "openai":
		return openai.NewEmbedder(openai.Config{
			APIKey:     o.APIKey,
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "ollama":
		return ollama.NewEmbedder(ollama.Config{
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
}
