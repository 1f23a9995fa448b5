package embeddings

import "errors"

var (
	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrInvalidInput is returned when an input text fails validation
	// before any network call is made. The wrapping error identifies the
	// offending index.
	ErrInvalidInput = errors.New("invalid embedding input")

	// ErrNoCredential is returned at construction when the provider
	// requires a credential and none is configured.
	ErrNoCredential = errors.New("embedding credential is not configured")
)
