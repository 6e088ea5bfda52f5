// Package ai defines the language-model provider used by the AI endpoints
// and the routing prompt that turns free text into classified thoughts.
//
// The OpenAI implementation lives in ai/openai. This package also holds two
// stand-ins: MockProvider for explicit test mode, and Unconfigured for a
// process started without an API key.
package ai

import (
	"context"
	"encoding/json"
)

// Provider is the narrow surface the services need from a model vendor.
type Provider interface {
	// Complete returns the model's reply. With a Schema set the reply is a
	// JSON document conforming to it.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// Transcribe converts speech to text.
	Transcribe(ctx context.Context, req TranscriptionRequest) (string, error)

	// GenerateImage returns the URL of a generated image.
	GenerateImage(ctx context.Context, req ImageRequest) (string, error)
}

type CompletionRequest struct {
	Prompt string
	Model  string          // empty means the provider default
	Schema json.RawMessage // optional JSON Schema for structured output

	// Subject is the user text the prompt was built from. Providers that
	// call a real model ignore it.
	Subject string
}

type TranscriptionRequest struct {
	Audio       []byte
	Filename    string
	ContentType string
}

type ImageRequest struct {
	Prompt  string
	Size    string
	Quality string
}
