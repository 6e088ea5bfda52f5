package ai

import (
	"context"

	"github.com/sakif/omi/internal/apperror"
)

// Unconfigured stands in when no API key is set and test mode is off.
// Every call fails with apperror.ErrUnavailable.
type Unconfigured struct{}

var _ Provider = Unconfigured{}

const unconfiguredMessage = "AI provider is not configured"

func (Unconfigured) Complete(context.Context, CompletionRequest) (string, error) {
	return "", apperror.Unavailable(unconfiguredMessage)
}

func (Unconfigured) Transcribe(context.Context, TranscriptionRequest) (string, error) {
	return "", apperror.Unavailable(unconfiguredMessage)
}

func (Unconfigured) GenerateImage(context.Context, ImageRequest) (string, error) {
	return "", apperror.Unavailable(unconfiguredMessage)
}
