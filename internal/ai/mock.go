package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sakif/omi/internal/model"
)

// MockProvider returns fixed replies without network access. It is only
// installed when test mode is switched on explicitly.
type MockProvider struct{}

var _ Provider = MockProvider{}

// MockImageURL is what GenerateImage returns in test mode.
const MockImageURL = "https://example.com/mock-image.png"

// Complete answers structured requests with a single classified thought
// built from the request subject, and plain requests with an echo.
func (MockProvider) Complete(_ context.Context, req CompletionRequest) (string, error) {
	if len(req.Schema) == 0 {
		return "Mock response: " + req.Prompt, nil
	}

	subject := req.Subject
	if subject == "" {
		subject = req.Prompt
	}

	b, err := json.Marshal(map[string]any{
		"thoughts": []Classification{MockClassification(subject)},
	})
	if err != nil {
		return "", fmt.Errorf("ai: encoding mock reply: %w", err)
	}
	return string(b), nil
}

func (MockProvider) Transcribe(_ context.Context, req TranscriptionRequest) (string, error) {
	return fmt.Sprintf("Mock transcription of %d bytes of audio", len(req.Audio)), nil
}

func (MockProvider) GenerateImage(context.Context, ImageRequest) (string, error) {
	return MockImageURL, nil
}

// MockClassification is the deterministic classification for text.
func MockClassification(text string) Classification {
	mood := 0.3
	return Classification{
		ProcessedText: "Processed: " + text,
		Category:      "reflection",
		SubCategory:   "general",
		MoodScore:     &mood,
		Priority:      model.PriorityMedium,
		Tags:          model.Tags{"processed", "test"},
		ActionSteps: model.ActionSteps{
			{Step: "Review processed text"},
			{Step: "Take appropriate action"},
		},
		RequiresTriage: false,
	}
}
