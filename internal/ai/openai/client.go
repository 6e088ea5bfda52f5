// Package openai is the ai.Provider backed by the OpenAI HTTP API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/omi/internal/ai"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"

	transcriptionModel = "whisper-1"
	transcriptionLang  = "en"
	imageModel         = "dall-e-3"
	defaultImageSize   = "1024x1024"
	defaultQuality     = "standard"
	temperature        = 0.7

	// maxErrorBody caps how much of an error response is kept for logs.
	maxErrorBody = 4 << 10
)

// StatusError is returned for any non-2xx reply. Body is the raw upstream
// text and must not be shown to API clients.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("openai: HTTP %d: %s", e.Status, e.Body)
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	model   string
	http    *http.Client
}

var _ ai.Provider = (*Client)(nil)

// New builds a client. The API key is attached to every request as a bearer
// token by an oauth2 transport.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIKey, TokenType: "Bearer"})
	hc := oauth2.NewClient(context.Background(), src)
	hc.Timeout = cfg.Timeout

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		http:    hc,
	}
}

// =========================================================================
// CHAT COMPLETIONS
// =========================================================================

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	body := chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: temperature,
	}
	if len(req.Schema) > 0 {
		body.ResponseFormat = &responseFormat{
			Type:       "json_schema",
			JSONSchema: &jsonSchema{Name: "response", Schema: req.Schema},
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("openai: encoding chat request: %w", err)
	}

	var out chatResponse
	if err := c.do(ctx, "/chat/completions", "application/json", bytes.NewReader(payload), &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices in response")
	}
	return out.Choices[0].Message.Content, nil
}

// =========================================================================
// AUDIO
// =========================================================================

func (c *Client) Transcribe(ctx context.Context, req ai.TranscriptionRequest) (string, error) {
	filename := req.Filename
	if filename == "" {
		filename = "audio.webm"
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "audio/webm"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("openai: building upload: %w", err)
	}
	if _, err := part.Write(req.Audio); err != nil {
		return "", fmt.Errorf("openai: building upload: %w", err)
	}
	_ = mw.WriteField("model", transcriptionModel)
	_ = mw.WriteField("language", transcriptionLang)
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("openai: building upload: %w", err)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := c.do(ctx, "/audio/transcriptions", mw.FormDataContentType(), &buf, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

// =========================================================================
// IMAGES
// =========================================================================

type imageRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	N       int    `json:"n"`
	Size    string `json:"size"`
	Quality string `json:"quality"`
}

func (c *Client) GenerateImage(ctx context.Context, req ai.ImageRequest) (string, error) {
	body := imageRequest{
		Model:   imageModel,
		Prompt:  req.Prompt,
		N:       1,
		Size:    req.Size,
		Quality: req.Quality,
	}
	if body.Size == "" {
		body.Size = defaultImageSize
	}
	if body.Quality == "" {
		body.Quality = defaultQuality
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("openai: encoding image request: %w", err)
	}

	var out struct {
		Data []struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := c.do(ctx, "/images/generations", "application/json", bytes.NewReader(payload), &out); err != nil {
		return "", err
	}
	if len(out.Data) == 0 {
		return "", fmt.Errorf("openai: no images in response")
	}
	return out.Data[0].URL, nil
}

// do posts body to path and decodes a 2xx JSON reply into out.
func (c *Client) do(ctx context.Context, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("openai: building request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("openai: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("openai: decoding %s response: %w", path, err)
	}
	return nil
}
