package remote

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/regscope/regscope/internal/logger"
)

// CompletionClient talks to an OpenAI-compatible chat completion API. At
// most two completion calls are in flight process-wide.
type CompletionClient struct {
	client  *resty.Client
	apiKey  string
	model   string
	timeout time.Duration
	sem     semaphore
	log     zerolog.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type completionEnvelope struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewCompletionClient builds the shared text-generation client.
func NewCompletionClient(baseURL, apiKey, model string, timeout time.Duration) *CompletionClient {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &CompletionClient{
		client:  resty.New().SetBaseURL(baseURL),
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
		sem:     newSemaphore(genConcurrency),
		log:     logger.With("completion_client"),
	}
}

// Complete sends a system/user prompt pair and returns the assistant text.
// jsonMode asks the backend for a structured JSON object response, used by
// the translation stage.
func (c *CompletionClient) Complete(ctx context.Context, systemPrompt, userContent string, jsonMode bool) (string, error) {
	if err := c.sem.acquire(ctx); err != nil {
		return "", err
	}
	defer c.sem.release()

	req := completionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
		Temperature: 0.3,
	}
	if jsonMode {
		req.ResponseFormat = map[string]any{"type": "json_object"}
	}

	c.log.Debug().Str("model", c.model).Bool("json_mode", jsonMode).Msg("Calling completion API")

	var content string
	err := withRetry(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		var envelope completionEnvelope
		resp, err := c.client.R().
			SetContext(callCtx).
			SetHeader("Authorization", "Bearer "+c.apiKey).
			SetHeader("Content-Type", "application/json").
			SetBody(req).
			SetResult(&envelope).
			Post("/chat/completions")
		if err != nil {
			return err
		}

		switch {
		case resp.StatusCode() == 401:
			return ErrAuth
		case resp.StatusCode() != 200:
			return &HTTPError{StatusCode: resp.StatusCode(), Body: string(resp.Body())}
		}

		if envelope.Error != nil {
			return &EnvelopeError{Reason: "backend error: " + envelope.Error.Message}
		}
		if len(envelope.Choices) == 0 {
			return &EnvelopeError{Reason: "no choices in response"}
		}
		content = envelope.Choices[0].Message.Content
		if content == "" {
			return &EnvelopeError{Reason: "empty completion content"}
		}
		return nil
	})
	if err != nil {
		c.log.Error().Err(err).Msg("Completion failed")
		return "", err
	}

	c.log.Debug().Int("chars", len(content)).Msg("Completion received")
	return content, nil
}
