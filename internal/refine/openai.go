package refine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/docforge/pdfmd/internal/domain"
)

const openAIURL = "https://api.openai.com/v1/chat/completions"

// OpenAIProvider completes text through the OpenAI chat completions API.
type OpenAIProvider struct {
	apiKey      string
	model       string
	temperature float64
	httpClient  *http.Client
	baseURL     string
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

// NewOpenAIProvider creates the provider. model must be set by config
// validation before this point.
func NewOpenAIProvider(apiKey, model string, temperature float64) *OpenAIProvider {
	return &OpenAIProvider{
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		httpClient:  &http.Client{},
		baseURL:     openAIURL,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

// Complete implements domain.CompletionProvider.
func (p *OpenAIProvider) Complete(ctx context.Context, systemPrompt, text string) (string, error) {
	body, err := json.Marshal(openAIRequest{
		Model: p.model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: text},
		},
		Temperature: p.temperature,
	})
	if err != nil {
		return "", domain.RefinementFailed("marshaling completion request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", domain.RefinementFailed("building completion request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		// Network failures and timeouts are worth another attempt.
		return "", domain.TransientProviderError("completion request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", classifyStatus(resp.StatusCode, payload)
	}

	var parsed openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", domain.RefinementFailed("decoding completion response", err)
	}
	if len(parsed.Choices) == 0 {
		return "", domain.RefinementFailed("completion response has no choices", nil)
	}
	return parsed.Choices[0].Message.Content, nil
}

// classifyStatus maps provider HTTP failures onto the transient/permanent
// split: 429 and 5xx are retryable, everything else is not.
func classifyStatus(statusCode int, payload []byte) error {
	msg := fmt.Sprintf("provider returned status %d: %s", statusCode, string(payload))
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return domain.TransientProviderError(msg, nil)
	default:
		return domain.RefinementFailed(msg, nil)
	}
}
