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

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiProvider completes text through the Gemini generateContent API.
type GeminiProvider struct {
	apiKey      string
	model       string
	temperature float64
	httpClient  *http.Client
	baseURL     string
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  struct {
		Temperature float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func NewGeminiProvider(apiKey, model string, temperature float64) *GeminiProvider {
	return &GeminiProvider{
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		httpClient:  &http.Client{},
		baseURL:     geminiBaseURL,
	}
}

func (p *GeminiProvider) Name() string { return "gemini" }

// Complete implements domain.CompletionProvider.
func (p *GeminiProvider) Complete(ctx context.Context, systemPrompt, text string) (string, error) {
	reqBody := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: text}}},
		},
	}
	reqBody.GenerationConfig.Temperature = p.temperature

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", domain.RefinementFailed("marshaling completion request", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent", p.baseURL, p.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", domain.RefinementFailed("building completion request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", domain.TransientProviderError("completion request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", classifyStatus(resp.StatusCode, payload)
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", domain.RefinementFailed("decoding completion response", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", domain.RefinementFailed("completion response has no candidates", nil)
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
