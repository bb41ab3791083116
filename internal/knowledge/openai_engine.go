package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAIEngine talks to an OpenAI-compatible chat completions endpoint served
// locally (llama.cpp llama-server, vLLM).
type OpenAIEngine struct {
	client   *http.Client
	apiKey   string
	model    string
	endpoint string
}

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
	TopP        float64             `json:"top_p,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIChatMessage `json:"message"`
	} `json:"choices"`
}

func NewOpenAIEngine(apiKey, model, baseURL string, timeout time.Duration) *OpenAIEngine {
	endpoint := strings.TrimSpace(baseURL)
	if endpoint == "" {
		endpoint = "http://127.0.0.1:8080/v1/chat/completions"
	} else {
		endpoint = strings.TrimRight(endpoint, "/")
		if !strings.HasSuffix(endpoint, "/chat/completions") {
			if strings.HasSuffix(endpoint, "/v1") {
				endpoint += "/chat/completions"
			} else {
				endpoint += "/v1/chat/completions"
			}
		}
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &OpenAIEngine{
		client: &http.Client{
			Timeout: timeout,
		},
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
	}
}

func (s *OpenAIEngine) Generate(ctx context.Context, p Prompt, params SamplingParams) (string, error) {
	reqBody := openAIChatRequest{
		Model:       s.model,
		Temperature: params.Temperature,
		TopP:        params.TopP,
		MaxTokens:   params.MaxTokens,
	}
	if strings.TrimSpace(p.System) != "" {
		reqBody.Messages = append(reqBody.Messages, openAIChatMessage{Role: "system", Content: p.System})
	}
	reqBody.Messages = append(reqBody.Messages, openAIChatMessage{Role: "user", Content: p.User})

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", &EngineError{Provider: "openai", Kind: KindMalformed, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &EngineError{Provider: "openai", Kind: KindTransport, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(s.apiKey) != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", classify("openai", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classify("openai", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &EngineError{
			Provider:   "openai",
			Kind:       KindStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("chat request failed: %s", strings.TrimSpace(string(raw))),
		}
	}

	var parsed openAIChatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &EngineError{Provider: "openai", Kind: KindMalformed, Err: err}
	}
	if len(parsed.Choices) == 0 {
		return "", &EngineError{Provider: "openai", Kind: KindMalformed, Err: errors.New("response has no choices")}
	}
	text := cleanOutput(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", &EngineError{Provider: "openai", Kind: KindEmpty}
	}
	return text, nil
}
