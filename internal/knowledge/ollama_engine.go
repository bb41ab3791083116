package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaEngine calls the non-streaming /api/generate endpoint of a local
// Ollama server.
type OllamaEngine struct {
	client   *http.Client
	model    string
	endpoint string
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	System  string        `json:"system,omitempty"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func NewOllamaEngine(model, baseURL string, timeout time.Duration) *OllamaEngine {
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = "http://127.0.0.1:11434"
	}
	url = strings.TrimRight(url, "/")
	if !strings.HasSuffix(url, "/api/generate") {
		url += "/api/generate"
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	return &OllamaEngine{
		client: &http.Client{
			Timeout: timeout,
		},
		model:    model,
		endpoint: url,
	}
}

func (o *OllamaEngine) Generate(ctx context.Context, p Prompt, params SamplingParams) (string, error) {
	reqBody := ollamaGenerateRequest{
		Model:  o.model,
		System: p.System,
		Prompt: p.User,
		Options: ollamaOptions{
			Temperature: params.Temperature,
			TopP:        params.TopP,
			NumPredict:  params.MaxTokens,
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", &EngineError{Provider: "ollama", Kind: KindMalformed, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &EngineError{Provider: "ollama", Kind: KindTransport, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", classify("ollama", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classify("ollama", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &EngineError{
			Provider:   "ollama",
			Kind:       KindStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("generate request failed: %s", strings.TrimSpace(string(raw))),
		}
	}

	var parsed ollamaGenerateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &EngineError{Provider: "ollama", Kind: KindMalformed, Err: err}
	}
	text := cleanOutput(parsed.Response)
	if text == "" {
		return "", &EngineError{Provider: "ollama", Kind: KindEmpty}
	}
	return text, nil
}
