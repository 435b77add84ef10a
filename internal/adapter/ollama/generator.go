package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"rag-gateway/internal/domain"
)

const keepAliveForever = -1

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string         `json:"model"`
	Messages  []chatMessage  `json:"messages"`
	Stream    bool           `json:"stream"`
	KeepAlive int            `json:"keep_alive"`
	Options   map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// Generator answers prompts through Ollama's chat endpoint.
type Generator struct {
	BaseURL     string
	Model       string
	Temperature float64
	Client      *http.Client
}

func NewGenerator(baseURL, model string, temperature float64, client *http.Client) *Generator {
	if client == nil {
		client = &http.Client{}
	}
	return &Generator{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Model:       model,
		Temperature: temperature,
		Client:      client,
	}
}

func (g *Generator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	reqBody := chatRequest{
		Model:     g.Model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		Stream:    false,
		KeepAlive: keepAliveForever,
		Options: map[string]any{
			"temperature": g.Temperature,
		},
	}
	if maxTokens > 0 {
		reqBody.Options["num_predict"] = maxTokens
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	url := g.BaseURL + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &domain.GenerationError{Mode: "ollama-chat", Err: domain.ErrGenerateTimeout}
		}
		return "", &domain.GenerationError{Mode: "ollama-chat", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &domain.GenerationError{
			Mode:   "ollama-chat",
			Err:    fmt.Errorf("chat endpoint returned status %d", resp.StatusCode),
			Stderr: string(body),
		}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}

	content := strings.TrimSpace(out.Message.Content)
	if content == "" {
		return "", domain.ErrEmptyGeneration
	}
	return content, nil
}

func (g *Generator) Version() string {
	return "ollama/" + g.Model
}

var _ domain.Generator = (*Generator)(nil)
