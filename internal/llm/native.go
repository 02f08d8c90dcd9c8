package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Native speaks the Ollama /api/chat protocol. It sends no bearer token.
type Native struct {
	name       string
	model      string
	url        string
	httpClient *http.Client
}

// NewNative builds a native-protocol adapter rooted at base.
func NewNative(s Settings, base string) *Native {
	return &Native{
		name:       string(s.Provider) + "/native",
		model:      s.Model,
		url:        nativeBase(base) + "/api/chat",
		httpClient: s.httpClient(),
	}
}

type nativeOptions struct {
	Temperature float64 `json:"temperature"`
}

type nativeRequest struct {
	Model    string        `json:"model"`
	Stream   bool          `json:"stream"`
	Options  nativeOptions `json:"options"`
	Messages []Message     `json:"messages"`
	Format   string        `json:"format,omitempty"`
}

type nativeResponse struct {
	Message *Message `json:"message"`
	Error   string   `json:"error"`
}

func (n *Native) Name() string { return n.name }

// Complete posts one non-streaming chat request.
func (n *Native) Complete(ctx context.Context, req Request) (string, error) {
	reqBody := nativeRequest{
		Model:    n.model,
		Stream:   false,
		Options:  nativeOptions{Temperature: req.Temperature},
		Messages: req.Messages,
	}
	if req.JSON {
		reqBody.Format = "json"
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%s: %w", n.name, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &RequestError{Provider: n.name, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var apiResp nativeResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != "" {
		return "", &RequestError{Provider: n.name, StatusCode: resp.StatusCode, Body: apiResp.Error}
	}
	if apiResp.Message == nil {
		return "", nil
	}
	return apiResp.Message.Content, nil
}
