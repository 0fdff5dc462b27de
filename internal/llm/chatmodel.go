// Package llm provides an OpenAI-compatible chat model implementing the
// eino model contract, used by the field extractor and the deep
// evaluator.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"career-copilot-go/internal/logger"
)

const defaultModelName = "qwen-plus"

// ChatModel talks to an OpenAI-compatible chat completions endpoint.
type ChatModel struct {
	apiKey     string
	modelName  string
	apiURL     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// ChatModelOption configures a ChatModel.
type ChatModelOption func(*ChatModel)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) ChatModelOption {
	return func(m *ChatModel) {
		m.httpClient = client
	}
}

// WithChatModelLogger sets the model's logger.
func WithChatModelLogger(l zerolog.Logger) ChatModelOption {
	return func(m *ChatModel) {
		m.logger = l
	}
}

// NewChatModel creates a chat model client. The API URL must point at a
// chat completions endpoint; the model name defaults when empty.
func NewChatModel(apiKey, modelName, apiURL string, options ...ChatModelOption) (*ChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("llm api key cannot be empty")
	}
	if strings.TrimSpace(apiURL) == "" {
		return nil, fmt.Errorf("llm api url cannot be empty")
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = defaultModelName
	}

	m := &ChatModel{
		apiKey:     apiKey,
		modelName:  modelName,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     logger.Logger,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

type chatCompletionRequest struct {
	Model    string            `json:"model"`
	Messages []*schema.Message `json:"messages"`
}

type chatCompletionMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

type chatCompletionChoice struct {
	Index        int                   `json:"index"`
	Message      chatCompletionMessage `json:"message"`
	FinishReason string                `json:"finish_reason"`
}

type chatCompletionResponse struct {
	ID      string                 `json:"id"`
	Model   string                 `json:"model"`
	Choices []chatCompletionChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Generate implements model.ChatModel.
func (m *ChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	payload := chatCompletionRequest{
		Model:    m.modelName,
		Messages: messages,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat request: %w", err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read chat response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chat completion returned status %d: %.300s", httpResp.StatusCode, string(bodyBytes))
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(bodyBytes, &resp); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("chat completion error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	apiMessage := resp.Choices[0].Message
	content := ""
	if apiMessage.Content != nil {
		content = *apiMessage.Content
	}
	role := schema.RoleType(apiMessage.Role)
	if role == "" {
		role = schema.Assistant
	}

	m.logger.Debug().
		Str("model", m.modelName).
		Str("finish_reason", resp.Choices[0].FinishReason).
		Int("response_chars", len(content)).
		Msg("chat completion finished")

	return &schema.Message{Role: role, Content: content}, nil
}

// Stream implements model.ChatModel. Streaming is not used by the
// pipeline; callers always go through Generate.
func (m *ChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("streaming is not supported by this client")
}

// BindTools implements model.ChatModel. Tool calling is not used by the
// pipeline's prompts.
func (m *ChatModel) BindTools(tools []*schema.ToolInfo) error {
	return nil
}

// WithTools implements model.ToolCallingChatModel.
func (m *ChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

var _ model.ToolCallingChatModel = (*ChatModel)(nil)
