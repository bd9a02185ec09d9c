package relay

import (
	"context"
	"fmt"
	"strings"

	"github.com/lessonloop/gateway/internal/prompt"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIUpstream opens streaming completions against an OpenAI-compatible
// endpoint.
type OpenAIUpstream struct {
	client *openai.Client
}

// NewOpenAIUpstream constructs an OpenAIUpstream.
func NewOpenAIUpstream(apiKey, baseURL string) *OpenAIUpstream {
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimSpace(baseURL)
	}
	return &OpenAIUpstream{client: openai.NewClientWithConfig(cfg)}
}

// Open starts a streaming chat completion call.
func (u *OpenAIUpstream) Open(ctx context.Context, model string, turns []prompt.Turn) (Stream, error) {
	if u == nil || u.client == nil {
		return nil, fmt.Errorf("relay: upstream not initialized")
	}

	messages := make([]openai.ChatCompletionMessage, len(turns))
	for i, turn := range turns {
		messages[i] = openai.ChatCompletionMessage{
			Role:    turn.Role,
			Content: turn.Content,
		}
	}

	stream, errStream := u.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
		Stream:   true,
	})
	if errStream != nil {
		return nil, fmt.Errorf("relay: open upstream stream: %w", errStream)
	}
	return &openaiStream{stream: stream}, nil
}

type openaiStream struct {
	stream *openai.ChatCompletionStream
}

// Recv converts the next provider chunk into an Increment.
func (s *openaiStream) Recv() (Increment, error) {
	response, errRecv := s.stream.Recv()
	if errRecv != nil {
		return Increment{}, errRecv
	}
	if len(response.Choices) == 0 {
		return Increment{}, nil
	}
	choice := response.Choices[0]
	return Increment{
		Content:      choice.Delta.Content,
		FinishReason: string(choice.FinishReason),
	}, nil
}

// Close cancels the upstream subscription.
func (s *openaiStream) Close() error {
	return s.stream.Close()
}

var _ Upstream = (*OpenAIUpstream)(nil)
