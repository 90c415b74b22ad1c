package llm

import (
	"context"
	"fmt"
	"io"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/birmacher/tutor-relay/logger"
)

// AnthropicModel implements the LLM interface using Anthropic's Messages API.
// Frequency and presence penalties have no Anthropic counterpart and are ignored.
type AnthropicModel struct {
	client anthropic.Client
	params params
}

// NewAnthropic creates a new Anthropic client
func NewAnthropic(apiKey string, opts ...Option) (*AnthropicModel, error) {
	p := applyOptions(params{
		modelName:   string(anthropic.ModelClaude3_7SonnetLatest),
		maxTokens:   300,
		temperature: 0.2,
		topP:        0.9,
	}, opts)

	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// retries are owned by the shared HTTP client
		option.WithMaxRetries(0),
	}
	if p.endpoint != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(p.endpoint))
	}
	if p.httpClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(p.httpClient))
	}

	logger.Debugf("Anthropic client initialized with model: %s, max tokens: %d", p.modelName, p.maxTokens)

	return &AnthropicModel{
		client: anthropic.NewClient(clientOpts...),
		params: p,
	}, nil
}

func (a *AnthropicModel) messageParams(req Request) anthropic.MessageNewParams {
	return anthropic.MessageNewParams{
		Model:     anthropic.Model(a.params.modelName),
		MaxTokens: int64(a.params.maxTokens),
		System: []anthropic.TextBlockParam{
			{Text: req.SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
		Temperature: anthropic.Float(float64(a.params.temperature)),
		TopP:        anthropic.Float(float64(a.params.topP)),
	}
}

// Stream opens a streamed message
func (a *AnthropicModel) Stream(ctx context.Context, req Request) (Stream, error) {
	logger.Debugf("Opening message stream with model %s, max tokens %d", a.params.modelName, a.params.maxTokens)

	stream := a.client.Messages.NewStreaming(ctx, a.messageParams(req))
	if err := stream.Err(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("failed to create message stream: %w", err)
	}

	return &anthropicStream{stream: stream}, nil
}

type anthropicStream struct {
	stream *ssestream.Stream[anthropic.MessageStreamEventUnion]
}

func (s *anthropicStream) Recv() (Chunk, error) {
	if !s.stream.Next() {
		if err := s.stream.Err(); err != nil {
			return Chunk{}, err
		}
		return Chunk{}, io.EOF
	}

	switch event := s.stream.Current().AsAny().(type) {
	case anthropic.ContentBlockDeltaEvent:
		if delta, ok := event.Delta.AsAny().(anthropic.TextDelta); ok {
			return Chunk{Content: delta.Text}, nil
		}
	}
	return Chunk{}, nil
}

func (s *anthropicStream) Close() error {
	return s.stream.Close()
}
