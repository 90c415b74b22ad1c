package llm

import (
	"context"
	"fmt"

	"github.com/birmacher/tutor-relay/logger"
	"github.com/sashabaranov/go-openai"
)

// OpenAIModel implements the LLM interface using the OpenAI chat completions
// API, either on api.openai.com (or a compatible base URL) or on Azure OpenAI.
type OpenAIModel struct {
	client *openai.Client
	params params
}

func defaultOpenAIParams() params {
	return params{
		modelName:   "gpt-4.1",
		maxTokens:   300,
		temperature: 0.2,
		topP:        0.9,
	}
}

// NewOpenAI creates a client for the public OpenAI API. An empty key is
// accepted and rejected by the upstream on the first call.
func NewOpenAI(apiKey string, opts ...Option) (*OpenAIModel, error) {
	p := applyOptions(defaultOpenAIParams(), opts)

	config := openai.DefaultConfig(apiKey)
	if p.endpoint != "" {
		config.BaseURL = p.endpoint
	}
	if p.httpClient != nil {
		config.HTTPClient = p.httpClient
	}

	logger.Debugf("OpenAI client initialized with model: %s, max tokens: %d", p.modelName, p.maxTokens)

	return &OpenAIModel{client: openai.NewClientWithConfig(config), params: p}, nil
}

// NewAzureOpenAI creates a client for an Azure OpenAI resource. The model
// identifier is used verbatim as the deployment name.
func NewAzureOpenAI(apiKey string, opts ...Option) (*OpenAIModel, error) {
	p := applyOptions(defaultOpenAIParams(), opts)
	if p.endpoint == "" {
		return nil, fmt.Errorf("azure endpoint cannot be empty")
	}

	config := openai.DefaultAzureConfig(apiKey, p.endpoint)
	if p.apiVersion != "" {
		config.APIVersion = p.apiVersion
	}
	// The default mapper strips dots, which would turn gpt-4.1 into gpt-41
	config.AzureModelMapperFunc = func(model string) string {
		return model
	}
	if p.httpClient != nil {
		config.HTTPClient = p.httpClient
	}

	logger.Debugf("Azure OpenAI client initialized with deployment: %s, api version: %s", p.modelName, config.APIVersion)

	return &OpenAIModel{client: openai.NewClientWithConfig(config), params: p}, nil
}

func (o *OpenAIModel) chatRequest(req Request) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: o.params.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: req.SystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.UserPrompt,
			},
		},
		Stream:           true,
		MaxTokens:        o.params.maxTokens,
		Temperature:      o.params.temperature,
		TopP:             o.params.topP,
		FrequencyPenalty: o.params.frequencyPenalty,
		PresencePenalty:  o.params.presencePenalty,
	}
}

// Stream opens a streamed chat completion
func (o *OpenAIModel) Stream(ctx context.Context, req Request) (Stream, error) {
	logger.Debugf("Opening completion stream with model %s, max tokens %d", o.params.modelName, o.params.maxTokens)

	stream, err := o.client.CreateChatCompletionStream(ctx, o.chatRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion stream: %w", err)
	}

	return &openAIStream{stream: stream}, nil
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
}

func (s *openAIStream) Recv() (Chunk, error) {
	resp, err := s.stream.Recv()
	if err != nil {
		return Chunk{}, err
	}
	// Azure sends prompt filter results with no choices ahead of the first delta
	if len(resp.Choices) == 0 {
		return Chunk{}, nil
	}
	return Chunk{Content: resp.Choices[0].Delta.Content}, nil
}

func (s *openAIStream) Close() error {
	s.stream.Close()
	return nil
}
