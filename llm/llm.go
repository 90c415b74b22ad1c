package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/birmacher/tutor-relay/common"
	"github.com/birmacher/tutor-relay/logger"
)

// OptionType defines the type of option
type OptionType string

// Available option types
const (
	ModelNameOption        OptionType = "model"
	MaxTokensOption        OptionType = "max_tokens"
	TemperatureOption      OptionType = "temperature"
	TopPOption             OptionType = "top_p"
	FrequencyPenaltyOption OptionType = "frequency_penalty"
	PresencePenaltyOption  OptionType = "presence_penalty"
	EndpointOption         OptionType = "endpoint"
	APIVersionOption       OptionType = "api_version"
	HTTPClientOption       OptionType = "http_client"
)

// Option represents a generic configuration option for any LLM provider
type Option struct {
	Type  OptionType
	Value any
}

func WithModel(model string) Option {
	return Option{Type: ModelNameOption, Value: model}
}

func WithMaxTokens(maxTokens int) Option {
	return Option{Type: MaxTokensOption, Value: maxTokens}
}

func WithTemperature(temperature float32) Option {
	return Option{Type: TemperatureOption, Value: temperature}
}

func WithTopP(topP float32) Option {
	return Option{Type: TopPOption, Value: topP}
}

func WithFrequencyPenalty(penalty float32) Option {
	return Option{Type: FrequencyPenaltyOption, Value: penalty}
}

func WithPresencePenalty(penalty float32) Option {
	return Option{Type: PresencePenaltyOption, Value: penalty}
}

// WithEndpoint sets the provider base URL (the Azure resource endpoint for Azure)
func WithEndpoint(endpoint string) Option {
	return Option{Type: EndpointOption, Value: endpoint}
}

// WithAPIVersion sets the API version query parameter used by Azure
func WithAPIVersion(version string) Option {
	return Option{Type: APIVersionOption, Value: version}
}

// WithHTTPClient sets the HTTP client used for upstream calls
func WithHTTPClient(client *http.Client) Option {
	return Option{Type: HTTPClientOption, Value: client}
}

// WithGeneration expands the generation settings into individual options
func WithGeneration(g common.Generation) []Option {
	return []Option{
		WithModel(g.Model),
		WithMaxTokens(g.MaxTokens),
		WithTemperature(g.Temperature),
		WithTopP(g.TopP),
		WithFrequencyPenalty(g.FrequencyPenalty),
		WithPresencePenalty(g.PresencePenalty),
	}
}

// params is the resolved option set shared by all providers. It is
// read-only once a provider has been constructed.
type params struct {
	modelName        string
	maxTokens        int
	temperature      float32
	topP             float32
	frequencyPenalty float32
	presencePenalty  float32
	endpoint         string
	apiVersion       string
	httpClient       *http.Client
}

func applyOptions(p params, opts []Option) params {
	for _, opt := range opts {
		switch opt.Type {
		case ModelNameOption:
			if v, ok := opt.Value.(string); ok {
				p.modelName = v
			}
		case MaxTokensOption:
			if v, ok := opt.Value.(int); ok {
				p.maxTokens = v
			}
		case TemperatureOption:
			if v, ok := opt.Value.(float32); ok {
				p.temperature = v
			}
		case TopPOption:
			if v, ok := opt.Value.(float32); ok {
				p.topP = v
			}
		case FrequencyPenaltyOption:
			if v, ok := opt.Value.(float32); ok {
				p.frequencyPenalty = v
			}
		case PresencePenaltyOption:
			if v, ok := opt.Value.(float32); ok {
				p.presencePenalty = v
			}
		case EndpointOption:
			if v, ok := opt.Value.(string); ok {
				p.endpoint = v
			}
		case APIVersionOption:
			if v, ok := opt.Value.(string); ok {
				p.apiVersion = v
			}
		case HTTPClientOption:
			if v, ok := opt.Value.(*http.Client); ok {
				p.httpClient = v
			}
		}
	}
	return p
}

// Request represents the conversation sent to the LLM
type Request struct {
	SystemPrompt string
	UserPrompt   string
}

// Chunk is one element of an upstream stream. An empty Content means the
// element carried no text delta (role headers, usage, stop events).
type Chunk struct {
	Content string
}

// Stream is a single, non-restartable upstream completion stream.
type Stream interface {
	// Recv returns the next chunk, or io.EOF once the upstream has finished
	Recv() (Chunk, error)
	// Close releases the upstream connection
	Close() error
}

// LLM defines the interface for streaming language model completions
type LLM interface {
	// Stream opens a streamed completion. An error means the upstream call
	// could not be established and no chunk will ever be produced.
	Stream(ctx context.Context, req Request) (Stream, error)
}

// NewLLM builds the provider client selected in settings. The returned value
// is safe for concurrent use and is meant to be created once per process.
func NewLLM(settings common.Settings, opts ...Option) (LLM, error) {
	retryClient := common.NewRetryableClient(common.RetryConfigFromSettings(settings.Upstream))

	options := WithGeneration(settings.Generation)
	options = append(options,
		WithEndpoint(settings.Upstream.Endpoint),
		WithAPIVersion(settings.Upstream.APIVersion),
		WithHTTPClient(retryClient.StandardClient()),
	)
	options = append(options, opts...)

	var llmClient LLM
	var err error
	switch settings.Upstream.Provider {
	case common.ProviderAzure:
		llmClient, err = NewAzureOpenAI(settings.Upstream.APIKey, options...)
	case common.ProviderOpenAI:
		llmClient, err = NewOpenAI(settings.Upstream.APIKey, options...)
	case common.ProviderAnthropic:
		llmClient, err = NewAnthropic(settings.Upstream.APIKey, options...)
	default:
		err = fmt.Errorf("unsupported provider: %s", settings.Upstream.Provider)
	}

	if err == nil {
		logger.Infow("LLM provider ready",
			"provider", settings.Upstream.Provider,
			"model", settings.Generation.Model,
			"endpoint", settings.Upstream.Endpoint,
		)
	}

	return llmClient, err
}
