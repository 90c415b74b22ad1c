package common

import (
	"net/http"
	"time"

	"github.com/birmacher/tutor-relay/logger"
	"github.com/hashicorp/go-retryablehttp"
)

// RetryConfig holds the configuration for upstream HTTP retry logic
type RetryConfig struct {
	// Maximum number of retries, zero disables retrying
	RetryMax int
	// Minimum time to wait between retries
	RetryWaitMin time.Duration
	// Maximum time to wait between retries
	RetryWaitMax time.Duration
	// Time allowed for the upstream to answer with response headers
	ResponseHeaderTimeout time.Duration
	// Function to determine if a request should be retried
	CheckRetry retryablehttp.CheckRetry
}

// DefaultRetryConfig returns a RetryConfig that never retries. The relay
// forwards the first outcome of each upstream call as-is.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		RetryMax:     0,
		RetryWaitMin: 1 * time.Second,
		RetryWaitMax: 5 * time.Second,
		CheckRetry:   retryablehttp.DefaultRetryPolicy,
	}
}

// RetryConfigFromSettings derives the upstream client configuration from the relay settings.
func RetryConfigFromSettings(s Upstream) RetryConfig {
	config := DefaultRetryConfig()
	config.RetryMax = s.MaxRetries
	if s.APITimeout > 0 {
		config.ResponseHeaderTimeout = time.Duration(s.APITimeout) * time.Second
	}
	return config
}

// NewRetryableClient creates a new HTTP client with retry capabilities.
// Only the exchange up to response headers is retried or bounded by a
// timeout; a streamed body is read for as long as the upstream keeps it open.
func NewRetryableClient(config RetryConfig) *retryablehttp.Client {
	retryClient := retryablehttp.NewClient()

	retryClient.RetryMax = config.RetryMax
	retryClient.RetryWaitMin = config.RetryWaitMin
	retryClient.RetryWaitMax = config.RetryWaitMax

	if config.ResponseHeaderTimeout > 0 {
		if transport, ok := retryClient.HTTPClient.Transport.(*http.Transport); ok {
			transport.ResponseHeaderTimeout = config.ResponseHeaderTimeout
		}
	}

	logger.Debugf("Created retryable client with max retries: %d, min wait: %s, max wait: %s, header timeout: %s",
		config.RetryMax, config.RetryWaitMin, config.RetryWaitMax, config.ResponseHeaderTimeout)

	if config.CheckRetry != nil {
		retryClient.CheckRetry = config.CheckRetry
	}

	// Non-2xx answers are handed back to the provider SDK so it can decode the error body
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	retryClient.Logger = &zapRetryLogger{}

	return retryClient
}

// zapRetryLogger adapts our zap logger to the interface required by retryablehttp
type zapRetryLogger struct{}

func (z *zapRetryLogger) Error(msg string, keysAndValues ...interface{}) {
	logger.Errorw(msg, keysAndValues...)
}

func (z *zapRetryLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Infow(msg, keysAndValues...)
}

func (z *zapRetryLogger) Debug(msg string, keysAndValues ...interface{}) {
	logger.Debugw(msg, keysAndValues...)
}

func (z *zapRetryLogger) Warn(msg string, keysAndValues ...interface{}) {
	logger.Warnw(msg, keysAndValues...)
}
