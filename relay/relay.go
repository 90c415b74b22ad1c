// Package relay turns an upstream completion stream into server-sent event frames.
package relay

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/birmacher/tutor-relay/llm"
	"github.com/birmacher/tutor-relay/logger"
	"github.com/birmacher/tutor-relay/metrics"
)

const (
	reasonUpstreamError = "upstream_error"
	reasonClientGone    = "client_gone"
)

// Relay forwards prompts to an LLM with a fixed system instruction. It holds
// no per-request state and may serve any number of concurrent calls.
type Relay struct {
	llm          llm.LLM
	systemPrompt string
	model        string
}

// New creates a Relay. model only labels logs and metrics; the generation
// parameters themselves live in the llm client.
func New(client llm.LLM, systemPrompt, model string) *Relay {
	return &Relay{
		llm:          client,
		systemPrompt: systemPrompt,
		model:        model,
	}
}

// Model returns the model identifier the relay reports under
func (r *Relay) Model() string {
	return r.model
}

// Frame formats one server-sent event frame
func Frame(text string) string {
	return "data: " + text + "\n\n"
}

// Payload returns the text carried by a frame produced by Frame
func Payload(frame string) string {
	return strings.TrimSuffix(strings.TrimPrefix(frame, "data: "), "\n\n")
}

// Chat opens an upstream stream for prompt and returns the frames it produces.
//
// A non-nil error means the upstream call could not be established; no
// frames are produced. Otherwise the channel yields one frame per non-empty
// text delta, in upstream order, and is closed when the upstream finishes,
// fails mid-stream or ctx is cancelled. The three endings look the same to
// the reader; failures are only logged.
func (r *Relay) Chat(ctx context.Context, prompt string) (<-chan string, error) {
	started := time.Now()

	stream, err := r.llm.Stream(ctx, llm.Request{
		SystemPrompt: r.systemPrompt,
		UserPrompt:   prompt,
	})
	if err != nil {
		return nil, err
	}

	frames := make(chan string)
	go r.forward(ctx, stream, frames, started)
	return frames, nil
}

func (r *Relay) forward(ctx context.Context, stream llm.Stream, frames chan<- string, started time.Time) {
	defer close(frames)
	defer func() {
		if err := stream.Close(); err != nil {
			logger.Debugw("Closing upstream stream failed", "error", err)
		}
		metrics.ObserveStreamDuration(r.model, time.Since(started))
	}()

	for {
		chunk, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			if ctx.Err() != nil {
				metrics.RecordInterrupted(r.model, reasonClientGone)
				return
			}
			logger.Warnw("Upstream stream ended early", "model", r.model, "error", err)
			metrics.RecordInterrupted(r.model, reasonUpstreamError)
			return
		}

		if chunk.Content == "" {
			metrics.RecordSkippedChunk(r.model)
			continue
		}

		select {
		case frames <- Frame(chunk.Content):
			metrics.RecordFragment(r.model)
		case <-ctx.Done():
			metrics.RecordInterrupted(r.model, reasonClientGone)
			return
		}
	}
}
