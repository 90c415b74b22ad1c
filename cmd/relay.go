package cmd

import (
	"fmt"
	"os"

	"github.com/birmacher/tutor-relay/common"
	"github.com/birmacher/tutor-relay/llm"
	"github.com/birmacher/tutor-relay/prompt"
	"github.com/birmacher/tutor-relay/relay"
	"github.com/spf13/cobra"
)

// addUpstreamFlags registers the flags shared by every command that talks to the provider
func addUpstreamFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("provider", "p", "", "LLM provider (azure, openai, anthropic)")
	cmd.Flags().StringP("model", "m", "", "Model identifier (the deployment name on Azure)")
	cmd.Flags().String("endpoint", "", "Provider endpoint or base URL")
}

// loadSettings resolves settings as defaults <- file <- env <- flags
func loadSettings(cmd *cobra.Command) (common.Settings, error) {
	settings, err := common.WithYamlFile(configFile)
	if err != nil {
		return settings, err
	}
	provider, _ := cmd.Flags().GetString("provider")
	settings.ApplyEnv(os.Getenv, provider)

	if cmd.Flags().Changed("model") {
		settings.Generation.Model, _ = cmd.Flags().GetString("model")
	}
	if cmd.Flags().Changed("endpoint") {
		settings.Upstream.Endpoint, _ = cmd.Flags().GetString("endpoint")
	}
	if f := cmd.Flags().Lookup("addr"); f != nil && f.Changed {
		settings.Server.Addr = f.Value.String()
	}
	if f := cmd.Flags().Lookup("metrics-addr"); f != nil && f.Changed {
		settings.Server.MetricsAddr = f.Value.String()
	}
	if f := cmd.Flags().Lookup("allowed-origin"); f != nil && f.Changed {
		settings.Server.AllowedOrigin = f.Value.String()
	}

	if err := settings.Validate(); err != nil {
		return settings, fmt.Errorf("invalid settings: %w", err)
	}
	return settings, nil
}

// newRelay creates the process-wide provider client and the relay that uses it
func newRelay(settings common.Settings) (*relay.Relay, error) {
	systemPrompt, err := prompt.GetSystemPrompt(settings)
	if err != nil {
		return nil, err
	}

	client, err := llm.NewLLM(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for LLM provider: %w", err)
	}

	return relay.New(client, systemPrompt, settings.Generation.Model), nil
}
