package common

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWithDefaultSettings(t *testing.T) {
	settings := WithDefaultSettings()

	if settings.Upstream.Provider != ProviderAzure {
		t.Errorf("Expected default provider %s, got %s", ProviderAzure, settings.Upstream.Provider)
	}

	if settings.Upstream.APIVersion != "2024-12-01-preview" {
		t.Errorf("Expected default API version 2024-12-01-preview, got %s", settings.Upstream.APIVersion)
	}

	if settings.Upstream.MaxRetries != 0 {
		t.Errorf("Expected no retries by default, got %d", settings.Upstream.MaxRetries)
	}

	gen := settings.Generation
	if gen.Model != "gpt-4.1" {
		t.Errorf("Expected default model gpt-4.1, got %s", gen.Model)
	}
	if gen.Temperature != 0.2 {
		t.Errorf("Expected default temperature 0.2, got %v", gen.Temperature)
	}
	if gen.TopP != 0.9 {
		t.Errorf("Expected default top_p 0.9, got %v", gen.TopP)
	}
	if gen.MaxTokens != 300 {
		t.Errorf("Expected default max_tokens 300, got %d", gen.MaxTokens)
	}
	if gen.FrequencyPenalty != 0.8 {
		t.Errorf("Expected default frequency_penalty 0.8, got %v", gen.FrequencyPenalty)
	}
	if gen.PresencePenalty != 0.6 {
		t.Errorf("Expected default presence_penalty 0.6, got %v", gen.PresencePenalty)
	}

	if settings.Server.Addr != ":8000" {
		t.Errorf("Expected default addr :8000, got %s", settings.Server.Addr)
	}
	if settings.Server.AllowedOrigin != "http://localhost:5173" {
		t.Errorf("Expected default origin http://localhost:5173, got %s", settings.Server.AllowedOrigin)
	}
	if settings.Server.MetricsAddr != "" {
		t.Errorf("Expected metrics listener disabled by default, got %s", settings.Server.MetricsAddr)
	}

	if err := settings.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestWithYamlFile_ExplicitPath(t *testing.T) {
	configContent := `upstream:
  provider: openai
  endpoint: http://localhost:9999/v1
  max_retries: 2
generation:
  model: gpt-4o-mini
  max_tokens: 512
server:
  addr: ":9000"
  allowed_origin: https://tutor.example.com
system_prompt_file: prompts/tutor.txt
`
	path := filepath.Join(t.TempDir(), "custom.yml")
	if err := os.WriteFile(path, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	settings, err := WithYamlFile(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if settings.Upstream.Provider != ProviderOpenAI {
		t.Errorf("Expected provider openai, got %s", settings.Upstream.Provider)
	}
	if settings.Upstream.Endpoint != "http://localhost:9999/v1" {
		t.Errorf("Expected endpoint from file, got %s", settings.Upstream.Endpoint)
	}
	if settings.Upstream.MaxRetries != 2 {
		t.Errorf("Expected max_retries 2, got %d", settings.Upstream.MaxRetries)
	}
	if settings.Generation.Model != "gpt-4o-mini" {
		t.Errorf("Expected model gpt-4o-mini, got %s", settings.Generation.Model)
	}
	if settings.Generation.MaxTokens != 512 {
		t.Errorf("Expected max_tokens 512, got %d", settings.Generation.MaxTokens)
	}
	if settings.Server.Addr != ":9000" {
		t.Errorf("Expected addr :9000, got %s", settings.Server.Addr)
	}
	if settings.Server.AllowedOrigin != "https://tutor.example.com" {
		t.Errorf("Expected origin from file, got %s", settings.Server.AllowedOrigin)
	}
	if settings.SystemPromptFile != "prompts/tutor.txt" {
		t.Errorf("Expected system prompt file from file, got %s", settings.SystemPromptFile)
	}

	// Values absent from the file keep their defaults
	if settings.Generation.Temperature != 0.2 {
		t.Errorf("Expected default temperature to survive partial file, got %v", settings.Generation.Temperature)
	}
	if settings.Upstream.APIVersion != "2024-12-01-preview" {
		t.Errorf("Expected default API version to survive partial file, got %s", settings.Upstream.APIVersion)
	}
}

func TestWithYamlFile_Discovered(t *testing.T) {
	tempDir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get current directory: %v", err)
	}
	if err := os.Chdir(tempDir); err != nil {
		t.Fatalf("Failed to change directory: %v", err)
	}
	defer os.Chdir(cwd)

	if err := os.WriteFile("relay.yaml", []byte("generation:\n  temperature: 0.7\n"), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	settings, err := WithYamlFile("")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if settings.Generation.Temperature != 0.7 {
		t.Errorf("Expected temperature 0.7 from discovered file, got %v", settings.Generation.Temperature)
	}
}

func TestWithYamlFile_NoFile(t *testing.T) {
	tempDir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get current directory: %v", err)
	}
	if err := os.Chdir(tempDir); err != nil {
		t.Fatalf("Failed to change directory: %v", err)
	}
	defer os.Chdir(cwd)

	settings, err := WithYamlFile("")
	if err != nil {
		t.Fatalf("Expected no error without a settings file, got %v", err)
	}
	if settings != WithDefaultSettings() {
		t.Errorf("Expected default settings, got %+v", settings)
	}
}

func TestWithYamlFile_MissingExplicitPath(t *testing.T) {
	_, err := WithYamlFile(filepath.Join(t.TempDir(), "nope.yml"))
	if err == nil {
		t.Fatal("Expected error for missing explicit settings file")
	}
}

func TestWithYamlFile_InvalidYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yml")
	if err := os.WriteFile(path, []byte("generation: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	if _, err := WithYamlFile(path); err == nil {
		t.Fatal("Expected parse error for invalid YAML")
	}
}

func TestApplyEnv_Azure(t *testing.T) {
	env := map[string]string{
		"AZURE_OPENAI_API_KEY":     "azure-key",
		"AZURE_OPENAI_ENDPOINT":    "https://example.openai.azure.com",
		"AZURE_OPENAI_API_VERSION": "2025-01-01",
		"AZURE_OPENAI_MODEL":       "gpt-4.1-mini",
		"OPENAI_API_KEY":           "ignored",
		"ALLOWED_ORIGIN":           "https://app.example.com",
		"RELAY_ADDR":               ":8081",
		"METRICS_ADDR":             ":9090",
	}
	settings := WithDefaultSettings()
	settings.ApplyEnv(func(k string) string { return env[k] }, "")

	if settings.Upstream.APIKey != "azure-key" {
		t.Errorf("Expected azure key, got %s", settings.Upstream.APIKey)
	}
	if settings.Upstream.Endpoint != "https://example.openai.azure.com" {
		t.Errorf("Expected azure endpoint, got %s", settings.Upstream.Endpoint)
	}
	if settings.Upstream.APIVersion != "2025-01-01" {
		t.Errorf("Expected API version override, got %s", settings.Upstream.APIVersion)
	}
	if settings.Generation.Model != "gpt-4.1-mini" {
		t.Errorf("Expected model override, got %s", settings.Generation.Model)
	}
	if settings.Server.AllowedOrigin != "https://app.example.com" {
		t.Errorf("Expected origin override, got %s", settings.Server.AllowedOrigin)
	}
	if settings.Server.Addr != ":8081" {
		t.Errorf("Expected addr override, got %s", settings.Server.Addr)
	}
	if settings.Server.MetricsAddr != ":9090" {
		t.Errorf("Expected metrics addr override, got %s", settings.Server.MetricsAddr)
	}
}

func TestApplyEnv_ProviderSwitch(t *testing.T) {
	env := map[string]string{
		"LLM_PROVIDER":         "Anthropic",
		"ANTHROPIC_API_KEY":    "anthropic-key",
		"ANTHROPIC_MODEL":      "claude-3-7-sonnet-latest",
		"AZURE_OPENAI_API_KEY": "ignored",
	}
	settings := WithDefaultSettings()
	settings.ApplyEnv(func(k string) string { return env[k] }, "")

	if settings.Upstream.Provider != ProviderAnthropic {
		t.Errorf("Expected provider anthropic, got %s", settings.Upstream.Provider)
	}
	if settings.Upstream.APIKey != "anthropic-key" {
		t.Errorf("Expected anthropic key, got %s", settings.Upstream.APIKey)
	}
	if settings.Generation.Model != "claude-3-7-sonnet-latest" {
		t.Errorf("Expected anthropic model, got %s", settings.Generation.Model)
	}
}

func TestApplyEnv_ProviderSwitchUsesProviderDefaultModel(t *testing.T) {
	env := map[string]string{
		"LLM_PROVIDER":         "anthropic",
		"ANTHROPIC_API_KEY":    "anthropic-key",
		"AZURE_OPENAI_API_KEY": "azure-secret",
	}
	settings := WithDefaultSettings()
	settings.ApplyEnv(func(k string) string { return env[k] }, "")

	if settings.Generation.Model != "claude-3-7-sonnet-latest" {
		t.Errorf("Expected anthropic default model, got %s", settings.Generation.Model)
	}
	if settings.Upstream.APIKey != "anthropic-key" {
		t.Errorf("Expected anthropic key, got %s", settings.Upstream.APIKey)
	}
}

func TestApplyEnv_ExplicitProviderWins(t *testing.T) {
	env := map[string]string{
		"LLM_PROVIDER":          "azure",
		"AZURE_OPENAI_API_KEY":  "azure-secret",
		"AZURE_OPENAI_ENDPOINT": "https://example.openai.azure.com",
		"ANTHROPIC_API_KEY":     "anthropic-key",
	}
	settings := WithDefaultSettings()
	settings.ApplyEnv(func(k string) string { return env[k] }, "anthropic")

	if settings.Upstream.Provider != ProviderAnthropic {
		t.Errorf("Expected provider anthropic, got %s", settings.Upstream.Provider)
	}
	if settings.Upstream.APIKey != "anthropic-key" {
		t.Errorf("Expected anthropic key, got %s", settings.Upstream.APIKey)
	}
	if settings.Upstream.Endpoint != "" {
		t.Errorf("Expected azure endpoint to be dropped, got %s", settings.Upstream.Endpoint)
	}
	if settings.Generation.Model != "claude-3-7-sonnet-latest" {
		t.Errorf("Expected anthropic default model, got %s", settings.Generation.Model)
	}
}

func TestSelectProvider_DropsFileCredentials(t *testing.T) {
	settings := WithDefaultSettings()
	settings.Upstream.APIKey = "azure-secret"
	settings.Upstream.Endpoint = "https://example.openai.azure.com"
	settings.Generation.Model = "my-deployment"

	settings.SelectProvider("Azure")
	if settings.Upstream.APIKey != "azure-secret" || settings.Generation.Model != "my-deployment" {
		t.Error("Expected settings to be kept when the provider does not change")
	}

	settings.SelectProvider(ProviderOpenAI)
	if settings.Upstream.APIKey != "" {
		t.Errorf("Expected key to be dropped, got %s", settings.Upstream.APIKey)
	}
	if settings.Upstream.Endpoint != "" {
		t.Errorf("Expected endpoint to be dropped, got %s", settings.Upstream.Endpoint)
	}
	if settings.Generation.Model != "gpt-4.1" {
		t.Errorf("Expected openai default model, got %s", settings.Generation.Model)
	}
}

func TestValidate(t *testing.T) {
	settings := WithDefaultSettings()
	settings.Upstream.Provider = "bard"
	if err := settings.Validate(); err == nil {
		t.Error("Expected error for unsupported provider")
	}

	settings = WithDefaultSettings()
	settings.Generation.Model = ""
	if err := settings.Validate(); err == nil {
		t.Error("Expected error for empty model")
	}

	settings = WithDefaultSettings()
	settings.Generation.MaxTokens = 0
	if err := settings.Validate(); err == nil {
		t.Error("Expected error for zero max_tokens")
	}

	settings = WithDefaultSettings()
	settings.Upstream.MaxRetries = -1
	if err := settings.Validate(); err == nil {
		t.Error("Expected error for negative max_retries")
	}

	settings = WithDefaultSettings()
	settings.Upstream.APIKey = ""
	if err := settings.Validate(); err != nil {
		t.Errorf("Expected missing credentials to pass validation, got %v", err)
	}
}
