package config

import "os"

// Environment variable names that override configured secrets and
// observability endpoints. These always win over the config file; they
// exist so CI and container runtimes never need to write API keys to disk.
const (
	EnvAnthropicAPIKey = "ENGINE_ANTHROPIC_API_KEY"
	EnvOpenAIAPIKey    = "ENGINE_OPENAI_API_KEY"
	EnvLangfuseHost    = "ENGINE_LANGFUSE_HOST"
	EnvLangfuseSecret  = "ENGINE_LANGFUSE_SECRET_KEY"
	EnvLangfusePublic  = "ENGINE_LANGFUSE_PUBLIC_KEY"
	EnvMetricsAddr     = "ENGINE_METRICS_ADDR"
	EnvDebug           = "ENGINE_DEBUG"
	EnvLogFormat       = "ENGINE_LOG_FORMAT"
)

// ApplyEnvOverrides mutates cfg in place, overwriting secret and
// observability-endpoint fields with any corresponding environment variable
// that is set. It is applied after the config file, so it always wins over
// the file for the fields it covers.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvAnthropicAPIKey); v != "" {
		cfg.AnthropicAPIKey = v
	}
	if v := os.Getenv(EnvOpenAIAPIKey); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := os.Getenv(EnvLangfuseHost); v != "" {
		cfg.Observability.Langfuse.Host = v
	}
	if v := os.Getenv(EnvLangfuseSecret); v != "" {
		cfg.Observability.Langfuse.SecretKey = v
	}
	if v := os.Getenv(EnvLangfusePublic); v != "" {
		cfg.Observability.Langfuse.PublicKey = v
	}
	if v := os.Getenv(EnvMetricsAddr); v != "" {
		cfg.Observability.MetricsAddr = v
	}
}
