package config

// Config is the top-level configuration type parsed from a JSON config file.
// Every pipeline stage reads its model/timeout/budget settings from here;
// the Pipeline Orchestrator resolves one Config per invocation and passes it
// down unchanged.
type Config struct {
	// AnthropicAPIKey authenticates the Anthropic-style LLM Provider backend.
	AnthropicAPIKey string `json:"anthropic_api_key"`

	// OpenAIAPIKey authenticates the OpenAI-style LLM Provider backend.
	OpenAIAPIKey string `json:"openai_api_key"`

	// OutputPath is the trajectory store root. Defaults to ".engines".
	OutputPath string `json:"output_path"`

	Codebase  CodebaseConfig  `json:"codebase"`
	Relevance StageConfig     `json:"relevance"`
	Ranking   StageConfig     `json:"ranking"`
	Dockerfile StageConfig    `json:"dockerfile"`
	Scripts   StageConfig     `json:"scripts"`

	Observability ObservabilityConfig `json:"observability"`
}

// CodebaseConfig identifies the analysis session: what is being analyzed and
// which files are even candidates. It maps directly onto pipeline.Problem.
type CodebaseConfig struct {
	Path              string   `json:"path"`
	ProblemID         string   `json:"problem_id"`
	ProblemStatement  string   `json:"problem_statement"`
	IncludeExtensions []string `json:"include_extensions"`
	ExclusionsPath    string   `json:"exclusions_path"`
}

// StageConfig bundles the per-stage LLM call settings shared by Relevance,
// Ranking, Dockerfile, and Scripts generation. Not every field applies to
// every stage (Ranking and generation stages ignore MaxWorkers); unused
// fields are simply left at their default.
type StageConfig struct {
	Model         string `json:"model"`
	MaxWorkers    int    `json:"max_workers"`
	MaxTokens     int    `json:"max_tokens"`
	TimeoutSecs   int    `json:"timeout"`
	MaxFileTokens int    `json:"max_file_tokens"`

	// MaxRetries bounds how many times this stage retries a transient LLM
	// call failure. Zero means the llmprovider package default.
	MaxRetries int `json:"max_retries"`
}

// ObservabilityConfig holds optional tracing and metrics sink settings.
// Langfuse is the only trace backend wired today; Enabled=false (the
// default) means the LLM Provider's trace sink is a no-op. MetricsAddr, when
// non-empty, starts a loopback Prometheus listener at that address.
type ObservabilityConfig struct {
	Langfuse LangfuseConfig `json:"langfuse"`

	// MetricsAddr is a "host:port" to expose /metrics on. Empty disables
	// the metrics registry entirely.
	MetricsAddr string `json:"metrics_addr"`
}

type LangfuseConfig struct {
	Enabled   bool   `json:"enabled"`
	Host      string `json:"host"`
	ProjectID string `json:"project_id"`
	SecretKey string `json:"secret_key"`
	PublicKey string `json:"public_key"`
	TraceID   string `json:"trace_id"`
}
