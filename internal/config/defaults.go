package config

// DefaultOutputPath is used when a config file omits output_path.
const DefaultOutputPath = ".engines"

// Default returns a new Config populated with built-in defaults. A loaded
// config file is merged on top of this; CLI flags and environment variables
// are applied on top of that.
//
// Callers receive a fresh copy each time; mutating the returned value does
// not affect subsequent calls.
func Default() *Config {
	return &Config{
		OutputPath: DefaultOutputPath,
		Relevance: StageConfig{
			Model:         "claude-3-5-haiku-latest",
			MaxWorkers:    8,
			MaxTokens:     1024,
			TimeoutSecs:   60,
			MaxFileTokens: 8000,
			MaxRetries:    5,
		},
		Ranking: StageConfig{
			Model:       "claude-3-5-sonnet-latest",
			MaxTokens:   2048,
			TimeoutSecs: 120,
			MaxRetries:  5,
		},
		Dockerfile: StageConfig{
			Model:       "claude-3-5-sonnet-latest",
			MaxTokens:   4096,
			TimeoutSecs: 120,
			MaxRetries:  5,
		},
		Scripts: StageConfig{
			Model:       "claude-3-5-sonnet-latest",
			MaxTokens:   4096,
			TimeoutSecs: 120,
			MaxRetries:  5,
		},
	}
}
