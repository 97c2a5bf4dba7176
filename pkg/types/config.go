package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "boxmeta/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// BoxConfig holds shared settings for stages that call the Box AI API.
type BoxConfig struct {
	// Model is the AI model identifier (e.g. "azure__openai__gpt_4o_mini").
	Model string `json:"model" yaml:"model"`

	// AccessToken is the Box API bearer token.
	AccessToken string `json:"access_token,omitempty" yaml:"access_token,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// ExtractionConfig holds settings for the extraction stage.
type ExtractionConfig struct {
	BoxConfig `yaml:",inline"`

	// TemplatesDir is the base directory for templates (contains index/).
	TemplatesDir string `json:"templates_dir" yaml:"templates_dir"`

	// ResultsDir is the directory extraction result files are written to.
	ResultsDir string `json:"results_dir" yaml:"results_dir"`

	// IncludeReasoning controls whether per-field reasoning appears in
	// formatted results.
	IncludeReasoning bool `json:"include_reasoning" yaml:"include_reasoning"`
}

// TemplateStoreConfig holds settings for the template schema store.
type TemplateStoreConfig struct {
	// TemplatesDir is the base directory for template YAML files
	// (contains index/).
	TemplatesDir string `json:"templates_dir" yaml:"templates_dir"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Extraction    ExtractionConfig    `json:"extraction" yaml:"extraction"`
	TemplateStore TemplateStoreConfig `json:"template_store" yaml:"template_store"`
}
