package config

// ODPTConfig configures the upstream API.
type ODPTConfig struct {
	BaseURL      string `yaml:"baseURL" validate:"omitempty,url"`
	RealtimeFeed string `yaml:"realtimeFeed" validate:"omitempty,alphanum"`

	// TimeoutMS of 0 disables the client timeout.
	TimeoutMS int `yaml:"timeoutMS" validate:"gte=0"`

	// CacheTTL is a Go duration; empty disables caching of static datasets.
	CacheTTL string `yaml:"cacheTTL"`
}

// LokiConfig configures the Loki sink.
type LokiConfig struct {
	URL      string `yaml:"url" validate:"omitempty,url"`
	User     string `yaml:"user"`
	Password string `yaml:"password" validate:"required_with=User"`
}

// PipelineConfig selects what runs and how results are delivered.
type PipelineConfig struct {
	Commands []string `yaml:"commands" validate:"dive,required"`
	Interval string   `yaml:"interval"` // Go duration; empty runs once
	Format   string   `yaml:"format" validate:"omitempty,oneof=json xml pbtext pb"`
	StopName string   `yaml:"stopName"`
	Dedupe   bool     `yaml:"dedupe"`
	DryRun   bool     `yaml:"dryRun"`
}

// AppConfig is the root of the YAML configuration file.
type AppConfig struct {
	ODPT     ODPTConfig     `yaml:"odpt"`
	Loki     LokiConfig     `yaml:"loki"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}
