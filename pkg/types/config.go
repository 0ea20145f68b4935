package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout. Zero disables it, which is
	// what the dump download needs.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "wikiplace/0.1"). Wikimedia rejects requests without one.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRetries bounds the retries on HTTP 429 (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// SourceConfig locates the entity dump.
type SourceConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Locator is a file path or an http(s) URL. The suffix selects the
	// decompressor: .bz2, .gz, or none.
	Locator string `json:"locator" yaml:"locator" mapstructure:"locator"`
}

// ClassesConfig holds settings for building the class index.
type ClassesConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Endpoint is the SPARQL endpoint queried for subclass closures.
	Endpoint string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`

	// Roots lists the root class ids whose transitive subclasses form
	// each named set.
	Roots ClassRoots `json:"roots" yaml:"roots" mapstructure:"roots"`

	// CachePath is the YAML file caching the last fetched index. Empty
	// disables caching.
	CachePath string `json:"cache_path" yaml:"cache_path" mapstructure:"cache_path"`

	// CacheTTL is how long a cached index stays valid (default 7 days).
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// ClassRoots lists root class ids per class set.
type ClassRoots struct {
	TerritorialEntities  []string `json:"territorial_entities" yaml:"territorial_entities" mapstructure:"territorial_entities"`
	HumanSettlements     []string `json:"human_settlements" yaml:"human_settlements" mapstructure:"human_settlements"`
	Excluded             []string `json:"excluded" yaml:"excluded" mapstructure:"excluded"`
	ExcludedSettlements  []string `json:"excluded_settlements" yaml:"excluded_settlements" mapstructure:"excluded_settlements"`
	SecondLevelAdminDivs []string `json:"second_level_admin_divs" yaml:"second_level_admin_divs" mapstructure:"second_level_admin_divs"`
	Languages            []string `json:"languages" yaml:"languages" mapstructure:"languages"`
}

// PipelineConfig holds settings for the extraction pipeline.
type PipelineConfig struct {
	// Workers is the number of concurrent extraction tasks (default
	// runtime.NumCPU()). It is also the admission limit for new lines.
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// FactBuffer is the capacity of the channel between workers and the
	// store writer (default 4096).
	FactBuffer int `json:"fact_buffer" yaml:"fact_buffer" mapstructure:"fact_buffer"`

	// ProgressInterval is the minimum time between progress reports
	// (default 10s).
	ProgressInterval time.Duration `json:"progress_interval" yaml:"progress_interval" mapstructure:"progress_interval"`
}

// StoreConfig holds settings for the SQLite fact store.
type StoreConfig struct {
	// Path is the SQLite database file.
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// BatchSize is the number of facts written per transaction (default 5000).
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`
}

// Config groups all settings of a wikiplace run.
type Config struct {
	Source   SourceConfig   `json:"source" yaml:"source" mapstructure:"source"`
	Classes  ClassesConfig  `json:"classes" yaml:"classes" mapstructure:"classes"`
	Pipeline PipelineConfig `json:"pipeline" yaml:"pipeline" mapstructure:"pipeline"`
	Store    StoreConfig    `json:"store" yaml:"store" mapstructure:"store"`

	// LogLevel is one of debug, info, warn, error (default info).
	LogLevel string `json:"log_level" yaml:"log_level" mapstructure:"log_level"`

	// MetricsAddr, when set, serves Prometheus metrics on this address.
	MetricsAddr string `json:"metrics_addr" yaml:"metrics_addr" mapstructure:"metrics_addr"`
}

// DefaultDumpURL is the latest full Wikidata entity dump.
const DefaultDumpURL = "https://dumps.wikimedia.org/wikidatawiki/entities/latest-all.json.bz2"

// DefaultSPARQLEndpoint is the public Wikidata query service.
const DefaultSPARQLEndpoint = "https://query.wikidata.org/sparql"

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	return Config{
		Source: SourceConfig{
			HTTPConfig: HTTPConfig{UserAgent: "wikiplace/0.1", MaxRetries: 5},
			Locator:    DefaultDumpURL,
		},
		Classes: ClassesConfig{
			HTTPConfig: HTTPConfig{Timeout: 5 * time.Minute, UserAgent: "wikiplace/0.1", MaxRetries: 5},
			Endpoint:   DefaultSPARQLEndpoint,
			Roots: ClassRoots{
				TerritorialEntities:  []string{"Q56061"},
				HumanSettlements:     []string{"Q486972"},
				Excluded:             []string{"Q15893266", "Q19953632"},
				ExcludedSettlements:  []string{"Q74047"},
				SecondLevelAdminDivs: []string{"Q13220204"},
				Languages:            []string{"Q34770"},
			},
			CachePath: "wikiplace-classes.yaml",
			CacheTTL:  7 * 24 * time.Hour,
		},
		Pipeline: PipelineConfig{
			FactBuffer:       4096,
			ProgressInterval: 10 * time.Second,
		},
		Store: StoreConfig{
			Path:      "wikiplace.db",
			BatchSize: 5000,
		},
		LogLevel: "info",
	}
}
