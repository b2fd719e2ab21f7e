// Package config defines the JSON-serializable configuration of a catalog
// load and the layering used to build it: built-in defaults, an optional
// JSON file, a .env file and finally process environment variables.
//
// Example:
//
//	{
//	  "job":     "hf-models",
//	  "source":  { "kind": "file", "file": { "path": "data/hf_models.jsonl.gz" } },
//	  "storage": { "kind": "postgres", "db": { "dsn": "postgres://...", "max_conns": 8 } },
//	  "runtime": { "batch_size": 1000, "workers": 4, "on_conflict": "reject" },
//	  "metrics": { "backend": "prometheus", "pushgateway_url": "http://pushgateway:9091" }
//	}
package config

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Pipeline is the full description of one load run.
type Pipeline struct {
	// Job names the run in logs and metrics.
	Job string `json:"job"`

	Source  Source        `json:"source"`
	Storage Storage       `json:"storage"`
	Runtime RuntimeConfig `json:"runtime"`
	Metrics Metrics       `json:"metrics"`
}

// Source identifies where the JSONL dump comes from.
type Source struct {
	// Kind is "file" or "http".
	Kind string     `json:"kind"`
	File SourceFile `json:"file"`
	HTTP SourceHTTP `json:"http"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	// Path is a local file; a ".gz" suffix enables decompression.
	Path string `json:"path"`
}

// SourceHTTP holds configuration for the "http" source kind.
type SourceHTTP struct {
	URL string `json:"url"`
	// Token is sent as a bearer token when set.
	Token              string `json:"token"`
	MaxRetries         int    `json:"max_retries"`
	InsecureSkipVerify bool   `json:"insecure_skip_verify"`
}

// Storage selects the backend the catalog is written to.
type Storage struct {
	// Kind is a registered storage kind: postgres, sqlite, mssql or mysql.
	Kind string   `json:"kind"`
	DB   DBConfig `json:"db"`
}

// DBConfig configures the database connection.
type DBConfig struct {
	DSN      string `json:"dsn"`
	MaxConns int    `json:"max_conns"`
}

// RuntimeConfig controls batching, sharding and logging limits.
type RuntimeConfig struct {
	BatchSize int `json:"batch_size"`
	// Workers is the number of write shards.
	Workers int `json:"workers"`
	// OnConflict is "reject" or "replace".
	OnConflict string `json:"on_conflict"`
	// ProgressEvery logs progress every N lines.
	ProgressEvery int `json:"progress_every"`
	// MaxLoggedErrors caps the individually logged line errors.
	MaxLoggedErrors int `json:"max_logged_errors"`
}

// Metrics selects an optional metrics backend: "", "none", "prometheus"
// or "datadog".
type Metrics struct {
	Backend        string `json:"backend"`
	PushgatewayURL string `json:"pushgateway_url"`
	DatadogAddr    string `json:"datadog_addr"`
}

// Defaults used when neither file nor environment sets a value.
const (
	DefaultJob             = "modelcatalog"
	DefaultDataFile        = "data/hf_models.jsonl"
	DefaultBatchSize       = 1000
	DefaultProgressEvery   = 10000
	DefaultMaxLoggedErrors = 10
)

// Default returns the configuration of a local SQLite load.
func Default() Pipeline {
	return Pipeline{
		Job:    DefaultJob,
		Source: Source{Kind: "file", File: SourceFile{Path: DefaultDataFile}},
		Storage: Storage{
			Kind: "sqlite",
			DB:   DBConfig{DSN: "catalog.db"},
		},
		Runtime: RuntimeConfig{
			BatchSize:       DefaultBatchSize,
			Workers:         1,
			OnConflict:      "reject",
			ProgressEvery:   DefaultProgressEvery,
			MaxLoggedErrors: DefaultMaxLoggedErrors,
		},
	}
}

// Decode reads a JSON pipeline on top of Default. Unknown fields are errors
// so typos do not silently fall back to defaults.
func Decode(data []byte) (Pipeline, error) {
	p := Default()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Pipeline{}, errors.Wrap(err, "decode pipeline config")
	}
	return p, nil
}

// LoadFile reads and decodes the pipeline file at path.
func LoadFile(path string) (Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, errors.Wrapf(err, "read config %s", path)
	}
	p, err := Decode(data)
	if err != nil {
		return Pipeline{}, errors.Wrapf(err, "config %s", path)
	}
	return p, nil
}
