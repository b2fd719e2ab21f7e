package config

import (
	"fmt"
	"net/url"
	"strings"

	"modelcatalog/internal/storage"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path is a dotted path into
// the config, e.g. "storage.db.dsn".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// knownStorage are the kinds compiled into cmd/catalogload. Other kinds are
// allowed when a binary registers its own backend.
var knownStorage = map[string]bool{"postgres": true, "mysql": true, "mssql": true, "sqlite": true}

type findings []Issue

func (f *findings) errorf(path, format string, args ...any) {
	*f = append(*f, Issue{Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, args...)})
}

func (f *findings) warnf(path, format string, args ...any) {
	*f = append(*f, Issue{Severity: SeverityWarning, Path: path, Message: fmt.Sprintf(format, args...)})
}

// ValidatePipeline performs static checks over p without mutating it.
// Callers decide whether warnings are fatal.
func ValidatePipeline(p Pipeline) []Issue {
	var f findings
	if strings.TrimSpace(p.Job) == "" {
		f.errorf("job", "job must not be empty; it labels logs and metrics")
	}
	f.source(p.Source)
	f.storage(p.Storage)
	f.runtime(p.Runtime)
	f.metrics(p.Metrics)
	return f
}

func (f *findings) source(s Source) {
	switch strings.TrimSpace(s.Kind) {
	case "":
		f.errorf("source.kind", "source.kind must not be empty")
	case "file":
		if strings.TrimSpace(s.File.Path) == "" {
			f.errorf("source.file.path", "file source requires a non-empty path")
		}
	case "http":
		u, err := url.Parse(s.HTTP.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			f.errorf("source.http.url", "http source requires an absolute http(s) URL, got %q", s.HTTP.URL)
		}
		if s.HTTP.MaxRetries < 0 {
			f.errorf("source.http.max_retries", "max_retries must not be negative")
		}
		if s.HTTP.InsecureSkipVerify {
			f.warnf("source.http.insecure_skip_verify", "TLS certificate verification is disabled")
		}
	default:
		f.errorf("source.kind", "unknown source kind %q (want file|http)", s.Kind)
	}
}

func (f *findings) storage(s Storage) {
	switch kind := strings.TrimSpace(s.Kind); {
	case kind == "":
		f.errorf("storage.kind", "storage.kind must not be empty")
	case !knownStorage[kind]:
		f.warnf("storage.kind", "unknown storage kind %q; ensure a matching backend is registered", s.Kind)
	}
	if strings.TrimSpace(s.DB.DSN) == "" {
		f.errorf("storage.db.dsn", "storage.db.dsn must not be empty")
	}
	if s.DB.MaxConns < 0 {
		f.errorf("storage.db.max_conns", "max_conns must not be negative")
	}
}

func (f *findings) runtime(r RuntimeConfig) {
	switch {
	case r.BatchSize <= 0:
		f.errorf("runtime.batch_size", "batch_size=%d; must be positive", r.BatchSize)
	case r.BatchSize > 50000:
		f.warnf("runtime.batch_size", "batch_size=%d; very large transactions hold locks for long", r.BatchSize)
	}
	switch {
	case r.Workers < 0:
		f.errorf("runtime.workers", "workers must not be negative")
	case r.Workers == 0:
		f.warnf("runtime.workers", "workers=0 is treated as 1")
	}
	if _, err := storage.ParseConflictPolicy(r.OnConflict); err != nil {
		f.errorf("runtime.on_conflict", "%v", err)
	}
	if r.ProgressEvery < 0 {
		f.errorf("runtime.progress_every", "progress_every must not be negative")
	}
	if r.MaxLoggedErrors < 0 {
		f.errorf("runtime.max_logged_errors", "max_logged_errors must not be negative")
	}
}

func (f *findings) metrics(m Metrics) {
	switch strings.ToLower(strings.TrimSpace(m.Backend)) {
	case "", "none":
	case "prometheus", "prom", "pushgateway":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			f.errorf("metrics.pushgateway_url", "prometheus metrics require a pushgateway_url")
		}
	case "datadog", "dogstatsd":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			f.errorf("metrics.datadog_addr", "datadog metrics require a datadog_addr")
		}
	default:
		f.errorf("metrics.backend", "unknown metrics backend %q (want none|prometheus|datadog)", m.Backend)
	}
}
