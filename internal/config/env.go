package config

import (
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Environment variables recognized by ApplyEnv.
const (
	EnvDataFile       = "DATA_FILE_PATH"
	EnvDataURL        = "DATA_URL"
	EnvHubToken       = "HUGGINGFACE_HUB_TOKEN"
	EnvDatabaseURL    = "DATABASE_URL"
	EnvStorageKind    = "CATALOG_STORAGE"
	EnvBatchSize      = "CATALOG_BATCH_SIZE"
	EnvWorkers        = "CATALOG_WORKERS"
	EnvOnConflict     = "CATALOG_ON_CONFLICT"
	EnvMetricsBackend = "METRICS_BACKEND"
	EnvPushgatewayURL = "PUSHGATEWAY_URL"
	EnvDatadogAddr    = "DD_AGENT_ADDR"

	EnvPostgresUser     = "POSTGRES_USER"
	EnvPostgresPassword = "POSTGRES_PASSWORD"
	EnvPostgresDB       = "POSTGRES_DB"
	EnvPostgresHost     = "POSTGRES_HOST"
	EnvPostgresPort     = "POSTGRES_PORT"
)

// LoadDotEnv loads variables from the given files (".env" when none) into
// the process environment. Existing variables win. Missing files are
// ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return errors.Wrapf(err, "load %s", p)
		}
		log.WithField("path", p).Debug("loaded env file")
	}
	return nil
}

// ApplyEnv overlays environment variables read through getenv onto p.
// Malformed integers are reported and leave the field unchanged.
func ApplyEnv(p *Pipeline, getenv func(string) string) error {
	if v := getenv(EnvDataFile); v != "" {
		p.Source.Kind = "file"
		p.Source.File.Path = v
	}
	if v := getenv(EnvDataURL); v != "" {
		p.Source.Kind = "http"
		p.Source.HTTP.URL = v
	}
	if v := getenv(EnvHubToken); v != "" {
		p.Source.HTTP.Token = v
	}

	if dsn, ok := postgresDSN(getenv); ok {
		p.Storage.Kind = "postgres"
		p.Storage.DB.DSN = dsn
	}
	if v := getenv(EnvDatabaseURL); v != "" {
		p.Storage.DB.DSN = v
		if kind := kindFromURL(v); kind != "" {
			p.Storage.Kind = kind
		}
	}
	if v := getenv(EnvStorageKind); v != "" {
		p.Storage.Kind = v
	}

	var bad []string
	if err := envInt(getenv, EnvBatchSize, &p.Runtime.BatchSize); err != nil {
		bad = append(bad, err.Error())
	}
	if err := envInt(getenv, EnvWorkers, &p.Runtime.Workers); err != nil {
		bad = append(bad, err.Error())
	}
	if v := getenv(EnvOnConflict); v != "" {
		p.Runtime.OnConflict = v
	}

	if v := getenv(EnvMetricsBackend); v != "" {
		p.Metrics.Backend = v
	}
	if v := getenv(EnvPushgatewayURL); v != "" {
		p.Metrics.PushgatewayURL = v
	}
	if v := getenv(EnvDatadogAddr); v != "" {
		p.Metrics.DatadogAddr = v
	}

	if len(bad) > 0 {
		return errors.Errorf("invalid environment: %s", strings.Join(bad, "; "))
	}
	return nil
}

// Resolve builds the effective configuration: defaults, then the file at
// path when non-empty, then .env, then the process environment.
func Resolve(path string, envFiles ...string) (Pipeline, error) {
	p := Default()
	if path != "" {
		var err error
		if p, err = LoadFile(path); err != nil {
			return Pipeline{}, err
		}
	}
	if err := LoadDotEnv(envFiles...); err != nil {
		return Pipeline{}, err
	}
	if err := ApplyEnv(&p, os.Getenv); err != nil {
		return Pipeline{}, err
	}
	return p, nil
}

func envInt(getenv func(string) string, key string, dst *int) error {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return errors.Errorf("%s=%q is not an integer", key, v)
	}
	*dst = n
	return nil
}

// postgresDSN assembles a URL from the POSTGRES_* variables. It reports
// false unless POSTGRES_HOST or POSTGRES_DB is set.
func postgresDSN(getenv func(string) string) (string, bool) {
	host, db := getenv(EnvPostgresHost), getenv(EnvPostgresDB)
	if host == "" && db == "" {
		return "", false
	}
	if host == "" {
		host = "localhost"
	}
	port := getenv(EnvPostgresPort)
	if port == "" {
		port = "5432"
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + db,
	}
	if user := getenv(EnvPostgresUser); user != "" {
		if pw := getenv(EnvPostgresPassword); pw != "" {
			u.User = url.UserPassword(user, pw)
		} else {
			u.User = url.User(user)
		}
	}
	return u.String(), true
}

// kindFromURL maps a DSN scheme onto a storage kind, "" when unknown.
// MySQL DSNs have no scheme and need CATALOG_STORAGE.
func kindFromURL(dsn string) string {
	if strings.HasPrefix(dsn, "file:") {
		return "sqlite"
	}
	scheme, _, ok := strings.Cut(dsn, "://")
	if !ok {
		return ""
	}
	switch strings.ToLower(scheme) {
	case "postgres", "postgresql":
		return "postgres"
	case "sqlserver":
		return "mssql"
	}
	return ""
}
