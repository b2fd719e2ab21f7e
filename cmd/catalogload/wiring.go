package main

import (
	"context"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"modelcatalog/internal/config"
	"modelcatalog/internal/datasource"
	"modelcatalog/internal/datasource/file"
	"modelcatalog/internal/datasource/httpds"
	"modelcatalog/internal/metrics"
	"modelcatalog/internal/metrics/datadog"
	"modelcatalog/internal/metrics/prompush"
	"modelcatalog/internal/storage"
)

// newStoreFn is a test seam over storage.New.
var newStoreFn = storage.New

func buildSource(p config.Pipeline) (datasource.Source, error) {
	switch p.Source.Kind {
	case "file":
		return file.NewLocal(p.Source.File.Path), nil
	case "http":
		var hdr http.Header
		if p.Source.HTTP.Token != "" {
			hdr = http.Header{"Authorization": {"Bearer " + p.Source.HTTP.Token}}
		}
		c := httpds.NewClient(httpds.Config{
			MaxRetries:         p.Source.HTTP.MaxRetries,
			InsecureSkipVerify: p.Source.HTTP.InsecureSkipVerify,
			BaseHeaders:        hdr,
		})
		return httpds.NewSource(c, p.Source.HTTP.URL, nil), nil
	default:
		return nil, errors.Errorf("unsupported source.kind=%s", p.Source.Kind)
	}
}

func openStore(ctx context.Context, p config.Pipeline) (storage.Store, error) {
	policy, err := storage.ParseConflictPolicy(p.Runtime.OnConflict)
	if err != nil {
		return nil, err
	}
	st, err := newStoreFn(ctx, storage.Config{
		Kind:       p.Storage.Kind,
		DSN:        p.Storage.DB.DSN,
		MaxConns:   p.Storage.DB.MaxConns,
		OnConflict: policy,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init store")
	}
	return st, nil
}

// setupMetrics installs the configured backend. The returned func flushes
// it and must run once the load is over.
func setupMetrics(p config.Pipeline) (func(), error) {
	var (
		b   metrics.Backend
		err error
	)
	switch strings.ToLower(p.Metrics.Backend) {
	case "", "none":
		return func() {}, nil
	case "prometheus", "prom", "pushgateway":
		b, err = prompush.NewBackend(p.Job, p.Metrics.PushgatewayURL)
	case "datadog", "dogstatsd":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       p.Metrics.DatadogAddr,
			Namespace:  "modelcatalog.",
			GlobalTags: []string{"job:" + p.Job},
		})
	default:
		return nil, errors.Errorf("unknown metrics backend %q", p.Metrics.Backend)
	}
	if err != nil {
		return nil, errors.Wrap(err, "metrics")
	}
	metrics.SetBackend(b)
	log.WithField("backend", p.Metrics.Backend).Debug("metrics enabled")
	return func() {
		if err := metrics.Flush(); err != nil {
			log.WithError(err).Warn("metrics flush failed")
		}
	}, nil
}
