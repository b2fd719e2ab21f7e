package main

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"modelcatalog/internal/config"
)

// options are the flags shared by every subcommand.
type options struct {
	configPath string
	envFiles   []string
	verbose    bool

	input      string
	url        string
	storage    string
	dsn        string
	batchSize  int
	workers    int
	onConflict string
	metrics    string
}

func newRootCmd() *cobra.Command {
	return buildRootCmd(&options{})
}

func buildRootCmd(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "catalogload",
		Short:         "Load model-hub metadata dumps into the model catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
			if opts.verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "pipeline config JSON path (defaults are used when empty)")
	pf.StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files to load (default .env)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logs")
	pf.StringVar(&opts.input, "input", "", "local JSONL dump, .gz allowed (overrides source)")
	pf.StringVar(&opts.url, "url", "", "HTTP(S) JSONL dump (overrides source)")
	pf.StringVar(&opts.storage, "storage", "", "storage kind: postgres|sqlite|mssql|mysql")
	pf.StringVar(&opts.dsn, "dsn", "", "database connection string")
	pf.IntVar(&opts.batchSize, "batch-size", 0, "entries per transaction")
	pf.IntVar(&opts.workers, "workers", 0, "parallel write shards")
	pf.StringVar(&opts.onConflict, "on-conflict", "", "existing model ids: reject|replace")
	pf.StringVar(&opts.metrics, "metrics-backend", "", "metrics backend: none|prometheus|datadog")

	root.AddCommand(
		newLoadCmd(opts),
		newValidateCmd(opts),
		newDeleteCmd(opts),
		newBackendsCmd(),
	)
	return root
}

// resolve layers flags over config file and environment.
func resolve(cmd *cobra.Command, opts *options) (config.Pipeline, error) {
	p, err := config.Resolve(opts.configPath, opts.envFiles...)
	if err != nil {
		return config.Pipeline{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("input") {
		p.Source.Kind = "file"
		p.Source.File.Path = opts.input
	}
	if flags.Changed("url") {
		p.Source.Kind = "http"
		p.Source.HTTP.URL = opts.url
	}
	if flags.Changed("storage") {
		p.Storage.Kind = opts.storage
	}
	if flags.Changed("dsn") {
		p.Storage.DB.DSN = opts.dsn
	}
	if flags.Changed("batch-size") {
		p.Runtime.BatchSize = opts.batchSize
	}
	if flags.Changed("workers") {
		p.Runtime.Workers = opts.workers
	}
	if flags.Changed("on-conflict") {
		p.Runtime.OnConflict = opts.onConflict
	}
	if flags.Changed("metrics-backend") {
		p.Metrics.Backend = opts.metrics
	}
	return p, nil
}

// resolveValid resolves the configuration and logs every issue. Errors
// abort; warnings do not.
func resolveValid(cmd *cobra.Command, opts *options) (config.Pipeline, error) {
	p, err := resolve(cmd, opts)
	if err != nil {
		return config.Pipeline{}, err
	}
	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		entry := log.WithField("path", iss.Path)
		if iss.Severity == config.SeverityError {
			entry.Error(iss.Message)
		} else {
			entry.Warn(iss.Message)
		}
	}
	if config.HasErrors(issues) {
		return config.Pipeline{}, errors.New("configuration is invalid")
	}
	return p, nil
}
