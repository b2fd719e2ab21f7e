package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"modelcatalog/internal/pipeline"
	"modelcatalog/internal/storage"
)

func newLoadCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Load a dump (the default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, opts)
		},
	}
}

func runLoad(cmd *cobra.Command, opts *options) error {
	ctx := cmd.Context()
	p, err := resolveValid(cmd, opts)
	if err != nil {
		return err
	}

	flush, err := setupMetrics(p)
	if err != nil {
		return err
	}
	defer flush()

	src, err := buildSource(p)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, p)
	if err != nil {
		return err
	}
	defer store.Close()

	log.WithFields(log.Fields{
		"job":         p.Job,
		"source":      p.Source.Kind,
		"storage":     p.Storage.Kind,
		"batch_size":  p.Runtime.BatchSize,
		"workers":     p.Runtime.Workers,
		"on_conflict": p.Runtime.OnConflict,
	}).Info("starting load")

	d, err := pipeline.New(src, store, pipeline.Options{
		Job:             p.Job,
		BatchSize:       p.Runtime.BatchSize,
		Workers:         p.Runtime.Workers,
		ProgressEvery:   p.Runtime.ProgressEvery,
		MaxLoggedErrors: p.Runtime.MaxLoggedErrors,
	})
	if err != nil {
		return err
	}
	sum, err := d.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(),
		"lines=%d processed=%d written=%d line_errors=%d write_errors=%d batches=%d\n",
		sum.Lines, sum.Processed, sum.Written, sum.LineErrors, sum.WriteErrors, sum.Batches)
	return nil
}

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the effective configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := resolveValid(cmd, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration is valid: job=%s source=%s storage=%s\n",
				p.Job, p.Source.Kind, p.Storage.Kind)
			return nil
		},
	}
}

func newDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete MODEL_ID...",
		Short: "Delete models and all of their child rows",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := resolveValid(cmd, opts)
			if err != nil {
				return err
			}
			store, err := openStore(ctx, p)
			if err != nil {
				return err
			}
			defer store.Close()

			var missing []string
			for _, id := range args {
				found, err := store.DeleteModel(ctx, id)
				if err != nil {
					return errors.Wrapf(err, "delete %s", id)
				}
				if !found {
					missing = append(missing, id)
					continue
				}
				log.WithField("model", id).Info("deleted")
			}
			if _, err := store.RecomputeDerivativeCounts(ctx); err != nil {
				log.WithError(err).Warn("derivative count aggregation failed")
			}
			if len(missing) > 0 {
				return errors.Errorf("not found: %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}
}

func newBackendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List compiled-in storage backends",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, k := range storage.ListKinds() {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
		},
	}
}
