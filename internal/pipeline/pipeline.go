// Package pipeline drives one catalog load: open the input, make sure the
// schema exists, stream and normalize every line, write entries in batches
// and finally recompute derivative counts.
//
// A run moves through Init, SchemaReady, Streaming, Aggregating and Done.
// Any fatal error moves it to Failed. Per-line and per-record problems are
// counted and never stop the run.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"modelcatalog/internal/datasource"
	"modelcatalog/internal/metrics"
	jsonl "modelcatalog/internal/parser/json"
	"modelcatalog/internal/schema"
	"modelcatalog/internal/storage"
	"modelcatalog/internal/transformer"
)

// Defaults applied to zero Options fields.
const (
	DefaultProgressEvery   = 10000
	DefaultMaxLoggedErrors = 10
)

// Options configure a Driver.
type Options struct {
	// Job labels logs and metrics.
	Job string
	// BatchSize is the number of entries per transaction.
	BatchSize int
	// Workers is the number of write shards. Entries are routed by a hash
	// of the model id, so shards write disjoint id sets.
	Workers int
	// ProgressEvery logs progress every N physical lines.
	ProgressEvery int
	// MaxLoggedErrors caps individually logged line and write errors.
	MaxLoggedErrors int
	Logger          log.FieldLogger
}

func (o Options) withDefaults() Options {
	if o.Job == "" {
		o.Job = "modelcatalog"
	}
	if o.BatchSize <= 0 {
		o.BatchSize = storage.DefaultBatchSize
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = DefaultProgressEvery
	}
	if o.MaxLoggedErrors <= 0 {
		o.MaxLoggedErrors = DefaultMaxLoggedErrors
	}
	if o.Logger == nil {
		o.Logger = log.StandardLogger()
	}
	return o
}

// Summary reports the outcome of a run. It is returned for failed runs too,
// holding whatever was counted before the failure.
type Summary struct {
	Lines       int64 // physical lines, blank ones included
	Blank       int64
	Processed   int64 // lines normalized into an entry
	Written     int64 // entries committed
	LineErrors  int64 // undecodable or unnormalizable lines
	WriteErrors int64 // entries rejected by the store
	Batches     int64

	// DerivativesUpdated is the row count of the aggregation update.
	DerivativesUpdated int64
	// AggregationErr is set when the aggregation failed. The run still ends
	// in Done because the loaded rows are committed.
	AggregationErr error

	States   []State
	Duration time.Duration
}

// Fields renders s for structured logging.
func (s *Summary) Fields() log.Fields {
	f := log.Fields{
		"lines":        s.Lines,
		"blank":        s.Blank,
		"processed":    s.Processed,
		"written":      s.Written,
		"line_errors":  s.LineErrors,
		"write_errors": s.WriteErrors,
		"batches":      s.Batches,
		"derivatives":  s.DerivativesUpdated,
		"states":       fmt.Sprint(s.States),
		"elapsed":      s.Duration.Truncate(time.Millisecond),
	}
	if s.AggregationErr != nil {
		f["aggregation_error"] = s.AggregationErr.Error()
	}
	return f
}

// counters are shared by the router and the shard writers.
type counters struct {
	processed   atomic.Int64
	written     atomic.Int64
	lineErrors  atomic.Int64
	writeErrors atomic.Int64
	batches     atomic.Int64
}

// Driver runs one load. It is single-use.
type Driver struct {
	source datasource.Source
	store  storage.Store
	opts   Options
	log    log.FieldLogger

	mu      sync.Mutex
	state   State
	history []State

	stats     counters
	lineAgg   *errAgg
	writeAgg  *errAgg
	buildFunc func(obj map[string]any, raw []byte) (*schema.Entry, error)
}

// New returns a Driver in state Init.
func New(src datasource.Source, store storage.Store, opts Options) (*Driver, error) {
	if src == nil {
		return nil, errors.New("pipeline: source must not be nil")
	}
	if store == nil {
		return nil, errors.New("pipeline: store must not be nil")
	}
	opts = opts.withDefaults()
	d := &Driver{
		source:    src,
		store:     store,
		opts:      opts,
		log:       opts.Logger.WithField("job", opts.Job),
		lineAgg:   newErrAgg(opts.MaxLoggedErrors),
		writeAgg:  newErrAgg(opts.MaxLoggedErrors),
		buildFunc: transformer.BuildEntry,
	}
	d.enter(StateInit)
	return d, nil
}

// State returns the current state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// History returns every state entered so far, in order.
func (d *Driver) History() []State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]State(nil), d.history...)
}

func (d *Driver) enter(s State) {
	d.mu.Lock()
	if d.state != "" && !CanTransition(d.state, s) {
		d.mu.Unlock()
		panic(fmt.Sprintf("pipeline: illegal transition %s -> %s", d.state, s))
	}
	d.state = s
	d.history = append(d.history, s)
	d.mu.Unlock()

	metrics.RecordState(d.opts.Job, string(s))
	d.log.WithField("state", s).Debug("pipeline state")
}

// Run executes the load. The error is non-nil exactly when the run ends in
// Failed.
func (d *Driver) Run(ctx context.Context) (*Summary, error) {
	if d.State() != StateInit {
		return nil, errors.Errorf("pipeline: run already started (state %s)", d.State())
	}
	start := time.Now()
	sum := &Summary{}
	finish := func(err error) (*Summary, error) {
		if err != nil {
			d.enter(StateFailed)
		}
		d.fillSummary(sum)
		sum.Duration = time.Since(start)
		d.recordMetrics(sum)
		d.logSummary(sum, err)
		return sum, err
	}

	rc, err := d.source.Open(ctx)
	if err != nil {
		return finish(errors.Wrap(err, "open input"))
	}
	defer rc.Close()

	stepStart := time.Now()
	err = d.store.EnsureSchema(ctx)
	metrics.RecordStep(d.opts.Job, "schema", err, time.Since(stepStart))
	if err != nil {
		return finish(errors.Wrap(err, "ensure schema"))
	}
	d.enter(StateSchemaReady)

	d.enter(StateStreaming)
	stepStart = time.Now()
	st, err := d.stream(ctx, rc)
	metrics.RecordStep(d.opts.Job, "stream", err, time.Since(stepStart))
	sum.Lines, sum.Blank = int64(st.Lines), int64(st.Blank)
	if err != nil {
		return finish(errors.Wrap(err, "stream"))
	}

	d.enter(StateAggregating)
	stepStart = time.Now()
	n, aggErr := d.store.RecomputeDerivativeCounts(ctx)
	metrics.RecordStep(d.opts.Job, "aggregate", aggErr, time.Since(stepStart))
	if aggErr != nil {
		sum.AggregationErr = aggErr
		d.log.WithError(aggErr).Warn("derivative count aggregation failed; counts may be stale")
	} else {
		sum.DerivativesUpdated = n
	}
	d.enter(StateDone)
	return finish(nil)
}

// stream reads lines, builds entries and fans them out to the shard
// writers. It returns once every shard has flushed.
func (d *Driver) stream(ctx context.Context, r io.Reader) (jsonl.Stats, error) {
	g, gctx := errgroup.WithContext(ctx)

	lines := make(chan jsonl.Line, 256)
	var st jsonl.Stats
	g.Go(func() error {
		defer close(lines)
		var err error
		st, err = jsonl.StreamLines(gctx, r, lines, func(s jsonl.Stats) {
			if s.Lines%d.opts.ProgressEvery == 0 {
				d.logProgress(s.Lines)
			}
		})
		return err
	})

	shards := make([]chan *schema.Entry, d.opts.Workers)
	for i := range shards {
		ch := make(chan *schema.Entry, 64)
		shards[i] = ch
		shard := i
		g.Go(func() error { return d.runShard(gctx, shard, ch) })
	}

	g.Go(func() error {
		defer func() {
			for _, ch := range shards {
				close(ch)
			}
		}()
		for ln := range lines {
			e, ok := d.build(ln)
			if ok {
				select {
				case shards[d.shardOf(e.Model.ID)] <- e:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
		}
		return nil
	})

	err := g.Wait()
	return st, err
}

// build turns one line into an entry. Failures are counted and the first
// few are logged.
func (d *Driver) build(ln jsonl.Line) (*schema.Entry, bool) {
	err := ln.Err
	var e *schema.Entry
	if err == nil {
		e, err = d.buildFunc(ln.Object, ln.Raw)
	}
	if err != nil {
		d.stats.lineErrors.Add(1)
		if d.lineAgg.add(fmt.Sprintf("line %d: %v", ln.Number, err)) {
			d.log.WithError(err).WithField("line", ln.Number).Warn("skipping line")
		}
		return nil, false
	}
	d.stats.processed.Add(1)
	return e, true
}

func (d *Driver) shardOf(id string) int {
	if d.opts.Workers == 1 {
		return 0
	}
	return int(xxh3.HashString(id) % uint64(d.opts.Workers))
}

// runShard owns one BatchWriter and therefore one transaction at a time.
func (d *Driver) runShard(ctx context.Context, shard int, in <-chan *schema.Entry) error {
	logger := d.log.WithField("shard", shard)
	w, err := storage.NewBatchWriter(d.store, d.opts.BatchSize, d.onResult)
	if err != nil {
		return err
	}
	w.WithLogger(logger)

	defer func() { d.stats.batches.Add(w.Stats().Batches) }()
	for e := range in {
		if err := w.Add(ctx, e); err != nil {
			return errors.Wrapf(err, "shard %d", shard)
		}
	}
	if err := w.Close(ctx); err != nil {
		return errors.Wrapf(err, "shard %d", shard)
	}
	return nil
}

func (d *Driver) onResult(r storage.Result) {
	if r.Err == nil {
		d.stats.written.Add(1)
		return
	}
	d.stats.writeErrors.Add(1)
	if d.writeAgg.add(fmt.Sprintf("%s: %v", r.ID, r.Err)) {
		d.log.WithError(r.Err).WithField("model", r.ID).Warn("record not written")
	}
}

func (d *Driver) logProgress(line int) {
	d.log.WithFields(log.Fields{
		"lines":        line,
		"processed":    d.stats.processed.Load(),
		"written":      d.stats.written.Load(),
		"line_errors":  d.stats.lineErrors.Load(),
		"write_errors": d.stats.writeErrors.Load(),
	}).Info("progress")
}

func (d *Driver) fillSummary(s *Summary) {
	s.Processed = d.stats.processed.Load()
	s.Written = d.stats.written.Load()
	s.LineErrors = d.stats.lineErrors.Load()
	s.WriteErrors = d.stats.writeErrors.Load()
	s.Batches = d.stats.batches.Load()
	s.States = d.History()
}

func (d *Driver) recordMetrics(s *Summary) {
	job := d.opts.Job
	metrics.RecordRow(job, metrics.KindLines, s.Lines)
	metrics.RecordRow(job, metrics.KindProcessed, s.Processed)
	metrics.RecordRow(job, metrics.KindWritten, s.Written)
	metrics.RecordRow(job, metrics.KindLineErrors, s.LineErrors)
	metrics.RecordRow(job, metrics.KindWriteErrors, s.WriteErrors)
	metrics.RecordBatches(job, s.Batches)
}

func (d *Driver) logSummary(s *Summary, err error) {
	if n, first := d.lineAgg.snapshot(); n > int64(len(first)) {
		d.log.Warnf("line errors: %d (logged first %d)", n, len(first))
	}
	if n, first := d.writeAgg.snapshot(); n > int64(len(first)) {
		d.log.Warnf("write errors: %d (logged first %d)", n, len(first))
	}
	entry := d.log.WithFields(s.Fields())
	if err != nil {
		entry.WithError(err).Error("load failed")
		return
	}
	entry.Info("load finished")
}
