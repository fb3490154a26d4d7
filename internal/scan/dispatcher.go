package scan

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vulnsight/vulnsight/api/schemas"
	"github.com/vulnsight/vulnsight/internal/config"
)

// Dispatcher fans the invoker out across a probe set and fans the classified
// results back in. Probes run concurrently and isolated; one probe's failure
// never aborts its siblings.
type Dispatcher struct {
	source       schemas.ProbeSource
	logger       *zap.Logger
	concurrency  int
	probeTimeout time.Duration
	batchTimeout time.Duration
}

// NewDispatcher builds a dispatcher over the given probe source.
func NewDispatcher(source schemas.ProbeSource, logger *zap.Logger, cfg config.ProbesConfig) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Dispatcher{
		source:       source,
		logger:       logger.Named("dispatcher"),
		concurrency:  concurrency,
		probeTimeout: cfg.Timeout,
		batchTimeout: cfg.BatchTimeout,
	}
}

type outcome struct {
	id     string
	result schemas.RawResult
}

// DispatchAll runs every requested probe against the target and returns one
// classified result per requested identifier — success, classified block, or
// synthesized error, never a silent drop. Fan-in waits for every dispatched
// probe; the merge itself is serialized in this goroutine.
func (d *Dispatcher) DispatchAll(ctx context.Context, ids []string, target string) map[string]schemas.RawResult {
	if d.batchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.batchTimeout)
		defer cancel()
	}

	d.logger.Info("Dispatching probes",
		zap.Int("count", len(ids)),
		zap.String("target", target))

	out := make(chan outcome, len(ids))

	// errgroup only bounds concurrency here; workers never return an error
	// because every fault is converted into result data.
	g := new(errgroup.Group)
	g.SetLimit(d.concurrency)

	for _, id := range ids {
		g.Go(func() error {
			out <- outcome{id: id, result: d.runOne(ctx, id, target)}
			return nil
		})
	}

	go func() {
		g.Wait() //nolint:errcheck // workers never fail
		close(out)
	}()

	results := make(map[string]schemas.RawResult, len(ids))
	for o := range out {
		results[o.id] = o.result
	}
	return results
}

// runOne resolves, invokes and classifies a single probe.
func (d *Dispatcher) runOne(ctx context.Context, id, target string) schemas.RawResult {
	capability, err := d.source.Resolve(id)
	if err != nil {
		d.logger.Warn("Probe not found, synthesizing error result", zap.String("probe", id))
		return schemas.RawResult{"error": fmt.Sprintf("Probe '%s' not found", id)}
	}

	start := time.Now()
	result := Classify(Invoke(ctx, capability, target, d.probeTimeout))
	d.logger.Debug("Probe finished",
		zap.String("probe", id),
		zap.Duration("elapsed", time.Since(start)))
	return result
}
