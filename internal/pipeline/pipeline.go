// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives a dump through extraction into a fact sink.
//
// One reader (the caller of Run) pulls lines from the source and admits
// them to a bounded worker pool. Workers extract facts and send them over a
// bounded channel to a single consumer, which is the only goroutine that
// touches the sink. Cancellation stops the reader; everything already
// admitted is extracted and written before Run returns.
package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"
	"golang.org/x/time/rate"

	"github.com/pdiddy/wikiplace/internal/input"
	"github.com/pdiddy/wikiplace/internal/metrics"
	"github.com/pdiddy/wikiplace/pkg/types"
)

// ErrSinkClosed is reported for facts that could not be sent because the
// consumer stopped after a sink failure.
var ErrSinkClosed = errors.New("fact sink closed")

const defaultFactBuffer = 4096

// Sink persists facts. It is only ever called from one goroutine.
type Sink interface {
	Write(ctx context.Context, f types.Fact) error
	Flush(ctx context.Context) error
}

// Extractor turns one line into facts.
type Extractor interface {
	Extract(line []byte, now time.Time) ([]types.Fact, error)
}

// State is a pipeline run state.
type State int

const (
	Running State = iota
	Cancelled
	ExhaustedInput
	SinkFailed
	SourceFailed
	Draining
	Done
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Cancelled:
		return "cancelled"
	case ExhaustedInput:
		return "exhausted_input"
	case SinkFailed:
		return "sink_failed"
	case SourceFailed:
		return "source_failed"
	case Draining:
		return "draining"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Summary reports a finished run.
type Summary struct {
	// State is Done once Run has returned; StopReason is the state that
	// ended reading.
	State        State
	StopReason   State
	Lines        int64
	Records      int64
	Facts        int64
	RecordErrors int64
	SendFailures int64
	Elapsed      time.Duration
	Input        input.Counters
}

// Pipeline holds the collaborators of a run.
type Pipeline struct {
	extractor Extractor
	sink      Sink
	cfg       types.PipelineConfig
	logger    *slog.Logger
	metrics   *metrics.Pipeline

	// Now is the evaluation time handed to the extractor, fixed per run.
	Now func() time.Time
}

// New returns a Pipeline. A nil logger discards output; nil metrics
// record nothing.
func New(x Extractor, sink Sink, cfg types.PipelineConfig, logger *slog.Logger, m *metrics.Pipeline) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.FactBuffer <= 0 {
		cfg.FactBuffer = defaultFactBuffer
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = 10 * time.Second
	}
	return &Pipeline{extractor: x, sink: sink, cfg: cfg, logger: logger, metrics: m, Now: time.Now}
}

// counters are shared between workers, the consumer and the reader.
type counters struct {
	facts        atomic.Int64
	recordErrors atomic.Int64
	sendFailures atomic.Int64
}

// Run processes src until it is exhausted, ctx is cancelled, or the sink
// fails. It returns the sink or source error that stopped the run;
// cancellation is not an error.
func (p *Pipeline) Run(ctx context.Context, src input.Source) (Summary, error) {
	start := time.Now()
	now := p.Now()
	var c counters

	facts := make(chan types.Fact, p.cfg.FactBuffer)
	failed := make(chan struct{})
	consumerDone := make(chan struct{})
	var sinkErr error

	// The consumer outlives cancellation so that admitted work is kept.
	writeCtx := context.WithoutCancel(ctx)
	go func() {
		defer close(consumerDone)
		for f := range facts {
			if sinkErr != nil {
				continue
			}
			if err := p.sink.Write(writeCtx, f); err != nil {
				sinkErr = err
				close(failed)
				continue
			}
			c.facts.Add(1)
			p.metrics.FactWritten(f.Kind())
		}
	}()

	workers := pool.New().WithMaxGoroutines(p.cfg.Workers)
	progress := newProgress(p.logger, p.metrics, start)
	gate := rate.Sometimes{Interval: p.cfg.ProgressInterval}

	var (
		lines, records int64
		readErr        error
		reason         State
	)
	p.logger.Debug("pipeline state", "state", Running)

read:
	for {
		if ctx.Err() != nil {
			reason = Cancelled
			break
		}
		select {
		case <-failed:
			reason = SinkFailed
			break read
		default:
		}

		offset := src.Offset()
		line, err := src.Next()
		if errors.Is(err, io.EOF) {
			reason = ExhaustedInput
			break
		}
		if err != nil {
			// A read interrupted by cancellation abandons the in-flight line.
			if ctx.Err() != nil {
				reason = Cancelled
				break
			}
			reason, readErr = SourceFailed, err
			break
		}
		lines++
		p.metrics.LineRead()
		gate.Do(func() { progress.report(src.Counters()) })

		if len(line) <= 1 {
			continue
		}
		records++
		lineNo := lines
		workers.Go(func() {
			p.process(line, lineNo, offset, now, facts, failed, &c)
		})
	}

	p.logger.Debug("pipeline state", "state", reason)
	p.logger.Debug("pipeline state", "state", Draining)
	workers.Wait()
	close(facts)
	<-consumerDone

	if sinkErr == nil {
		sinkErr = p.sink.Flush(writeCtx)
	}
	if sinkErr != nil {
		reason = SinkFailed
	}

	summary := Summary{
		State:        Done,
		StopReason:   reason,
		Lines:        lines,
		Records:      records,
		Facts:        c.facts.Load(),
		RecordErrors: c.recordErrors.Load(),
		SendFailures: c.sendFailures.Load(),
		Elapsed:      time.Since(start),
		Input:        src.Counters(),
	}
	p.metrics.InputBytes(summary.Input.Compressed, summary.Input.Decompressed)
	p.logger.Debug("pipeline state", "state", Done)

	if sinkErr != nil {
		return summary, sinkErr
	}
	return summary, readErr
}

// process extracts one record and sends its facts in order.
func (p *Pipeline) process(line []byte, lineNo, offset int64, now time.Time, facts chan<- types.Fact, failed <-chan struct{}, c *counters) {
	p.metrics.Started()
	t0 := time.Now()
	defer func() { p.metrics.Finished(time.Since(t0)) }()

	fs, err := p.extractor.Extract(line, now)
	if err != nil {
		c.recordErrors.Add(1)
		p.metrics.RecordError()
		p.logger.Warn("skipping record", "line", lineNo, "offset", offset, "error", err)
		return
	}
	for _, f := range fs {
		select {
		case facts <- f:
		case <-failed:
			c.sendFailures.Add(1)
			p.metrics.SendFailure()
			p.logger.Warn("dropping record", "line", lineNo, "offset", offset, "entity", f.EntityID(), "error", ErrSinkClosed)
			return
		}
	}
}
