package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pdiddy/wikiplace/internal/input"
	"github.com/pdiddy/wikiplace/internal/metrics"
)

// Progress is one throughput sample.
type Progress struct {
	CompressedRate   float64 // bytes per second since the previous sample
	DecompressedRate float64
	Percent          float64 // of the compressed input; 0 when the length is unknown
	ETA              time.Duration
	ETAKnown         bool
}

// ComputeProgress derives throughput and remaining time from two counter
// snapshots taken elapsed apart.
func ComputeProgress(prev, cur input.Counters, elapsed time.Duration) Progress {
	var p Progress
	if secs := elapsed.Seconds(); secs > 0 {
		p.CompressedRate = float64(cur.Compressed-prev.Compressed) / secs
		p.DecompressedRate = float64(cur.Decompressed-prev.Decompressed) / secs
	}
	if cur.Total > 0 {
		p.Percent = 100 * float64(cur.Compressed) / float64(cur.Total)
		remaining := cur.Total - cur.Compressed
		if remaining < 0 {
			remaining = 0
		}
		if p.CompressedRate > 0 {
			p.ETA = time.Duration(float64(remaining) / p.CompressedRate * float64(time.Second))
			p.ETAKnown = true
		}
	}
	return p
}

// FormatETA renders a duration in minutes, switching to hours above an
// hour and to days above a day.
func FormatETA(d time.Duration) string {
	minutes := d.Minutes()
	switch {
	case minutes > 24*60:
		return fmt.Sprintf("%.1f days", minutes/(24*60))
	case minutes > 60:
		return fmt.Sprintf("%.1f hours", minutes/60)
	default:
		return fmt.Sprintf("%.1f minutes", minutes)
	}
}

// progress tracks the previous sample. It is only used by the reader.
type progress struct {
	logger  *slog.Logger
	metrics *metrics.Pipeline
	last    input.Counters
	lastAt  time.Time
}

func newProgress(logger *slog.Logger, m *metrics.Pipeline, start time.Time) *progress {
	return &progress{logger: logger, metrics: m, lastAt: start}
}

func (p *progress) report(cur input.Counters) {
	at := time.Now()
	sample := ComputeProgress(p.last, cur, at.Sub(p.lastAt))
	p.last, p.lastAt = cur, at

	p.metrics.InputBytes(cur.Compressed, cur.Decompressed)

	eta := "unknown"
	if sample.ETAKnown {
		eta = FormatETA(sample.ETA)
	}
	p.logger.Info("progress",
		"compressed", humanize.IBytes(uint64(sample.CompressedRate))+"/s",
		"decompressed", humanize.IBytes(uint64(sample.DecompressedRate))+"/s",
		"percent", fmt.Sprintf("%.2f", sample.Percent),
		"eta", eta,
	)
}
