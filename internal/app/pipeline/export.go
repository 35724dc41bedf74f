package pipeline

import (
	"context"
	"time"

	"github.com/ghalamif/simtemp/internal/domain"
	"github.com/ghalamif/simtemp/internal/ports"
)

// RunExportPipeline drains the queue into every sink until ctx is done, then
// flushes what is left. Failed batches are dropped, not retried.
func RunExportPipeline(ctx context.Context, q ports.SampleQueue, sinks []ports.Sink, pol ports.Policy, obs ports.Observability) {
	idle := pol.IdleSleep
	if idle <= 0 {
		idle = 5 * time.Millisecond
	}

	for {
		select {
		case <-ctx.Done():
			for exportBatch(q, sinks, pol, obs) {
			}
			return
		default:
		}

		if !exportBatch(q, sinks, pol, obs) {
			select {
			case <-ctx.Done():
			case <-time.After(idle):
			}
		}
	}
}

// exportBatch reports whether a batch was taken from the queue.
func exportBatch(q ports.SampleQueue, sinks []ports.Sink, pol ports.Policy, obs ports.Observability) bool {
	batch := q.DequeueBatch(pol.MaxBatchSize)
	if len(batch) == 0 {
		return false
	}
	obs.SetGauge("simtemp_export_queue_length", float64(q.Len()))

	start := time.Now()
	for _, sink := range sinks {
		if err := sink.WriteBatch(batch); err != nil {
			obs.LogError("sink_write_failed", err,
				ports.Field{Key: "sink", Value: sink.Name()},
				ports.Field{Key: "samples", Value: len(batch)})
			recordDropped(batch, err, obs)
			continue
		}
		obs.IncCounter("simtemp_export_batches_total", 1)
	}
	obs.ObserveLatency("simtemp_export_sink_latency_seconds", time.Since(start).Seconds())
	return true
}

func recordDropped(batch []*domain.Sample, err error, obs ports.Observability) {
	for _, s := range batch {
		obs.RecordDrop(s, err)
	}
}
