package pipeline

import (
	"errors"

	"github.com/ghalamif/simtemp/internal/domain"
	"github.com/ghalamif/simtemp/internal/ports"
)

var errQueueFull = errors.New("export queue full")

// Offer hands a sample to the export queue without blocking the caller. A
// full queue drops the sample and reports it to obs.
func Offer(q ports.SampleQueue, s *domain.Sample, obs ports.Observability) bool {
	if q == nil {
		return false
	}
	if q.Enqueue(s) {
		obs.SetGauge("simtemp_export_queue_length", float64(q.Len()))
		return true
	}
	obs.RecordDrop(s, errQueueFull)
	return false
}
