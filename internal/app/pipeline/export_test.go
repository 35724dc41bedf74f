package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ghalamif/simtemp/internal/domain"
	"github.com/ghalamif/simtemp/internal/ports"
)

func TestOfferDropsWhenQueueFull(t *testing.T) {
	q := &mockQueue{capacity: 1}
	obs := &mockObs{}

	if !Offer(q, &domain.Sample{Seq: 1}, obs) {
		t.Fatalf("expected first offer to succeed")
	}
	if Offer(q, &domain.Sample{Seq: 2}, obs) {
		t.Fatalf("expected second offer to be dropped")
	}
	if len(obs.drops) != 1 || obs.drops[0].Seq != 2 {
		t.Fatalf("expected drop of seq 2, got %+v", obs.drops)
	}
}

func TestOfferNilQueue(t *testing.T) {
	if Offer(nil, &domain.Sample{}, &mockObs{}) {
		t.Fatalf("expected nil queue to reject")
	}
}

func TestExportBatchWritesEverySink(t *testing.T) {
	q := &mockQueue{capacity: 10}
	for i := 1; i <= 3; i++ {
		q.Enqueue(&domain.Sample{Seq: uint64(i)})
	}
	a, b := &mockSink{name: "a"}, &mockSink{name: "b"}
	obs := &mockObs{}

	if !exportBatch(q, []ports.Sink{a, b}, ports.Policy{MaxBatchSize: 2}, obs) {
		t.Fatalf("expected a batch to be exported")
	}
	if len(a.batches) != 1 || len(a.batches[0]) != 2 || len(b.batches) != 1 {
		t.Fatalf("expected both sinks to receive a batch of 2, got a=%v b=%v", a.batches, b.batches)
	}
	if q.Len() != 1 {
		t.Fatalf("expected one sample left, got %d", q.Len())
	}
	if obs.counter("simtemp_export_batches_total") != 2 {
		t.Fatalf("expected 2 batch writes counted")
	}
}

func TestExportBatchSinkFailureDrops(t *testing.T) {
	q := &mockQueue{capacity: 10}
	q.Enqueue(&domain.Sample{Seq: 1})
	bad := &mockSink{name: "bad", err: errors.New("down")}
	good := &mockSink{name: "good"}
	obs := &mockObs{}

	exportBatch(q, []ports.Sink{bad, good}, ports.Policy{MaxBatchSize: 10}, obs)

	if len(obs.errors) != 1 {
		t.Fatalf("expected sink failure to be logged")
	}
	if len(obs.drops) != 1 {
		t.Fatalf("expected failed sample to be recorded as dropped")
	}
	if len(good.batches) != 1 {
		t.Fatalf("a failing sink must not starve the others")
	}
}

func TestExportBatchEmptyQueue(t *testing.T) {
	if exportBatch(&mockQueue{capacity: 1}, nil, ports.Policy{}, &mockObs{}) {
		t.Fatalf("expected no batch from an empty queue")
	}
}

func TestRunExportPipelineFlushesOnCancel(t *testing.T) {
	q := &mockQueue{capacity: 100}
	sink := &mockSink{name: "s"}
	obs := &mockObs{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		RunExportPipeline(ctx, q, []ports.Sink{sink}, ports.Policy{MaxBatchSize: 4, IdleSleep: time.Millisecond}, obs)
		close(done)
	}()

	for i := 1; i <= 10; i++ {
		Offer(q, &domain.Sample{Seq: uint64(i)}, obs)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("pipeline did not stop")
	}

	if q.Len() != 0 {
		t.Fatalf("expected queue flushed, %d left", q.Len())
	}
	var seqs []uint64
	for _, b := range sink.snapshot() {
		for _, s := range b {
			seqs = append(seqs, s.Seq)
		}
	}
	if len(seqs) != 10 {
		t.Fatalf("expected 10 exported samples, got %d", len(seqs))
	}
	for i, s := range seqs {
		if s != uint64(i+1) {
			t.Fatalf("export out of order at %d: %v", i, seqs)
		}
	}
}

type mockQueue struct {
	mu       sync.Mutex
	capacity int
	data     []*domain.Sample
}

func (m *mockQueue) Enqueue(s *domain.Sample) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.data) >= m.capacity {
		return false
	}
	m.data = append(m.data, s)
	return true
}

func (m *mockQueue) DequeueBatch(max int) []*domain.Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	if max <= 0 || max > len(m.data) {
		max = len(m.data)
	}
	if max == 0 {
		return nil
	}
	out := append([]*domain.Sample(nil), m.data[:max]...)
	m.data = m.data[max:]
	return out
}

func (m *mockQueue) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

type mockSink struct {
	mu      sync.Mutex
	name    string
	err     error
	batches [][]*domain.Sample
}

func (m *mockSink) WriteBatch(samples []*domain.Sample) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	m.batches = append(m.batches, samples)
	m.mu.Unlock()
	return nil
}

func (m *mockSink) Name() string { return m.name }

func (m *mockSink) snapshot() [][]*domain.Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]*domain.Sample(nil), m.batches...)
}

type mockObs struct {
	mu       sync.Mutex
	errors   []error
	drops    []*domain.Sample
	counters map[string]float64
}

func (m *mockObs) LogInfo(string, ...ports.Field) {}
func (m *mockObs) LogError(_ string, err error, _ ...ports.Field) {
	m.mu.Lock()
	m.errors = append(m.errors, err)
	m.mu.Unlock()
}
func (m *mockObs) LogCritical(string, error, ...ports.Field) {}
func (m *mockObs) IncCounter(name string, v float64) {
	m.mu.Lock()
	if m.counters == nil {
		m.counters = map[string]float64{}
	}
	m.counters[name] += v
	m.mu.Unlock()
}
func (m *mockObs) ObserveLatency(string, float64) {}
func (m *mockObs) SetGauge(string, float64)       {}
func (m *mockObs) RecordDrop(s *domain.Sample, _ error) {
	m.mu.Lock()
	m.drops = append(m.drops, s)
	m.mu.Unlock()
}

func (m *mockObs) counter(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}
