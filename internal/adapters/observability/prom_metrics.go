package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ghalamif/simtemp/internal/domain"
	"github.com/ghalamif/simtemp/internal/ports"
)

type PromObs struct {
	reg      *prometheus.Registry
	log      logrus.FieldLogger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromObs registers the engine metrics on reg, or on a fresh registry when
// reg is nil. A nil logger falls back to the logrus standard logger.
func NewPromObs(reg *prometheus.Registry, logger logrus.FieldLogger) *PromObs {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	samples := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simtemp_samples_total",
		Help: "Sampling cycles completed.",
	})
	crossings := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simtemp_threshold_crossings_total",
		Help: "Cycles where the reading rose above the threshold after being at or below it.",
	})
	writeErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simtemp_attribute_write_errors_total",
		Help: "Attribute writes rejected by the store.",
	})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simtemp_export_dropped_total",
		Help: "Samples not delivered to sinks (queue full or sink failure).",
	})
	batches := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "simtemp_export_batches_total",
		Help: "Sample batches written to sinks.",
	})
	reading := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "simtemp_reading_millicelsius",
		Help: "Last simulated reading in milli-degrees Celsius.",
	})
	alert := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "simtemp_alert_asserted",
		Help: "1 while the last reading exceeds the threshold.",
	})
	queueLen := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "simtemp_export_queue_length",
		Help: "Samples buffered for export.",
	})
	cycle := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "simtemp_cycle_duration_seconds",
		Help:    "Time spent in one sampling cycle.",
		Buckets: prometheus.ExponentialBuckets(0.00001, 2, 12),
	})
	sinkLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "simtemp_export_sink_latency_seconds",
		Help:    "Latency of one batch write across all sinks.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	reg.MustRegister(samples, crossings, writeErrors, dropped, batches, reading, alert, queueLen, cycle, sinkLatency)

	return &PromObs{
		reg: reg,
		log: logger,
		counters: map[string]prometheus.Counter{
			"simtemp_samples_total":                samples,
			"simtemp_threshold_crossings_total":    crossings,
			"simtemp_attribute_write_errors_total": writeErrors,
			"simtemp_export_dropped_total":         dropped,
			"simtemp_export_batches_total":         batches,
		},
		gauges: map[string]prometheus.Gauge{
			"simtemp_reading_millicelsius": reading,
			"simtemp_alert_asserted":       alert,
			"simtemp_export_queue_length":  queueLen,
		},
		histos: map[string]prometheus.Observer{
			"simtemp_cycle_duration_seconds":      cycle,
			"simtemp_export_sink_latency_seconds": sinkLatency,
		},
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PromObs) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{Registry: p.reg})
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.log.WithFields(toLogrus(fields)).Info(msg)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	if err != nil {
		p.log.WithFields(toLogrus(fields)).WithError(err).Error(msg)
	}
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	if err != nil {
		p.log.WithFields(toLogrus(fields)).WithError(err).WithField("critical", true).Error(msg)
	}
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) RecordDrop(s *domain.Sample, err error) {
	p.IncCounter("simtemp_export_dropped_total", 1)
	if err == nil {
		return
	}
	entry := p.log.WithError(err)
	if s != nil {
		entry = entry.WithFields(logrus.Fields{"sensor_id": s.SensorID, "seq": s.Seq})
	}
	entry.Warn("sample_dropped")
}

func toLogrus(fields []ports.Field) logrus.Fields {
	out := make(logrus.Fields, len(fields))
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
