package simtemp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ghalamif/simtemp/internal/adapters/httpapi"
	"github.com/ghalamif/simtemp/internal/adapters/observability"
	"github.com/ghalamif/simtemp/internal/adapters/opcua"
	"github.com/ghalamif/simtemp/internal/adapters/queue"
	"github.com/ghalamif/simtemp/internal/adapters/sink"
	"github.com/ghalamif/simtemp/internal/app/pipeline"
	"github.com/ghalamif/simtemp/internal/attr"
	"github.com/ghalamif/simtemp/internal/domain"
	"github.com/ghalamif/simtemp/internal/notify"
	"github.com/ghalamif/simtemp/internal/ports"
	"github.com/ghalamif/simtemp/internal/scheduler"
	"github.com/ghalamif/simtemp/internal/sensor"
)

// dialTimeout bounds the connection attempts made by NewEngine.
const dialTimeout = 5 * time.Second

// EngineOption customizes the dependencies used by Engine.
type EngineOption func(*engineOverrides)

type engineOverrides struct {
	sinks         []Sink
	queue         SampleQueue
	observability Observability
	noise         func() uint16
	disableHTTP   bool
	skipDial      bool
}

// WithSink adds a sink to the export path. It may be given more than once.
func WithSink(s Sink) EngineOption {
	return func(o *engineOverrides) {
		if s != nil {
			o.sinks = append(o.sinks, s)
		}
	}
}

// WithSampleQueue replaces the bounded in-memory export queue.
func WithSampleQueue(q SampleQueue) EngineOption {
	return func(o *engineOverrides) {
		o.queue = q
	}
}

// WithObservability plugs in a custom observability backend. The /metrics
// route is only served for the default Prometheus backend.
func WithObservability(obs Observability) EngineOption {
	return func(o *engineOverrides) {
		o.observability = obs
	}
}

// WithNoise replaces the random source used by the noisy mode.
func WithNoise(fn func() uint16) EngineOption {
	return func(o *engineOverrides) {
		o.noise = fn
	}
}

// WithoutHTTP keeps the engine off the network; attributes and events are
// still available through the Engine methods.
func WithoutHTTP() EngineOption {
	return func(o *engineOverrides) {
		o.disableHTTP = true
	}
}

// WithoutConfiguredSinks ignores the redis, amqp and opcua sections of the
// config. Sinks passed through WithSink are still used.
func WithoutConfiguredSinks() EngineOption {
	return func(o *engineOverrides) {
		o.skipDial = true
	}
}

// Engine is one simulated temperature sensor: a periodic sampling cycle
// feeding the attribute store, the readiness channel and the export sinks.
type Engine struct {
	cfg      Config
	obs      ports.Observability
	metrics  http.Handler
	store    *attr.Store
	surface  *attr.Surface
	notifier *notify.Channel
	gen      *sensor.Generator
	sched    *scheduler.Scheduler
	queue    ports.SampleQueue
	sinks    []ports.Sink
	closers  []io.Closer
	httpSrv  *httpapi.Server

	// owned by the sampling cycle
	seq     uint64
	alerted bool

	mu           sync.Mutex
	started      bool
	httpAddr     string
	exportCancel context.CancelFunc
	exportDone   chan struct{}
}

// NewEngine applies defaults to a copy of cfg, seeds the attribute store and
// connects the sinks named in cfg.Export. A nil cfg uses DefaultConfig.
func NewEngine(cfg *Config, opts ...EngineOption) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var overrides engineOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	e := &Engine{
		cfg:      c,
		store:    attr.NewStore(),
		notifier: notify.NewChannel(),
		gen:      sensor.NewGenerator(overrides.noise),
	}

	if overrides.observability != nil {
		e.obs = overrides.observability
	} else {
		prom := observability.NewPromObs(nil, nil)
		e.obs = prom
		e.metrics = prom.Handler()
	}

	if err := e.store.SetPeriodMS(c.Sensor.Period()); err != nil {
		return nil, err
	}
	e.store.SetThresholdMC(c.Sensor.Threshold())
	e.store.SetMode(c.Sensor.ParsedMode())
	e.surface = attr.NewSurface(e.store, e.notifier, e.obs)

	e.sinks = append(e.sinks, overrides.sinks...)
	if !overrides.skipDial {
		if err := e.dialSinks(); err != nil {
			e.closeSinks()
			return nil, err
		}
	}

	e.queue = overrides.queue
	if e.queue == nil {
		e.queue = queue.NewMemQueue(c.Export.MaxQueueLen)
	}

	if !overrides.disableHTTP {
		h := httpapi.NewHandler(e.surface, e.notifier, e.obs)
		e.httpSrv = httpapi.NewServer(c.HTTP.Addr, httpapi.NewRouter(h, e.metrics), e.obs)
	}

	e.sched = scheduler.New(e.store.Period, e.runCycle)
	return e, nil
}

func (e *Engine) dialSinks() error {
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	if e.cfg.Export.Redis.Addr != "" {
		client, err := sink.DialRedis(ctx, e.cfg.Export.Redis)
		if err != nil {
			return err
		}
		e.closers = append(e.closers, client)
		e.sinks = append(e.sinks, sink.NewRedisSink(client, e.cfg.Export.Redis))
	}

	if e.cfg.Export.AMQP.URL != "" {
		conn, err := amqp.Dial(e.cfg.Export.AMQP.URL)
		if err != nil {
			return fmt.Errorf("amqp dial: %w", err)
		}
		e.closers = append(e.closers, conn)
		s, err := sink.NewAMQPSink(conn, e.cfg.Export.AMQP)
		if err != nil {
			return err
		}
		// channel before connection
		e.closers = append([]io.Closer{s}, e.closers...)
		e.sinks = append(e.sinks, s)
	}

	if e.cfg.Export.OPCUA.Enabled() {
		pub, err := opcua.NewPublisher(e.cfg.Export.OPCUA)
		if err != nil {
			return err
		}
		if err := pub.Connect(ctx); err != nil {
			return err
		}
		e.closers = append(e.closers, pub)
		e.sinks = append(e.sinks, pub)
	}
	return nil
}

// runCycle is the scheduler callback: generate, evaluate, publish, notify.
func (e *Engine) runCycle(now time.Time) {
	start := time.Now()

	mode := e.store.Mode()
	reading := e.gen.Next(mode)
	threshold := e.store.ThresholdMC()
	alert := sensor.Exceeds(reading, threshold)

	e.store.Publish(reading, now)
	e.notifier.Publish(alert)

	e.seq++
	e.obs.IncCounter("simtemp_samples_total", 1)
	if alert && !e.alerted {
		e.obs.IncCounter("simtemp_threshold_crossings_total", 1)
	}
	e.alerted = alert
	e.obs.SetGauge("simtemp_reading_millicelsius", float64(reading))
	e.obs.SetGauge("simtemp_alert_asserted", boolGauge(alert))

	if len(e.sinks) > 0 {
		pipeline.Offer(e.queue, &domain.Sample{
			SensorID:    e.cfg.Sensor.ID,
			Seq:         e.seq,
			Timestamp:   now,
			ReadingMC:   reading,
			ThresholdMC: threshold,
			Mode:        mode,
			Alert:       alert,
		}, e.obs)
	}

	e.obs.ObserveLatency("simtemp_cycle_duration_seconds", time.Since(start).Seconds())
}

// Start launches the export pipeline and the HTTP surface, then arms the
// sampling timer. It returns immediately; call Run to block on a context.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sched.State() == scheduler.Cancelled {
		return domain.ErrAlreadyCancelled
	}
	if e.started {
		return domain.ErrAlreadyStarted
	}

	if e.httpSrv != nil {
		addr, err := e.httpSrv.Start()
		if err != nil {
			return fmt.Errorf("http listen %s: %w", e.cfg.HTTP.Addr, err)
		}
		e.httpAddr = addr
	}

	if len(e.sinks) > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		e.exportCancel = cancel
		e.exportDone = make(chan struct{})
		go func() {
			defer close(e.exportDone)
			pipeline.RunExportPipeline(ctx, e.queue, e.sinks, e.cfg.Export.Policy, e.obs)
		}()
	}

	if err := e.sched.Start(); err != nil {
		return err
	}
	e.started = true

	e.obs.LogInfo("engine_started",
		ports.Field{Key: "sensor_id", Value: e.cfg.Sensor.ID},
		ports.Field{Key: "period_ms", Value: e.store.PeriodMS()},
		ports.Field{Key: "mode", Value: e.store.Mode().String()},
		ports.Field{Key: "sinks", Value: len(e.sinks)},
	)
	return nil
}

// Run starts the engine and blocks until ctx is cancelled, then shuts down.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// Shutdown cancels the sampling timer first, waiting for an in-flight cycle,
// and releases event waiters with ErrAlreadyCancelled. It then flushes the
// export queue and closes the HTTP surface and sinks. A second call reports
// ErrAlreadyCancelled.
func (e *Engine) Shutdown(ctx context.Context) error {
	if err := e.sched.Cancel(); err != nil {
		return err
	}
	// no cycle publishes any more; release blocked waiters
	e.notifier.Close()

	var errs []error

	e.mu.Lock()
	exportCancel, exportDone := e.exportCancel, e.exportDone
	httpAddr := e.httpAddr
	e.mu.Unlock()

	if exportCancel != nil {
		exportCancel()
		select {
		case <-exportDone:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("export flush: %w", ctx.Err()))
		}
	}

	if e.httpSrv != nil && httpAddr != "" {
		if err := e.httpSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	errs = append(errs, e.closeSinks())

	e.obs.LogInfo("engine_stopped",
		ports.Field{Key: "sensor_id", Value: e.cfg.Sensor.ID},
		ports.Field{Key: "cycles", Value: e.sched.Fired()},
	)
	return errors.Join(errs...)
}

func (e *Engine) closeSinks() error {
	var errs []error
	for _, c := range e.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

// SensorID identifies the samples this engine exports.
func (e *Engine) SensorID() string { return e.cfg.Sensor.ID }

// HTTPAddr is the bound HTTP address after Start, or "".
func (e *Engine) HTTPAddr() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.httpAddr
}

// MetricsHandler serves the Prometheus registry, or nil for a custom backend.
func (e *Engine) MetricsHandler() http.Handler { return e.metrics }

// Cycles is the number of completed sampling cycles.
func (e *Engine) Cycles() uint64 { return e.sched.Fired() }

func (e *Engine) AttributeNames() []string { return e.surface.Names() }

func (e *Engine) ReadAttribute(name string) (string, error) { return e.surface.Read(name) }

// WriteAttribute parses value and stores it. A rejected write keeps the
// previous value.
func (e *Engine) WriteAttribute(name, value string) error { return e.surface.Write(name, value) }

func (e *Engine) PeriodMS() uint32 { return e.store.PeriodMS() }

func (e *Engine) SetPeriodMS(ms uint32) error { return e.store.SetPeriodMS(ms) }

func (e *Engine) ThresholdMC() int32 { return e.store.ThresholdMC() }

func (e *Engine) SetThresholdMC(mc int32) { e.store.SetThresholdMC(mc) }

func (e *Engine) Mode() Mode { return e.store.Mode() }

func (e *Engine) SetMode(m Mode) { e.store.SetMode(m) }

// LastReading returns the most recent reading and its timestamp. The
// timestamp is zero before the first cycle.
func (e *Engine) LastReading() (int32, time.Time) {
	return e.store.LastReadingMC(), e.store.LastTimestamp()
}

// Flags reports the status bits without consuming NEW_SAMPLE.
func (e *Engine) Flags() ReadinessMask { return e.notifier.Flags() }

// Poll returns the ready subset of mask, consuming NEW_SAMPLE if reported.
func (e *Engine) Poll(mask ReadinessMask) ReadinessMask { return e.notifier.Poll(mask) }

// Wait blocks until a condition in mask holds or ctx ends.
func (e *Engine) Wait(ctx context.Context, mask ReadinessMask) (ReadinessMask, error) {
	return e.notifier.Wait(ctx, mask)
}

// WaitTimeout is Wait with a relative timeout; it returns 0 on expiry.
func (e *Engine) WaitTimeout(mask ReadinessMask, timeout time.Duration) ReadinessMask {
	return e.notifier.WaitTimeout(mask, timeout)
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
