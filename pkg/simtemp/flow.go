package simtemp

import (
	"context"
	"fmt"
)

// Flow is a convenience builder that lets callers say Conf → StreamOUT → Run
// without touching the underlying engine wiring.
type Flow struct {
	cfg  *Config
	opts []EngineOption
}

// FlowOption mutates the Flow after configuration is loaded.
type FlowOption func(*Flow)

// StreamOutOption configures the export side of the engine.
type StreamOutOption func(*Flow)

// Conf loads configuration (path may be empty), applies FlowOption values,
// and returns a Flow builder.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

// ConfFromConfig bootstraps a Flow from an in-memory Config.
func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	f := &Flow{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Config returns the underlying configuration so callers can tweak it before building the engine.
func (f *Flow) Config() *Config {
	if f == nil {
		return nil
	}
	return f.cfg
}

// Options appends raw EngineOption values to the builder.
func (f *Flow) Options(opts ...EngineOption) *Flow {
	if f == nil {
		return nil
	}
	f.appendOptions(opts...)
	return f
}

// StreamOUT records export-side overrides and builds an Engine ready to run.
func (f *Flow) StreamOUT(opts ...StreamOutOption) (*Engine, error) {
	if f == nil {
		return nil, fmt.Errorf("flow is nil")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return NewEngine(f.cfg, f.opts...)
}

// Run is a shortcut for StreamOUT + Engine.Run.
func (f *Flow) Run(ctx context.Context, opts ...StreamOutOption) error {
	e, err := f.StreamOUT(opts...)
	if err != nil {
		return err
	}
	return e.Run(ctx)
}

// WithFlowOptions appends EngineOption values during Conf.
func WithFlowOptions(opts ...EngineOption) FlowOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(opts...)
		}
	}
}

// StreamOutSink adds a custom Sink.
func StreamOutSink(s Sink) StreamOutOption {
	return func(f *Flow) {
		if f != nil && s != nil {
			f.appendOptions(WithSink(s))
		}
	}
}

// StreamOutCallback installs a sink built from a callback function.
func StreamOutCallback(name string, fn SampleBatchSink) StreamOutOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(WithSink(NewCallbackSink(name, fn)))
		}
	}
}

// StreamOutObservability replaces the default observability backend.
func StreamOutObservability(obs Observability) StreamOutOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

func (f *Flow) appendOptions(opts ...EngineOption) {
	for _, opt := range opts {
		if opt != nil {
			f.opts = append(f.opts, opt)
		}
	}
}
