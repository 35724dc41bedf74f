package simtemp

import (
	base "github.com/ghalamif/simtemp/pkg/simtemp"
)

// Re-exported errors for convenience.
var (
	ErrAlreadyCancelled  = base.ErrAlreadyCancelled
	ErrAlreadyStarted    = base.ErrAlreadyStarted
	ErrReadOnly          = base.ErrReadOnly
	ErrUnknownAttribute  = base.ErrUnknownAttribute
	ErrZeroPeriod        = base.ErrZeroPeriod
	ErrChannelSinkClosed = base.ErrChannelSinkClosed
)

// Type aliases so consumers can import github.com/ghalamif/simtemp directly.
type (
	Config          = base.Config
	SensorConfig    = base.SensorConfig
	ExportConfig    = base.ExportConfig
	HTTPConfig      = base.HTTPConfig
	Policy          = base.Policy
	RedisConfig     = base.RedisConfig
	AMQPConfig      = base.AMQPConfig
	OPCUAConfig     = base.OPCUAConfig
	Flow            = base.Flow
	FlowOption      = base.FlowOption
	StreamOutOption = base.StreamOutOption
	Engine          = base.Engine
	EngineOption    = base.EngineOption
	Sample          = base.Sample
	SampleBatchSink = base.SampleBatchSink
	Sink            = base.Sink
	SampleQueue     = base.SampleQueue
	Observability   = base.Observability
	Field           = base.Field
	Mode            = base.Mode
	ReadinessMask   = base.ReadinessMask
	ParseError      = base.ParseError
)

const (
	ModeNormal = base.ModeNormal
	ModeNoisy  = base.ModeNoisy
	ModeRamp   = base.ModeRamp

	NewSample      = base.NewSample
	ThresholdAlert = base.ThresholdAlert
	AllEvents      = base.AllEvents

	AttrSamplingPeriod = base.AttrSamplingPeriod
	AttrThreshold      = base.AttrThreshold
	AttrMode           = base.AttrMode
	AttrTemperature    = base.AttrTemperature
	AttrTimestamp      = base.AttrTimestamp
	AttrFlags          = base.AttrFlags
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func DefaultConfig() *Config {
	return base.DefaultConfig()
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...EngineOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func StreamOutSink(s Sink) StreamOutOption {
	return base.StreamOutSink(s)
}

func StreamOutCallback(name string, fn SampleBatchSink) StreamOutOption {
	return base.StreamOutCallback(name, fn)
}

func StreamOutObservability(obs Observability) StreamOutOption {
	return base.StreamOutObservability(obs)
}

// Engine and options.
func NewEngine(cfg *Config, opts ...EngineOption) (*Engine, error) {
	return base.NewEngine(cfg, opts...)
}

func WithSink(s Sink) EngineOption {
	return base.WithSink(s)
}

func WithSampleQueue(q SampleQueue) EngineOption {
	return base.WithSampleQueue(q)
}

func WithObservability(obs Observability) EngineOption {
	return base.WithObservability(obs)
}

func WithNoise(fn func() uint16) EngineOption {
	return base.WithNoise(fn)
}

func WithoutHTTP() EngineOption {
	return base.WithoutHTTP()
}

func WithoutConfiguredSinks() EngineOption {
	return base.WithoutConfiguredSinks()
}

// Sink adapters.
func NewCallbackSink(name string, fn SampleBatchSink) Sink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (Sink, <-chan []Sample, func()) {
	return base.NewChannelSink(name, buffer)
}
