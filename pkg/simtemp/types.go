package simtemp

import (
	"github.com/ghalamif/simtemp/internal/attr"
	"github.com/ghalamif/simtemp/internal/domain"
	"github.com/ghalamif/simtemp/internal/ports"
)

// Sample is one published sensor cycle as delivered to sinks.
type Sample = domain.Sample

// Mode selects how the generator produces readings.
type Mode = domain.Mode

const (
	ModeNormal = domain.ModeNormal
	ModeNoisy  = domain.ModeNoisy
	ModeRamp   = domain.ModeRamp
)

// ReadinessMask is the bitset returned by Poll and Wait.
type ReadinessMask = domain.ReadinessMask

const (
	NewSample      = domain.NewSample
	ThresholdAlert = domain.ThresholdAlert
	AllEvents      = domain.AllEvents
)

// Sink consumes batches of exported samples.
type Sink = ports.Sink

// SampleQueue buffers samples between the sampling cycle and the sinks.
type SampleQueue = ports.SampleQueue

// Observability emits metrics and structured logs.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// ParseError reports a malformed attribute write.
type ParseError = domain.ParseError

var (
	ErrAlreadyCancelled = domain.ErrAlreadyCancelled
	ErrAlreadyStarted   = domain.ErrAlreadyStarted
	ErrReadOnly         = domain.ErrReadOnly
	ErrUnknownAttribute = domain.ErrUnknownAttribute
	ErrZeroPeriod       = domain.ErrZeroPeriod
)

// Attribute names accepted by ReadAttribute and WriteAttribute.
const (
	AttrSamplingPeriod = attr.SamplingPeriod
	AttrThreshold      = attr.Threshold
	AttrMode           = attr.Mode
	AttrTemperature    = attr.Temperature
	AttrTimestamp      = attr.Timestamp
	AttrFlags          = attr.Flags
)
