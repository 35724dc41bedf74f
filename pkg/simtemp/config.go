package simtemp

import (
	"github.com/ghalamif/simtemp/internal/adapters/opcua"
	"github.com/ghalamif/simtemp/internal/adapters/sink"
	"github.com/ghalamif/simtemp/internal/app/config"
	"github.com/ghalamif/simtemp/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// SensorConfig holds the initial sensor attributes.
	SensorConfig = config.SensorConfig
	// ExportConfig configures the sample export path and its sinks.
	ExportConfig = config.ExportConfig
	// HTTPConfig configures the attribute/event HTTP surface.
	HTTPConfig = config.HTTPConfig
	// Policy bounds the export queue.
	Policy = ports.Policy
	// RedisConfig configures the live-value sink.
	RedisConfig = sink.RedisConfig
	// AMQPConfig configures the event sink.
	AMQPConfig = sink.AMQPConfig
	// OPCUAConfig configures the OPC UA node writer.
	OPCUAConfig = opcua.Config
)

// LoadConfig loads YAML from disk (optional) plus SIMTEMP_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return config.Default()
}
