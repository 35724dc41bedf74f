package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ghalamif/simtemp/internal/adapters/opcua"
	"github.com/ghalamif/simtemp/internal/adapters/sink"
	"github.com/ghalamif/simtemp/internal/domain"
	"github.com/ghalamif/simtemp/internal/ports"
)

type Config struct {
	Sensor SensorConfig `yaml:"sensor"`
	Export ExportConfig `yaml:"export"`
	HTTP   HTTPConfig   `yaml:"http"`
}

type SensorConfig struct {
	ID string `yaml:"id"`
	// nil means unset; an explicit zero is rejected by Validate.
	PeriodMS *uint32 `yaml:"period_ms"`
	// nil means unset; zero is a valid threshold.
	ThresholdMC *int32 `yaml:"threshold_mc"`
	Mode        string `yaml:"mode"`
}

// Period returns the configured sampling period in milliseconds.
func (s SensorConfig) Period() uint32 {
	if s.PeriodMS == nil {
		return DefaultPeriodMS
	}
	return *s.PeriodMS
}

// ParsedMode returns the configured mode. Valid after Load.
func (s SensorConfig) ParsedMode() domain.Mode {
	m, _ := domain.ParseMode("mode", s.Mode)
	return m
}

// Threshold returns the configured threshold. Valid after Load.
func (s SensorConfig) Threshold() int32 {
	if s.ThresholdMC == nil {
		return DefaultThresholdMC
	}
	return *s.ThresholdMC
}

type ExportConfig struct {
	ports.Policy `yaml:",inline"`
	Redis        sink.RedisConfig `yaml:"redis"`
	AMQP         sink.AMQPConfig  `yaml:"amqp"`
	OPCUA        opcua.Config     `yaml:"opcua"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

const (
	DefaultPeriodMS    uint32 = 200
	DefaultThresholdMC int32  = 40000
)

const (
	EnvSensorID      = "SIMTEMP_SENSOR_ID"
	EnvPeriodMS      = "SIMTEMP_PERIOD_MS"
	EnvThresholdMC   = "SIMTEMP_THRESHOLD_MC"
	EnvMode          = "SIMTEMP_MODE"
	EnvHTTPAddr      = "SIMTEMP_HTTP_ADDR"
	EnvRedisAddr     = "SIMTEMP_REDIS_ADDR"
	EnvAMQPURL       = "SIMTEMP_AMQP_URL"
	EnvOPCUAEndpoint = "SIMTEMP_OPCUA_ENDPOINT"
)

// Load reads path (if non-empty), applies environment overrides and
// defaults, then validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a validated configuration without file or environment input.
func Default() *Config {
	var cfg Config
	cfg.ApplyDefaults()
	return &cfg
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvSensorID); ok && v != "" {
		c.Sensor.ID = v
	}
	if v, ok := lookup(EnvPeriodMS); ok && v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPeriodMS, err)
		}
		p := uint32(n)
		c.Sensor.PeriodMS = &p
	}
	if v, ok := lookup(EnvThresholdMC); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvThresholdMC, err)
		}
		t := int32(n)
		c.Sensor.ThresholdMC = &t
	}
	if v, ok := lookup(EnvMode); ok && v != "" {
		c.Sensor.Mode = v
	}
	if v, ok := lookup(EnvHTTPAddr); ok && v != "" {
		c.HTTP.Addr = v
	}
	if v, ok := lookup(EnvRedisAddr); ok && v != "" {
		c.Export.Redis.Addr = v
	}
	if v, ok := lookup(EnvAMQPURL); ok && v != "" {
		c.Export.AMQP.URL = v
	}
	if v, ok := lookup(EnvOPCUAEndpoint); ok && v != "" {
		c.Export.OPCUA.Endpoint = v
	}
	return nil
}

// ApplyDefaults fills unset fields. Load calls it after environment overrides.
func (c *Config) ApplyDefaults() {
	if c.Sensor.ID == "" {
		c.Sensor.ID = uuid.NewString()
	}
	if c.Sensor.PeriodMS == nil {
		p := DefaultPeriodMS
		c.Sensor.PeriodMS = &p
	}
	if c.Sensor.ThresholdMC == nil {
		t := DefaultThresholdMC
		c.Sensor.ThresholdMC = &t
	}
	if c.Sensor.Mode == "" {
		c.Sensor.Mode = domain.ModeNormal.String()
	}
	if c.Export.MaxQueueLen == 0 {
		c.Export.MaxQueueLen = 1024
	}
	if c.Export.MaxBatchSize == 0 {
		c.Export.MaxBatchSize = 64
	}
	if c.Export.IdleSleep == 0 {
		c.Export.IdleSleep = 50 * time.Millisecond
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":9100"
	}

	c.Export.Redis.ApplyDefaults()
	c.Export.AMQP.ApplyDefaults()
	c.Export.OPCUA.ApplyDefaults()
}

func (c *Config) Validate() error {
	if c.Sensor.Period() == 0 {
		return fmt.Errorf("sensor.period_ms: %w", domain.ErrZeroPeriod)
	}
	if _, err := domain.ParseMode("mode", c.Sensor.Mode); err != nil {
		return fmt.Errorf("sensor.mode: %w", err)
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	if c.Export.MaxQueueLen < 0 {
		return fmt.Errorf("export.max_queue_len must be positive")
	}
	if c.Export.MaxBatchSize < 0 {
		return fmt.Errorf("export.max_batch_size must be positive")
	}
	if c.Export.OPCUA.Enabled() {
		if err := c.Export.OPCUA.Validate(); err != nil {
			return fmt.Errorf("opcua config: %w", err)
		}
	}
	return nil
}
