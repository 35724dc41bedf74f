package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ghalamif/simtemp/internal/domain"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		EnvSensorID, EnvPeriodMS, EnvThresholdMC, EnvMode,
		EnvHTTPAddr, EnvRedisAddr, EnvAMQPURL, EnvOPCUAEndpoint,
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
sensor:
  id: bench-1
export:
  max_queue_len: 10
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Sensor.ID != "bench-1" {
		t.Fatalf("expected sensor id bench-1, got %s", cfg.Sensor.ID)
	}
	if cfg.Sensor.Period() != 200 {
		t.Fatalf("expected default period 200, got %d", cfg.Sensor.Period())
	}
	if cfg.Sensor.Threshold() != 40000 {
		t.Fatalf("expected default threshold 40000, got %d", cfg.Sensor.Threshold())
	}
	if cfg.Sensor.ParsedMode() != domain.ModeNormal {
		t.Fatalf("expected normal mode, got %s", cfg.Sensor.ParsedMode())
	}
	if cfg.Export.MaxQueueLen != 10 {
		t.Fatalf("expected queue len 10, got %d", cfg.Export.MaxQueueLen)
	}
	if cfg.Export.MaxBatchSize != 64 {
		t.Fatalf("expected MaxBatchSize default 64, got %d", cfg.Export.MaxBatchSize)
	}
	if cfg.Export.IdleSleep != 50*time.Millisecond {
		t.Fatalf("expected IdleSleep default 50ms, got %s", cfg.Export.IdleSleep)
	}
	if cfg.HTTP.Addr != ":9100" {
		t.Fatalf("expected default http addr :9100, got %s", cfg.HTTP.Addr)
	}
	if cfg.Export.Redis.KeyPrefix != "simtemp" || cfg.Export.AMQP.Exchange != "simtemp.events" {
		t.Fatalf("unexpected sink defaults: %+v %+v", cfg.Export.Redis, cfg.Export.AMQP)
	}
}

func TestLoadWithoutFileGeneratesSensorID(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Sensor.ID) != 36 {
		t.Fatalf("expected uuid sensor id, got %q", cfg.Sensor.ID)
	}
}

func TestLoadKeepsExplicitZeroThreshold(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
sensor:
  threshold_mc: 0
  mode: ramp
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Sensor.Threshold() != 0 {
		t.Fatalf("expected explicit zero threshold, got %d", cfg.Sensor.Threshold())
	}
	if cfg.Sensor.ParsedMode() != domain.ModeRamp {
		t.Fatalf("expected ramp, got %s", cfg.Sensor.ParsedMode())
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPeriodMS, "50")
	t.Setenv(EnvThresholdMC, "-1000")
	t.Setenv(EnvMode, "NOISY")
	t.Setenv(EnvHTTPAddr, "127.0.0.1:0")
	t.Setenv(EnvRedisAddr, "localhost:6379")

	path := writeConfig(t, `
sensor:
  period_ms: 500
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Sensor.Period() != 50 {
		t.Fatalf("env must override file period, got %d", cfg.Sensor.Period())
	}
	if cfg.Sensor.Threshold() != -1000 {
		t.Fatalf("expected threshold -1000, got %d", cfg.Sensor.Threshold())
	}
	if cfg.Sensor.ParsedMode() != domain.ModeNoisy {
		t.Fatalf("expected noisy, got %s", cfg.Sensor.ParsedMode())
	}
	if cfg.HTTP.Addr != "127.0.0.1:0" || cfg.Export.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
}

func TestLoadRejectsMalformedEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvThresholdMC, "warm")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for malformed threshold")
	}

	clearEnv(t)
	t.Setenv(EnvPeriodMS, "0")
	if _, err := Load(""); !errors.Is(err, domain.ErrZeroPeriod) {
		t.Fatalf("expected ErrZeroPeriod, got %v", err)
	}
}

func TestLoadRejectsInvalidMode(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
sensor:
  mode: chaotic
`)
	_, err := Load(path)
	var perr *domain.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestLoadRequiresOPCUANodeWhenEnabled(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvOPCUAEndpoint, "opc.tcp://localhost:4840")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for missing node_id")
	}

	path := writeConfig(t, `
export:
  opcua:
    node_id: "ns=2;s=SimTemp.Reading"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Export.OPCUA.SecurityMode != "None" {
		t.Fatalf("expected security mode default None, got %s", cfg.Export.OPCUA.SecurityMode)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestLoadRejectsExplicitZeroPeriod(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
sensor:
  period_ms: 0
`)
	if _, err := Load(path); !errors.Is(err, domain.ErrZeroPeriod) {
		t.Fatalf("expected ErrZeroPeriod for explicit zero in file, got %v", err)
	}
}
