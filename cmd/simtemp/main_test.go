package main

import (
	"strings"
	"testing"

	"periph.io/x/conn/v3/physic"
)

func TestMilliCelsius(t *testing.T) {
	if got, want := milliCelsius(32000), physic.ZeroCelsius+32*physic.Celsius; got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got, want := milliCelsius(-500), physic.ZeroCelsius-500*physic.MilliKelvin; got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestFormatReading(t *testing.T) {
	attrs := map[string]string{
		"temp_mc":      "41000",
		"timestamp":    "2025-10-23T12:00:00.000",
		"threshold_mc": "40000",
		"mode":         "2",
	}
	line := formatReading(attrs, true)
	for _, want := range []string{"2025-10-23T12:00:00.000", "threshold=40000mC", "mode=2", "ALERT"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
	if strings.Contains(formatReading(attrs, false), "ALERT") {
		t.Fatalf("non-alert line must not be flagged")
	}
}

func TestParseMetrics(t *testing.T) {
	body := `# HELP simtemp_samples_total Sampling cycles completed.
# TYPE simtemp_samples_total counter
simtemp_samples_total 17
simtemp_export_queue_length 3
simtemp_reading_millicelsius 32000
`
	got, err := parseMetrics(strings.NewReader(body), []string{"simtemp_samples_total", "simtemp_export_queue_length", "simtemp_export_dropped_total"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got["simtemp_samples_total"] != 17 || got["simtemp_export_queue_length"] != 3 {
		t.Fatalf("unexpected values %v", got)
	}
	if got["simtemp_export_dropped_total"] != 0 {
		t.Fatalf("missing metric should default to 0")
	}
}
