package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/physic"

	"github.com/ghalamif/simtemp"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}

	fmt.Println(banner())
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "get":
		err = getCommand(os.Args[2:])
	case "set":
		err = setCommand(os.Args[2:])
	case "watch":
		err = watchCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("simtemp %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to configuration file (optional)")
	logFormat := fs.String("log-format", "text", "Log format: text or json")
	logLevel := fs.String("log-level", "info", "Log level")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := configureLogging(*logFormat, *logLevel); err != nil {
		return err
	}

	flow, err := simtemp.Conf(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return flow.Run(ctx)
}

func configureLogging(format, level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	switch format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := simtemp.LoadConfig(*cfgPath)
	if err != nil {
		return err
	}
	fmt.Printf("config %s looks good: sensor=%s period=%dms threshold=%dmC mode=%s\n",
		*cfgPath, cfg.Sensor.ID, cfg.Sensor.Period(), cfg.Sensor.Threshold(), cfg.Sensor.ParsedMode())
	return nil
}

func getCommand(args []string) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	base := fs.String("url", "http://localhost:9100", "Engine HTTP address")
	name := fs.String("name", "", "Attribute name (empty lists all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *name == "" {
		attrs, err := fetchAttributes(*base)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(attrs))
		for k := range attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%-20s %s\n", k, attrs[k])
		}
		return nil
	}

	body, err := doRequest(http.MethodGet, *base+"/attributes/"+url.PathEscape(*name), nil)
	if err != nil {
		return err
	}
	fmt.Print(string(body))
	return nil
}

func setCommand(args []string) error {
	fs := flag.NewFlagSet("set", flag.ExitOnError)
	base := fs.String("url", "http://localhost:9100", "Engine HTTP address")
	name := fs.String("name", "", "Attribute name")
	value := fs.String("value", "", "New value")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("-name is required")
	}

	_, err := doRequest(http.MethodPut, *base+"/attributes/"+url.PathEscape(*name), strings.NewReader(*value))
	return err
}

type eventResponse struct {
	Mask           uint32 `json:"mask"`
	NewSample      bool   `json:"new_sample"`
	ThresholdAlert bool   `json:"threshold_alert"`
}

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	alertStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

func watchCommand(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	base := fs.String("url", "http://localhost:9100", "Engine HTTP address")
	mask := fs.Uint("mask", uint(simtemp.AllEvents), "Readiness mask: 1 new sample, 2 threshold alert")
	timeout := fs.Duration("timeout", 5*time.Second, "Per-wait timeout")
	count := fs.Int("count", 0, "Stop after this many events (0 runs until interrupted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eventsURL := fmt.Sprintf("%s/events?mask=%d&timeout=%s", *base, *mask, *timeout)
	seen := 0
	for *count == 0 || seen < *count {
		if ctx.Err() != nil {
			return nil
		}
		body, err := doRequestContext(ctx, http.MethodGet, eventsURL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		var ev eventResponse
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		if ev.Mask == 0 {
			fmt.Println(dimStyle.Render("no event within " + timeout.String()))
			continue
		}

		attrs, err := fetchAttributes(*base)
		if err != nil {
			return err
		}
		fmt.Println(formatReading(attrs, ev.ThresholdAlert))
		seen++
	}
	return nil
}

func formatReading(attrs map[string]string, alert bool) string {
	temp := attrs[simtemp.AttrTemperature]
	if mc, err := strconv.ParseUint(temp, 10, 32); err == nil {
		temp = milliCelsius(int32(uint32(mc))).String()
	}
	line := fmt.Sprintf("%s  %-10s threshold=%smC mode=%s",
		attrs[simtemp.AttrTimestamp], temp, attrs[simtemp.AttrThreshold], attrs[simtemp.AttrMode])
	if alert {
		return alertStyle.Render(line + "  ALERT")
	}
	return okStyle.Render(line)
}

func milliCelsius(mc int32) physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(mc)*physic.MilliKelvin
}

func fetchAttributes(base string) (map[string]string, error) {
	body, err := doRequest(http.MethodGet, base+"/attributes", nil)
	if err != nil {
		return nil, err
	}
	var attrs map[string]string
	if err := json.Unmarshal(body, &attrs); err != nil {
		return nil, fmt.Errorf("decode attributes: %w", err)
	}
	return attrs, nil
}

func doRequest(method, target string, body io.Reader) ([]byte, error) {
	return doRequestContext(context.Background(), method, target, body)
}

func doRequestContext(ctx context.Context, method, target string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "text/plain")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
		}
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return data, nil
}

func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	target := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *target)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(*target); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

func printMetricsSnapshot(target string) error {
	resp, err := http.Get(target)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	targets, err := parseMetrics(resp.Body, []string{
		"simtemp_samples_total",
		"simtemp_threshold_crossings_total",
		"simtemp_export_queue_length",
		"simtemp_export_dropped_total",
	})
	if err != nil {
		return err
	}

	fmt.Printf("[%s] samples=%.0f crossings=%.0f queue=%.0f dropped=%.0f\n",
		time.Now().Format(time.RFC3339),
		targets["simtemp_samples_total"],
		targets["simtemp_threshold_crossings_total"],
		targets["simtemp_export_queue_length"],
		targets["simtemp_export_dropped_total"],
	)
	return nil
}

// parseMetrics picks unlabelled samples out of the text exposition format.
func parseMetrics(r io.Reader, names []string) (map[string]float64, error) {
	targets := make(map[string]float64, len(names))
	for _, n := range names {
		targets[n] = 0
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for key := range targets {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %g", &value); err == nil {
					targets[key] = value
				}
			}
		}
	}
	return targets, scanner.Err()
}

func banner() string {
	title := "simtemp"
	sub := "simulated temperature sensor"
	if os.Getenv("NO_COLOR") != "" {
		return title + " - " + sub
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true).Render(title) +
		" " + dimStyle.Render(sub)
}

func printUsage() {
	fmt.Printf(`simtemp CLI

Usage:
  simtemp <command> [flags]

Commands:
  run        Start the sensor engine using the provided config
  validate   Load and validate a config file without starting the engine
  get        Read one attribute (or all) from a running engine
  set        Write one attribute on a running engine
  watch      Stream readings as the engine signals new samples or alerts
  stats      Poll the Prometheus metrics endpoint and print live counters

Examples:
  simtemp run -config ./data/config.yaml
  simtemp validate -config ./data/config.yaml
  simtemp get -name temp_mc
  simtemp set -name mode -value ramp
  simtemp watch -mask 2 -count 10
  simtemp stats -url http://localhost:9100/metrics -interval 1s
`)
}
