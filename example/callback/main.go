package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ghalamif/simtemp"
)

// Drives the engine in-process: ramp mode, a callback sink, and a
// blocking wait on the readiness mask instead of HTTP.
func main() {
	cfg := simtemp.DefaultConfig()
	period := uint32(100)
	cfg.Sensor.PeriodMS = &period
	cfg.Sensor.Mode = "ramp"

	callback := func(batch []simtemp.Sample) error {
		for _, s := range batch {
			fmt.Printf("%s sensor=%s seq=%d reading=%d alert=%t\n",
				s.Timestamp.Format(time.RFC3339Nano), s.SensorID, s.Seq, s.ReadingMC, s.Alert)
		}
		return nil
	}

	engine, err := simtemp.NewEngine(cfg,
		simtemp.WithoutHTTP(),
		simtemp.WithSink(simtemp.NewCallbackSink("stdout", callback)),
	)
	if err != nil {
		log.Fatalf("new engine: %v", err)
	}
	if err := engine.Start(); err != nil {
		log.Fatalf("start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for {
		mask, err := engine.Wait(ctx, simtemp.ThresholdAlert)
		if err != nil {
			break
		}
		reading, at := engine.LastReading()
		fmt.Printf("alert mask=%d reading=%d at %s\n", mask, reading, at.Format(time.TimeOnly))
		time.Sleep(time.Second)
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := engine.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}
