package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/ghalamif/simtemp"
)

func main() {
	flow, err := simtemp.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, batches, closeBatches := simtemp.NewChannelSink("fanout", 32)
	defer closeBatches()

	go fanoutWorker("alerts", batches)

	if err := flow.Run(ctx, simtemp.StreamOutSink(sink)); err != nil && err != context.Canceled {
		log.Fatalf("engine error: %v", err)
	}
}

func fanoutWorker(name string, batches <-chan []simtemp.Sample) {
	for batch := range batches {
		for _, s := range batch {
			if s.Alert {
				fmt.Printf("[%s] seq=%d reading=%dmC above %dmC\n", name, s.Seq, s.ReadingMC, s.ThresholdMC)
			}
		}
	}
}
