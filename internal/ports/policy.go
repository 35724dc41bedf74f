package ports

import "time"

// Policy bounds the export path between the sampling cycle and the sinks.
// Enqueue never blocks; a full queue drops the sample.
type Policy struct {
	MaxQueueLen  int           `yaml:"max_queue_len"`
	MaxBatchSize int           `yaml:"max_batch_size"`
	IdleSleep    time.Duration `yaml:"idle_sleep"`
}
