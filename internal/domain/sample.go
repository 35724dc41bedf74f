package domain

import "time"

// Sample is one published sensor cycle.
type Sample struct {
	SensorID    string    `json:"sensor_id"`
	Seq         uint64    `json:"seq"`
	Timestamp   time.Time `json:"ts"`
	ReadingMC   int32     `json:"reading_mc"`
	ThresholdMC int32     `json:"threshold_mc"`
	Mode        Mode      `json:"mode"`
	Alert       bool      `json:"alert"`
}

// TimestampLayout is the wall-clock encoding of the timestamp attribute.
const TimestampLayout = "2006-01-02T15:04:05.000"

// Readiness bits reported by the notification channel and the flags attribute.
type ReadinessMask uint32

const (
	NewSample      ReadinessMask = 1 << 0
	ThresholdAlert ReadinessMask = 1 << 1

	AllEvents = NewSample | ThresholdAlert
)

func (m ReadinessMask) Has(bit ReadinessMask) bool { return m&bit != 0 }
