package sensor

// Exceeds reports whether reading is strictly above threshold.
func Exceeds(readingMC, thresholdMC int32) bool {
	return readingMC > thresholdMC
}
