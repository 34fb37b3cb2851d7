package calc

import (
	"math"
	"time"
)

// Progress calculates the percentage for a given pair of numbers.
func Progress(downloaded, total int) int {
	if total > 0 {
		return int(math.Round(float64(downloaded) / float64(total) * 100))
	}
	return 0
}

// ETA calculates the estimated time of arrival.
func ETA(downloaded, total int, started time.Time) time.Duration {
	if total > 0 {
		downloaded := float64(downloaded)
		total := float64(total)
		elapsed := time.Since(started)
		eta := time.Duration(float64(elapsed) * (total/downloaded - 1))
		return eta
	}
	return 0
}

// Percent calculates the exact percentage for a given pair of numbers.
// Returns 0 when the total is unknown.
func Percent(downloaded, total int) float64 {
	if total > 0 {
		return float64(downloaded) / float64(total) * 100
	}
	return 0
}

// Speed calculates the average download speed in bytes per second.
func Speed(downloaded int, started time.Time) float64 {
	elapsed := time.Since(started).Seconds()
	if elapsed <= 0 || downloaded <= 0 {
		return 0
	}
	return float64(downloaded) / elapsed
}
