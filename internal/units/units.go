package units

import "fmt"

// TicksPerSecond is the upstream server's time unit: 10,000,000 ticks
// per second.
const TicksPerSecond = 10_000_000

func SecondsToTicks(seconds float64) int64 {
	return int64(seconds * TicksPerSecond)
}

func TicksToSeconds(ticks int64) float64 {
	return float64(ticks) / TicksPerSecond
}

func TicksToMs(ticks int64) int64 {
	return ticks / 10_000
}

// FormatBytes renders a byte count in a human-readable binary unit.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// FormatBitrate renders bits per second with a decimal unit prefix.
func FormatBitrate(bps int64) string {
	switch {
	case bps >= 1_000_000:
		return fmt.Sprintf("%.1f Mbps", float64(bps)/1_000_000)
	case bps >= 1_000:
		return fmt.Sprintf("%.0f kbps", float64(bps)/1_000)
	default:
		return fmt.Sprintf("%d bps", bps)
	}
}
