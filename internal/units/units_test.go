package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecondsToTicks(t *testing.T) {
	assert.Equal(t, int64(0), SecondsToTicks(0))
	assert.Equal(t, int64(10_000_000), SecondsToTicks(1))
	assert.Equal(t, int64(1_205_000_000), SecondsToTicks(120.5))
}

func TestTicksToSeconds(t *testing.T) {
	assert.Equal(t, 0.0, TicksToSeconds(0))
	assert.Equal(t, 120.5, TicksToSeconds(1_205_000_000))
}

func TestTicksToMs(t *testing.T) {
	assert.Equal(t, int64(1000), TicksToMs(10_000_000))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.0 KiB", FormatBytes(1024))
	assert.Equal(t, "2.5 MiB", FormatBytes(5*1024*1024/2))
}

func TestFormatBitrate(t *testing.T) {
	assert.Equal(t, "800 bps", FormatBitrate(800))
	assert.Equal(t, "128 kbps", FormatBitrate(128_000))
	assert.Equal(t, "2.5 Mbps", FormatBitrate(2_500_000))
}
