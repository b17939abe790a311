package multipart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStats(t *testing.T) {
	stats := newStats()
	assert.Equal(t, time.Duration(0), stats.Average())
	assert.Equal(t, 0.0, stats.Throughput())

	stats.record(Part{Number: 1, Bytes: 56000, Duration: 100 * time.Millisecond})
	stats.record(Part{Number: 2, Bytes: 56000, Duration: 200 * time.Millisecond})
	stats.record(Part{Number: 3, Bytes: 38000, Duration: 200 * time.Millisecond})

	assert.Equal(t, 3, stats.FinishedCount())
	assert.EqualValues(t, 150000, stats.BytesUploaded())
	assert.Equal(t, 500*time.Millisecond, stats.TotalDuration())
	assert.Equal(t, 500*time.Millisecond/3, stats.Average())
	assert.InDelta(t, 300000.0, stats.Throughput(), 1e-6)

	parts := stats.Parts()
	assert.Equal(t, []int{1, 2, 3}, []int{parts[0].Number, parts[1].Number, parts[2].Number})
	parts[0].Bytes = 0
	assert.Equal(t, 56000, stats.Parts()[0].Bytes)
}
