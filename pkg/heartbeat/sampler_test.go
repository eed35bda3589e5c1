package heartbeat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRate(t *testing.T) {
	tests := []struct {
		name     string
		current  uint64
		previous uint64
		elapsed  float64
		expected float64
	}{
		{"steady growth", 3000, 1000, 2, 1000},
		{"no traffic", 1000, 1000, 5, 0},
		{"counter reset treated as zero", 100, 5000, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, rate(tt.current, tt.previous, tt.elapsed), 0.001)
		})
	}
}

func TestHostSamplerRates(t *testing.T) {
	counters := ioCounters{
		diskRead:  map[string]uint64{},
		diskWrite: map[string]uint64{},
		netRx:     1000,
		netTx:     500,
	}

	s := NewHostSampler("node-1", "1.2.3")
	s.readCounters = func() ioCounters { return counters }

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// First tick has no previous reading; rates must be exactly zero.
	first, err := s.Sample(start)
	require.NoError(t, err)
	assert.Zero(t, first.NetRxRate)
	assert.Zero(t, first.NetTxRate)
	assert.Equal(t, "node-1", first.NodeID)
	assert.Equal(t, "1.2.3", first.Version)
	assert.Equal(t, start.UnixMilli(), first.Timestamp)

	// Second tick, 2s later, 2000 more bytes received and 600 sent.
	counters.netRx = 3000
	counters.netTx = 1100
	second, err := s.Sample(start.Add(2 * time.Second))
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, second.NetRxRate, 0.001)
	assert.InDelta(t, 300.0, second.NetTxRate, 0.001)
}

func TestHostSamplerCounterReset(t *testing.T) {
	counters := ioCounters{
		diskRead:  map[string]uint64{},
		diskWrite: map[string]uint64{},
		netRx:     10000,
		netTx:     10000,
	}

	s := NewHostSampler("node-1", "1.2.3")
	s.readCounters = func() ioCounters { return counters }

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := s.Sample(start)
	require.NoError(t, err)

	// Interface bounced, counters start over.
	counters.netRx = 50
	counters.netTx = 50
	second, err := s.Sample(start.Add(5 * time.Second))
	require.NoError(t, err)
	assert.Zero(t, second.NetRxRate)
	assert.Zero(t, second.NetTxRate)
}
