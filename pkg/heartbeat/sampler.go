package heartbeat

import (
	"path/filepath"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
)

// DiskSample is the usage and I/O rate reading for one disk.
type DiskSample struct {
	Device    string  `json:"device"`
	Mount     string  `json:"mount"`
	Used      uint64  `json:"used"`
	Total     uint64  `json:"total"`
	ReadRate  float64 `json:"read_rate"`  // bytes/s since the previous tick
	WriteRate float64 `json:"write_rate"` // bytes/s since the previous tick
}

// Sample is one heartbeat payload: the node's instantaneous state. Samples
// are never queued or replayed; a lost sample is simply superseded by the
// next tick.
type Sample struct {
	NodeID    string       `json:"node_id"`
	CPUPct    float64      `json:"cpu_pct"`
	RAMUsed   uint64       `json:"ram_used"`
	RAMTotal  uint64       `json:"ram_total"`
	Disks     []DiskSample `json:"disks,omitempty"`
	NetRxRate float64      `json:"net_rx_rate"` // bytes/s since the previous tick
	NetTxRate float64      `json:"net_tx_rate"` // bytes/s since the previous tick
	Uptime    uint64       `json:"uptime"`
	Version   string       `json:"version"`
	Timestamp int64        `json:"timestamp"` // unix milliseconds
}

// Sampler produces heartbeat samples. The host implementation reads the
// real machine; tests substitute their own.
type Sampler interface {
	Sample(now time.Time) (Sample, error)
}

// ioCounters abstracts the raw counters rate computation needs, so the
// delta logic is testable without a real host.
type ioCounters struct {
	diskRead  map[string]uint64 // device -> cumulative read bytes
	diskWrite map[string]uint64 // device -> cumulative write bytes
	netRx     uint64
	netTx     uint64
}

// HostSampler reads the node's state through gopsutil. Rate fields are
// deltas between successive raw counters: exactly zero on the first call,
// (counter delta / elapsed seconds) afterwards.
type HostSampler struct {
	nodeID  string
	version string

	prev   ioCounters
	prevAt time.Time
	primed bool

	// readCounters is swappable in tests.
	readCounters func() ioCounters
}

// NewHostSampler creates a sampler for this host.
func NewHostSampler(nodeID, version string) *HostSampler {
	return &HostSampler{
		nodeID:       nodeID,
		version:      version,
		readCounters: readHostCounters,
	}
}

// Sample reads the host and computes rates against the previous call.
func (s *HostSampler) Sample(now time.Time) (Sample, error) {
	sample := Sample{
		NodeID:    s.nodeID,
		Version:   s.version,
		Timestamp: now.UnixMilli(),
	}

	// Partial sensor failures degrade the affected fields to zero; the
	// heartbeat itself still goes out.
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		sample.CPUPct = pct[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		sample.RAMUsed = vm.Used
		sample.RAMTotal = vm.Total
	}
	if up, err := host.Uptime(); err == nil {
		sample.Uptime = up
	}

	counters := s.readCounters()
	elapsed := now.Sub(s.prevAt).Seconds()

	if s.primed && elapsed > 0 {
		sample.NetRxRate = rate(counters.netRx, s.prev.netRx, elapsed)
		sample.NetTxRate = rate(counters.netTx, s.prev.netTx, elapsed)
	}

	sample.Disks = s.diskSamples(counters, elapsed)

	s.prev = counters
	s.prevAt = now
	s.primed = true

	return sample, nil
}

func (s *HostSampler) diskSamples(counters ioCounters, elapsed float64) []DiskSample {
	parts, err := disk.Partitions(false)
	if err != nil {
		return nil
	}

	var disks []DiskSample
	for _, part := range parts {
		usage, err := disk.Usage(part.Mountpoint)
		if err != nil {
			continue
		}

		d := DiskSample{
			Device: part.Device,
			Mount:  part.Mountpoint,
			Used:   usage.Used,
			Total:  usage.Total,
		}

		dev := filepath.Base(part.Device)
		if s.primed && elapsed > 0 {
			d.ReadRate = rate(counters.diskRead[dev], s.prev.diskRead[dev], elapsed)
			d.WriteRate = rate(counters.diskWrite[dev], s.prev.diskWrite[dev], elapsed)
		}

		disks = append(disks, d)
	}

	return disks
}

// readHostCounters pulls the cumulative disk and network counters.
func readHostCounters() ioCounters {
	c := ioCounters{
		diskRead:  make(map[string]uint64),
		diskWrite: make(map[string]uint64),
	}

	if io, err := disk.IOCounters(); err == nil {
		for dev, stat := range io {
			c.diskRead[dev] = stat.ReadBytes
			c.diskWrite[dev] = stat.WriteBytes
		}
	}

	if stats, err := net.IOCounters(false); err == nil && len(stats) > 0 {
		c.netRx = stats[0].BytesRecv
		c.netTx = stats[0].BytesSent
	}

	return c
}

// rate computes a per-second rate from two cumulative counter readings,
// treating counter resets (current < previous) as zero.
func rate(current, previous uint64, elapsed float64) float64 {
	if current < previous {
		return 0
	}
	return float64(current-previous) / elapsed
}
