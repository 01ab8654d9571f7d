package cmd

// memsim.go is a stand-in DRAM/cache model: spec.md §1 puts real timing
// models out of scope, but the CLI's demo and run commands need something
// to answer the stream unit's read-shared/clean-evict packets. Grounded on
// the teacher's bus transport (internal/vm/bus.go's send/accept contract),
// generalized from a single fixed-latency memory to a bounded-in-flight
// model that exercises the controller's port back-pressure.

import (
	"sync"

	"github.com/arborsim/maa/internal/maa"
	"github.com/arborsim/maa/internal/sched"
)

// memModel is a sparse byte store addressed by cache line, answering every
// read after a fixed latency and accepting every write-back immediately. It
// caps the number of outstanding reads to exercise the MAA's retry/park
// path (spec.md §4.7, §9) instead of always accepting.
type memModel struct {
	mu      sync.Mutex
	lines   map[maa.Addr][64]byte
	sched   *sched.Scheduler
	ctrl    *maa.Controller
	latency uint64

	maxInFlight int
	inFlight    int
}

func newMemModel(s *sched.Scheduler, ctrl *maa.Controller, latency uint64, maxInFlight int) *memModel {
	return &memModel{
		lines:       make(map[maa.Addr][64]byte),
		sched:       s,
		ctrl:        ctrl,
		latency:     latency,
		maxInFlight: maxInFlight,
	}
}

// Transport is the cache-side transport function handed to
// maa.NewController. It answers ReadShared/ReadExclusive with a scheduled
// RecvCacheResponse and accepts CleanEvict write-backs unconditionally.
func (m *memModel) Transport(pkt maa.Packet) bool {
	switch pkt.Kind {
	case maa.ReadShared, maa.ReadExclusive:
		return m.startRead(pkt.Addr)
	case maa.CleanEvict:
		m.mu.Lock()
		m.lines[pkt.Addr] = pkt.Data
		m.mu.Unlock()

		return true
	default:
		return true
	}
}

func (m *memModel) startRead(addr maa.Addr) bool {
	m.mu.Lock()

	if m.inFlight >= m.maxInFlight {
		m.mu.Unlock()
		return false
	}

	m.inFlight++
	m.mu.Unlock()

	m.sched.Schedule(m.latency, func() {
		m.mu.Lock()
		data := m.lines[addr]
		m.inFlight--
		m.mu.Unlock()

		m.ctrl.RecvCacheResponse(addr, data)
		m.ctrl.Unblock()
	})

	return true
}

// Seed writes values[i] (little-endian, wordSize bytes) at addr+i*wordSize,
// filling [addr, addr+len(values)*wordSize) word by word, for building demo
// data sets.
func (m *memModel) Seed(addr maa.Addr, wordSize int, values []uint64) {
	for i, v := range values {
		lineAddr := addr + maa.Addr(i*wordSize)
		line := m.lines[lineAddr.AlignDown(64)]
		off := int(lineAddr % 64)

		for b := 0; b < wordSize; b++ {
			line[off+b] = byte(v >> (8 * b))
		}

		m.lines[lineAddr.AlignDown(64)] = line
	}
}
