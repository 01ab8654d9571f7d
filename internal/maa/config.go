package maa

// config.go collects the sizing parameters that the spec leaves as
// configuration: tile geometry, register and instruction counts, port
// counts, and request-table capacity.

// Config sizes one MAA instance.
type Config struct {
	// Base is the physical address where the MAA's address range begins.
	Base Addr

	// NumTiles is the number of tiles (N) in the scratchpad.
	NumTiles int

	// TileElems is the number of elements per tile (M).
	TileElems int

	// NumRegs is the number of 32-bit scalar registers in the register file.
	NumRegs int

	// NumInstrSlots is the depth of the instruction file (in-flight
	// instruction window).
	NumInstrSlots int

	// NumInstrContexts is the number of concurrently addressable
	// instruction-ingest buffers (spec.md §6: instruction-reg window size is
	// N_instr*24 bytes). Most configurations use one.
	NumInstrContexts int

	// SPDReadPorts and SPDWritePorts bound how many scratchpad accesses
	// retire per cycle, for latency accounting (spec.md §4.2).
	SPDReadPorts  int
	SPDWritePorts int

	// RTAddresses and RTEntriesPerAddress size the stream unit's request
	// table (A addresses x E entries/address, spec.md §4.5).
	RTAddresses         int
	RTEntriesPerAddress int

	// NumInvalidators and NumStreamUnits size the invalidator and stream
	// access unit banks.
	NumInvalidators int
	NumStreamUnits  int

	// NumIndirectUnits, NumALUs, NumRangeFusers size the out-of-scope
	// functional-unit classes so the controller's generic issue loop has
	// something concrete to pair against (spec.md §4.7, §9).
	NumIndirectUnits int
	NumALUs          int
	NumRangeFusers   int

	// CacheLineSize is the width, in bytes, of one coherent cache line.
	CacheLineSize int

	// PageSize is the width, in bytes, of one DRAM page, used by the stream
	// unit's page pre-plan (spec.md §4.6).
	PageSize int

	DRAM DRAMConfig
}

// DefaultConfig returns a small but fully wired configuration suitable for
// tests and the CLI's demo workloads.
func DefaultConfig() Config {
	return Config{
		Base:                0x8000_0000,
		NumTiles:            32,
		TileElems:           256,
		NumRegs:             32,
		NumInstrSlots:       16,
		NumInstrContexts:    1,
		SPDReadPorts:        2,
		SPDWritePorts:       2,
		RTAddresses:         32,
		RTEntriesPerAddress: 16,
		NumInvalidators:     1,
		NumStreamUnits:      1,
		NumIndirectUnits:    1,
		NumALUs:             1,
		NumRangeFusers:      1,
		CacheLineSize:       64,
		PageSize:            4096,
		DRAM:                DefaultDRAMConfig(),
	}
}

// spdDataSpan is the width, in bytes, of one SPD data window (cacheable or
// non-cacheable): every tile's elements, stored as 4-byte words regardless of
// the tile's configured data type (spec.md §3: a 64-bit tile is two 32-bit
// tiles).
func (c Config) spdDataSpan() Addr {
	return Addr(c.NumTiles * c.TileElems * 4)
}

func (c Config) spdSizeSpan() Addr {
	return Addr(c.NumTiles * 2)
}

func (c Config) spdReadySpan() Addr {
	return Addr(c.NumTiles * 2)
}

func (c Config) scalarRegSpan() Addr {
	return Addr(c.NumRegs * 8)
}

func (c Config) instructionRegSpan() Addr {
	return Addr(c.NumInstrContexts * 24)
}
