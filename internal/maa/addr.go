package maa

// addr.go implements the address-range decoder (C1): a pure function that
// classifies a physical address falling within the MAA's configured span
// into one of the memory-mapped windows of spec.md §6, generalizing the
// teacher's MMIO address dispatch (a single fixed I/O page) to six
// contiguous, independently-sized windows.

import "fmt"

// Window identifies one of the MAA's memory-mapped address ranges.
type Window uint8

const (
	SPDDataCacheable Window = iota
	SPDDataNoncacheable
	SPDSize
	SPDReady
	ScalarReg
	InstructionReg
	External
)

func (w Window) String() string {
	switch w {
	case SPDDataCacheable:
		return "spd-data-cacheable"
	case SPDDataNoncacheable:
		return "spd-data-noncacheable"
	case SPDSize:
		return "spd-size"
	case SPDReady:
		return "spd-ready"
	case ScalarReg:
		return "scalar-reg"
	case InstructionReg:
		return "instruction-reg"
	default:
		return "external"
	}
}

// addrRange is one contiguous, half-open span of the address decoder's table.
type addrRange struct {
	window Window
	start  Addr
	end    Addr // exclusive
}

// AddressRangeDecoder classifies physical addresses into MAA windows. It is
// pure and holds no mutable state after construction.
type AddressRangeDecoder struct {
	base   Addr
	span   Addr
	ranges []addrRange
}

// NewAddressRangeDecoder lays out the six windows back to back, starting at
// cfg.Base, in the fixed order given by spec.md §6.
func NewAddressRangeDecoder(cfg Config) *AddressRangeDecoder {
	d := &AddressRangeDecoder{base: cfg.Base}

	next := cfg.Base
	add := func(w Window, size Addr) {
		d.ranges = append(d.ranges, addrRange{window: w, start: next, end: next + size})
		next += size
	}

	add(SPDDataCacheable, cfg.spdDataSpan())
	add(SPDDataNoncacheable, cfg.spdDataSpan())
	add(SPDSize, cfg.spdSizeSpan())
	add(SPDReady, cfg.spdReadySpan())
	add(ScalarReg, cfg.scalarRegSpan())
	add(InstructionReg, cfg.instructionRegSpan())

	d.span = next - cfg.Base

	return d
}

// Decode classifies a physical address, returning the window it falls in and
// the byte offset within that window. The third return is false if addr is
// outside every configured window ("external", spec.md §4.1).
//
// The windows are disjoint and laid out contiguously by construction, so at
// most one range ever matches; there is no second candidate to distinguish
// (see DESIGN.md's note on the open question about inRange's -1 return).
func (d *AddressRangeDecoder) Decode(addr Addr) (Window, Addr, bool) {
	if addr < d.base || addr >= d.base+d.span {
		return External, 0, false
	}

	for _, r := range d.ranges {
		if addr >= r.start && addr < r.end {
			return r.window, addr - r.start, true
		}
	}

	return External, 0, false
}

// Span reports the decoder's total configured address range, for diagnostics.
func (d *AddressRangeDecoder) Span() (Addr, Addr) {
	return d.base, d.base + d.span
}

// WindowBase reports the address where window w begins, for callers that
// build CPU-side transactions (the CLI's demo/run commands, test fixtures)
// rather than receive them.
func (d *AddressRangeDecoder) WindowBase(w Window) (Addr, bool) {
	for _, r := range d.ranges {
		if r.window == w {
			return r.start, true
		}
	}

	return 0, false
}

func (d *AddressRangeDecoder) String() string {
	return fmt.Sprintf("decoder(base=%s span=%s)", d.base, Addr(d.span))
}
