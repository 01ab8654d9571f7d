package maa

// dram.go implements the DRAM address mapper (C8): a pure function
// splitting a physical address into the six-level DRAM coordinate
// (channel, rank, bank-group, bank, row, column) the stream unit needs for
// per-channel fairness and the request table's cache-line keying (spec.md
// §4.5, §4.6). Grounded on the gem5 AddrMapper code paths referenced from
// original_source/src/mem/MAA/StreamAccess.cc, generalized into the
// teacher's style of small bitfield shift/mask helpers (internal/vm/bits.go).

import "fmt"

// DRAMConfig gives the bit width of each level of the address-mapping
// hierarchy. From least to most significant the fields are: cache-line
// offset, column, bank, bank group, channel, row. There are no rank bits.
type DRAMConfig struct {
	LineSizeBits  int // log2(cache line size); low bits ignored entirely
	ColumnBits    int
	BankBits      int
	BankGroupBits int
	ChannelBits   int
	RowBits       int
}

// DefaultDRAMConfig returns a modest 6-level hierarchy: 64-byte lines,
// 7-bit columns, 3-bit banks, 2-bit bank groups, 2-bit channels, and
// whatever remains as row bits.
func DefaultDRAMConfig() DRAMConfig {
	return DRAMConfig{
		LineSizeBits:  6,
		ColumnBits:    7,
		BankBits:      3,
		BankGroupBits: 2,
		ChannelBits:   2,
		RowBits:       18,
	}
}

// DRAMCoord is one address's position in the DRAM hierarchy.
type DRAMCoord struct {
	Channel   uint32
	Rank      uint32
	BankGroup uint32
	Bank      uint32
	Row       uint32
	Column    uint32
}

func (c DRAMCoord) String() string {
	return fmt.Sprintf("ch%d/rk%d/bg%d/bk%d/row%d/col%d",
		c.Channel, c.Rank, c.BankGroup, c.Bank, c.Row, c.Column)
}

// Group identifies the (channel, rank, bank-group) triple the stream unit's
// per-group fairness rotation keys on (spec.md §4.6).
func (c DRAMCoord) Group() DRAMGroup {
	return DRAMGroup{Channel: c.Channel, Rank: c.Rank, BankGroup: c.BankGroup}
}

// DRAMGroup is the key the stream unit rotates fairness across.
type DRAMGroup struct {
	Channel   uint32
	Rank      uint32
	BankGroup uint32
}

func (g DRAMGroup) String() string {
	return fmt.Sprintf("ch%d/rk%d/bg%d", g.Channel, g.Rank, g.BankGroup)
}

// MapAddress splits a physical address into its DRAM coordinate. It is a
// pure bitfield decode: no rank field is currently modeled independently of
// channel (a single-rank-per-channel topology), so Rank is always 0.
func MapAddress(addr Addr, cfg DRAMConfig) DRAMCoord {
	v := uint64(addr) >> uint(cfg.LineSizeBits)

	column := extractBits(&v, cfg.ColumnBits)
	bank := extractBits(&v, cfg.BankBits)
	bankGroup := extractBits(&v, cfg.BankGroupBits)
	channel := extractBits(&v, cfg.ChannelBits)
	row := extractBits(&v, cfg.RowBits)

	return DRAMCoord{
		Channel:   channel,
		Rank:      0,
		BankGroup: bankGroup,
		Bank:      bank,
		Row:       row,
		Column:    column,
	}
}

// extractBits pulls the low n bits off v and shifts the rest down, LSB
// first -- the same "consume and advance" pattern as the teacher's
// instruction-field bit extraction.
func extractBits(v *uint64, n int) uint32 {
	if n <= 0 {
		return 0
	}

	mask := uint64(1)<<uint(n) - 1
	field := uint32(*v & mask)
	*v >>= uint(n)

	return field
}

// LineAddr returns the cache-line-aligned address containing addr, the key
// the request table coalesces requests under (spec.md §4.5).
func LineAddr(addr Addr, cfg DRAMConfig) Addr {
	lineSize := Addr(1) << uint(cfg.LineSizeBits)

	return addr.AlignDown(lineSize)
}
