package maa

// spd.go implements the scratchpad (C2): N tiles of M 32-bit words, with
// per-element readiness, per-tile lifecycle and cache-shadow (dirty) state,
// and port-count-scaled latency accounting. Generalizes the teacher's flat
// Memory/PhysicalMemory (a single array of 16-bit cells) to an array of
// tiles, and borrows the "typed view over raw storage" idea from the
// teacher's device-register types.

import "fmt"

// tile holds one scratchpad tile's metadata and backing storage. 64-bit
// values are never stored directly: a producer writing a 64-bit element
// writes the low half into this tile and the high half into the paired tile
// (TileID.Pair), and the SPD's setters keep both halves' metadata in lock
// step (spec.md §3's pairing invariant).
type tile struct {
	words     []Word
	ready     []bool
	lifecycle Lifecycle
	dirty     bool
	size      int
	wordSize  int // 0 until the tile is claimed by an in-flight instruction
}

// SPD is the scratchpad memory controller.
type SPD struct {
	cfg   Config
	tiles []tile
}

// NewSPD allocates a scratchpad of cfg.NumTiles tiles, each cfg.TileElems
// elements wide, all Idle.
func NewSPD(cfg Config) *SPD {
	spd := &SPD{cfg: cfg, tiles: make([]tile, cfg.NumTiles)}

	for i := range spd.tiles {
		spd.tiles[i].words = make([]Word, cfg.TileElems)
		spd.tiles[i].ready = make([]bool, cfg.TileElems)
	}

	return spd
}

func (spd *SPD) tileAt(id TileID) *tile {
	return &spd.tiles[id]
}

// checkWordSize panics (a programming-error assertion, per spec.md §4.2) if
// the caller's word size disagrees with the tile's claimed word size.
func (spd *SPD) checkWordSize(id TileID, wordSize int) {
	t := spd.tileAt(id)
	if t.wordSize != 0 && t.wordSize != wordSize {
		panic(fmt.Sprintf("spd: tile %s: word size mismatch: have %d, want %d", id, t.wordSize, wordSize))
	}
}

// Read returns the raw bytes at (tile, element), as a uint64. For a 4-byte
// word size only the low 32 bits are meaningful; for 8 bytes, the value is
// assembled from tile and tile.Pair at the same element index, low half
// first (little-endian across the pair).
func (spd *SPD) Read(id TileID, elem ElementIndex, wordSize int) uint64 {
	t := spd.tileAt(id)
	lo := uint64(t.words[elem])

	if wordSize == 4 {
		return lo
	}

	hi := uint64(spd.tileAt(id.Pair()).words[elem])

	return lo | hi<<32
}

// Write updates the payload at (tile, element) without touching Ready.
func (spd *SPD) Write(id TileID, elem ElementIndex, wordSize int, val uint64) {
	spd.tileAt(id).words[elem] = Word(val)

	if wordSize == 8 {
		spd.tileAt(id.Pair()).words[elem] = Word(val >> 32)
	}
}

// SetReady marks (tile, element) as holding its producer's final value. For
// an 8-byte word size, both halves of the pair are marked.
func (spd *SPD) SetReady(id TileID, elem ElementIndex, wordSize int) {
	spd.tileAt(id).ready[elem] = true

	if wordSize == 8 {
		spd.tileAt(id.Pair()).ready[elem] = true
	}
}

// ClearReady clears every element's Ready bit for a tile (and its pair, for
// an 8-byte word size). Called when a new producer claims the tile.
func (spd *SPD) ClearReady(id TileID, wordSize int) {
	t := spd.tileAt(id)
	for i := range t.ready {
		t.ready[i] = false
	}

	if wordSize == 8 {
		spd.ClearReady(id.Pair(), 4)
	}
}

// Ready reports whether an individual element has been marked ready.
func (spd *SPD) Ready(id TileID, elem ElementIndex) bool {
	return spd.tileAt(id).ready[elem]
}

// setPairedLifecycle assigns the lifecycle to a tile, and, for an 8-byte
// word size, to its pair -- keeping the two halves' lifecycle identical at
// every observable instant (spec.md §3's pairing invariant).
func (spd *SPD) setPairedLifecycle(id TileID, wordSize int, l Lifecycle) {
	spd.checkWordSize(id, wordSize)

	t := spd.tileAt(id)
	t.lifecycle = l
	t.wordSize = wordSize

	if wordSize == 8 {
		spd.checkWordSize(id.Pair(), wordSize)

		p := spd.tileAt(id.Pair())
		p.lifecycle = l
		p.wordSize = wordSize
	}
}

// SetTileService transitions a tile (and its pair, for 8-byte values) to
// Service: a unit has begun producing into it.
func (spd *SPD) SetTileService(id TileID, wordSize int) {
	spd.ClearReady(id, wordSize)
	spd.setPairedLifecycle(id, wordSize, Service)
}

// SetTileFinished transitions a tile to Finished: its content is valid and
// visible to consumers. Callers are responsible for having set every
// element's Ready bit first.
func (spd *SPD) SetTileFinished(id TileID, wordSize int, size int) {
	spd.setPairedLifecycle(id, wordSize, Finished)

	t := spd.tileAt(id)
	t.size = size

	if wordSize == 8 {
		spd.tileAt(id.Pair()).size = size
	}
}

// SetTileIdle sets a tile's lifecycle (and its pair's, for 8-byte values)
// back to Idle. Size, Ready bits, Dirty and the claimed word size are left
// as they are.
func (spd *SPD) SetTileIdle(id TileID, wordSize int) {
	spd.setPairedLifecycle(id, wordSize, Idle)
}

// SetTileClean clears the Dirty flag after the invalidator has written a
// CPU-dirtied line back into SPD storage.
func (spd *SPD) SetTileClean(id TileID) {
	spd.tileAt(id).dirty = false
}

// MarkDirty raises the Dirty flag, because the CPU wrote the tile through
// the cacheable window.
func (spd *SPD) MarkDirty(id TileID) {
	spd.tileAt(id).dirty = true
}

// Lifecycle, Dirty, and Size are read-only accessors used by the controller
// for dependency computation and by spd-size/spd-ready transactions.
func (spd *SPD) Lifecycle(id TileID) Lifecycle { return spd.tileAt(id).lifecycle }
func (spd *SPD) Dirty(id TileID) bool          { return spd.tileAt(id).dirty }
func (spd *SPD) Size(id TileID) int            { return spd.tileAt(id).size }

// ReadLatency returns the cycle cost of n accesses against the configured
// read-port count, linear as spec.md §4.2 requires.
func (spd *SPD) ReadLatency(accesses int) int {
	return latency(accesses, spd.cfg.SPDReadPorts)
}

// WriteLatency returns the cycle cost of n accesses against the configured
// write-port count.
func (spd *SPD) WriteLatency(accesses int) int {
	return latency(accesses, spd.cfg.SPDWritePorts)
}

func latency(accesses, ports int) int {
	if ports <= 0 {
		ports = 1
	}

	return (accesses + ports - 1) / ports
}
