package maa

// stream.go implements the stream access unit (C6): the largest single
// component, decoding a stride-load instruction into a page-at-a-time
// request plan, draining that plan through the request table with
// per-DRAM-group fairness, and writing cache-line responses back into the
// scratchpad. Grounded on original_source/src/mem/MAA/StreamAccess.cc's
// Decode/Request/Response states, expressed with the teacher's tagged-unit
// dispatch idiom (internal/vm's Executable/Addressable staged-operation
// interfaces) instead of a class hierarchy.

// StreamState is the stream unit's state machine (spec.md §4.6).
type StreamState uint8

const (
	StreamIdle StreamState = iota
	StreamDecode
	StreamRequest
	StreamResponse
)

func (s StreamState) String() string {
	switch s {
	case StreamIdle:
		return "idle"
	case StreamDecode:
		return "decode"
	case StreamRequest:
		return "request"
	case StreamResponse:
		return "response"
	default:
		return "stream(?)"
	}
}

// streamPage is one planned page-sized slice of the iteration space: the
// logical indices [startIdx, maxIdx) it still owes, the DRAM group its
// first cache line maps to (for the per-group fairness invariant), and the
// address of the cache line currently being accumulated.
type streamPage struct {
	startIdx int
	maxIdx   int
	group    DRAMGroup
	lastLine Addr // zero means "no line open yet"
}

// StreamUnit executes one stream-load instruction at a time.
type StreamUnit struct {
	id   UnitID
	cfg  Config
	spd  *SPD
	rf   *RF
	rt   *RequestTable
	port *Port

	state StreamState
	instr Instruction

	base             Addr
	dst, cond        TileID
	min, max, stride int
	wordSize         int
	length           int // L
	wordsPerLine     int // K
	wordsPerPage     int // P

	allPages     []streamPage
	currentPages []streamPage

	sent, received int
	rtFullStat     int

	onFinish func(Instruction)
}

// NewStreamUnit allocates an idle stream unit with its own request table
// (spec.md's request table is per stream unit, sized by Config).
func NewStreamUnit(id UnitID, cfg Config, spd *SPD, rf *RF, port *Port) *StreamUnit {
	return &StreamUnit{
		id:   id,
		cfg:  cfg,
		spd:  spd,
		rf:   rf,
		rt:   NewRequestTable(cfg),
		port: port,
	}
}

// Class identifies this unit's functional-unit class, for the controller's
// generic issue loop.
func (su *StreamUnit) Class() UnitClass { return ClassStream }

// ID returns the unit's index within its class's bank.
func (su *StreamUnit) ID() UnitID { return su.id }

// State reports the unit's current state-machine value.
func (su *StreamUnit) State() StreamState { return su.state }

// Idle reports whether the unit is free to accept a new instruction.
func (su *StreamUnit) Idle() bool { return su.state == StreamIdle }

// NumRTFull is the STR_NumRTFull statistic: how many times this unit's
// request table refused an insert (spec.md scenario 6).
func (su *StreamUnit) NumRTFull() int { return su.rtFullStat }

// SetInstruction claims instr, decodes it, and plans its pages, leaving the
// unit in StreamRequest ready for Step to drive forward. onFinish is called
// exactly once, when the whole instruction retires.
//
// The register convention -- Src1Reg holds min, Src2Reg holds max, Src3Reg
// holds stride -- is not pinned down by the instruction-encoding fields in
// spec.md §6; this mapping is recorded as a design decision in DESIGN.md.
func (su *StreamUnit) SetInstruction(instr Instruction, onFinish func(Instruction)) {
	su.instr = instr
	su.onFinish = onFinish
	su.state = StreamDecode
	su.decode()
}

func (su *StreamUnit) decode() {
	su.base = su.instr.BaseAddr
	su.dst = su.instr.Dst1
	su.cond = su.instr.Cond

	su.min = int(int32(su.rf.Read32(su.instr.Src1Reg)))
	su.max = int(int32(su.rf.Read32(su.instr.Src2Reg)))
	su.stride = int(int32(su.rf.Read32(su.instr.Src3Reg)))

	if su.stride <= 0 {
		su.stride = 1
	}

	su.wordSize = su.instr.DataType.WordSize()

	steps := ceilDiv(su.max-su.min, su.stride)
	if steps < 0 {
		steps = 0
	}

	su.length = min(su.cfg.TileElems, steps)
	su.wordsPerLine = su.cfg.CacheLineSize / su.wordSize
	su.wordsPerPage = su.cfg.PageSize / su.wordSize

	su.spd.SetTileService(su.dst, su.wordSize)

	su.rt.Reset()
	su.allPages = nil
	su.currentPages = nil
	su.sent, su.received = 0, 0

	su.planPages()

	su.state = StreamRequest
}

// vaddrAt returns the virtual address of logical index idx.
func (su *StreamUnit) vaddrAt(idx int) Addr {
	iter := su.min + idx*su.stride

	return su.base + Addr(su.wordSize*iter)
}

// planPages groups the logical index space [0, L) into page-sized runs,
// splitting wherever consecutive indices cross a page boundary (spec.md
// §4.6's page pre-plan).
func (su *StreamUnit) planPages() {
	idx := 0

	for idx < su.length {
		startIdx := idx
		pageNum := su.vaddrAt(idx) / Addr(su.cfg.PageSize)

		for idx < su.length && su.vaddrAt(idx)/Addr(su.cfg.PageSize) == pageNum {
			idx++
		}

		lineAddr := LineAddr(su.vaddrAt(startIdx), su.cfg.DRAM)
		group := MapAddress(lineAddr, su.cfg.DRAM).Group()

		su.allPages = append(su.allPages, streamPage{startIdx: startIdx, maxIdx: idx, group: group})
	}
}

// refillCurrentPages moves pages from allPages into currentPages, keeping
// at most one page per DRAM group in currentPages at a time (spec.md
// §4.6's group-fairness invariant).
func (su *StreamUnit) refillCurrentPages() {
	present := make(map[DRAMGroup]bool, len(su.currentPages))
	for _, pg := range su.currentPages {
		present[pg.group] = true
	}

	var remaining []streamPage

	for _, pg := range su.allPages {
		if present[pg.group] {
			remaining = append(remaining, pg)

			continue
		}

		present[pg.group] = true
		su.currentPages = append(su.currentPages, pg)
	}

	su.allPages = remaining
}

// Step drives the request loop forward by one pass: it refills
// currentPages, then visits each current page once, respecting the
// per-channel single-outstanding rule for this pass. It is safe to call
// repeatedly (by the controller's issue loop, or as a port/table unblock
// callback); calls after the unit has gone idle are no-ops.
func (su *StreamUnit) Step() {
	if su.state != StreamRequest {
		return
	}

	su.refillCurrentPages()

	if len(su.currentPages) == 0 && len(su.allPages) == 0 {
		su.tryFinish()

		return
	}

	channelUsed := make(map[uint32]bool)
	remaining := su.currentPages[:0]

	for _, pg := range su.currentPages {
		pg := pg
		if su.processPage(&pg, channelUsed) {
			remaining = append(remaining, pg) // blocked: keep for next pass
		} else if pg.startIdx < pg.maxIdx {
			remaining = append(remaining, pg) // deferred mid-page by channel fairness
		}
		// else: page fully drained and flushed, dropped
	}

	su.currentPages = remaining

	su.tryFinish()
}

// processPage advances one page as far as the request table and per-pass
// channel fairness allow, returning true if it is blocked and must be
// retried on a later Step (condition operand not ready, request table
// full, or its line could not be flushed this pass).
func (su *StreamUnit) processPage(pg *streamPage, channelUsed map[uint32]bool) bool {
	for pg.startIdx < pg.maxIdx {
		idx := pg.startIdx

		if su.cond != NoTile && !su.spd.Ready(su.cond, ElementIndex(idx)) {
			return true
		}

		condTrue := true
		if su.cond != NoTile {
			condTrue = su.spd.Read(su.cond, ElementIndex(idx), 4) != 0
		}

		if !condTrue {
			su.spd.Write(su.dst, ElementIndex(idx), su.wordSize, 0)
			pg.startIdx++

			continue
		}

		vaddr := su.vaddrAt(idx)
		lineAddr := LineAddr(vaddr, su.cfg.DRAM)

		if lineAddr != pg.lastLine {
			if pg.lastLine != 0 && !su.flushLine(pg, channelUsed) {
				return true
			}

			pg.lastLine = lineAddr
		}

		wordID := uint16((vaddr - lineAddr) / Addr(su.wordSize))
		if !su.rt.Add(lineAddr, RequestTableEntry{Iter: idx, WordID: wordID}) {
			su.rtFullStat++

			return true
		}

		pg.startIdx++
	}

	if pg.lastLine != 0 {
		return !su.flushLine(pg, channelUsed)
	}

	return false
}

// flushLine emits a read request for the page's currently-open line,
// enforcing the per-channel single-outstanding-line rule for this Step
// pass: at most one line per DRAM channel may be sent within one call to
// Step. It returns false if the line could not be sent this pass (either
// the channel already sent a line this pass, or the cache-side port is
// back-pressured), leaving the page to retry on a later Step.
func (su *StreamUnit) flushLine(pg *streamPage, channelUsed map[uint32]bool) bool {
	group := MapAddress(pg.lastLine, su.cfg.DRAM).Group()
	if channelUsed[group.Channel] {
		return false
	}

	if !su.port.Send(ClassStream, su.id, Packet{Kind: ReadShared, Addr: pg.lastLine}, MaxXbarPackets, su.Step) {
		return false
	}

	channelUsed[group.Channel] = true
	su.sent++
	pg.lastLine = 0

	return true
}

// tryFinish transitions the unit out of StreamRequest once every planned
// request has been sent and answered.
func (su *StreamUnit) tryFinish() {
	if len(su.allPages) != 0 || len(su.currentPages) != 0 {
		return
	}

	if su.sent != su.received {
		su.state = StreamResponse

		return
	}

	su.finish()
}

// RecvData delivers a cache-line response to this unit if it is waiting on
// addr. It returns false if the unit has no outstanding request for addr,
// so the controller can try the next functional unit (spec.md §4.7:
// exactly one unit must claim a given response).
func (su *StreamUnit) RecvData(addr Addr, data [64]byte) bool {
	entries, ok := su.rt.Drain(addr)
	if !ok {
		return false
	}

	for _, e := range entries {
		su.spd.Write(su.dst, ElementIndex(e.Iter), su.wordSize, wordAt(data, e.WordID, su.wordSize))
	}

	su.received++

	su.port.Send(ClassStream, su.id, Packet{Kind: CleanEvict, Addr: addr}, NotBlocked, func() {})

	if su.state == StreamResponse {
		su.tryFinish()
	} else {
		su.Step()
	}

	return true
}

// finish marks the destination tile Finished with every element Ready --
// atomically, from the caller's point of view, since no other goroutine
// can observe SPD state between the writes in this cooperative scheduling
// model (spec.md §4.6's Response state) -- then hands control back to the
// controller via onFinish.
func (su *StreamUnit) finish() {
	for idx := 0; idx < su.length; idx++ {
		su.spd.SetReady(su.dst, ElementIndex(idx), su.wordSize)
	}

	su.spd.SetTileFinished(su.dst, su.wordSize, su.length)

	instr := su.instr
	cb := su.onFinish

	su.state = StreamIdle
	su.instr = Instruction{}
	su.onFinish = nil

	if cb != nil {
		cb(instr)
	}
}

// wordAt extracts a wordSize-byte little-endian word at word index wid from
// a 64-byte cache line.
func wordAt(data [64]byte, wid uint16, wordSize int) uint64 {
	off := int(wid) * wordSize

	var v uint64
	for i := 0; i < wordSize; i++ {
		v |= uint64(data[off+i]) << (8 * i)
	}

	return v
}

func ceilDiv(a, b int) int {
	if b == 0 {
		return 0
	}

	return (a + b - 1) / b
}
