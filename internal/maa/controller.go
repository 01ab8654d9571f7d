package maa

// controller.go implements the MAA controller (C7): CPU-side transaction
// routing, instruction-reg ingest, dispatch (dependency computation plus
// instruction-file admission), issue (pairing idle units with ready
// instructions in canonical class order), and completion callbacks.
// Grounded on original_source/src/mem/MAA/MAA.cc's recvTimingReq /ports
// dispatch table and the teacher's central Machine loop
// (internal/vm/exec.go's Run/Step), generalized from the teacher's
// single-unit fetch-decode-execute cycle to the MAA's many-unit issue loop.

import (
	"fmt"

	"github.com/arborsim/maa/internal/sched"
)

// MMIOCommand is the kind of CPU-side transaction the controller accepts
// (spec.md §4.7's recv-path table).
type MMIOCommand uint8

const (
	CmdRead MMIOCommand = iota
	CmdWrite
)

// unit is the common shape the controller's issue loop drives every
// functional-unit class through: tagged dispatch rather than an interface
// hierarchy (spec.md §9's "tagged-variant unit").
type unit interface {
	Class() UnitClass
	Idle() bool
	SetInstruction(instr Instruction, onFinish func(Instruction))
	Step()
}

// Controller is the MAA's central coordinator.
type Controller struct {
	cfg     Config
	decoder *AddressRangeDecoder
	spd     *SPD
	rf      *RF
	ifile   *IFile
	sched   *sched.Scheduler

	cpuPort   *Port
	cachePort *Port
	memPort   *Port

	units map[UnitClass][]unit

	// spdReadTick/spdReadCount and spdWriteTick/spdWriteCount track how many
	// SPD accesses have landed in the scheduler's current tick, so
	// Config.SPDReadPorts/SPDWritePorts contention is reflected in the
	// latency of a deferred response (spec.md §4.2, §4.7).
	spdReadTick   uint64
	spdReadCount  int
	spdWriteTick  uint64
	spdWriteCount int

	// instrBuf accumulates instruction-reg words 0 and 1 for the single
	// outstanding instruction ingest (spec.md §9's "global instruction
	// currently being decoded"); word index 2 is decoded together with them
	// and commits it.
	instrBuf     [2]uint64
	instrHave    [2]bool
	pendingInstr *Instruction
	pendingResp  func(uint64, bool)

	pendingReadyReads []readyWait

	// invalidating tracks tiles that already have a synthesized Invalidate
	// instruction in flight, so a dirty destination doesn't queue one
	// invalidator pass per blocked producer.
	invalidating map[TileID]bool

	numIssued int
}

type readyWait struct {
	tile    TileID
	respond func(uint64, bool)
}

// NewController wires an MAA instance from cfg, a scheduler to post
// deferred CPU-side responses to, and the three transport functions used to
// actually hand packets to the CPU, cache, and memory models. The cache and
// memory transports may be nil if not used by the caller's test fixture.
func NewController(cfg Config, sc *sched.Scheduler, cpuTransport, cacheTransport, memTransport func(Packet) bool) *Controller {
	c := &Controller{
		cfg:          cfg,
		decoder:      NewAddressRangeDecoder(cfg),
		spd:          NewSPD(cfg),
		rf:           NewRF(cfg),
		ifile:        NewIFile(cfg),
		sched:        sc,
		cpuPort:      NewPort(cpuTransport),
		cachePort:    NewPort(cacheTransport),
		memPort:      NewPort(memTransport),
		units:        make(map[UnitClass][]unit),
		invalidating: make(map[TileID]bool),
	}

	for i := 0; i < cfg.NumStreamUnits; i++ {
		c.units[ClassStream] = append(c.units[ClassStream], NewStreamUnit(UnitID(i), cfg, c.spd, c.rf, c.cachePort))
	}

	for i := 0; i < cfg.NumInvalidators; i++ {
		c.units[ClassInvalidator] = append(c.units[ClassInvalidator], &stubUnit{class: ClassInvalidator, id: UnitID(i), latency: 1})
	}

	for i := 0; i < cfg.NumIndirectUnits; i++ {
		c.units[ClassIndirect] = append(c.units[ClassIndirect], &stubUnit{class: ClassIndirect, id: UnitID(i), latency: 1})
	}

	for i := 0; i < cfg.NumALUs; i++ {
		c.units[ClassALU] = append(c.units[ClassALU], &stubUnit{class: ClassALU, id: UnitID(i), latency: 1})
	}

	for i := 0; i < cfg.NumRangeFusers; i++ {
		c.units[ClassRangeFuser] = append(c.units[ClassRangeFuser], &stubUnit{class: ClassRangeFuser, id: UnitID(i), latency: 1})
	}

	return c
}

// SPD, RF, and Decoder expose the controller's owned components read-only,
// for tests and the monitor dashboard.
func (c *Controller) SPD() *SPD                         { return c.spd }
func (c *Controller) RF() *RF                           { return c.rf }
func (c *Controller) Decoder() *AddressRangeDecoder      { return c.decoder }
func (c *Controller) IFile() *IFile                      { return c.ifile }

// HandleCPU routes one CPU-side transaction per the recv-path table of
// spec.md §4.7. respond is called with the read/write result once the
// transaction's latency has been accounted for; for reads that must wait on
// tile readiness, respond is deferred until a later FinishCompute call
// resolves it.
//
// An unmapped address, a write to a read-only window, or a read from a
// write-only window is a correctness failure, not an ordinary response: per
// spec.md §7 these abort the run rather than surface as respond(0, false),
// the same way spd.go's checkWordSize aborts on its own kind of programming
// error.
func (c *Controller) HandleCPU(cmd MMIOCommand, addr Addr, size int, data uint64, respond func(uint64, bool)) {
	win, off, ok := c.decoder.Decode(addr)
	if !ok {
		panic(&TransactionError{Addr: addr, Why: "address is outside every configured window"})
	}

	switch win {
	case SPDDataNoncacheable, SPDDataCacheable:
		c.handleSPDData(win, off, size, cmd, data, respond)
	case SPDSize:
		if cmd != CmdRead {
			panic(&TransactionError{Addr: addr, Why: "spd-size window is read-only"})
		}

		tile := TileID(off / 2)
		respond(uint64(c.spd.Size(tile)), true)
	case SPDReady:
		if cmd != CmdRead {
			panic(&TransactionError{Addr: addr, Why: "spd-ready window is read-only"})
		}

		c.handleSPDReady(off, respond)
	case ScalarReg:
		c.handleScalarReg(off, size, cmd, data, respond)
	case InstructionReg:
		if cmd != CmdWrite {
			panic(&TransactionError{Addr: addr, Why: "instruction-reg window is write-only"})
		}

		c.handleInstrReg(off, data, respond)
	default:
		panic(&TransactionError{Addr: addr, Why: "unmapped window"})
	}
}

// handleSPDData performs the SPD read/write synchronously but schedules the
// CPU-side response after the configured SPD port latency, per spec.md
// §4.7's recv-path table ("schedule response after SPD write latency" /
// "respond after SPD read latency").
func (c *Controller) handleSPDData(win Window, off Addr, size int, cmd MMIOCommand, data uint64, respond func(uint64, bool)) {
	tileSpan := Addr(c.cfg.TileElems * 4)
	tile := TileID(off / tileSpan)
	elem := ElementIndex((off % tileSpan) / 4)

	switch cmd {
	case CmdWrite:
		c.spd.Write(tile, elem, size, data)

		if win == SPDDataCacheable {
			c.spd.MarkDirty(tile)
		}

		c.scheduleRespond(c.spdWriteLatency(), func() { respond(0, true) })
	case CmdRead:
		val := c.spd.Read(tile, elem, size)
		c.scheduleRespond(c.spdReadLatency(), func() { respond(val, true) })
	}
}

// spdReadLatency and spdWriteLatency return the cycle cost of one more SPD
// access landing at the scheduler's current tick, given however many reads
// or writes already queued against the configured port count this same
// tick -- the counters reset whenever the scheduler's clock advances.
func (c *Controller) spdReadLatency() int {
	if now := c.sched.Now(); now != c.spdReadTick {
		c.spdReadTick = now
		c.spdReadCount = 0
	}

	c.spdReadCount++

	return c.spd.ReadLatency(c.spdReadCount)
}

func (c *Controller) spdWriteLatency() int {
	if now := c.sched.Now(); now != c.spdWriteTick {
		c.spdWriteTick = now
		c.spdWriteCount = 0
	}

	c.spdWriteCount++

	return c.spd.WriteLatency(c.spdWriteCount)
}

// scheduleRespond posts fn to the controller's scheduler latency ticks from
// now. A latency below one tick is clamped to one, so a response never
// resolves in the same call that requested it.
func (c *Controller) scheduleRespond(latency int, fn func()) {
	if latency < 1 {
		latency = 1
	}

	c.sched.Schedule(uint64(latency), fn)
}

func (c *Controller) handleSPDReady(off Addr, respond func(uint64, bool)) {
	tile := TileID(off / 2)

	if c.spd.Lifecycle(tile) == Finished {
		respond(1, true)

		return
	}

	c.pendingReadyReads = append(c.pendingReadyReads, readyWait{tile: tile, respond: respond})
}

func (c *Controller) handleScalarReg(off Addr, size int, cmd MMIOCommand, data uint64, respond func(uint64, bool)) {
	id := RegID(off / 4)

	switch cmd {
	case CmdWrite:
		if size == 8 {
			c.rf.Write64(id, data)
		} else {
			c.rf.Write32(id, Word(data))
		}

		respond(0, true)
	case CmdRead:
		if size == 8 {
			respond(c.rf.Read64(id), true)
		} else {
			respond(uint64(c.rf.Read32(id)), true)
		}
	}
}

// handleInstrReg accumulates the three instruction-reg words. Only writes
// are valid (spec.md §6); the response to word 2 is withheld until Dispatch
// admits the instruction.
func (c *Controller) handleInstrReg(off Addr, data uint64, respond func(uint64, bool)) {
	wordIdx := int((off % 24) / 8)

	switch wordIdx {
	case 0, 1:
		c.instrBuf[wordIdx] = data
		c.instrHave[wordIdx] = true
		respond(0, true)
	case 2:
		if !c.instrHave[0] || !c.instrHave[1] {
			respond(0, false)

			return
		}

		instr := DecodeWords(c.instrBuf[0], c.instrBuf[1], Addr(data))
		c.instrHave[0], c.instrHave[1] = false, false

		c.pendingInstr = &instr
		c.pendingResp = respond

		c.dispatch()
	}
}

// Dispatch computes operand dependency status and attempts admission into
// the instruction file (spec.md §4.7). It is safe to call repeatedly; if
// there is no pending instruction-reg commit, it is a no-op.
func (c *Controller) dispatch() {
	if c.pendingInstr == nil {
		return
	}

	instr := *c.pendingInstr

	deps := OperandDeps{
		Src1: c.srcDep(instr.Src1),
		Src2: c.srcDep(instr.Src2),
		Cond: c.srcDep(instr.Cond),
		Dst1: c.dstDep(instr.Dst1),
		Dst2: c.dstDep(instr.Dst2),
	}

	pushed, ok := c.tryPush(instr, deps)
	if !ok {
		// back-pressure: leave the transaction outstanding, caller (the
		// event scheduler) is expected to retry dispatch on the next
		// opportunity (e.g. an instruction-file slot draining). If the
		// block is a dirty destination or source, make sure an invalidator
		// pass is in flight for it so this retry eventually succeeds.
		for _, pair := range []struct {
			tile TileID
			dep  DependencyStatus
		}{
			{instr.Src1, deps.Src1}, {instr.Src2, deps.Src2}, {instr.Cond, deps.Cond},
			{instr.Dst1, deps.Dst1}, {instr.Dst2, deps.Dst2},
		} {
			if pair.dep == WaitForInvalidation {
				c.ensureInvalidate(pair.tile)
			}
		}

		return
	}

	if instr.Dst1 != NoTile {
		c.spd.ClearReady(instr.Dst1, instr.DataType.WordSize())
	}

	if pushed.Opcode == IndirectStore || pushed.Opcode == IndirectRMW {
		if instr.Src2 != NoTile {
			c.spd.ClearReady(instr.Src2, 4)
		}
	}

	resp := c.pendingResp
	c.pendingInstr = nil
	c.pendingResp = nil

	if resp != nil {
		resp(0, true)
	}

	c.issue()
}

func (c *Controller) tryPush(instr Instruction, deps OperandDeps) (Instruction, bool) {
	return c.ifile.Push(instr, deps)
}

func (c *Controller) srcDep(tile TileID) DependencyStatus {
	if tile == NoTile {
		return NotApplicableDep
	}

	if c.spd.Dirty(tile) {
		return WaitForInvalidation
	}

	switch c.spd.Lifecycle(tile) {
	case Finished:
		return DepFinished
	case Service:
		return DepService
	default:
		return WaitForService
	}
}

func (c *Controller) dstDep(tile TileID) DependencyStatus {
	if tile == NoTile {
		return NotApplicableDep
	}

	if c.spd.Dirty(tile) {
		return WaitForInvalidation
	}

	return WaitForService
}

// Issue iterates the canonical class order, greedily pairing each idle unit
// with the oldest ready instruction of its class (spec.md §4.7).
func (c *Controller) issue() {
	for _, class := range classOrder {
		for _, u := range c.units[class] {
			if !u.Idle() {
				continue
			}

			instr, token, ok := c.ifile.GetReady(class)
			if !ok {
				break
			}

			c.ifile.Claim(token, class, unitIDOf(u))
			c.numIssued++

			if class == ClassInvalidator {
				tile := instr.Dst1
				u.SetInstruction(instr, func(Instruction) {
					c.ifile.FinishCompute(token) //nolint:errcheck // token was just claimed, always valid
					c.FinishInvalidate(tile)
				})
			} else {
				u.SetInstruction(instr, c.finishCompute(token, class))
			}

			u.Step()

			// The stream unit advances itself from port and response
			// callbacks; a stub unit is stepped once per tick until the
			// instruction it holds retires.
			if stub, ok := u.(*stubUnit); ok {
				var tick func()
				tick = func() {
					if c.ifile.indexOf(token) == -1 {
						return
					}

					stub.Step()
					c.sched.Schedule(1, tick)
				}

				c.sched.Schedule(1, tick)
			}
		}
	}
}

func unitIDOf(u unit) UnitID {
	type idOwner interface{ ID() UnitID }
	if o, ok := u.(idOwner); ok {
		return o.ID()
	}

	return 0
}

// finishCompute returns the completion callback the controller hands a
// functional unit when it issues the instruction named by token to it: on
// completion, the instruction is retired, spd-ready reads waiting on its
// destination tiles are answered if those tiles are Finished, and
// issue/dispatch are re-run. The callback does not itself mark destination
// tiles Finished or Ready (the stream unit does so in its own finish step;
// stub units leave them as they are), and it does not update the operand
// status other in-flight instructions recorded at dispatch.
func (c *Controller) finishCompute(token uint64, class UnitClass) func(Instruction) {
	return func(instr Instruction) {
		retired, err := c.ifile.FinishCompute(token)
		if err != nil {
			panic(fmt.Sprintf("maa: controller: %v", err))
		}

		c.resolveReadyReads(retired.Dst1)
		c.resolveReadyReads(retired.Dst2)

		c.issue()
		c.dispatch()

		_ = class
	}
}

// ensureInvalidate synthesizes and admits an Invalidate instruction
// targeting tile, unless one is already in flight: the controller owns
// this synthesis because the invalidator-as-logic contract spec.md §1
// leaves out of scope does not itself decide when to run.
func (c *Controller) ensureInvalidate(tile TileID) {
	if tile == NoTile || c.invalidating[tile] {
		return
	}

	c.invalidating[tile] = true

	synth := Instruction{Opcode: Invalidate, DataType: U32, Dst1: tile, Dst2: NoTile, Src1: NoTile, Src2: NoTile, Cond: NoTile}
	deps := OperandDeps{Src1: NotApplicableDep, Src2: NotApplicableDep, Cond: NotApplicableDep, Dst1: NotApplicableDep, Dst2: NotApplicableDep}

	if _, ok := c.ifile.Push(synth, deps); ok {
		c.issue()
	}
}

// FinishInvalidate is the invalidator's completion callback: it clears the
// named tile's Dirty flag and promotes any instruction still waiting on
// that invalidation (spec.md §4.4's finish-invalidate, §4.7).
func (c *Controller) FinishInvalidate(tile TileID) {
	c.spd.SetTileClean(tile)
	delete(c.invalidating, tile)

	c.ifile.UpdateDeps(func(t TileID) DependencyStatus {
		if t != tile {
			return WaitForInvalidation
		}

		return WaitForService
	})

	c.issue()
	c.dispatch()
}

func (c *Controller) resolveReadyReads(tile TileID) {
	if tile == NoTile {
		return
	}

	var remaining []readyWait

	for _, w := range c.pendingReadyReads {
		if w.tile == tile && c.spd.Lifecycle(tile) == Finished {
			w.respond(1, true)

			continue
		}

		remaining = append(remaining, w)
	}

	c.pendingReadyReads = remaining
}

// RecvCacheResponse routes one cache-line response to the first functional
// unit whose state is waiting on it. Exactly one unit may claim a given
// response (spec.md §4.7, §8's response-uniqueness invariant); a second
// claim is a protocol violation.
func (c *Controller) RecvCacheResponse(addr Addr, data [64]byte) {
	claimed := false

	for _, u := range c.units[ClassStream] {
		su, ok := u.(*StreamUnit)
		if !ok {
			continue
		}

		if su.RecvData(addr, data) {
			if claimed {
				panic(fmt.Sprintf("maa: %v: response for %s claimed twice", ErrProtocolViolation, addr))
			}

			claimed = true
		}
	}
}

// Unblock notifies every parked functional unit, in canonical order, that
// the cache-side port may have room again (spec.md §9).
func (c *Controller) Unblock() {
	c.cachePort.Unblock()
}

// UnitSnapshot reports one functional unit's displayable state, for the
// monitor TUI.
type UnitSnapshot struct {
	Class UnitClass
	ID    UnitID
	Idle  bool
	State string
}

// UnitSnapshots returns every functional unit's state, in canonical class
// order, for the monitor TUI (spec.md §9).
func (c *Controller) UnitSnapshots() []UnitSnapshot {
	var out []UnitSnapshot

	for _, class := range classOrder {
		for _, u := range c.units[class] {
			snap := UnitSnapshot{Class: class, ID: unitIDOf(u), Idle: u.Idle()}

			if su, ok := u.(*StreamUnit); ok {
				snap.State = su.State().String()
			} else if u.Idle() {
				snap.State = "idle"
			} else {
				snap.State = "busy"
			}

			out = append(out, snap)
		}
	}

	return out
}

// NumIssued reports how many instructions the controller has issued to a
// functional unit since construction, for the monitor TUI.
func (c *Controller) NumIssued() int {
	return c.numIssued
}
