package maa

// units.go implements stubUnit: a minimal-latency, fixed-tick functional
// unit standing in for the out-of-scope classes (invalidator, indirect
// access, ALU, range-fuser) so the controller's generic dispatch/issue/
// completion machinery has something concrete of every class to pair
// against. Out of scope per spec.md §1 means "the controller only
// describes the contract it exposes to these units" -- not that the
// controller's issue loop can skip them.

// stubUnit is a fixed-latency functional unit: it claims an instruction,
// counts down latency ticks, and reports completion with no side effects on
// SPD state of its own.
type stubUnit struct {
	class   UnitClass
	id      UnitID
	latency int

	busy     bool
	ticks    int
	instr    Instruction
	onFinish func(Instruction)
}

func (u *stubUnit) Class() UnitClass { return u.class }
func (u *stubUnit) ID() UnitID       { return u.id }
func (u *stubUnit) Idle() bool       { return !u.busy }

func (u *stubUnit) SetInstruction(instr Instruction, onFinish func(Instruction)) {
	u.instr = instr
	u.onFinish = onFinish
	u.busy = true
	u.ticks = u.latency
}

// Step counts down the unit's latency and, on expiry, reports completion.
// Invalidate instructions report through the same finish path as any other
// class; the controller distinguishes invalidator completion by class when
// deciding whether to also call FinishInvalidate after retiring the
// instruction.
func (u *stubUnit) Step() {
	if !u.busy {
		return
	}

	if u.ticks > 0 {
		u.ticks--

		return
	}

	u.busy = false
	instr := u.instr
	cb := u.onFinish

	u.instr = Instruction{}
	u.onFinish = nil

	if cb != nil {
		cb(instr)
	}
}
