package maa

// ifile.go implements the instruction file (C4): the controller's
// in-flight instruction window, admission-time dependency snapshotting, and
// readiness tracking, generalizing the teacher's instruction-fetch/decode
// pipeline register (internal/vm/exec.go's single in-flight IR) to a
// multi-slot window sized by Config.NumInstrSlots.

import "fmt"

// IFile holds the MAA's in-flight instructions, FIFO per unit class
// (spec.md §4.4: instructions of the same class issue in admission order;
// completion order is not enforced).
type IFile struct {
	cap   int
	slots []Instruction
	next  uint64
}

// NewIFile allocates an empty instruction file of cfg.NumInstrSlots
// capacity.
func NewIFile(cfg Config) *IFile {
	return &IFile{cap: cfg.NumInstrSlots}
}

// Len reports the number of in-flight instructions.
func (f *IFile) Len() int { return len(f.slots) }

// Full reports whether the instruction file has no free slot.
func (f *IFile) Full() bool { return len(f.slots) >= f.cap }

// Push admits an instruction if the instruction file has room and no
// operand -- source or destination -- is WaitForInvalidation (spec.md §3:
// "a new instruction whose destination tile is Dirty waits"; §8's
// dispatch-acceptance property names sources, but the literal scenario in
// §8 blocks on a dirty destination too, so Push treats every named operand
// alike). Push does not itself evaluate readiness beyond that: GetReady
// checks the stored source and condition status each time it is called.
func (f *IFile) Push(instr Instruction, deps OperandDeps) (Instruction, bool) {
	if f.Full() {
		return Instruction{}, false
	}

	for _, d := range []DependencyStatus{deps.Src1, deps.Src2, deps.Cond, deps.Dst1, deps.Dst2} {
		if d == WaitForInvalidation {
			return Instruction{}, false
		}
	}

	instr.Deps = deps
	instr.seq = f.next
	f.next++

	f.slots = append(f.slots, instr)

	return instr, true
}

// GetReady returns the oldest in-flight instruction of the given class whose
// source and condition operands have all reached DepFinished and which has
// not yet been claimed by a unit, or false if none qualifies. Destination
// status (WaitForService / WaitForInvalidation) does not gate issue; once
// Push has admitted the instruction it is not consulted again.
//
// The second return is a token identifying this instruction for a later
// Claim/FinishCompute call -- the instruction's admission sequence number,
// not a slice position, since slots are removed from the middle of the
// backing slice as other instructions of other classes retire.
func (f *IFile) GetReady(class UnitClass) (Instruction, uint64, bool) {
	best := -1

	for i := range f.slots {
		instr := &f.slots[i]
		if instr.unit != ClassInvalid {
			continue // already claimed by a unit
		}

		if instr.Opcode.UnitClass() != class {
			continue
		}

		if !operandsFinished(instr.Deps) {
			continue
		}

		if best == -1 || f.slots[best].seq > instr.seq {
			best = i
		}
	}

	if best == -1 {
		return Instruction{}, 0, false
	}

	return f.slots[best], f.slots[best].seq, true
}

// indexOf returns the current slice position of the instruction admitted
// with the given token (sequence number), or -1 if it is no longer
// in-flight.
func (f *IFile) indexOf(token uint64) int {
	for i := range f.slots {
		if f.slots[i].seq == token {
			return i
		}
	}

	return -1
}

func operandsFinished(d OperandDeps) bool {
	ready := func(s DependencyStatus) bool {
		return s == DepFinished || s == NotApplicableDep
	}

	return ready(d.Src1) && ready(d.Src2) && ready(d.Cond)
}

// NotApplicableDep marks an operand slot an instruction does not use (its
// tile field was the 0xFF sentinel), so it never blocks readiness.
const NotApplicableDep DependencyStatus = 0xFF

// Claim marks the instruction named by token as issued to the given unit,
// removing it from future GetReady candidacy without removing it from the
// instruction file (it stays in flight until FinishCompute retires it).
func (f *IFile) Claim(token uint64, class UnitClass, id UnitID) {
	if i := f.indexOf(token); i != -1 {
		f.slots[i].unit = class
		f.slots[i].unitID = id
	}
}

// FinishCompute retires a claimed instruction from the instruction file once
// its producing unit reports completion. The caller is responsible for
// having already written SPD/register results and set Ready bits; FinishCompute
// only removes the bookkeeping entry.
func (f *IFile) FinishCompute(token uint64) (Instruction, error) {
	i := f.indexOf(token)
	if i == -1 {
		return Instruction{}, fmt.Errorf("%w: instruction file token %d not in flight", ErrProtocolViolation, token)
	}

	instr := f.slots[i]
	f.slots = append(f.slots[:i], f.slots[i+1:]...)

	return instr, nil
}

// UpdateDeps re-evaluates every in-flight instruction's WaitForInvalidation
// operands against current SPD cache-shadow state, promoting them to
// WaitForService once the cache no longer holds the line dirty. Called by
// the controller's FinishInvalidate when an invalidation completes, ahead
// of re-running issue.
func (f *IFile) UpdateDeps(resolve func(TileID) DependencyStatus) {
	for i := range f.slots {
		d := &f.slots[i].Deps
		promote(d, &d.Src1, f.slots[i].Src1, resolve)
		promote(d, &d.Src2, f.slots[i].Src2, resolve)
		promote(d, &d.Cond, f.slots[i].Cond, resolve)
	}
}

func promote(_ *OperandDeps, status *DependencyStatus, tile TileID, resolve func(TileID) DependencyStatus) {
	if tile == NoTile {
		*status = NotApplicableDep

		return
	}

	if *status == WaitForInvalidation {
		*status = resolve(tile)
	}
}
