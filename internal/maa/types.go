package maa

// types.go declares the small enumerations shared across the controller and
// its functional units.

import "fmt"

// Opcode identifies the kind of operation an instruction performs.
type Opcode uint8

// Opcodes, per spec.md §3.
const (
	StreamLoad Opcode = iota
	IndirectLoad
	IndirectStore
	IndirectRMW
	RangeLoop
	ALUScalar
	ALUVector
	Invalidate
	numOpcodes
)

var opcodeNames = [numOpcodes]string{
	"STREAM_LOAD", "INDIRECT_LOAD", "INDIRECT_STORE", "INDIRECT_RMW",
	"RANGE_LOOP", "ALU_SCALAR", "ALU_VECTOR", "INVALIDATE",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}

	return fmt.Sprintf("OP(%#02x)", uint8(op))
}

// UnitClass returns the functional-unit class that executes this opcode.
func (op Opcode) UnitClass() UnitClass {
	switch op {
	case StreamLoad:
		return ClassStream
	case IndirectLoad, IndirectStore, IndirectRMW:
		return ClassIndirect
	case RangeLoop:
		return ClassRangeFuser
	case ALUScalar, ALUVector:
		return ClassALU
	case Invalidate:
		return ClassInvalidator
	default:
		return ClassInvalid
	}
}

// DataType identifies the element type an instruction operates over.
type DataType uint8

const (
	U32 DataType = iota
	I32
	F32
	U64
	I64
	F64
)

func (dt DataType) String() string {
	switch dt {
	case U32:
		return "u32"
	case I32:
		return "i32"
	case F32:
		return "f32"
	case U64:
		return "u64"
	case I64:
		return "i64"
	case F64:
		return "f64"
	default:
		return fmt.Sprintf("dt(%#02x)", uint8(dt))
	}
}

// WordSize returns the element size in bytes implied by the data type: 4 for
// the 32-bit types, 8 for the 64-bit types (modeled as a pair of tiles).
func (dt DataType) WordSize() int {
	switch dt {
	case U64, I64, F64:
		return 8
	default:
		return 4
	}
}

// OpSubType further qualifies ALU and indirect-RMW operations. The actual
// arithmetic it selects is performed by the (out-of-scope) ALU; the
// controller only needs to carry the value through dispatch and issue.
type OpSubType uint8

// NoSubType means the instruction's opcode does not take a sub-type.
const NoSubType OpSubType = 0xFF

// UnitClass identifies a class of functional unit.
type UnitClass uint8

const (
	ClassInvalid UnitClass = iota
	ClassInvalidator
	ClassStream
	ClassIndirect
	ClassALU
	ClassRangeFuser
	numUnitClasses
)

// classOrder is the canonical order the controller walks functional-unit
// classes in during issue and during port-unblock notification (spec.md
// §4.7, §9).
var classOrder = [...]UnitClass{
	ClassInvalidator, ClassStream, ClassIndirect, ClassALU, ClassRangeFuser,
}

func (c UnitClass) String() string {
	switch c {
	case ClassInvalidator:
		return "invalidator"
	case ClassStream:
		return "stream"
	case ClassIndirect:
		return "indirect"
	case ClassALU:
		return "alu"
	case ClassRangeFuser:
		return "range"
	default:
		return "invalid"
	}
}

// Lifecycle is the three-valued state of a tile across its current owning
// instruction (spec.md §3).
type Lifecycle uint8

const (
	Idle Lifecycle = iota
	Service
	Finished
)

func (l Lifecycle) String() string {
	switch l {
	case Idle:
		return "idle"
	case Service:
		return "service"
	case Finished:
		return "finished"
	default:
		return "lifecycle(?)"
	}
}

// DependencyStatus is the admission/readiness state the controller computes
// for one instruction operand at dispatch time (spec.md §4.7).
type DependencyStatus uint8

const (
	WaitForInvalidation DependencyStatus = iota
	WaitForService
	DepService
	DepFinished
)

func (d DependencyStatus) String() string {
	switch d {
	case WaitForInvalidation:
		return "wait-invalidate"
	case WaitForService:
		return "wait-service"
	case DepService:
		return "service"
	case DepFinished:
		return "finished"
	case NotApplicableDep:
		return "n/a"
	default:
		return "dep(?)"
	}
}

// BlockReason explains why a port is parked (spec.md §4.7, §7).
type BlockReason uint8

const (
	NotBlocked BlockReason = iota
	MaxXbarPackets
	CacheFailed
	MemFailed
)

func (b BlockReason) String() string {
	switch b {
	case NotBlocked:
		return "not-blocked"
	case MaxXbarPackets:
		return "max-xbar-packets"
	case CacheFailed:
		return "cache-failed"
	case MemFailed:
		return "mem-failed"
	default:
		return "block(?)"
	}
}
