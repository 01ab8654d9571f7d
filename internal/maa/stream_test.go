package maa

import "testing"

func acceptingPort(sent *[]Addr) *Port {
	return NewPort(func(pkt Packet) bool {
		if pkt.Kind == ReadShared {
			*sent = append(*sent, pkt.Addr)
		}

		return true
	})
}

func TestStreamUnit_DecodeReadsSrc1Src2Src3AsMinMaxStride(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	spd := NewSPD(cfg)
	rf := NewRF(cfg)

	var sent []Addr
	su := NewStreamUnit(0, cfg, spd, rf, acceptingPort(&sent))

	rf.Write32(3, 10)
	rf.Write32(4, 20)
	rf.Write32(5, 2)

	instr := Instruction{
		Opcode: StreamLoad, DataType: U32, Dst1: 0, Cond: NoTile,
		Src1Reg: 3, Src2Reg: 4, Src3Reg: 5, BaseAddr: 0x1000,
	}

	su.SetInstruction(instr, func(Instruction) {})

	if su.min != 10 || su.max != 20 || su.stride != 2 {
		t.Fatalf("decode: min=%d max=%d stride=%d, want 10 20 2", su.min, su.max, su.stride)
	}

	if su.length != 5 {
		t.Errorf("length = %d, want 5 (ceil((20-10)/2))", su.length)
	}
}

func TestStreamUnit_RunToCompletionWritesLineDataAndSetsReady(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	spd := NewSPD(cfg)
	rf := NewRF(cfg)

	var sent []Addr
	su := NewStreamUnit(0, cfg, spd, rf, acceptingPort(&sent))

	rf.Write32(0, 0)
	rf.Write32(1, 4)
	rf.Write32(2, 1)

	const dst TileID = 5

	instr := Instruction{
		Opcode: StreamLoad, DataType: U32, Dst1: dst, Cond: NoTile,
		Src1Reg: 0, Src2Reg: 1, Src3Reg: 2, BaseAddr: 0x1000,
	}

	var finished bool

	var finishedInstr Instruction

	su.SetInstruction(instr, func(i Instruction) {
		finished = true
		finishedInstr = i
	})

	su.Step()

	if len(sent) != 1 {
		t.Fatalf("expected exactly one line request after the first Step, got %d", len(sent))
	}

	if finished {
		t.Fatalf("instruction should not finish before its response arrives")
	}

	if su.State() != StreamResponse {
		t.Errorf("state = %s, want %s while awaiting response", su.State(), StreamResponse)
	}

	var data [64]byte

	words := []uint32{0x11111111, 0x22222222, 0x33333333, 0x44444444}
	for i, w := range words {
		data[i*4+0] = byte(w)
		data[i*4+1] = byte(w >> 8)
		data[i*4+2] = byte(w >> 16)
		data[i*4+3] = byte(w >> 24)
	}

	if ok := su.RecvData(sent[0], data); !ok {
		t.Fatalf("RecvData should claim the line this unit requested")
	}

	if !finished {
		t.Fatalf("instruction should finish once its one outstanding request is answered")
	}

	if finishedInstr.Opcode != StreamLoad {
		t.Errorf("onFinish received opcode %s, want %s", finishedInstr.Opcode, StreamLoad)
	}

	for i, w := range words {
		if got := spd.Read(dst, ElementIndex(i), 4); got != uint64(w) {
			t.Errorf("element %d: got %#x, want %#x", i, got, w)
		}

		if !spd.Ready(dst, ElementIndex(i)) {
			t.Errorf("element %d should be ready", i)
		}
	}

	if spd.Lifecycle(dst) != Finished {
		t.Errorf("dst lifecycle = %s, want %s", spd.Lifecycle(dst), Finished)
	}

	if su.State() != StreamIdle {
		t.Errorf("state after finish = %s, want %s", su.State(), StreamIdle)
	}
}

func TestStreamUnit_RecvDataRejectsUnrequestedAddress(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	spd := NewSPD(cfg)
	rf := NewRF(cfg)

	var sent []Addr
	su := NewStreamUnit(0, cfg, spd, rf, acceptingPort(&sent))

	rf.Write32(0, 0)
	rf.Write32(1, 4)
	rf.Write32(2, 1)

	su.SetInstruction(Instruction{
		Opcode: StreamLoad, DataType: U32, Dst1: 1, Cond: NoTile,
		Src1Reg: 0, Src2Reg: 1, Src3Reg: 2, BaseAddr: 0x2000,
	}, func(Instruction) {})

	su.Step()

	var data [64]byte
	if su.RecvData(sent[0]+0x40000, data) {
		t.Errorf("RecvData should reject an address this unit never requested")
	}
}

func TestStreamUnit_CondFalseWritesZeroWithoutRequest(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	spd := NewSPD(cfg)
	rf := NewRF(cfg)

	var sent []Addr
	su := NewStreamUnit(0, cfg, spd, rf, acceptingPort(&sent))

	const (
		dst  TileID = 2
		cond TileID = 7
	)

	spd.SetTileService(cond, 4)
	spd.Write(cond, 0, 4, 0) // false
	spd.Write(cond, 1, 4, 1) // true
	spd.SetReady(cond, 0, 4)
	spd.SetReady(cond, 1, 4)

	rf.Write32(0, 0)
	rf.Write32(1, 2)
	rf.Write32(2, 1)

	su.SetInstruction(Instruction{
		Opcode: StreamLoad, DataType: U32, Dst1: dst, Cond: cond,
		Src1Reg: 0, Src2Reg: 1, Src3Reg: 2, BaseAddr: 0x3000,
	}, func(Instruction) {})

	su.Step()

	if got := spd.Read(dst, 0, 4); got != 0 {
		t.Errorf("element gated false by cond should be written zero, got %#x", got)
	}

	if len(sent) != 1 {
		t.Fatalf("only the true-cond element should generate a line request, got %d requests", len(sent))
	}
}

func TestStreamUnit_NumRTFullIncrementsWhenTableSaturated(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.RTAddresses = 1
	cfg.RTEntriesPerAddress = 1

	spd := NewSPD(cfg)
	rf := NewRF(cfg)

	var sent []Addr
	su := NewStreamUnit(0, cfg, spd, rf, acceptingPort(&sent))

	rf.Write32(0, 0)
	rf.Write32(1, 1)
	rf.Write32(2, 1)

	su.SetInstruction(Instruction{
		Opcode: StreamLoad, DataType: U32, Dst1: 3, Cond: NoTile,
		Src1Reg: 0, Src2Reg: 1, Src3Reg: 2, BaseAddr: 0x5000,
	}, func(Instruction) {})

	// Occupy the table's only address row with an unrelated line before the
	// unit gets a chance to request its own, forcing Add to refuse.
	su.rt.Add(0x9000, RequestTableEntry{Iter: 0})

	if su.NumRTFull() != 0 {
		t.Fatalf("NumRTFull should start at zero")
	}

	su.Step()

	if su.NumRTFull() == 0 {
		t.Errorf("expected NumRTFull to count the refused insert")
	}
}
