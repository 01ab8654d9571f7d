package maa

import "testing"

func TestInstruction_EncodeDecodeWordsRoundTrip(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name  string
		instr Instruction
	}{
		{
			name: "stream load, no condition",
			instr: Instruction{
				Opcode: StreamLoad, DataType: U32, OpSubType: NoSubType,
				Dst1: 3, Dst2: NoTile,
				Src1: NoTile, Src2: NoTile, Cond: NoTile,
				Src1Reg: 0, Src2Reg: 1, Src3Reg: 2,
				Dst1Reg: NoReg, Dst2Reg: NoReg,
				BaseAddr: 0x1000,
			},
		},
		{
			name: "indirect store, every operand populated",
			instr: Instruction{
				Opcode: IndirectStore, DataType: U64, OpSubType: 7,
				Dst1: 1, Dst2: 2,
				Src1: 4, Src2: 5, Cond: 6,
				Dst1Reg: 1, Dst2Reg: 2, Src1Reg: 3, Src2Reg: 4, Src3Reg: 5,
				BaseAddr: 0xdeadbeef,
			},
		},
	}

	for _, tc := range tcs {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			w0, w1, w2 := tc.instr.EncodeWords()
			got := DecodeWords(w0, w1, Addr(w2))

			// DecodeWords never populates ContextID, PC, seq, unit/unitID --
			// those are controller bookkeeping, not wire fields.
			want := tc.instr
			want.ContextID, want.PC = 0, 0

			if got.Opcode != want.Opcode || got.DataType != want.DataType || got.OpSubType != want.OpSubType ||
				got.Dst1 != want.Dst1 || got.Dst2 != want.Dst2 ||
				got.Src1 != want.Src1 || got.Src2 != want.Src2 || got.Cond != want.Cond ||
				got.Dst1Reg != want.Dst1Reg || got.Dst2Reg != want.Dst2Reg ||
				got.Src1Reg != want.Src1Reg || got.Src2Reg != want.Src2Reg || got.Src3Reg != want.Src3Reg ||
				got.BaseAddr != want.BaseAddr {
				t.Errorf("round trip mismatch:\n got  %s\n want %s", got, want)
			}
		})
	}
}

func TestInstruction_Validate(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name    string
		instr   Instruction
		wantErr bool
	}{
		{
			name:  "disjoint operands ok",
			instr: Instruction{Dst1: 0, Dst2: 1, Src1: 2, Src2: 3},
		},
		{
			name:    "dst1 reused as src1",
			instr:   Instruction{Dst1: 5, Src1: 5},
			wantErr: true,
		},
		{
			name:    "dst2 reused as src2",
			instr:   Instruction{Dst1: NoTile, Dst2: 9, Src1: NoTile, Src2: 9},
			wantErr: true,
		},
		{
			name:  "NoTile never conflicts with itself",
			instr: Instruction{Dst1: NoTile, Src1: NoTile, Src2: NoTile},
		},
	}

	for _, tc := range tcs {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := tc.instr.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() err = %v, wantErr %t", err, tc.wantErr)
			}
		})
	}
}

func TestDecodeWords_SentinelFieldsBecomeNoTileNoReg(t *testing.T) {
	t.Parallel()

	instr := Instruction{
		Opcode: StreamLoad, DataType: U32,
		Dst1: NoTile, Dst2: NoTile, Src1: NoTile, Src2: NoTile, Cond: NoTile,
		Dst1Reg: NoReg, Dst2Reg: NoReg, Src1Reg: NoReg, Src2Reg: NoReg, Src3Reg: NoReg,
	}

	w0, w1, _ := instr.EncodeWords()
	got := DecodeWords(w0, w1, 0)

	if got.Dst1 != NoTile || got.Src1 != NoTile || got.Cond != NoTile {
		t.Errorf("sentinel tiles did not round-trip to NoTile: %s", got)
	}

	if got.Dst1Reg != NoReg || got.Src1Reg != NoReg {
		t.Errorf("sentinel registers did not round-trip to NoReg: %s", got)
	}
}
