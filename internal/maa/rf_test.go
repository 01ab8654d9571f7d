package maa

import "testing"

func TestRF_32Bit(t *testing.T) {
	t.Parallel()

	rf := NewRF(DefaultConfig())

	rf.Write32(0, 0xdeadbeef)

	if got := rf.Read32(0); got != 0xdeadbeef {
		t.Errorf("Read32: got %#x, want %#x", got, 0xdeadbeef)
	}
}

func TestRF_64BitSpansTwoRegisters(t *testing.T) {
	t.Parallel()

	rf := NewRF(DefaultConfig())

	val := uint64(0x0123456789abcdef)

	rf.Write64(2, val)

	if got := rf.Read64(2); got != val {
		t.Errorf("Read64: got %#x, want %#x", got, val)
	}

	if got := rf.Read32(2); got != Word(val) {
		t.Errorf("low register: got %#x, want %#x", got, Word(val))
	}

	if got := rf.Read32(3); got != Word(val>>32) {
		t.Errorf("high register: got %#x, want %#x", got, Word(val>>32))
	}
}
