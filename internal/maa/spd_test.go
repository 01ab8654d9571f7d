package maa

import "testing"

func TestSPD_Lifecycle(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	spd := NewSPD(cfg)

	const tile TileID = 3

	if got := spd.Lifecycle(tile); got != Idle {
		t.Fatalf("initial lifecycle: got %s, want %s", got, Idle)
	}

	spd.SetTileService(tile, 4)

	if got := spd.Lifecycle(tile); got != Service {
		t.Errorf("after SetTileService: got %s, want %s", got, Service)
	}

	spd.SetReady(tile, 0, 4)
	spd.SetTileFinished(tile, 4, 1)

	if got := spd.Lifecycle(tile); got != Finished {
		t.Errorf("after SetTileFinished: got %s, want %s", got, Finished)
	}

	if !spd.Ready(tile, 0) {
		t.Errorf("element 0 should be ready")
	}
}

func TestSPD_PairedTiles64Bit(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	spd := NewSPD(cfg)

	const tile TileID = 4 // pairs with 5

	spd.SetTileService(tile, 8)

	if got := spd.Lifecycle(tile.Pair()); got != Service {
		t.Errorf("pair lifecycle: got %s, want %s", got, Service)
	}

	val := uint64(0x1122334455667788)

	spd.Write(tile, 0, 8, val)

	if got := spd.Read(tile, 0, 8); got != val {
		t.Errorf("64-bit read: got %#x, want %#x", got, val)
	}

	lo := spd.Read(tile, 0, 4)
	hi := spd.Read(tile.Pair(), 0, 4)

	if lo != uint64(Word(val)) {
		t.Errorf("low half: got %#x, want %#x", lo, uint32(val))
	}

	if hi != uint64(Word(val>>32)) {
		t.Errorf("high half: got %#x, want %#x", hi, uint32(val>>32))
	}

	spd.SetReady(tile, 0, 8)

	if !spd.Ready(tile, 0) || !spd.Ready(tile.Pair(), 0) {
		t.Errorf("SetReady with wordSize 8 should mark both halves ready")
	}

	spd.SetTileFinished(tile, 8, 1)

	if spd.Lifecycle(tile) != spd.Lifecycle(tile.Pair()) {
		t.Errorf("paired tiles disagree on lifecycle: %s vs %s", spd.Lifecycle(tile), spd.Lifecycle(tile.Pair()))
	}
}

func TestSPD_DirtyTracking(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	spd := NewSPD(cfg)

	const tile TileID = 1

	if spd.Dirty(tile) {
		t.Fatalf("tile should start clean")
	}

	spd.MarkDirty(tile)

	if !spd.Dirty(tile) {
		t.Errorf("MarkDirty should set dirty")
	}

	spd.SetTileClean(tile)

	if spd.Dirty(tile) {
		t.Errorf("SetTileClean should clear dirty")
	}
}

func TestSPD_WordSizeMismatchPanics(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	spd := NewSPD(cfg)

	const tile TileID = 2

	spd.SetTileService(tile, 4)

	defer func() {
		if recover() == nil {
			t.Errorf("expected panic on word size mismatch")
		}
	}()

	spd.SetTileService(tile, 8)
}

func TestSPD_Latency(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.SPDReadPorts = 2
	spd := NewSPD(cfg)

	tcs := []struct {
		accesses int
		want     int
	}{
		{accesses: 0, want: 0},
		{accesses: 1, want: 1},
		{accesses: 2, want: 1},
		{accesses: 3, want: 2},
		{accesses: 4, want: 2},
	}

	for _, tc := range tcs {
		if got := spd.ReadLatency(tc.accesses); got != tc.want {
			t.Errorf("ReadLatency(%d): got %d, want %d", tc.accesses, got, tc.want)
		}
	}
}
