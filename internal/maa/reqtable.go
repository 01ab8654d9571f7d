package maa

// reqtable.go implements the stream unit's request table (C5):
// cache-line-keyed coalescing of up to E pending (iteration, word-id) pairs
// per address, across A addresses, draining a whole address's pending
// entries together when its line arrives. Grounded on
// original_source/src/mem/MAA/StreamAccess.hh's RequestTable /
// RequestTableEntry, expressed in the teacher's small-struct-plus-slice
// idiom (internal/vm/mem.go).

// RequestTableEntry names one scratchpad destination waiting on a
// cache-line fetch: which loop iteration it corresponds to, and which word
// within the line it wants.
type RequestTableEntry struct {
	Iter   int
	WordID uint16
}

// requestTableAddr holds the entries coalesced under one cache-line
// address.
type requestTableAddr struct {
	addr    Addr
	entries []RequestTableEntry
	valid   bool
}

// RequestTable coalesces stream-unit requests by cache-line address: many
// (iteration, word) pairs that land in the same line share a single
// in-flight memory request.
type RequestTable struct {
	numAddresses int
	entriesPer   int
	rows         []requestTableAddr
}

// NewRequestTable allocates an empty request table sized cfg.RTAddresses x
// cfg.RTEntriesPerAddress.
func NewRequestTable(cfg Config) *RequestTable {
	return &RequestTable{
		numAddresses: cfg.RTAddresses,
		entriesPer:   cfg.RTEntriesPerAddress,
		rows:         make([]requestTableAddr, 0, cfg.RTAddresses),
	}
}

// Full reports whether the table cannot accept any more addresses it does
// not already track (it may still have room within an existing address's
// row).
func (rt *RequestTable) Full() bool {
	return len(rt.rows) >= rt.numAddresses
}

// rowFor returns the row tracking addr, or nil if addr is not yet tracked.
func (rt *RequestTable) rowFor(addr Addr) *requestTableAddr {
	for i := range rt.rows {
		if rt.rows[i].valid && rt.rows[i].addr == addr {
			return &rt.rows[i]
		}
	}

	return nil
}

// Add coalesces one (iteration, word) pair under addr's line, allocating a
// new row if addr is not yet tracked. It reports false if the table cannot
// accept the request: either a new address would exceed numAddresses, or
// addr's row is already at entriesPer capacity.
func (rt *RequestTable) Add(addr Addr, entry RequestTableEntry) bool {
	row := rt.rowFor(addr)

	if row == nil {
		if rt.Full() {
			return false
		}

		rt.rows = append(rt.rows, requestTableAddr{addr: addr, valid: true})
		row = &rt.rows[len(rt.rows)-1]
	}

	if len(row.entries) >= rt.entriesPer {
		return false
	}

	row.entries = append(row.entries, entry)

	return true
}

// Drain removes and returns every entry coalesced under addr, for the
// stream unit to apply against the line that just arrived. Returns nil,
// false if addr was not tracked.
func (rt *RequestTable) Drain(addr Addr) ([]RequestTableEntry, bool) {
	for i := range rt.rows {
		if rt.rows[i].valid && rt.rows[i].addr == addr {
			entries := rt.rows[i].entries
			rt.rows = append(rt.rows[:i], rt.rows[i+1:]...)

			return entries, true
		}
	}

	return nil, false
}

// Reset empties the table, for reuse across instructions.
func (rt *RequestTable) Reset() {
	rt.rows = rt.rows[:0]
}

// Pending reports how many distinct addresses are currently tracked.
func (rt *RequestTable) Pending() int {
	return len(rt.rows)
}
