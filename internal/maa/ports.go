package maa

// ports.go implements the MAA's port abstraction (part of C7): the
// send/accept/retry contract spec.md §6 and §4.7 describe, plus the
// per-(unit-class, unit-id) parking table that lets a blocked port rewake
// every parked unit in canonical order once room frees up. Grounded on the
// teacher's bus/port send-retry pattern (internal/vm/bus.go), generalized
// from a single retry callback to the class-ordered array spec.md §9
// describes.

import "sort"

// PacketKind identifies the kind of cache-side transaction the MAA emits
// or receives (spec.md §6).
type PacketKind uint8

const (
	ReadShared PacketKind = iota
	ReadExclusive
	CleanEvict
	InvalidationReq
	SnoopResponse
	ReadResponse
)

func (k PacketKind) String() string {
	switch k {
	case ReadShared:
		return "read-shared"
	case ReadExclusive:
		return "read-exclusive"
	case CleanEvict:
		return "clean-evict"
	case InvalidationReq:
		return "invalidation"
	case SnoopResponse:
		return "snoop-response"
	case ReadResponse:
		return "read-response"
	default:
		return "packet(?)"
	}
}

// Packet is one cache-side transaction, in either direction.
type Packet struct {
	Kind PacketKind
	Addr Addr
	Data [64]byte
}

// parkKey identifies one functional-unit instance for parking purposes.
type parkKey struct {
	class UnitClass
	id    UnitID
}

// Port is the MAA's outward-facing side of the cache-coherent send/retry
// contract: Send either succeeds immediately or the caller parks with a
// reason, to be woken by a later Unblock call (spec.md §4.7, §9).
type Port struct {
	transport func(Packet) bool
	reasons   map[parkKey]BlockReason
	resume    map[parkKey]func()
}

// NewPort wraps a transport function (the thing that actually hands a
// packet to the cache/memory model) in the MAA's parking discipline.
func NewPort(transport func(Packet) bool) *Port {
	return &Port{
		transport: transport,
		reasons:   make(map[parkKey]BlockReason),
		resume:    make(map[parkKey]func()),
	}
}

// Send attempts to hand pkt to the transport on behalf of (class, id). If
// the transport refuses, the unit is parked under reason and resume is
// recorded to be called on a later Unblock.
func (p *Port) Send(class UnitClass, id UnitID, pkt Packet, reason BlockReason, resume func()) bool {
	if p.transport(pkt) {
		return true
	}

	key := parkKey{class, id}
	p.reasons[key] = reason
	p.resume[key] = resume

	return false
}

// Blocked reports a unit's current park reason.
func (p *Port) Blocked(class UnitClass, id UnitID) BlockReason {
	if r, ok := p.reasons[parkKey{class, id}]; ok {
		return r
	}

	return NotBlocked
}

// Unblock is called on send-retry or slot-drain: it walks every parked unit
// in the canonical class order (spec.md §9) and invokes its resume
// callback, clearing the park entry first so a callback that reparks is not
// immediately re-triggered by this same pass.
func (p *Port) Unblock() {
	for _, class := range classOrder {
		var ids []UnitID

		for key := range p.resume {
			if key.class == class {
				ids = append(ids, key.id)
			}
		}

		sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })

		for _, id := range ids {
			key := parkKey{class, id}
			resume := p.resume[key]

			delete(p.resume, key)
			delete(p.reasons, key)
			resume()
		}
	}
}
