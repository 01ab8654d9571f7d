// Package sched implements the discrete-event scheduler the MAA core is
// built against (spec.md §1 abstracts "the event-driven simulator kernel"
// as exactly this: a single logical thread of control, advanced by
// delta-tick events, with no blocking waits and no parallel threads --
// spec.md §5). Grounded on container/heap's documented priority-queue
// idiom, the standard library's own example of the pattern; no example
// repo in the corpus ships a third-party scheduler or priority-queue
// library for this concern (see DESIGN.md's standard-library
// justifications).
package sched

import "container/heap"

// Event is one scheduled unit of work: Fn runs when the scheduler's clock
// reaches Tick. Seq breaks ties between events scheduled for the same tick,
// preserving insertion order (spec.md §5's "same-time events are stable by
// insertion order").
type Event struct {
	Tick uint64
	Seq  uint64
	Fn   func()
}

// eventHeap is a container/heap.Interface over pending events, ordered by
// (Tick, Seq).
type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].Tick != h[j].Tick {
		return h[i].Tick < h[j].Tick
	}

	return h[i].Seq < h[j].Seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(*Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]

	return item
}

// Scheduler is a single-threaded, cooperative discrete-event clock: the one
// logical thread of control the MAA core's units post work back to rather
// than blocking (spec.md §5).
type Scheduler struct {
	heap   eventHeap
	now    uint64
	seq    uint64
	halted bool
}

// New returns an empty scheduler with its clock at tick 0.
func New() *Scheduler {
	s := &Scheduler{}
	heap.Init(&s.heap)

	return s
}

// Now returns the scheduler's current tick.
func (s *Scheduler) Now() uint64 { return s.now }

// Schedule posts fn to run delta ticks from now, returning the absolute
// tick it was scheduled for.
func (s *Scheduler) Schedule(delta uint64, fn func()) uint64 {
	return s.ScheduleAt(s.now+delta, fn)
}

// ScheduleAt posts fn to run at an absolute tick. Scheduling in the past
// (tick < Now) runs fn at the current tick, on the next Run pass.
func (s *Scheduler) ScheduleAt(tick uint64, fn func()) uint64 {
	if tick < s.now {
		tick = s.now
	}

	heap.Push(&s.heap, &Event{Tick: tick, Seq: s.seq, Fn: fn})
	s.seq++

	return tick
}

// Halt stops Run after the event currently executing returns, without
// discarding remaining pending events (a later Run call resumes them).
func (s *Scheduler) Halt() { s.halted = true }

// Run drains every pending event in (tick, seq) order, advancing Now to
// match each event's tick as it fires, until the queue is empty or Halt is
// called. It is not reentrant: an event's Fn may itself call Schedule, but
// must not call Run.
func (s *Scheduler) Run() {
	s.halted = false

	for s.heap.Len() > 0 {
		if s.halted {
			return
		}

		ev := heap.Pop(&s.heap).(*Event)
		s.now = ev.Tick
		ev.Fn()
	}
}

// Step pops and runs a single pending event, advancing Now to its tick. It
// reports whether an event ran. Used by the monitor TUI to single-step the
// clock a press at a time.
func (s *Scheduler) Step() bool {
	if s.heap.Len() == 0 {
		return false
	}

	ev := heap.Pop(&s.heap).(*Event)
	s.now = ev.Tick
	ev.Fn()

	return true
}

// Pending reports how many events are queued.
func (s *Scheduler) Pending() int { return s.heap.Len() }
