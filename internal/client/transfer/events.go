package transfer

import (
	"sync"
)

type EventKind int

const (
	EventProgress EventKind = iota
	EventPhase
	EventCompleted
	EventFailed
)

type Phase string

const (
	PhaseEncrypting  Phase = "encrypting"
	PhaseDownloading Phase = "downloading"
	PhaseDecrypting  Phase = "decrypting"
	PhaseComplete    Phase = "complete"
	PhaseCancelled   Phase = "cancelled"
	PhaseFailed      Phase = "failed"
)

// Event is one notification of a transfer. Which fields are set depends on
// Kind.
type Event struct {
	Kind   EventKind
	Phase  Phase
	Ratio  float64
	Bytes  int64
	Total  int64
	Result any
	Err    error
}

type subscriber struct {
	mu     sync.Mutex
	ch     chan Event
	done   chan struct{}
	once   sync.Once
	closed bool
}

// send delivers ev. Lossy sends give up when the buffer is full; the others
// wait until the subscriber reads or unsubscribes.
func (s *subscriber) send(ev Event, lossy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if lossy {
		select {
		case s.ch <- ev:
		default:
		}
		return
	}
	select {
	case s.ch <- ev:
	case <-s.done:
	}
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.done) })
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Events fans transfer notifications out to subscribers.
//
// Progress and intermediate phase events are dropped for subscribers whose
// buffer is full. The terminal event and the terminal phase that follows it
// are always delivered, after which every subscriber channel is closed. The
// zero value is ready to use and may serve several transfers in sequence.
type Events struct {
	mu        sync.Mutex
	subs      map[int]*subscriber
	next      int
	lastRatio float64
}

// Subscribe registers a listener with the given channel buffer. The returned
// function stops delivery and closes the channel; it is safe to call more
// than once.
func (e *Events) Subscribe(buffer int) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, max(buffer, 0)), done: make(chan struct{})}

	e.mu.Lock()
	if e.subs == nil {
		e.subs = make(map[int]*subscriber)
	}
	id := e.next
	e.next++
	e.subs[id] = sub
	e.mu.Unlock()

	return sub.ch, func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
		sub.close()
	}
}

func (e *Events) snapshot() []*subscriber {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*subscriber, 0, len(e.subs))
	for _, s := range e.subs {
		out = append(out, s)
	}
	return out
}

func (e *Events) broadcast(ev Event, lossy bool) {
	for _, s := range e.snapshot() {
		s.send(ev, lossy)
	}
}

// reset starts a new run.
func (e *Events) reset() {
	e.mu.Lock()
	e.lastRatio = 0
	e.mu.Unlock()
}

func (e *Events) phase(p Phase) {
	e.broadcast(Event{Kind: EventPhase, Phase: p}, true)
}

// progress reports done of total bytes. Ratios never go backwards.
func (e *Events) progress(done, total int64) {
	ratio := 0.0
	if total > 0 {
		ratio = min(float64(done)/float64(total), 1)
	}

	e.mu.Lock()
	if ratio < e.lastRatio {
		ratio = e.lastRatio
	}
	e.lastRatio = ratio
	e.mu.Unlock()

	e.broadcast(Event{Kind: EventProgress, Ratio: ratio, Bytes: done, Total: total}, true)
}

// finish delivers the terminal event followed by the terminal phase and
// closes the channels of everyone subscribed so far.
func (e *Events) finish(terminal Event, p Phase) {
	e.mu.Lock()
	subs := make([]*subscriber, 0, len(e.subs))
	for _, s := range e.subs {
		subs = append(subs, s)
	}
	e.subs = nil
	e.mu.Unlock()

	for _, s := range subs {
		s.send(terminal, false)
		s.send(Event{Kind: EventPhase, Phase: p}, false)
		s.close()
	}
}

func (e *Events) complete(result any) {
	e.finish(Event{Kind: EventCompleted, Result: result}, PhaseComplete)
}

func (e *Events) fail(err error, p Phase) {
	e.finish(Event{Kind: EventFailed, Err: err}, p)
}
