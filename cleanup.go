package main

import "time"

// cleanupDue is delivered to the hub when a room's cleanup delay elapses.
type cleanupDue struct {
	id   uint64
	room *Room
}

// cleanupScheduler arms one-shot timers that hand rooms back to the hub for
// removal. It is only used from the hub goroutine; the timers themselves
// just enqueue a cleanupDue.
type cleanupScheduler struct {
	delay   time.Duration
	enqueue func(any) bool

	next    uint64
	pending map[uint64]*time.Timer
}

func newCleanupScheduler(delay time.Duration, enqueue func(any) bool) *cleanupScheduler {
	return &cleanupScheduler{
		delay:   delay,
		enqueue: enqueue,
		pending: make(map[uint64]*time.Timer),
	}
}

func (s *cleanupScheduler) schedule(room *Room) {
	s.next++
	id := s.next

	s.pending[id] = time.AfterFunc(s.delay, func() {
		s.enqueue(cleanupDue{id: id, room: room})
	})
}

// fired forgets a timer once its cleanupDue has been handled.
func (s *cleanupScheduler) fired(id uint64) {
	delete(s.pending, id)
}

func (s *cleanupScheduler) len() int {
	return len(s.pending)
}

func (s *cleanupScheduler) stop() {
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
}
