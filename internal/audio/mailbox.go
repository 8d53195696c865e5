package audio

import (
	"context"
	"sync"
)

// Mailbox is a single-slot buffer between capture and the pipeline.
// While a turn is busy, a newer utterance replaces any waiting one, so
// the pipeline always resumes with the latest thing the user said.
type Mailbox struct {
	mu       sync.Mutex
	slot     *Utterance
	nonEmpty chan struct{}
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{nonEmpty: make(chan struct{}, 1)}
}

// Put deposits an utterance, displacing any waiting one. Returns true
// when a previous utterance was dropped.
func (m *Mailbox) Put(u Utterance) bool {
	m.mu.Lock()
	dropped := m.slot != nil
	m.slot = &u
	m.mu.Unlock()

	select {
	case m.nonEmpty <- struct{}{}:
	default:
	}
	return dropped
}

// Take blocks until an utterance is available or ctx is done.
func (m *Mailbox) Take(ctx context.Context) (Utterance, error) {
	for {
		m.mu.Lock()
		if m.slot != nil {
			u := *m.slot
			m.slot = nil
			m.mu.Unlock()
			return u, nil
		}
		m.mu.Unlock()

		select {
		case <-m.nonEmpty:
		case <-ctx.Done():
			return Utterance{}, ctx.Err()
		}
	}
}

// TryTake returns the waiting utterance without blocking.
func (m *Mailbox) TryTake() (Utterance, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slot == nil {
		return Utterance{}, false
	}
	u := *m.slot
	m.slot = nil
	return u, true
}

// Clear drops any waiting utterance.
func (m *Mailbox) Clear() {
	m.mu.Lock()
	m.slot = nil
	m.mu.Unlock()
}
