// Package mailbox implements a node's per-predecessor message queue: a FIFO
// inbox of incoming signal messages, plus latest-message-per-sender
// bookkeeping used by the node runtime and the signal evaluator.
//
// Grounded on original_source/anacostia_pipeline/engine/node.py's Message
// model and incoming_signals Queue/received_signals dict.
package mailbox

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Outcome is the result a sender reports for its own execution.
type Outcome int

const (
	Pending Outcome = iota
	Success
	Failure
)

// Message is one signal emitted by a node to its successors. ID is an
// addition over the Python original (which has no message identity) for
// tracing correlation, following smilemakc-mbflow's pervasive use of
// google/uuid for entity identity.
type Message struct {
	ID        uuid.UUID
	Sender    string
	Outcome   Outcome
	Timestamp time.Time
}

// NewMessage builds a Message stamped with a fresh ID and the current time.
func NewMessage(sender string, outcome Outcome) Message {
	return Message{
		ID:        uuid.New(),
		Sender:    sender,
		Outcome:   outcome,
		Timestamp: time.Now(),
	}
}

// Mailbox is a thread-safe FIFO queue of incoming messages, with a
// latest-message-per-sender view used to answer signal.Receiver queries.
type Mailbox struct {
	mu       sync.Mutex
	queue    []Message
	latest   map[string]Message
	notEmpty *sync.Cond
}

// New creates an empty Mailbox.
func New() *Mailbox {
	m := &Mailbox{latest: make(map[string]Message)}
	m.notEmpty = sync.NewCond(&m.mu)
	return m
}

// Put enqueues msg and records it as the latest message from its sender,
// superseding any earlier message from the same sender: the latest view
// governs gate evaluation, while the FIFO queue governs delivery order to
// the main loop. A sender's latest entry persists across rounds until that
// sender sends again — nothing clears it on its own.
func (m *Mailbox) Put(msg Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, msg)
	m.latest[msg.Sender] = msg
	m.notEmpty.Signal()
}

// TryDrain removes and returns all currently queued messages, oldest
// first, without blocking. Returns nil if the mailbox is empty.
func (m *Mailbox) TryDrain() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return nil
	}
	out := m.queue
	m.queue = nil
	return out
}

// Len reports the number of undelivered messages.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Succeeded implements signal.Receiver: true iff the latest message from
// sender exists and reports Success.
func (m *Mailbox) Succeeded(sender string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.latest[sender]
	return ok && msg.Outcome == Success
}

// Latest returns the most recent message received from sender, if any.
func (m *Mailbox) Latest(sender string) (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.latest[sender]
	return msg, ok
}
