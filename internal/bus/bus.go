// Package bus is the in-process transport between the coordinator and the
// workers. Each actor owns one mailbox and drains it from a single
// goroutine; sends are fire-and-forget. Reliable delivery, addressing
// across processes, and identity bootstrap belong to the external transport
// this package stands in for.
package bus

import (
	"sync"

	"github.com/rs/zerolog"
)

// Well-known actor addresses.
const (
	AddrCoordinator = "coordinator"
	AddrStrategy    = "strategy"
	AddrBridge      = "bridge"
	AddrConversion  = "conversion"
	AddrExecution   = "execution"
)

// Envelope carries one message and its sender.
type Envelope struct {
	From string
	Body any
}

const defaultMailboxSize = 64

type Bus struct {
	mu        sync.RWMutex
	mailboxes map[string]chan Envelope
	log       zerolog.Logger
}

func New(log zerolog.Logger) *Bus {
	return &Bus{
		mailboxes: make(map[string]chan Envelope),
		log:       log.With().Str("component", "bus").Logger(),
	}
}

// Register creates the mailbox for an actor and returns its receive side.
// Registering the same address twice replaces the mailbox; callers register
// once during wiring.
func (b *Bus) Register(addr string) <-chan Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	mbox := make(chan Envelope, defaultMailboxSize)
	b.mailboxes[addr] = mbox
	return mbox
}

// Send delivers body to the addressed mailbox without blocking the sender.
// Unknown addresses and full mailboxes drop the message with a warning; the
// external transport owns redelivery.
func (b *Bus) Send(from, to string, body any) {
	b.mu.RLock()
	mbox, ok := b.mailboxes[to]
	b.mu.RUnlock()
	if !ok {
		b.log.Warn().Str("from", from).Str("to", to).Type("body", body).
			Msg("dropping message for unknown address")
		return
	}
	select {
	case mbox <- Envelope{From: from, Body: body}:
	default:
		b.log.Warn().Str("from", from).Str("to", to).Type("body", body).
			Msg("dropping message, mailbox full")
	}
}

// Close closes every mailbox, ending the actor loops draining them.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for addr, mbox := range b.mailboxes {
		close(mbox)
		delete(b.mailboxes, addr)
	}
}
