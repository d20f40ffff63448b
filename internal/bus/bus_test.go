package bus

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendDelivers(t *testing.T) {
	b := New(zerolog.Nop())
	inbox := b.Register("worker")

	b.Send("tester", "worker", "hello")

	select {
	case env := <-inbox:
		assert.Equal(t, "tester", env.From)
		assert.Equal(t, "hello", env.Body)
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
}

func TestSendToUnknownAddressIsDropped(t *testing.T) {
	b := New(zerolog.Nop())
	// Must not panic or block.
	b.Send("tester", "nobody", 42)
}

func TestSendToFullMailboxIsDropped(t *testing.T) {
	b := New(zerolog.Nop())
	inbox := b.Register("worker")

	for i := 0; i < defaultMailboxSize+10; i++ {
		b.Send("tester", "worker", i)
	}
	// The mailbox holds exactly its capacity; overflow was dropped, not
	// blocked on.
	require.Len(t, inbox, defaultMailboxSize)
}

func TestCloseEndsReceivers(t *testing.T) {
	b := New(zerolog.Nop())
	inbox := b.Register("worker")
	b.Close()

	_, open := <-inbox
	assert.False(t, open)
}
