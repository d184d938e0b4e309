package runtime

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOutbox_SendKeepsOrder(t *testing.T) {
	req := require.New(t)
	outbox := NewOutbox(slog.Default(), 3)
	queue := outbox.Register("C1")

	// When messages are sent
	outbox.Send("C1", "one")
	outbox.Send("C1", "two")

	// Then they are queued in order
	req.Equal(2, outbox.Pending("C1"))
	req.Equal("one", <-queue)
	req.Equal("two", <-queue)
}

func TestOutbox_FullOrUnknownDrops(t *testing.T) {
	req := require.New(t)
	outbox := NewOutbox(slog.Default(), 1)
	outbox.Register("C1")

	outbox.Send("C1", "kept")
	outbox.Send("C1", "dropped")
	outbox.Send("C9", "nowhere")

	req.Equal(1, outbox.Pending("C1"))
	req.Equal(0, outbox.Pending("C9"))
}

func TestOutbox_RegisterTwiceSameQueue(t *testing.T) {
	req := require.New(t)
	outbox := NewOutbox(slog.Default(), 1)

	first := outbox.Register("C1")
	second := outbox.Register("C1")

	req.Equal(first, second)
}
