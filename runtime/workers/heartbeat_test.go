package workers

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/shirou/gopsutil/process"
	"github.com/stretchr/testify/require"
)

func TestSelfStats(t *testing.T) {
	req := require.New(t)
	p, err := process.NewProcess(int32(os.Getpid()))
	req.NoError(err)

	stats, err := selfStats(p)

	req.NoError(err)
	req.Positive(stats.RSS)
	req.Positive(stats.Goroutines)
}

func TestChannelCapacityWorker_Report(t *testing.T) {
	req := require.New(t)
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// Given one queue almost full and one nearly empty
	full := make(chan string, 5)
	for i := 0; i < 4; i++ {
		full <- "msg"
	}
	empty := make(chan string, 5)
	worker := NewChannelCapacityWorker(log, []NamedChannel{
		{Name: "outbox-C1", Channel: full},
		{Name: "inbox-C1", Channel: empty},
		{Name: "broken", Channel: 42},
	}, time.Minute)

	worker.Report()

	// Then only the full one is a warning
	out := buf.String()
	req.Contains(out, `level=WARN msg="Channel almost full" name=outbox-C1 length=4 capacity=5`)
	req.Contains(out, `level=DEBUG msg="Channel capacity" name=inbox-C1 length=0 capacity=5`)
	req.Contains(out, `level=ERROR msg="Provided object is not a channel" name=broken`)
}

func TestHeartbeatWorker_StopsWithContext(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req.NoError(NewHeartbeatWorker(slog.Default(), time.Millisecond).Run(ctx))
}
