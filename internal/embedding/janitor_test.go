package embedding

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type recordingQueue struct {
	fakeQueue
	calls chan time.Duration
}

func (q *recordingQueue) RependStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	q.calls <- olderThan
	return 2, nil
}

func TestJanitor_SweepsOnSchedule(t *testing.T) {
	q := &recordingQueue{calls: make(chan time.Duration, 1)}
	j := NewJanitor(q, 15*time.Minute, zerolog.Nop())

	require.NoError(t, j.Start(context.Background(), 100*time.Millisecond))
	defer j.Stop()

	select {
	case got := <-q.calls:
		require.Equal(t, 15*time.Minute, got)
	case <-time.After(2 * time.Second):
		t.Fatal("janitor never swept")
	}
}
