package someiptp

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSegmentizerPacesBurstsOverSeparationTime(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := &Segmentizer{clock: clock, logger: zap.NewNop()}

	var mu sync.Mutex
	var sent [][]byte
	record := func(b []byte) error {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, append([]byte(nil), b...))
		return nil
	}
	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(sent)
	}

	packet := make([]byte, 48) // three 16-byte segments
	outcome := s.segment(packet, 100*time.Millisecond, 16, 1, record)
	require.Equal(t, SegmentAccepted, outcome)

	// the bucket starts full, so the first segment goes out synchronously
	require.Equal(t, 1, count())
	require.True(t, s.isBusy())

	clock.BlockUntil(1)
	clock.Advance(100 * time.Millisecond)
	require.Eventually(t, func() bool { return count() == 2 }, time.Second, time.Millisecond)

	clock.BlockUntil(1)
	clock.Advance(100 * time.Millisecond)
	require.Eventually(t, func() bool { return count() == 3 }, time.Second, time.Millisecond)

	require.Eventually(t, func() bool { return !s.isBusy() }, time.Second, time.Millisecond)
}

func TestSegmentRejectsBadParameters(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := &Segmentizer{clock: clock, logger: zap.NewNop()}

	outcome := s.segment([]byte("x"), time.Millisecond, 17, 1, func([]byte) error { return nil })
	require.Equal(t, SegmentRejected, outcome)
	require.False(t, s.isBusy())
}
