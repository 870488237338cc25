package someiptp

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// SegmentOutcome is the per-flow result of a segment() call, mapped onto
// the manager-level ProcessOutcome by SegmentationManager (spec.md 4.8).
type SegmentOutcome int

const (
	SegmentAccepted SegmentOutcome = iota
	SegmentRejected
)

// Segmentizer holds the pacing state for one message flow: the segments
// still to be sent and the token bucket governing how many may go out
// per burst window. It starts free and is bound to a key by the owning
// SegmentationManager (spec.md 3 lifecycle summary).
type Segmentizer struct {
	clock  clockwork.Clock
	logger *zap.Logger

	mu        sync.Mutex
	key       SegmentizerKey
	pending   [][]byte
	burstSize int
	sendCB    func([]byte) error
	limiter   *rate.Limiter
	timer     clockwork.Timer
	busy      bool
}

// bind assigns key to a slot the manager just moved out of the free list.
// Any leftover pacing state from a previous occupant is discarded.
func (s *Segmentizer) bind(key SegmentizerKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.key = key
	s.pending = nil
	s.busy = false
}

// isBusy reports whether this segmentizer is still pacing out segments
// for the flow it was last bound to.
func (s *Segmentizer) isBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// segment begins pacing packet out as a series of SOME/IP-TP segments:
// burstSize segments per separationTime window, via a token-bucket
// limiter whose bucket starts full (so the first burst is immediate) and
// refills at burstSize tokens every separationTime (spec.md 4.8).
func (s *Segmentizer) segment(packet []byte, separationTime time.Duration, maxSegmentLength, burstSize int, sendCB func([]byte) error) SegmentOutcome {
	if !validSegmentationParams(maxSegmentLength, burstSize) || separationTime < 0 {
		return SegmentRejected
	}

	s.mu.Lock()
	s.pending = buildSegments(packet, maxSegmentLength)
	s.burstSize = burstSize
	s.sendCB = sendCB
	s.busy = true
	s.limiter = newBurstLimiter(separationTime, burstSize)
	s.mu.Unlock()

	s.pump()
	return SegmentAccepted
}

func newBurstLimiter(separationTime time.Duration, burstSize int) *rate.Limiter {
	if separationTime <= 0 {
		return rate.NewLimiter(rate.Inf, burstSize)
	}
	return rate.NewLimiter(rate.Limit(float64(burstSize)/separationTime.Seconds()), burstSize)
}

// pump sends whatever segments the limiter currently admits, then either
// recurses immediately (bucket still has tokens) or schedules its own
// continuation after the limiter's reported delay, driven by the
// injected clock rather than a blocking sleep (spec.md 4.8, 5).
func (s *Segmentizer) pump() {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.busy = false
		s.mu.Unlock()
		return
	}

	take := s.burstSize
	if take > len(s.pending) {
		take = len(s.pending)
	}
	now := s.clock.Now()
	reservation := s.limiter.ReserveN(now, take)
	if !reservation.OK() {
		// take can never be satisfied by this limiter's burst capacity;
		// nothing more can be paced for this flow.
		s.pending = nil
		s.busy = false
		s.mu.Unlock()
		return
	}
	delay := reservation.DelayFrom(now)
	burst := s.pending[:take]
	s.pending = s.pending[take:]
	sendCB := s.sendCB
	key := s.key
	s.mu.Unlock()

	send := func() {
		for _, segment := range burst {
			if err := sendCB(segment); err != nil {
				s.logger.Warn("segment delivery failed",
					zap.String("remote_address", key.RemoteAddress), zap.Error(err))
			}
		}
		s.pump()
	}

	if delay > 0 {
		s.mu.Lock()
		s.timer = s.clock.AfterFunc(delay, send)
		s.mu.Unlock()
		return
	}
	send()
}
