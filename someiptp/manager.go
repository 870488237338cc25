package someiptp

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// noSlot marks the end of a free/busy list or "no slot available".
const noSlot int32 = -1

// ProcessOutcome is the result of SegmentationManager.ProcessMessage
// (spec.md 4.8).
type ProcessOutcome int

const (
	ProcessOk ProcessOutcome = iota
	ProcessNoSegmentizerFound
	ProcessWrongSegmentationParameters
)

func (o ProcessOutcome) String() string {
	switch o {
	case ProcessOk:
		return "ok"
	case ProcessNoSegmentizerFound:
		return "no_segmentizer_found"
	case ProcessWrongSegmentationParameters:
		return "wrong_segmentation_parameters"
	default:
		return "unknown"
	}
}

// SegmentationParams carries the per-message pacing parameters the
// handshake/transport layer negotiated for this flow.
type SegmentationParams struct {
	SeparationTime   time.Duration
	MaxSegmentLength int
	BurstSize        int
}

// SegmentationManager routes oversized outgoing messages to per-flow
// Segmentizer slots drawn from a fixed backing array, recycled through
// two singly-linked lists (free, maybe_busy) threaded through a shared
// `next` index slab — the pool allocates nothing once the manager is
// constructed (spec.md 3, 4.8, design note on intrusive lists).
type SegmentationManager struct {
	mu sync.Mutex

	slots []Segmentizer
	next  []int32

	freeHead int32
	busyHead int32

	logger *zap.Logger
}

// NewSegmentationManager builds a manager with capacity slots, all
// initially free, sharing clock and logger across every Segmentizer.
func NewSegmentationManager(capacity int, clock clockwork.Clock, logger *zap.Logger) *SegmentationManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	slots := make([]Segmentizer, capacity)
	next := make([]int32, capacity)
	for i := range slots {
		slots[i] = Segmentizer{clock: clock, logger: logger}
		if i == capacity-1 {
			next[i] = noSlot
		} else {
			next[i] = int32(i + 1)
		}
	}
	freeHead := noSlot
	if capacity > 0 {
		freeHead = 0
	}
	return &SegmentationManager{
		slots:    slots,
		next:     next,
		freeHead: freeHead,
		busyHead: noSlot,
		logger:   logger,
	}
}

// ProcessMessage implements spec.md 4.8: find or allocate the segmentizer
// for key, then hand it the message to pace out.
func (m *SegmentationManager) ProcessMessage(key SegmentizerKey, packet []byte, params SegmentationParams, sendCB func([]byte) error) ProcessOutcome {
	m.mu.Lock()
	idx := m.reclaimAndFind(key)
	if idx == noSlot {
		idx = m.popFree()
		if idx == noSlot {
			m.mu.Unlock()
			m.logger.Debug("segmentizer pool exhausted",
				zap.String("remote_address", key.RemoteAddress), zap.Uint16("service_id", key.ServiceID))
			return ProcessNoSegmentizerFound
		}
		m.slots[idx].bind(key)
		m.pushBusy(idx)
		m.logger.Debug("segmentizer allocated",
			zap.Int32("slot", idx), zap.String("remote_address", key.RemoteAddress))
	}
	m.mu.Unlock()

	if m.slots[idx].segment(packet, params.SeparationTime, params.MaxSegmentLength, params.BurstSize, sendCB) == SegmentRejected {
		return ProcessWrongSegmentationParameters
	}
	return ProcessOk
}

// reclaimAndFind walks the busy list once: slots that report no longer
// busy are unlinked and returned to free as the walk passes them (lazy
// reclamation); a slot still busy whose key matches is returned
// immediately for reuse. Must be called with mu held.
func (m *SegmentationManager) reclaimAndFind(key SegmentizerKey) int32 {
	prev := noSlot
	cur := m.busyHead
	for cur != noSlot {
		next := m.next[cur]
		if m.slots[cur].isBusy() {
			if m.slots[cur].key == key {
				return cur
			}
			prev = cur
		} else {
			if prev == noSlot {
				m.busyHead = next
			} else {
				m.next[prev] = next
			}
			m.pushFree(cur)
		}
		cur = next
	}
	return noSlot
}

func (m *SegmentationManager) popFree() int32 {
	idx := m.freeHead
	if idx == noSlot {
		return noSlot
	}
	m.freeHead = m.next[idx]
	return idx
}

func (m *SegmentationManager) pushFree(idx int32) {
	m.next[idx] = m.freeHead
	m.freeHead = idx
}

func (m *SegmentationManager) pushBusy(idx int32) {
	m.next[idx] = m.busyHead
	m.busyHead = idx
}
