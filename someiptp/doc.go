// Package someiptp implements the SOME/IP-TP transport segmentation layer:
// splitting an oversized outgoing SOME/IP message into fixed-size segments
// carrying an explicit byte offset and a "more segments" flag, and pacing
// their transmission in bursts separated by an injectable timer.
//
// A SegmentationManager owns a fixed pool of per-flow Segmentizer slots
// recycled through two intrusive lists threaded through a slab, so the
// pool itself allocates nothing once the manager is constructed; each
// accepted message still allocates its segment buffers and pacing limiter.
package someiptp
