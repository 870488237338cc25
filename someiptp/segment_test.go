package someiptp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidSegmentationParams(t *testing.T) {
	assert.True(t, validSegmentationParams(16, 4))
	assert.False(t, validSegmentationParams(0, 4), "zero max length is rejected")
	assert.False(t, validSegmentationParams(17, 4), "max length must be a multiple of 16")
	assert.False(t, validSegmentationParams(16, 0), "zero burst size is rejected")
}

func TestBuildSegmentsSplitsAndMarksMoreSegments(t *testing.T) {
	packet := make([]byte, 40)
	for i := range packet {
		packet[i] = byte(i)
	}

	segments := buildSegments(packet, 16)
	require.Len(t, segments, 3)

	first := decodeSegmentHeader(segments[0])
	assert.Equal(t, uint32(0), first.Offset)
	assert.True(t, first.MoreSegments)
	assert.Equal(t, packet[0:16], segments[0][tpHeaderLen:])

	second := decodeSegmentHeader(segments[1])
	assert.Equal(t, uint32(16), second.Offset)
	assert.True(t, second.MoreSegments)

	last := decodeSegmentHeader(segments[2])
	assert.Equal(t, uint32(32), last.Offset)
	assert.False(t, last.MoreSegments)
	assert.Equal(t, packet[32:40], segments[2][tpHeaderLen:])
}

func TestBuildSegmentsEmptyPacketYieldsOneSegment(t *testing.T) {
	segments := buildSegments(nil, 16)
	require.Len(t, segments, 1)
	hdr := decodeSegmentHeader(segments[0])
	assert.Equal(t, uint32(0), hdr.Offset)
	assert.False(t, hdr.MoreSegments)
}

func TestBuildSegmentsExactMultipleHasNoTrailingEmptySegment(t *testing.T) {
	packet := make([]byte, 32)
	segments := buildSegments(packet, 16)
	require.Len(t, segments, 2)
	last := decodeSegmentHeader(segments[1])
	assert.False(t, last.MoreSegments)
}
