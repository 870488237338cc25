package someiptp

import "encoding/binary"

// tpHeaderLen is the size of the SOME/IP-TP header prepended to every
// segment: a 28-bit offset (in units of 16 bytes), 3 reserved bits, and a
// 1-bit "more segments" flag, packed big-endian into a single uint32.
const tpHeaderLen = 4

// offsetUnit is the granularity the SOME/IP-TP offset field counts in;
// every segment but the last must carry a payload length that is a
// multiple of it.
const offsetUnit = 16

// segmentHeader is the decoded form of the 4-byte SOME/IP-TP header.
type segmentHeader struct {
	Offset       uint32 // byte offset of this segment's payload in the reassembled message
	MoreSegments bool
}

func (h segmentHeader) encode() [tpHeaderLen]byte {
	word := (h.Offset/offsetUnit)<<4
	if h.MoreSegments {
		word |= 1
	}
	var out [tpHeaderLen]byte
	binary.BigEndian.PutUint32(out[:], word)
	return out
}

func decodeSegmentHeader(b []byte) segmentHeader {
	word := binary.BigEndian.Uint32(b[:tpHeaderLen])
	return segmentHeader{
		Offset:       (word >> 4) * offsetUnit,
		MoreSegments: word&1 != 0,
	}
}

// validSegmentationParams reports whether maxSegmentLength/burstSize form a
// legal segmentation request (spec.md 4.8 process_message outcome
// WrongSegmentationParameters). Every segment but the last must be a whole
// multiple of offsetUnit bytes, so the cap itself must be one too.
func validSegmentationParams(maxSegmentLength, burstSize int) bool {
	return maxSegmentLength > 0 && maxSegmentLength%offsetUnit == 0 && burstSize > 0
}

// buildSegments slices packet into wire-ready segments, each carrying its
// own SOME/IP-TP header. The final segment carries whatever remainder is
// left, however small, with MoreSegments cleared.
func buildSegments(packet []byte, maxSegmentLength int) [][]byte {
	if len(packet) == 0 {
		hdr := segmentHeader{Offset: 0, MoreSegments: false}.encode()
		return [][]byte{append([]byte{}, hdr[:]...)}
	}

	var segments [][]byte
	for offset := 0; offset < len(packet); offset += maxSegmentLength {
		end := offset + maxSegmentLength
		if end > len(packet) {
			end = len(packet)
		}
		hdr := segmentHeader{Offset: uint32(offset), MoreSegments: end < len(packet)}.encode()
		segment := make([]byte, 0, tpHeaderLen+end-offset)
		segment = append(segment, hdr[:]...)
		segment = append(segment, packet[offset:end]...)
		segments = append(segments, segment)
	}
	return segments
}
