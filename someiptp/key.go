package someiptp

// SegmentizerKey identifies the logical flow a Segmentizer slot is
// currently bound to: the remote endpoint plus the SOME/IP message
// identity that must stay on the same segmentizer for the duration of a
// multi-segment send.
type SegmentizerKey struct {
	RemoteAddress string
	RemotePort    uint16
	ServiceID     uint16
	MethodID      uint16
	ClientID      uint16
}
