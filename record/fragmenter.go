package record

// SendFragmenter splits an outgoing application buffer into the payload
// slices PlainText envelopes are built from (spec.md 4.2 / C2). It has no
// state of its own — fragment boundaries depend only on the buffer and
// the negotiated fragment size, so it is a pure function rather than a
// struct with methods, matching the teacher's record-layer.go which
// never threads a separate fragmenter object through WriteRecord either.

// FragmentSize computes the plaintext size cap for one record: the
// smaller of the transport MTU headroom, the peer's negotiated
// record-size-limit, and the protocol maximum (spec.md 4.2).
func FragmentSize(mtu, expansion, negotiatedLimit int) (int, error) {
	if mtu <= expansion {
		return 0, newError(ErrKindInternalError, "mtu %d too small for record expansion %d", mtu, expansion)
	}
	size := mtu - expansion
	if negotiatedLimit > 0 && negotiatedLimit < size {
		size = negotiatedLimit
	}
	if size > maxPlaintextLen {
		size = maxPlaintextLen
	}
	return size, nil
}

// FragmentPayload splits buffer into successive slices of at most
// fragmentSize bytes. For ApplicationData, a zero-length buffer still
// yields exactly one empty fragment so the application can reliably
// signal a 0-byte send; for every other content type, an empty buffer
// yields no fragments at all (spec.md 4.2).
func FragmentPayload(buffer []byte, contentType RecordType, fragmentSize int) ([][]byte, error) {
	if fragmentSize <= 0 {
		return nil, newError(ErrKindInternalError, "non-positive fragment size %d", fragmentSize)
	}

	if len(buffer) == 0 {
		if contentType == RecordTypeApplicationData {
			return [][]byte{{}}, nil
		}
		return nil, nil
	}

	var out [][]byte
	for off := 0; off < len(buffer); off += fragmentSize {
		end := off + fragmentSize
		if end > len(buffer) {
			end = len(buffer)
		}
		out = append(out, buffer[off:end])
	}
	return out, nil
}
