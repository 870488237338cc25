package record

import "encoding/binary"

// PlainText, CompressedText and CipherText are the typed pipeline
// envelopes of spec.md 4.3 / C3. They share one underlying shape — a
// content type, version, direction-dependent sequence metadata and a
// payload — and are handed through the pipeline by pointer the way the
// teacher's TLSPlaintext is: ownership of the payload moves with the call,
// never shared, because each conversion clears the source envelope's
// Fragment (design notes, spec.md 9: "unique-pointer pipeline envelopes").
type envelope struct {
	ContentType RecordType
	Version     ProtocolVersion
	Mode        Mode

	// Epoch and Seq carry the sequence metadata bound at construction.
	// For TLS, Epoch is always 0 and Seq is the 64-bit implicit counter.
	// For DTLS, Epoch is the current epoch and Seq is the 48-bit explicit
	// counter.
	Epoch Epoch
	Seq   uint64

	Fragment []byte
}

// combinedSeq packs epoch and explicit sequence into the 64-bit quantity
// used as MAC/nonce input, matching the teacher's cipherState.combineSeq.
func (e *envelope) combinedSeq() uint64 {
	if e.Mode == ModeDTLS {
		return uint64(e.Epoch)<<48 | (e.Seq & 0x0000FFFFFFFFFFFF)
	}
	return e.Seq
}

// PlainText is the envelope CompressionSuite and SendFragmenter operate
// on: uncompressed application/handshake bytes.
type PlainText struct{ envelope }

// CompressedText is the envelope BulkEncryption operates on.
type CompressedText struct{ envelope }

// CipherText is the envelope serialized to, or deserialized from, the
// wire.
type CipherText struct{ envelope }

func NewPlainText(ct RecordType, version ProtocolVersion, mode Mode, epoch Epoch, seq uint64, fragment []byte) *PlainText {
	return &PlainText{envelope{ContentType: ct, Version: version, Mode: mode, Epoch: epoch, Seq: seq, Fragment: fragment}}
}

// ToCompressed moves pt's payload into a new CompressedText, as
// CompressionSuite.Compress does for the null compressor. pt must not be
// used afterward.
func (pt *PlainText) ToCompressed(fragment []byte) *CompressedText {
	ct := &CompressedText{pt.envelope}
	ct.Fragment = fragment
	pt.Fragment = nil
	return ct
}

// ToPlain is the receive-side inverse of ToCompressed.
func (ct *CompressedText) ToPlain(fragment []byte) *PlainText {
	pt := &PlainText{ct.envelope}
	pt.Fragment = fragment
	ct.Fragment = nil
	return pt
}

// ToCipher moves ct's payload into a new CipherText after encryption.
func (ct *CompressedText) ToCipher(fragment []byte) *CipherText {
	c := &CipherText{ct.envelope}
	c.Fragment = fragment
	ct.Fragment = nil
	return c
}

// ToCompressed is the receive-side inverse of ToCipher, after decryption.
func (c *CipherText) ToCompressed(fragment []byte) *CompressedText {
	ct := &CompressedText{c.envelope}
	ct.Fragment = fragment
	c.Fragment = nil
	return ct
}

// macInput builds the MAC-then-encrypt / encrypt-then-MAC input for
// NullMAC and AES-CBC+HMAC (spec.md 4.3): seq ‖ content_type ‖ version ‖
// length ‖ fragment. macFragment is the bytes actually under the MAC
// (plaintext for MtE, ciphertext for EtM); its length, not len(Fragment),
// goes into the length field.
func (e *envelope) macInput(macFragment []byte) []byte {
	out := make([]byte, 0, sequenceNumberLen+1+2+2+len(macFragment))
	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], e.combinedSeq())
	out = append(out, seqBuf[:]...)
	out = append(out, byte(e.ContentType))
	ver := e.Version.bytes()
	out = append(out, ver[0], ver[1])
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(macFragment)))
	out = append(out, lenBuf[:]...)
	out = append(out, macFragment...)
	return out
}

// aeadNonceExplicitPart returns the 8-byte explicit nonce component: the
// TLS implicit sequence number, or epoch‖explicit_seq packed for DTLS
// (spec.md 4.3, RFC 5246 6.2.3.3 / RFC 6347).
func (e *envelope) aeadNonceExplicitPart() [8]byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], e.combinedSeq())
	return b
}

// aeadNonce builds fixedIV ‖ explicit_part.
func (e *envelope) aeadNonce(fixedIV []byte) []byte {
	explicit := e.aeadNonceExplicitPart()
	nonce := make([]byte, 0, len(fixedIV)+len(explicit))
	nonce = append(nonce, fixedIV...)
	nonce = append(nonce, explicit[:]...)
	return nonce
}

// aeadAdditionalData builds seq_num(8) ‖ content_type(1) ‖ version(2) ‖
// length(2), where length is the plaintext length without the tag
// (spec.md 4.3 / 6).
func (e *envelope) aeadAdditionalData(plaintextLen int) []byte {
	out := make([]byte, 0, aeadAdditionalDataLen)
	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], e.combinedSeq())
	out = append(out, seqBuf[:]...)
	out = append(out, byte(e.ContentType))
	ver := e.Version.bytes()
	out = append(out, ver[0], ver[1])
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(plaintextLen))
	out = append(out, lenBuf[:]...)
	return out
}

// Serialize writes content_type ‖ version ‖ [dtls: epoch+explicit_seq] ‖
// length ‖ payload, the on-the-wire form of a CipherText.
func (c *CipherText) Serialize() []byte {
	hl := headerLen(c.Mode)
	out := make([]byte, hl, hl+len(c.Fragment))
	out[0] = byte(c.ContentType)
	ver := c.Version.bytes()
	out[1], out[2] = ver[0], ver[1]
	if c.Mode == ModeDTLS {
		binary.BigEndian.PutUint16(out[3:5], uint16(c.Epoch))
		var seq48 [8]byte
		binary.BigEndian.PutUint64(seq48[:], c.Seq&0x0000FFFFFFFFFFFF)
		copy(out[5:11], seq48[2:8])
		binary.BigEndian.PutUint16(out[11:13], uint16(len(c.Fragment)))
	} else {
		binary.BigEndian.PutUint16(out[3:5], uint16(len(c.Fragment)))
	}
	return append(out, c.Fragment...)
}

// DeserializeCipherText parses a RawRecord (header already split from
// fragment by RecordFramer) into a CipherText. It does not validate the
// result; that is RecordValidator's job (spec.md 4.6).
func DeserializeCipherText(mode Mode, rec *RawRecord) *CipherText {
	c := &CipherText{envelope{Mode: mode}}
	c.ContentType = RecordType(rec.Header[0])
	c.Version = ProtocolVersion{rec.Header[1], rec.Header[2]}
	if mode == ModeDTLS {
		c.Epoch = Epoch(binary.BigEndian.Uint16(rec.Header[3:5]))
		var seq48 [8]byte
		copy(seq48[2:8], rec.Header[5:11])
		c.Seq = binary.BigEndian.Uint64(seq48[:])
	}
	c.Fragment = rec.Fragment
	return c
}
