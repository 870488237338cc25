package record

import (
	"math"
	"sync"

	"go.uber.org/zap"
)

// RecordProtocol is the central state of spec.md 4.7 / C7: it owns the
// current read/write SecurityParameters, epochs, sequence counters,
// cipher suite, sliding window, connect/disconnect lifecycle, and routes
// decrypted payload by content type to the handshake or application
// callbacks.
//
// Grounded on the teacher's DefaultRecordLayer (record-layer.go), which
// plays the same role for TLS 1.3: one struct embedding sync.Mutex
// (exposed for callers that need to serialize a read/write pair, never
// locked internally — spec.md 5 makes this a single-threaded-cooperative
// design, not a concurrent one), a frame accumulator, and per-direction
// cipher state rebuilt whenever new keys are installed.
type RecordProtocol struct {
	sync.Mutex

	mode Mode
	end  ConnectionEnd

	mtu                int
	allowOldEpochReads bool
	logger             *zap.Logger

	framer *RecordFramer

	readSP, writeSP *SecurityParameters
	readCipher      BulkEncryption
	writeCipher     BulkEncryption
	compression     CompressionSuite

	readEpoch, writeEpoch Epoch
	readSeqTLS            uint64 // implicit counter, TLS mode only
	writeSeq              uint64 // implicit (TLS) or explicit (DTLS) next sequence to emit
	readWindow            AntiReplayWindow

	negotiatedVersion        ProtocolVersion
	cipherSuite              uint16
	mostRecentClientHelloSeq uint64

	allowApplication bool
	disconnected     bool
	closed           bool

	cachedContentType *RecordType
	cachedErr         error

	handshake HandshakeCallbacks
	user      UserCallbacks
}

// NewRecordProtocol constructs an idle RecordProtocol for the given wire
// mode (spec.md 3 lifecycle summary: "constructed idle"). Call
// OpenForAction before sending or receiving anything.
func NewRecordProtocol(mode Mode, handshake HandshakeCallbacks, user UserCallbacks, opts ...Option) *RecordProtocol {
	p := &RecordProtocol{
		mode:              mode,
		negotiatedVersion: VersionTLS12,
		mtu:               maxPlaintextLen,
		compression:       NullCompression{},
		handshake:         handshake,
		user:              user,
	}
	if mode == ModeDTLS {
		p.negotiatedVersion = VersionDTLS12
	}
	for _, o := range opts {
		o(p)
	}
	if p.logger == nil {
		p.logger = nopLogger()
	}
	return p
}

// OpenForAction initializes the framer and resets epochs, sequence
// counters, keying material and the sliding window — the post-idle state
// of spec.md 3.
func (p *RecordProtocol) OpenForAction(end ConnectionEnd) error {
	if p.closed {
		return newError(ErrKindInternalError, "record protocol closed")
	}
	p.end = end
	p.framer = NewRecordFramer(p.mode)
	p.readSP = nullSecurityParameters()
	p.writeSP = nullSecurityParameters()
	p.readCipher = nullNullCipher{}
	p.writeCipher = nullNullCipher{}
	p.readEpoch, p.writeEpoch = 0, 0
	p.readSeqTLS, p.writeSeq = 0, 0
	p.readWindow.reset()
	p.allowApplication = false
	p.disconnected = false
	scoped(p.logger, logTypeIO).Debug("opened for action", zap.String("role", roleString(end)))
	return nil
}

// Connect marks the connection active: ApplicationData sends and
// deliveries are now permitted (spec.md 4.7).
func (p *RecordProtocol) Connect() { p.allowApplication = true }

// Disconnect marks the connection inactive without tearing down keying
// material; ApplicationData sends return InvalidArgument and receives
// are dropped until Connect is called again.
func (p *RecordProtocol) Disconnect() { p.allowApplication = false }

// CloseDown finalizes the connection; no further Send*/HandleReceived*
// calls are accepted (spec.md 3 lifecycle summary).
func (p *RecordProtocol) CloseDown() {
	p.allowApplication = false
	p.disconnected = true
	p.closed = true
}

// Cleanup returns the protocol to the post-OpenForAction state for
// connection reuse: record_expansion back to 0 (both SecurityParameters
// null), epoch 0, last_seq/bitmap 0, and an empty framer buffer
// (spec.md 8 invariant).
func (p *RecordProtocol) Cleanup() {
	p.readSP = nullSecurityParameters()
	p.writeSP = nullSecurityParameters()
	p.readCipher = nullNullCipher{}
	p.writeCipher = nullNullCipher{}
	p.readEpoch, p.writeEpoch = 0, 0
	p.readSeqTLS, p.writeSeq = 0, 0
	p.readWindow.reset()
	p.mostRecentClientHelloSeq = 0
	p.framer.Reset()
	p.cachedContentType = nil
	p.cachedErr = nil
}

func roleString(end ConnectionEnd) string {
	if end == ConnectionEndClient {
		return "client"
	}
	return "server"
}

// --- Handshake→Record events (spec.md 4.7, 6) -------------------------------

func (p *RecordProtocol) SetReadSecurityParameters(sp *SecurityParameters) error {
	cipher, err := NewBulkEncryption(sp, p.end, DirectionRead)
	if err != nil {
		return err
	}
	p.readSP = sp
	p.readCipher = cipher
	return nil
}

func (p *RecordProtocol) SetWriteSecurityParameters(sp *SecurityParameters) error {
	cipher, err := NewBulkEncryption(sp, p.end, DirectionWrite)
	if err != nil {
		return err
	}
	p.writeSP = sp
	p.writeCipher = cipher
	return nil
}

// ResetSecurityParameters reinstalls the null cipher on both directions,
// e.g. when a renegotiation is abandoned before a ChangeCipherSpec.
func (p *RecordProtocol) ResetSecurityParameters() {
	p.readSP = nullSecurityParameters()
	p.writeSP = nullSecurityParameters()
	p.readCipher = nullNullCipher{}
	p.writeCipher = nullNullCipher{}
}

// IncreaseReadEpoch bumps the read epoch, resets the explicit sequence
// number and clears the anti-replay window (spec.md 4.7). DTLS-only
// meaningful; harmless no-op effect on TLS mode since nothing inspects
// epoch there.
func (p *RecordProtocol) IncreaseReadEpoch() {
	p.readEpoch++
	p.readWindow.reset()
}

func (p *RecordProtocol) IncreaseWriteEpoch() {
	p.writeEpoch++
	p.writeSeq = 0
}

// DecreaseReadEpoch/DecreaseWriteEpoch support a DTLS handshake rollback.
// The exact preconditions are a source-level open question (spec.md 9,
// item ii); this implementation takes the conservative position that a
// forgotten anti-replay history cannot be un-forgotten, so decreasing the
// read epoch starts the window fresh for whatever records arrive next
// rather than attempting to reconstruct prior state (see DESIGN.md).
func (p *RecordProtocol) DecreaseReadEpoch() {
	if p.readEpoch > 0 {
		p.readEpoch--
	}
	p.readWindow.reset()
}

func (p *RecordProtocol) DecreaseWriteEpoch() {
	if p.writeEpoch > 0 {
		p.writeEpoch--
	}
	p.writeSeq = 0
}

// UseMostRecentClientHelloSequenceNumber arranges for the next sent
// record to carry the explicit sequence number of the most recently
// received ClientHello, per the DTLS cookie-exchange echoing requirement
// (spec.md 4.7).
func (p *RecordProtocol) UseMostRecentClientHelloSequenceNumber() {
	p.writeSeq = p.mostRecentClientHelloSeq
}

func (p *RecordProtocol) OnCipherSuiteSelected(id uint16) {
	p.cipherSuite = id
	scoped(p.logger, logTypeHandshake).Debug("cipher suite selected", zap.Uint16("suite", id))
}

// NegotiatedRecordSizeLimit reports the plaintext size cap currently in
// effect for sends, a read-only diagnostic extension (SPEC_FULL.md
// "supplemented features").
func (p *RecordProtocol) NegotiatedRecordSizeLimit() (int, error) {
	return FragmentSize(p.mtu, headerLen(p.mode)+p.writeCipher.Expansion(), p.writeSP.RecordSizeLimit)
}

// --- Send (spec.md 4.7) -----------------------------------------------------

// SendMessage fragments buffer, compresses, encrypts and serializes each
// fragment, and hands each wire record to the transport callback in
// order.
func (p *RecordProtocol) SendMessage(buffer []byte, contentType RecordType) error {
	if p.closed {
		return newError(ErrKindInternalError, "record protocol closed")
	}
	if contentType == RecordTypeApplicationData && !p.allowApplication {
		return ErrInvalidArgument
	}

	expansion := headerLen(p.mode) + p.writeCipher.Expansion()
	limit, err := FragmentSize(p.mtu, expansion, p.writeSP.RecordSizeLimit)
	if err != nil {
		return err
	}

	fragments, err := FragmentPayload(buffer, contentType, limit)
	if err != nil {
		return err
	}

	for _, fragment := range fragments {
		if err := p.emitOne(contentType, fragment); err != nil {
			return err
		}
	}
	return nil
}

func (p *RecordProtocol) emitOne(contentType RecordType, fragment []byte) error {
	seq := p.writeSeq
	pt := NewPlainText(contentType, p.negotiatedVersion, p.mode, p.writeEpoch, seq, fragment)
	ct := p.compression.Compress(pt)
	cipherText, err := p.writeCipher.Encrypt(ct)
	if err != nil {
		return err
	}
	if len(cipherText.Fragment) > maxCiphertextLen {
		return newError(ErrKindInternalError, "encrypted record %d exceeds maximum ciphertext length", len(cipherText.Fragment))
	}

	wire := cipherText.Serialize()
	scoped(p.logger, logTypeIO).Debug("sending record",
		zap.String("content_type", contentType.String()), zap.Uint64("seq", seq), zap.Uint16("epoch", uint16(p.writeEpoch)))
	if err := p.user.OnSendToTransport(wire); err != nil {
		return err
	}

	if p.writeSeq == math.MaxUint64 {
		p.disconnected = true
		p.allowApplication = false
		return ErrSequenceExhausted
	}
	p.writeSeq++
	return nil
}

// SendAlert builds the 2-byte alert body and sends it as an Alert record;
// a fatal-level alert additionally disconnects the connection.
func (p *RecordProtocol) SendAlert(level AlertLevel, description AlertDescription) error {
	err := p.SendMessage([]byte{byte(level), byte(description)}, RecordTypeAlert)
	if level == AlertLevelFatal {
		p.disconnected = true
		p.allowApplication = false
	}
	return err
}

// HandleOutgoingAlert sends a caller-built alert body immediately.
func (p *RecordProtocol) HandleOutgoingAlert(buffer []byte) error {
	err := p.SendMessage(buffer, RecordTypeAlert)
	if len(buffer) >= 1 && AlertLevel(buffer[0]) == AlertLevelFatal {
		p.disconnected = true
		p.allowApplication = false
	}
	return err
}

// SendHelloVerifyRequest sends buffer as a DTLS HelloVerifyRequest under
// a forced null-null cipher and epoch 0, using the most recently seen
// ClientHello's explicit sequence number, regardless of the currently
// installed write SecurityParameters (spec.md 4.7).
func (p *RecordProtocol) SendHelloVerifyRequest(buffer []byte) error {
	if p.closed {
		return newError(ErrKindInternalError, "record protocol closed")
	}
	if p.mode != ModeDTLS {
		return newError(ErrKindInvalidArgument, "hello verify request is DTLS-only")
	}
	pt := NewPlainText(RecordTypeHandshake, p.negotiatedVersion, p.mode, 0, p.mostRecentClientHelloSeq, buffer)
	ct := p.compression.Compress(pt)
	cipherText, _ := nullNullCipher{}.Encrypt(ct)
	return p.user.OnSendToTransport(cipherText.Serialize())
}

// --- Receive (spec.md 4.7) ---------------------------------------------------

// HandleReceivedDataFromTransport feeds bytes into the framer and
// processes every complete record that becomes available.
func (p *RecordProtocol) HandleReceivedDataFromTransport(data []byte) error {
	if p.closed {
		return newError(ErrKindInternalError, "record protocol closed")
	}
	p.framer.AddData(data)

	for {
		rec, err := p.framer.NextRecord()
		if err != nil {
			return err
		}
		if rec == nil {
			return nil
		}
		if err := p.processOne(rec); err != nil {
			return err
		}
		if p.disconnected {
			return nil
		}
	}
}

func (p *RecordProtocol) processOne(rec *RawRecord) error {
	ciphertext := DeserializeCipherText(p.mode, rec)
	if p.mode == ModeTLS {
		ciphertext.Seq = p.readSeqTLS
	}

	ctx := &RecordProtocolContext{
		Mode:               p.mode,
		ReadEpoch:          p.readEpoch,
		WriteEpoch:         p.writeEpoch,
		ReadWindow:         &p.readWindow,
		AllowOldEpochReads: p.allowOldEpochReads,
	}

	outcome := preDecryptValidate(ctx, ciphertext)
	switch outcome {
	case ValidateDrop:
		scoped(p.logger, logTypeValidation).Debug("dropping record", zap.Uint64("seq", ciphertext.Seq))
		return nil
	case ValidateOverflow:
		return p.fatal(AlertDescRecordOverflow)
	case ValidateFatalUnexpectedMessage:
		return p.fatal(AlertDescUnexpectedMessage)
	case ValidateRetransmit:
		p.handshake.OnHandshakeData(ciphertext.Fragment, true)
		return nil
	case ValidateUseNullCipher, ValidateContainsClientHello:
		if outcome == ValidateContainsClientHello {
			p.mostRecentClientHelloSeq = ciphertext.Seq
		}
		compressed, _ := nullNullCipher{}.Decrypt(ciphertext)
		return p.finishReceive(compressed)
	default: // ValidatePassed
		compressed, err := p.readCipher.Decrypt(ciphertext)
		if err != nil {
			return p.fatal(AlertDescBadRecordMAC)
		}
		if p.mode == ModeDTLS {
			// A tolerated previous-epoch record (WithOldEpochTolerance)
			// carries a sequence number from a window that was already
			// reset on the epoch bump; only the current epoch's window
			// gets updated.
			if ciphertext.Epoch == p.readEpoch {
				p.readWindow.accept(ciphertext.Seq)
			}
		} else {
			p.readSeqTLS++
		}
		return p.finishReceive(compressed)
	}
}

func (p *RecordProtocol) finishReceive(compressed *CompressedText) error {
	plain := p.compression.Decompress(compressed)
	switch postDecryptValidate(p.negotiatedVersion, plain) {
	case ValidateOverflow:
		return p.fatal(AlertDescRecordOverflow)
	case ValidateFatalUnexpectedMessage:
		return p.fatal(AlertDescUnexpectedMessage)
	}
	p.triggerCallback(plain)
	return nil
}

func (p *RecordProtocol) triggerCallback(pt *PlainText) {
	switch pt.ContentType {
	case RecordTypeHandshake:
		p.handshake.OnHandshakeData(pt.Fragment, false)
	case RecordTypeAlert:
		p.handshake.OnAlertData(pt.Fragment)
	case RecordTypeChangeCipherSpec:
		if len(pt.Fragment) != 1 || pt.Fragment[0] != 0x01 {
			_ = p.fatal(AlertDescUnexpectedMessage)
			return
		}
		p.handshake.OnChangeCipherData(pt.Fragment)
	case RecordTypeApplicationData:
		if p.allowApplication {
			p.user.OnSendToCommParty(pt.Fragment)
		}
	}
}

// fatal sends a fatal alert best-effort and disconnects the connection,
// notifying the handshake layer (spec.md 7).
func (p *RecordProtocol) fatal(desc AlertDescription) error {
	scoped(p.logger, logTypeValidation).Warn("fatal alert", zap.Uint8("description", uint8(desc)))
	_ = p.SendAlert(AlertLevelFatal, desc)
	p.disconnected = true
	p.allowApplication = false
	p.handshake.CloseRequest()
	return nil
}

// PeekContentType reports the content type of the next complete record
// buffered in the framer without consuming it; the peek itself caches
// nothing. HandleReceivedDataFromTransport consumes every complete record
// it frames, so one is only left buffered when processing stopped early
// (after a disconnect or an error). block is accepted for API parity with
// the teacher's PeekRecordType but is a no-op: this implementation has no
// blocking I/O of its own (spec.md 5).
func (p *RecordProtocol) PeekContentType(block bool) (RecordType, error) {
	_ = block
	if p.cachedContentType != nil {
		return *p.cachedContentType, p.cachedErr
	}
	if p.framer != nil {
		buf := p.framer.buf
		hl := headerLen(p.mode)
		if len(buf) >= hl && len(buf) >= hl+(int(buf[hl-2])<<8|int(buf[hl-1])) {
			return RecordType(buf[0]), nil
		}
	}
	return 0, newError(ErrKindInternalError, "no record buffered")
}

// Disconnected reports whether a fatal condition or explicit CloseDown
// has torn the connection down.
func (p *RecordProtocol) Disconnected() bool { return p.disconnected }
