package record

// RecordType is the TLS/DTLS record content type carried in every header.
type RecordType uint8

const (
	RecordTypeChangeCipherSpec RecordType = 20
	RecordTypeAlert            RecordType = 21
	RecordTypeHandshake        RecordType = 22
	RecordTypeApplicationData  RecordType = 23
)

func (t RecordType) String() string {
	switch t {
	case RecordTypeChangeCipherSpec:
		return "change_cipher_spec"
	case RecordTypeAlert:
		return "alert"
	case RecordTypeHandshake:
		return "handshake"
	case RecordTypeApplicationData:
		return "application_data"
	default:
		return "unknown"
	}
}

// legalContentType reports whether t is one of the four types a record
// layer is ever allowed to carry (spec.md 4.6 item 2).
func legalContentType(t RecordType) bool {
	switch t {
	case RecordTypeChangeCipherSpec, RecordTypeAlert, RecordTypeHandshake, RecordTypeApplicationData:
		return true
	default:
		return false
	}
}

// ProtocolVersion is the wire (major, minor) version pair.
type ProtocolVersion struct {
	Major, Minor uint8
}

func (v ProtocolVersion) bytes() [2]byte {
	return [2]byte{v.Major, v.Minor}
}

var (
	VersionTLS12  = ProtocolVersion{3, 3}
	VersionDTLS12 = ProtocolVersion{254, 253}
)

// Mode selects TLS stream framing versus DTLS datagram framing.
type Mode uint8

const (
	ModeTLS Mode = iota
	ModeDTLS
)

// ConnectionEnd is the role this endpoint plays in the connection.
type ConnectionEnd uint8

const (
	ConnectionEndClient ConnectionEnd = iota
	ConnectionEndServer
)

// Epoch is the DTLS 16-bit epoch counter. Always 0 for TLS.
type Epoch uint16

// Direction selects which half of the full-duplex connection a set of
// SecurityParameters or a sequence counter applies to.
type Direction uint8

const (
	DirectionRead Direction = iota
	DirectionWrite
)

const (
	recordHeaderLenTLS  = 5
	recordHeaderLenDTLS = 13

	maxPlaintextLen  = 1 << 14        // 16384, spec.md 6
	maxCiphertextLen = (1 << 14) + 2048 // 18432, spec.md 6
	aeadAdditionalDataLen = 13

	defaultRecordSizeLimit = 1 << 14

	sequenceNumberLen = 8 // bytes of implicit/explicit sequence carried into MAC/nonce input
)

func headerLen(mode Mode) int {
	if mode == ModeDTLS {
		return recordHeaderLenDTLS
	}
	return recordHeaderLenTLS
}
