package record

// CipherAlgorithm selects which BulkEncryption arm a SecurityParameters
// set is bound to. NullNull is the initial value installed by
// OpenForAction; a handshake layer moves a direction onto one of the
// others via SetReadSecurityParameters/SetWriteSecurityParameters.
type CipherAlgorithm uint8

const (
	CipherNullNull CipherAlgorithm = iota
	CipherNullMAC
	CipherAESGCM
	CipherAESCBCMAC
	CipherChaCha20Poly1305
)

// MACAlgorithm selects the hash underlying NullMAC and AES-CBC+HMAC.
type MACAlgorithm uint8

const (
	MACNone MACAlgorithm = iota
	MACHMACSHA256
	MACHMACSHA384
)

// SecurityParameters is the set of read-side or write-side cryptographic
// parameters for one epoch (spec.md 3). A RecordProtocol holds at most one
// active SecurityParameters per direction; replacing one is the point
// event a ChangeCipherSpec delimits.
type SecurityParameters struct {
	ConnectionEnd ConnectionEnd
	CipherSuite   uint16
	Cipher        CipherAlgorithm
	MAC           MACAlgorithm

	ClientWriteKey []byte
	ServerWriteKey []byte
	ClientWriteIV  []byte
	ServerWriteIV  []byte
	ClientMACKey   []byte
	ServerMACKey   []byte

	FixedIVLength  int
	RecordIVLength int

	RecordSizeLimit int

	EncryptThenMAC bool
}

// nullSecurityParameters is the parameter set installed by OpenForAction
// and restored by Cleanup: no bulk cipher, default record size limit.
func nullSecurityParameters() *SecurityParameters {
	return &SecurityParameters{
		Cipher:          CipherNullNull,
		MAC:             MACNone,
		RecordSizeLimit: defaultRecordSizeLimit,
	}
}

// writeKeyFor returns the write key belonging to the given role.
// NewBulkEncryption passes this endpoint's own role when writing and the
// peer's role when reading (see roleForDirection).
func (sp *SecurityParameters) writeKeyFor(end ConnectionEnd) []byte {
	if end == ConnectionEndClient {
		return sp.ClientWriteKey
	}
	return sp.ServerWriteKey
}

func (sp *SecurityParameters) writeIVFor(end ConnectionEnd) []byte {
	if end == ConnectionEndClient {
		return sp.ClientWriteIV
	}
	return sp.ServerWriteIV
}

func (sp *SecurityParameters) macKeyFor(end ConnectionEnd) []byte {
	if end == ConnectionEndClient {
		return sp.ClientMACKey
	}
	return sp.ServerMACKey
}

// roleForDirection resolves which of the two symmetric key sets is in
// play for a given direction: writing always uses this endpoint's own
// role's keys, reading always uses the peer's.
func roleForDirection(self ConnectionEnd, dir Direction) ConnectionEnd {
	if dir == DirectionWrite {
		return self
	}
	return opposite(self)
}

func opposite(e ConnectionEnd) ConnectionEnd {
	if e == ConnectionEndClient {
		return ConnectionEndServer
	}
	return ConnectionEndClient
}
