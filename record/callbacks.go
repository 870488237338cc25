package record

// HandshakeCallbacks is the Record→Handshake callback surface of
// spec.md 6. RecordProtocol invokes these synchronously from within
// HandleReceivedDataFromTransport; none of them may block or re-enter
// the record protocol (spec.md 5).
type HandshakeCallbacks interface {
	// CloseRequest notifies the handshake layer that the record protocol
	// tore the connection down after raising a fatal alert of its own (bad
	// record MAC, record overflow, unexpected message). Received alerts are
	// delivered through OnAlertData only.
	CloseRequest()
	// OnHandshakeData delivers a decrypted Handshake-content-type
	// fragment; isRetransmit is set when the validator classified the
	// record as a retransmission of the last-accepted handshake record.
	OnHandshakeData(buffer []byte, isRetransmit bool)
	// OnAlertData delivers a decrypted Alert-content-type fragment.
	OnAlertData(buffer []byte)
	// OnChangeCipherData delivers a decrypted ChangeCipherSpec fragment
	// (the single 0x01 byte).
	OnChangeCipherData(buffer []byte)
}

// UserCallbacks is the Record→User callback surface of spec.md 6.
type UserCallbacks interface {
	// OnSendToTransport hands one fully serialized wire record to the
	// transport. Returning an error aborts the send call in progress.
	OnSendToTransport(buffer []byte) error
	// OnSendToCommParty delivers decrypted ApplicationData to the local
	// application, only while the connection is in the connected state.
	OnSendToCommParty(buffer []byte)
}
