// Package record implements the TLS 1.2 / DTLS 1.2 record protocol core:
// framing, fragmentation, compression, bulk encryption and the central
// RecordProtocol state machine that ties them together once a handshake
// layer has installed keying material. The handshake itself, certificate
// validation and configuration loading live outside this package.
package record
