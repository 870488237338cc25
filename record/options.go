package record

import "go.uber.org/zap"

// Option configures a RecordProtocol at construction time. Configuration
// loading (JSON or otherwise) is out of scope (spec.md 1); these are
// plain functional options in place of a config struct.
type Option func(*RecordProtocol)

// WithLogger injects a structured logger. Omitting it installs a no-op
// logger rather than falling back to a process-wide one (spec.md 9).
func WithLogger(l *zap.Logger) Option {
	return func(p *RecordProtocol) { p.logger = l }
}

// WithMTU sets the transport MTU used to compute the per-record
// fragment size (spec.md 4.2). Defaults to the maximum plaintext size
// (16384 bytes), so by default a fragment is capped at 16384 minus the
// record header and the write cipher's expansion.
func WithMTU(mtu int) Option {
	return func(p *RecordProtocol) { p.mtu = mtu }
}

// WithOldEpochTolerance allows one epoch of skew on DTLS reads, the
// generalization of the teacher's ReadRecordAnyEpoch (SPEC_FULL.md
// "supplemented features"). Off by default: records from a non-current
// epoch are dropped per spec.md 4.6 item 4.
func WithOldEpochTolerance(allow bool) Option {
	return func(p *RecordProtocol) { p.allowOldEpochReads = allow }
}
