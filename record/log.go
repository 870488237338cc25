package record

import "go.uber.org/zap"

// logType mirrors the teacher's logTypeIO/logTypeCrypto/logTypeHandshake
// split (record-layer.go), kept as named logger scopes rather than a
// single firehose so callers can tune verbosity per concern in production.
type logType string

const (
	logTypeIO         logType = "io"
	logTypeCrypto     logType = "crypto"
	logTypeHandshake  logType = "handshake"
	logTypeValidation logType = "validation"
)

// nopLogger is installed whenever a caller does not supply one, so that
// RecordProtocol and its collaborators never need a process-wide logger
// (spec.md 9, "inject it rather than making it process-wide").
func nopLogger() *zap.Logger {
	return zap.NewNop()
}

func scoped(l *zap.Logger, t logType) *zap.Logger {
	if l == nil {
		l = nopLogger()
	}
	return l.With(zap.String("scope", string(t)))
}
