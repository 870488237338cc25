package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tlsRecordBytes(contentType RecordType, payload []byte) []byte {
	out := []byte{byte(contentType), 3, 3, byte(len(payload) >> 8), byte(len(payload))}
	return append(out, payload...)
}

func TestRecordFramerTLSCompleteRecord(t *testing.T) {
	f := NewRecordFramer(ModeTLS)
	f.AddData(tlsRecordBytes(RecordTypeApplicationData, []byte("hello")))

	rec, err := f.NextRecord()
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, []byte("hello"), rec.Fragment)

	rec, err = f.NextRecord()
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRecordFramerTLSPartialData(t *testing.T) {
	f := NewRecordFramer(ModeTLS)
	full := tlsRecordBytes(RecordTypeApplicationData, []byte("hello world"))

	f.AddData(full[:3])
	rec, err := f.NextRecord()
	require.NoError(t, err)
	assert.Nil(t, rec, "header itself is incomplete")

	f.AddData(full[3:10])
	rec, err = f.NextRecord()
	require.NoError(t, err)
	assert.Nil(t, rec, "fragment still incomplete")

	f.AddData(full[10:])
	rec, err = f.NextRecord()
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, []byte("hello world"), rec.Fragment)
}

func TestRecordFramerFramesOversizedDeclaredLengthAnyway(t *testing.T) {
	// Capping ciphertext size is the validator's job (spec.md 4.6 item 1),
	// not the framer's (spec.md 4.1): a record whose declared length
	// exceeds the maximum still frames cleanly once all its bytes arrive.
	f := NewRecordFramer(ModeTLS)
	payload := make([]byte, maxCiphertextLen+1)
	f.AddData(tlsRecordBytes(RecordTypeApplicationData, payload))

	rec, err := f.NextRecord()
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Len(t, rec.Fragment, maxCiphertextLen+1)
}

func TestRecordFramerDTLSHeaderOffsets(t *testing.T) {
	f := NewRecordFramer(ModeDTLS)
	payload := []byte("abc")
	header := []byte{
		byte(RecordTypeHandshake), 254, 253,
		0x00, 0x01, // epoch
		0x00, 0x00, 0x00, 0x00, 0x00, 0x02, // explicit seq (48-bit)
		0x00, byte(len(payload)),
	}
	f.AddData(append(header, payload...))

	rec, err := f.NextRecord()
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, payload, rec.Fragment)

	ct := DeserializeCipherText(ModeDTLS, rec)
	assert.Equal(t, Epoch(1), ct.Epoch)
	assert.Equal(t, uint64(2), ct.Seq)
}

func TestRecordFramerMultipleRecordsInOneBuffer(t *testing.T) {
	f := NewRecordFramer(ModeTLS)
	f.AddData(tlsRecordBytes(RecordTypeHandshake, []byte("a")))
	f.AddData(tlsRecordBytes(RecordTypeHandshake, []byte("bb")))

	first, err := f.NextRecord()
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), first.Fragment)

	second, err := f.NextRecord()
	require.NoError(t, err)
	assert.Equal(t, []byte("bb"), second.Fragment)

	third, err := f.NextRecord()
	require.NoError(t, err)
	assert.Nil(t, third)
}
