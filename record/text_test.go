package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCipherTextSerializeDeserializeRoundTripTLS(t *testing.T) {
	original := &CipherText{envelope{
		ContentType: RecordTypeApplicationData,
		Version:     VersionTLS12,
		Mode:        ModeTLS,
		Fragment:    []byte("round trip payload"),
	}}

	wire := original.Serialize()
	rec := &RawRecord{Header: wire[:recordHeaderLenTLS], Fragment: wire[recordHeaderLenTLS:]}
	recovered := DeserializeCipherText(ModeTLS, rec)

	assert.Equal(t, original.ContentType, recovered.ContentType)
	assert.Equal(t, original.Version, recovered.Version)
	assert.Equal(t, original.Fragment, recovered.Fragment)
}

func TestCipherTextSerializeDeserializeRoundTripDTLS(t *testing.T) {
	original := &CipherText{envelope{
		ContentType: RecordTypeHandshake,
		Version:     VersionDTLS12,
		Mode:        ModeDTLS,
		Epoch:       3,
		Seq:         123456,
		Fragment:    []byte("dtls payload"),
	}}

	wire := original.Serialize()
	rec := &RawRecord{Header: wire[:recordHeaderLenDTLS], Fragment: wire[recordHeaderLenDTLS:]}
	recovered := DeserializeCipherText(ModeDTLS, rec)

	assert.Equal(t, original.ContentType, recovered.ContentType)
	assert.Equal(t, original.Version, recovered.Version)
	assert.Equal(t, original.Epoch, recovered.Epoch)
	assert.Equal(t, original.Seq, recovered.Seq)
	assert.Equal(t, original.Fragment, recovered.Fragment)
}

func TestNullCompressionIsIdentityInvolution(t *testing.T) {
	pt := NewPlainText(RecordTypeApplicationData, VersionTLS12, ModeTLS, 0, 0, []byte("payload"))
	var suite NullCompression

	compressed := suite.Compress(pt)
	assert.Equal(t, []byte("payload"), compressed.Fragment)

	roundTripped := suite.Decompress(compressed)
	assert.Equal(t, []byte("payload"), roundTripped.Fragment)
}

func TestCombinedSeqPacksEpochAndExplicitSequenceForDTLS(t *testing.T) {
	e := envelope{Mode: ModeDTLS, Epoch: 1, Seq: 5}
	assert.Equal(t, uint64(1)<<48|5, e.combinedSeq())
}
