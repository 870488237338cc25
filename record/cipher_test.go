package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gcmSecurityParameters() *SecurityParameters {
	return &SecurityParameters{
		Cipher:          CipherAESGCM,
		ClientWriteKey:  make([]byte, 16),
		ClientWriteIV:   []byte{1, 2, 3, 4},
		FixedIVLength:   4,
		RecordSizeLimit: defaultRecordSizeLimit,
	}
}

func roundTrip(t *testing.T, enc, dec BulkEncryption, contentType RecordType, plaintext []byte) []byte {
	t.Helper()
	pt := NewPlainText(contentType, VersionTLS12, ModeTLS, 0, 7, append([]byte(nil), plaintext...))
	cs := pt.ToCompressed(pt.Fragment)
	ct, err := enc.Encrypt(cs)
	require.NoError(t, err)

	// decrypt needs a CipherText carrying the same metadata the encrypting
	// side used, as if it had just come off the wire.
	wire := &CipherText{envelope{ContentType: contentType, Version: VersionTLS12, Mode: ModeTLS, Seq: 7, Fragment: ct.Fragment}}
	recovered, err := dec.Decrypt(wire)
	require.NoError(t, err)
	return recovered.Fragment
}

func TestAESGCMRoundTrip(t *testing.T) {
	sp := gcmSecurityParameters()
	enc, err := NewBulkEncryption(sp, ConnectionEndClient, DirectionWrite)
	require.NoError(t, err)
	dec, err := NewBulkEncryption(sp, ConnectionEndClient, DirectionWrite)
	require.NoError(t, err)

	got := roundTrip(t, enc, dec, RecordTypeApplicationData, []byte("top secret"))
	assert.Equal(t, []byte("top secret"), got)
}

func TestAESGCMTamperedCiphertextFailsAuthentication(t *testing.T) {
	sp := gcmSecurityParameters()
	enc, err := NewBulkEncryption(sp, ConnectionEndClient, DirectionWrite)
	require.NoError(t, err)
	dec, err := NewBulkEncryption(sp, ConnectionEndClient, DirectionWrite)
	require.NoError(t, err)

	pt := NewPlainText(RecordTypeApplicationData, VersionTLS12, ModeTLS, 0, 1, []byte("data"))
	cs := pt.ToCompressed(pt.Fragment)
	ct, err := enc.Encrypt(cs)
	require.NoError(t, err)

	tampered := append([]byte(nil), ct.Fragment...)
	tampered[len(tampered)-1] ^= 0xFF
	wire := &CipherText{envelope{ContentType: RecordTypeApplicationData, Version: VersionTLS12, Mode: ModeTLS, Seq: 1, Fragment: tampered}}

	_, err = dec.Decrypt(wire)
	require.Error(t, err)
	var recErr *RecordError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, ErrKindBadRecordMAC, recErr.Kind)
}

func TestChaCha20Poly1305RoundTrip(t *testing.T) {
	sp := &SecurityParameters{
		Cipher:         CipherChaCha20Poly1305,
		ClientWriteKey: make([]byte, 32),
		ClientWriteIV:  make([]byte, 12),
	}
	enc, err := NewBulkEncryption(sp, ConnectionEndClient, DirectionWrite)
	require.NoError(t, err)
	dec, err := NewBulkEncryption(sp, ConnectionEndClient, DirectionWrite)
	require.NoError(t, err)

	got := roundTrip(t, enc, dec, RecordTypeApplicationData, []byte("chacha payload"))
	assert.Equal(t, []byte("chacha payload"), got)
}

func cbcSecurityParameters(etm bool) *SecurityParameters {
	return &SecurityParameters{
		Cipher:         CipherAESCBCMAC,
		MAC:            MACHMACSHA256,
		ClientWriteKey: make([]byte, 16),
		ClientMACKey:   make([]byte, 32),
		RecordIVLength: 16,
		EncryptThenMAC: etm,
	}
}

func TestAESCBCMacThenEncryptRoundTrip(t *testing.T) {
	sp := cbcSecurityParameters(false)
	enc, err := NewBulkEncryption(sp, ConnectionEndClient, DirectionWrite)
	require.NoError(t, err)
	dec, err := NewBulkEncryption(sp, ConnectionEndClient, DirectionWrite)
	require.NoError(t, err)

	got := roundTrip(t, enc, dec, RecordTypeApplicationData, []byte("mac then encrypt"))
	assert.Equal(t, []byte("mac then encrypt"), got)
}

func TestAESCBCEncryptThenMacRoundTrip(t *testing.T) {
	sp := cbcSecurityParameters(true)
	enc, err := NewBulkEncryption(sp, ConnectionEndClient, DirectionWrite)
	require.NoError(t, err)
	dec, err := NewBulkEncryption(sp, ConnectionEndClient, DirectionWrite)
	require.NoError(t, err)

	got := roundTrip(t, enc, dec, RecordTypeApplicationData, []byte("encrypt then mac"))
	assert.Equal(t, []byte("encrypt then mac"), got)
}

func TestNullMACRoundTripAndTamperDetection(t *testing.T) {
	sp := &SecurityParameters{Cipher: CipherNullMAC, MAC: MACHMACSHA256, ClientMACKey: make([]byte, 32)}
	enc, err := NewBulkEncryption(sp, ConnectionEndClient, DirectionWrite)
	require.NoError(t, err)
	dec, err := NewBulkEncryption(sp, ConnectionEndClient, DirectionWrite)
	require.NoError(t, err)

	pt := NewPlainText(RecordTypeApplicationData, VersionTLS12, ModeTLS, 0, 3, []byte("authenticated only"))
	cs := pt.ToCompressed(pt.Fragment)
	ct, err := enc.Encrypt(cs)
	require.NoError(t, err)

	wire := &CipherText{envelope{ContentType: RecordTypeApplicationData, Version: VersionTLS12, Mode: ModeTLS, Seq: 3, Fragment: ct.Fragment}}
	recovered, err := dec.Decrypt(wire)
	require.NoError(t, err)
	assert.Equal(t, []byte("authenticated only"), recovered.Fragment)

	tampered := append([]byte(nil), ct.Fragment...)
	tampered[0] ^= 0xFF
	wireTampered := &CipherText{envelope{ContentType: RecordTypeApplicationData, Version: VersionTLS12, Mode: ModeTLS, Seq: 3, Fragment: tampered}}
	_, err = dec.Decrypt(wireTampered)
	require.Error(t, err)
}

func TestNullNullCipherIsIdentity(t *testing.T) {
	c := nullNullCipher{}
	assert.Equal(t, 0, c.Expansion())

	pt := NewPlainText(RecordTypeHandshake, VersionTLS12, ModeTLS, 0, 0, []byte("plain"))
	cs := pt.ToCompressed(pt.Fragment)
	ct, err := c.Encrypt(cs)
	require.NoError(t, err)
	assert.Equal(t, []byte("plain"), ct.Fragment)

	back, err := c.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, []byte("plain"), back.Fragment)
}
