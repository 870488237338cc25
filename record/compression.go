package record

// CompressionSuite is the seam spec.md 4.4 / C4 describes: exactly one
// implementation exists (NullCompression), kept distinct from
// BulkEncryption so the record-size arithmetic stays uniform if a real
// compressor is ever added.
type CompressionSuite interface {
	Compress(pt *PlainText) *CompressedText
	Decompress(ct *CompressedText) *PlainText
}

// NullCompression is an identity involution: Compress and Decompress move
// the payload without copying or transforming it.
type NullCompression struct{}

func (NullCompression) Compress(pt *PlainText) *CompressedText {
	return pt.ToCompressed(pt.Fragment)
}

func (NullCompression) Decompress(ct *CompressedText) *PlainText {
	return ct.ToPlain(ct.Fragment)
}
