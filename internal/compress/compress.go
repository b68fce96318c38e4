package compress

// Compress encodes byte payloads before they leave the process (cache
// entries, media) and decodes them on the way back.
type Compress interface {
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
}

var (
	_ Compress = Nop{}
	_ Compress = GZip{}
	_ Compress = LZ4{}
)
