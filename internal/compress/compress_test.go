package compress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecsRoundTrip(t *testing.T) {
	payload := []byte(`{"ID":"abc","name":"Transmon spectroscopy","children":["a","b"]}`)

	codecs := map[string]Compress{
		"nop":  NewNop(),
		"gzip": NewGZip(),
		"lz4":  NewLZ4(),
	}

	for name, codec := range codecs {
		t.Run(name, func(t *testing.T) {
			encoded, err := codec.Encode(payload)
			require.NoError(t, err)

			decoded, err := codec.Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, payload, decoded)
		})
	}
}

func TestNopLeavesDataAlone(t *testing.T) {
	payload := []byte("as-is")
	encoded, err := NewNop().Encode(payload)
	require.NoError(t, err)
	assert.Equal(t, payload, encoded)
}
