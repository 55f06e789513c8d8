package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/annex/format"
)

var compressionTypes = []format.CompressionType{
	format.CompressionNone,
	format.CompressionZstd,
	format.CompressionS2,
	format.CompressionLZ4,
	format.CompressionSnappy,
}

func samplePayload() []byte {
	// Repetitive chunk-like payload so every codec actually shrinks it.
	var buf bytes.Buffer
	for i := 0; i < 512; i++ {
		buf.WriteString("row-data-0123456789")
	}

	return buf.Bytes()
}

func TestCodec_RoundTrip(t *testing.T) {
	payload := samplePayload()

	for _, ct := range compressionTypes {
		t.Run(ct.String(), func(t *testing.T) {
			codec, err := GetCodec(ct)
			require.NoError(t, err)

			compressed, err := codec.Compress(payload)
			require.NoError(t, err)

			restored, err := codec.Decompress(compressed)
			require.NoError(t, err)
			require.Equal(t, payload, restored)
		})
	}
}

func TestCodec_EmptyInput(t *testing.T) {
	for _, ct := range compressionTypes {
		codec, err := GetCodec(ct)
		require.NoError(t, err)

		compressed, err := codec.Compress(nil)
		require.NoError(t, err)

		restored, err := codec.Decompress(compressed)
		require.NoError(t, err)
		require.Empty(t, restored)
	}
}

func TestCodec_CorruptedInput(t *testing.T) {
	for _, ct := range []format.CompressionType{format.CompressionZstd, format.CompressionLZ4} {
		codec, err := GetCodec(ct)
		require.NoError(t, err)

		_, err = codec.Decompress([]byte{0xde, 0xad, 0xbe, 0xef})
		require.Error(t, err, "%s accepted garbage input", ct)
	}
}

func TestGetCodec_Invalid(t *testing.T) {
	_, err := GetCodec(format.CompressionType(0xff))
	require.Error(t, err)
}

func TestCreateCodec(t *testing.T) {
	for _, ct := range compressionTypes {
		codec, err := CreateCodec(ct, "chunk")
		require.NoError(t, err)
		require.NotNil(t, codec)
	}

	_, err := CreateCodec(format.CompressionType(0xff), "chunk")
	require.ErrorContains(t, err, "chunk")
}
