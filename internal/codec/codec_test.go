package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := Call{
		Args:   []any{float64(41)},
		Kwargs: map[string]any{"retries": float64(3)},
	}

	data, err := EncodeCall(original)
	require.NoError(t, err)

	decoded, err := DecodeCall(data)
	require.NoError(t, err)

	assert.Equal(t, original, decoded)
}

func TestDecodeInvalidPayload(t *testing.T) {
	_, err := DecodeCall([]byte("not json"))
	assert.ErrorIs(t, err, ErrDeserialize)
}

func TestEncodeUnsupportedValue(t *testing.T) {
	_, err := Encode(make(chan int))
	assert.ErrorIs(t, err, ErrSerialize)
}

func TestFileBundleRoundTrip(t *testing.T) {
	bundle := FileBundle{"main.go": []byte("package main")}

	data, err := Encode(bundle)
	require.NoError(t, err)

	var decoded FileBundle
	require.NoError(t, Decode(data, &decoded))
	assert.Equal(t, bundle, decoded)
}
