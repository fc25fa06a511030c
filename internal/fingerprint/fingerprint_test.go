package fingerprint

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSum_KnownVectors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty input",
			input: "",
			want:  "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name:  "abc",
			input: "abc",
			want:  "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sum(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSum_Deterministic(t *testing.T) {
	content := bytes.Repeat([]byte("evidence payload "), 100_000)

	first, err := Sum(bytes.NewReader(content))
	require.NoError(t, err)
	second, err := Sum(bytes.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, Size)
}

func TestSum_SingleBitChange(t *testing.T) {
	content := bytes.Repeat([]byte{0xAB}, 4096)
	original, err := Sum(bytes.NewReader(content))
	require.NoError(t, err)

	content[2048] ^= 0x01
	altered, err := Sum(bytes.NewReader(content))
	require.NoError(t, err)

	assert.NotEqual(t, original, altered)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk gone")
}

func TestSum_ReadError(t *testing.T) {
	_, err := Sum(io.MultiReader(strings.NewReader("partial"), failingReader{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read content")
}

func TestSum_NilReader(t *testing.T) {
	_, err := Sum(nil)
	assert.Error(t, err)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"))
	assert.False(t, Valid(""))
	assert.False(t, Valid("abc"))
	assert.False(t, Valid(strings.ToUpper("e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855")))
	assert.False(t, Valid(strings.Repeat("g", 64)))
}
