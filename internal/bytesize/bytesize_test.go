package bytesize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		expected ByteSize
	}{
		{"0", 0},
		{"1024", 1024},
		{"1Ki", KiB},
		{"1KiB", KiB},
		{"100Mi", 100 * MiB},
		{"1Gi", GiB},
		{"2Ti", 2 * TiB},
		{"1K", KB},
		{"100MB", 100 * MB},
		{"1.5Ki", ByteSize(1536)},
		{"  10Mi  ", 10 * MiB},
		{"10 Mi", 10 * MiB},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, input := range []string{"", "Mi", "10Xi", "abc", "-5Ki"} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			assert.Error(t, err)
		})
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "100Mi", (100 * MiB).String())
	assert.Equal(t, "1Gi", GiB.String())
	assert.Equal(t, "1000", KB.String())
	assert.Equal(t, "123", ByteSize(123).String())
}

func TestRoundTripText(t *testing.T) {
	var b ByteSize
	require.NoError(t, b.UnmarshalText([]byte("512Mi")))
	assert.Equal(t, 512*MiB, b)

	text, err := b.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "512Mi", string(text))
}
