package format

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pameecs/peac/internal/binio"
	"github.com/pameecs/peac/internal/peactype"
)

func TestHeaderLayout(t *testing.T) {
	t.Parallel()

	w := binio.NewBuffer(HeaderSize)
	NewHeader().Encode(w)
	require.Equal(t, HeaderSize, w.Len())
	assert.Equal(t, []byte{'P', 'E', 'A', 'C', 1, 0, 0, 0}, w.Bytes())

	h, err := DecodeHeader(w.Bytes())
	require.NoError(t, err)
	require.NoError(t, h.Validate())
	assert.Equal(t, CurrentVersion, h.Version)
}

func TestHeaderValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header Header
		ok     bool
	}{
		{"current", NewHeader(), true},
		{"bad magic", Header{Magic: [4]byte{'P', 'E', 'A', 'X'}, Version: CurrentVersion}, false},
		{"unknown minor", Header{Magic: Magic, Version: Version{1, 1, 0}}, false},
		{"unknown major", Header{Magic: Magic, Version: Version{2, 0, 0}}, false},
		{"reserved ignored", Header{Magic: Magic, Version: CurrentVersion, Reserved: 7}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.header.Validate()
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, peactype.ErrFormat)
		})
	}
}

func TestValidateMagic(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateMagic([]byte("PEAC")))
	require.ErrorIs(t, ValidateMagic([]byte("PEA")), peactype.ErrFormat)
	require.ErrorIs(t, ValidateMagic([]byte("ZIP!....")), peactype.ErrFormat)
}

func TestDecodeHeaderTruncated(t *testing.T) {
	t.Parallel()

	_, err := DecodeHeader([]byte("PEAC\x01"))
	require.ErrorIs(t, err, peactype.ErrBounds)
}

func TestSizeInfoLayout(t *testing.T) {
	t.Parallel()

	s := SizeInfo{
		EntryCompressed:        10,
		EntryUncompressed:      20,
		ChunkIndexCompressed:   30,
		ChunkIndexUncompressed: 40,
		ChunkDataCompressed:    50,
	}
	w := binio.NewBuffer(SizeInfoSize)
	s.Encode(w)
	require.Equal(t, SizeInfoSize, w.Len())
	assert.Equal(t, byte(10), w.Bytes()[0])
	assert.Equal(t, byte(20), w.Bytes()[4])
	assert.Equal(t, byte(30), w.Bytes()[8])
	assert.Equal(t, byte(40), w.Bytes()[16])
	assert.Equal(t, byte(50), w.Bytes()[24])

	got, err := DecodeSizeInfo(w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, s, got)

	body, err := got.BodySize()
	require.NoError(t, err)
	assert.Equal(t, uint64(90), body)

	start, err := got.ChunkDataStart()
	require.NoError(t, err)
	assert.Equal(t, uint64(PreambleSize+10+30), start)
}

func TestSizeInfoOverflow(t *testing.T) {
	t.Parallel()

	s := SizeInfo{ChunkIndexCompressed: math.MaxUint64, ChunkDataCompressed: 1}
	_, err := s.BodySize()
	require.ErrorIs(t, err, peactype.ErrFormat)

	s = SizeInfo{EntryCompressed: 1, ChunkIndexCompressed: math.MaxUint64}
	_, err = s.ChunkDataStart()
	require.ErrorIs(t, err, peactype.ErrFormat)
}

func TestFooter(t *testing.T) {
	t.Parallel()

	w := binio.NewBuffer(FooterSize)
	EncodeFooter(w, 0xFEEDFACECAFEBEEF)
	sum, err := DecodeFooter(w.Bytes())
	require.NoError(t, err)
	assert.Equal(t, uint64(0xFEEDFACECAFEBEEF), sum)

	_, err = DecodeFooter(w.Bytes()[:7])
	require.ErrorIs(t, err, peactype.ErrBounds)
}
