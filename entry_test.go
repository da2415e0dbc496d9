package peac

import (
	"hash/crc64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecksumVariants(t *testing.T) {
	t.Parallel()

	in := []byte("123456789")
	std := crc64.MakeTable(crc64.ECMA)

	// Zero initial value and no final xor: undo the inversions hash/crc64
	// applies on entry and exit.
	assert.Equal(t, ^crc64.Update(^uint64(0), std, in), ChecksumECMA.table().Checksum(in))
	assert.NotEqual(t, crc64.Checksum(in, std), ChecksumECMA.table().Checksum(in))
	assert.NotEqual(t, ChecksumECMA.table().Checksum(in), ChecksumECMAMSB.table().Checksum(in))
	assert.Zero(t, ChecksumECMA.table().Checksum(nil))
	assert.Zero(t, ChecksumECMAMSB.table().Checksum(nil))
}
