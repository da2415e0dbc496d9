// Package checksum implements the table-driven CRC-64 that seals archive bodies.
//
// Both variants use the ECMA-182 polynomial with an initial value of zero and
// no output XOR. ECMA processes bits least-significant first (reflected);
// ECMAMSB processes them most-significant first.
package checksum

import (
	"encoding/binary"
	"hash"
)

// Polynomial is the ECMA-182 generator polynomial in normal (MSB-first) form.
const Polynomial = 0x42F0E1EBA9EA3693

// reversedPolynomial is Polynomial with its bits reversed.
const reversedPolynomial = 0xC96C5795D7870F42

// Size is the checksum size in bytes.
const Size = 8

// Table is a precomputed 256-entry lookup table for one CRC-64 variant.
type Table struct {
	name      string
	reflected bool
	entries   [256]uint64
}

var (
	// ECMA is the reflected variant used by the archive format.
	ECMA = makeReflected()

	// ECMAMSB is the MSB-first variant produced by older archive builders.
	ECMAMSB = makeMSB()
)

func makeReflected() *Table {
	t := &Table{name: "crc64-ecma", reflected: true}
	for i := range t.entries {
		crc := uint64(i)
		for range 8 {
			if crc&1 == 1 {
				crc = crc>>1 ^ reversedPolynomial
			} else {
				crc >>= 1
			}
		}
		t.entries[i] = crc
	}
	return t
}

func makeMSB() *Table {
	t := &Table{name: "crc64-ecma-msb"}
	for i := range t.entries {
		crc := uint64(i) << 56
		for range 8 {
			if crc&(1<<63) != 0 {
				crc = crc<<1 ^ Polynomial
			} else {
				crc <<= 1
			}
		}
		t.entries[i] = crc
	}
	return t
}

// Name identifies the variant.
func (t *Table) Name() string {
	return t.name
}

// Checksum returns the CRC-64 of p.
func (t *Table) Checksum(p []byte) uint64 {
	return t.Update(0, p)
}

// Update folds p into a running checksum.
func (t *Table) Update(crc uint64, p []byte) uint64 {
	if t.reflected {
		for _, b := range p {
			crc = t.entries[byte(crc)^b] ^ crc>>8
		}
		return crc
	}
	for _, b := range p {
		crc = t.entries[byte(crc>>56)^b] ^ crc<<8
	}
	return crc
}

// New returns a hash.Hash64 computing the checksum with table t.
func New(t *Table) hash.Hash64 {
	return &digest{tab: t}
}

type digest struct {
	crc uint64
	tab *Table
}

func (d *digest) Size() int      { return Size }
func (d *digest) BlockSize() int { return 1 }
func (d *digest) Reset()         { d.crc = 0 }
func (d *digest) Sum64() uint64  { return d.crc }

func (d *digest) Write(p []byte) (int, error) {
	d.crc = d.tab.Update(d.crc, p)
	return len(p), nil
}

func (d *digest) Sum(in []byte) []byte {
	return binary.BigEndian.AppendUint64(in, d.crc)
}
