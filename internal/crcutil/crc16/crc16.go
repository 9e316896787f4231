// Package crc16 implements the CRC-16-CCITT checksum (polynomial 0x1021,
// initial value 0xFFFF, no input reflection, no final XOR) used by the
// archive and frame headers, in the hash.Hash-compatible digest style of
// github.com/mewkiz/pkg/hashutil's CRC packages.
package crc16

import "hash"

// Size of a CRC-16 checksum in bytes.
const Size = 2

// Polynomial is the CRC-16-CCITT polynomial (x^16 + x^12 + x^5 + x^0).
const Polynomial = 0x1021

// initial is the CRC-16-CCITT seed value.
const initial = 0xFFFF

// Table is a 256-word table representing the polynomial for efficient,
// byte-at-a-time processing.
type Table [256]uint16

// ccittTable is the table for Polynomial, computed once at package init.
var ccittTable = MakeTable(Polynomial)

// MakeTable returns a Table for the given polynomial (MSB-first, not
// reflected).
func MakeTable(poly uint16) *Table {
	var t Table
	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ poly
			} else {
				crc <<= 1
			}
		}
		t[i] = crc
	}
	return &t
}

// digest represents the partial evaluation of a CRC-16-CCITT checksum.
type digest struct {
	crc   uint16
	table *Table
}

// New returns a new hash.Hash computing the CRC-16-CCITT checksum, seeded
// with the standard initial value 0xFFFF.
func New() hash.Hash {
	return NewWithTable(ccittTable)
}

// NewWithTable returns a new hash.Hash using the given table, seeded with
// the standard initial value 0xFFFF.
func NewWithTable(table *Table) hash.Hash {
	return &digest{crc: initial, table: table}
}

func (d *digest) Size() int      { return Size }
func (d *digest) BlockSize() int { return 1 }

func (d *digest) Reset() { d.crc = initial }

func (d *digest) Write(p []byte) (n int, err error) {
	crc := d.crc
	for _, b := range p {
		crc = crc<<8 ^ d.table[byte(crc>>8)^b]
	}
	d.crc = crc
	return len(p), nil
}

// Sum16 returns the 16-bit checksum of the hash.
func (d *digest) Sum16() uint16 { return d.crc }

func (d *digest) Sum(in []byte) []byte {
	s := d.Sum16()
	return append(in, byte(s>>8), byte(s))
}

// Checksum returns the CRC-16-CCITT checksum of data.
func Checksum(data []byte) uint16 {
	d := digest{crc: initial, table: ccittTable}
	d.Write(data)
	return d.Sum16()
}
