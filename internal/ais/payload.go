// Package ais decodes AIS messages carried in NMEA VDM/VDO sentences: the
// 6-bit payload armoring, multi-fragment reassembly, and the bit-packed
// message bodies defined by ITU-R M.1371.
package ais

import (
	"errors"
	"fmt"
	"strings"
)

// ErrOutOfRange is returned when a field read extends past the end of the
// payload. Message decoders check the payload length up front and treat this
// as "message truncated".
var ErrOutOfRange = errors.New("ais: bit offset past end of payload")

// Payload is the de-armored AIS message body, addressable by bit offset.
// Bits are stored MSB-first, the order the armored characters deliver them.
type Payload struct {
	bits  []byte // packed, bit 0 is the MSB of bits[0]
	nbits int
}

// PayloadFromArmored unpacks a 6-bit-armored payload string (characters
// 0x30..0x77 with the 0x30/0x38 offset rule) into an addressable bit string.
// fillBits is the pad count in the final character, from the VDM sentence.
func PayloadFromArmored(armored string, fillBits int) (*Payload, error) {
	if fillBits < 0 || fillBits > 5 {
		return nil, fmt.Errorf("ais: fill bits %d out of range", fillBits)
	}
	nbits := len(armored)*6 - fillBits
	if nbits <= 0 {
		return nil, fmt.Errorf("ais: empty payload")
	}
	p := &Payload{bits: make([]byte, (nbits+7)/8), nbits: nbits}

	for i := 0; i < len(armored); i++ {
		c := armored[i]
		if c < 0x30 || c > 0x77 || (c > 0x57 && c < 0x60) {
			return nil, fmt.Errorf("ais: invalid armored character %q", c)
		}
		v := c - 48
		if v > 40 {
			v -= 8
		}
		for b := 0; b < 6; b++ {
			bit := i*6 + b
			if bit >= nbits {
				break
			}
			if v&(1<<(5-b)) != 0 {
				p.bits[bit/8] |= 1 << (7 - bit%8)
			}
		}
	}
	return p, nil
}

// Len returns the payload length in bits.
func (p *Payload) Len() int { return p.nbits }

func (p *Payload) bit(i int) uint64 {
	if p.bits[i/8]&(1<<(7-i%8)) != 0 {
		return 1
	}
	return 0
}

// ReadUInt extracts bitLength bits starting at startBit as a big-endian
// unsigned integer. bitLength must not exceed 64; AIS fields top out at 30
// bits (MMSI) for numerics, longer spans are only used for text and raw data.
func (p *Payload) ReadUInt(startBit, bitLength int) (uint64, error) {
	if bitLength < 0 || bitLength > 64 {
		return 0, fmt.Errorf("ais: unsupported bit length %d", bitLength)
	}
	if startBit < 0 || startBit+bitLength > p.nbits {
		return 0, fmt.Errorf("%w (start %d len %d of %d)", ErrOutOfRange, startBit, bitLength, p.nbits)
	}
	var v uint64
	for i := 0; i < bitLength; i++ {
		v = v<<1 | p.bit(startBit+i)
	}
	return v, nil
}

// ReadInt extracts a two's-complement signed field.
func (p *Payload) ReadInt(startBit, bitLength int) (int64, error) {
	v, err := p.ReadUInt(startBit, bitLength)
	if err != nil {
		return 0, err
	}
	if bitLength > 0 && v&(1<<(bitLength-1)) != 0 {
		v |= ^uint64(0) << bitLength
	}
	return int64(v), nil
}

// ReadBool reads a flag field; any non-zero value is true.
func (p *Payload) ReadBool(startBit, bitLength int) (bool, error) {
	v, err := p.ReadUInt(startBit, bitLength)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// ReadString decodes an AIS 6-bit text field. Values 0..31 map to '@'..'_',
// 32..63 to ' '..'?'. Trailing '@' and space padding is trimmed per the AIS
// text convention.
func (p *Payload) ReadString(startBit, bitLengthInBits int) (string, error) {
	if bitLengthInBits%6 != 0 {
		return "", fmt.Errorf("ais: string length %d not a multiple of 6", bitLengthInBits)
	}
	if startBit < 0 || startBit+bitLengthInBits > p.nbits {
		return "", fmt.Errorf("%w (start %d len %d of %d)", ErrOutOfRange, startBit, bitLengthInBits, p.nbits)
	}
	var sb strings.Builder
	for off := 0; off < bitLengthInBits; off += 6 {
		v, _ := p.ReadUInt(startBit+off, 6)
		if v < 32 {
			sb.WriteByte(byte('@' + v))
		} else {
			sb.WriteByte(byte(v))
		}
	}
	return strings.TrimRight(sb.String(), "@ "), nil
}
