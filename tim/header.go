package tim

import (
	"bytes"
	"encoding/binary"
)

// Header is the decoded flags field of a record.
type Header struct {
	Mode       Mode
	HasPalette bool
}

func (h Header) flags() uint32 {
	f := uint32(h.Mode)
	if h.HasPalette {
		f |= flagPalette
	}
	return f
}

// HasMagic reports whether b starts with the record magic value at off.
func HasMagic(b []byte, off int) bool {
	return off >= 0 && off+len(Magic) <= len(b) && bytes.Equal(b[off:off+len(Magic)], Magic)
}

// ParseHeader decodes the flags field of the record starting at off. It
// does not check the magic value.
func ParseHeader(b []byte, off int) (Header, error) {
	if off < 0 || off+headerSize > len(b) {
		return Header{}, invalid("header truncated at offset %d", off)
	}

	flags := binary.LittleEndian.Uint32(b[off+4:])
	m := Mode(flags & modeMask)
	if !m.valid() {
		return Header{}, invalid("unsupported mode %d", flags&modeMask)
	}

	return Header{
		Mode:       m,
		HasPalette: flags&flagPalette != 0,
	}, nil
}

// block is the header shared by the CLUT and image blocks.
type block struct {
	length              int
	x, y, width, height uint16
}

func parseBlock(b []byte, off int, what string) (block, error) {
	if off+blockHeaderSize > len(b) {
		return block{}, invalid("%s block header truncated at offset %d", what, off)
	}

	n := binary.LittleEndian.Uint32(b[off:])
	switch {
	case n < blockHeaderSize:
		return block{}, invalid("%s block length %d below minimum", what, n)
	case uint64(n) > uint64(len(b)-off):
		return block{}, invalid("%s block length %d exceeds data", what, n)
	}

	return block{
		length: int(n),
		x:      binary.LittleEndian.Uint16(b[off+4:]),
		y:      binary.LittleEndian.Uint16(b[off+6:]),
		width:  binary.LittleEndian.Uint16(b[off+8:]),
		height: binary.LittleEndian.Uint16(b[off+10:]),
	}, nil
}

func (bl block) put(b []byte) {
	binary.LittleEndian.PutUint32(b[0:], uint32(bl.length))
	binary.LittleEndian.PutUint16(b[4:], bl.x)
	binary.LittleEndian.PutUint16(b[6:], bl.y)
	binary.LittleEndian.PutUint16(b[8:], bl.width)
	binary.LittleEndian.PutUint16(b[10:], bl.height)
}
