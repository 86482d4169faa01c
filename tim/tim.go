/*
Package tim implements a decoder and encoder for the PlayStation TIM bitmap
format, along with a scanner that finds TIM records embedded in arbitrary
binary data.

A record is an 8 byte header made of the magic value 0x00000010 followed by a
32-bit flags field, where bits 0-2 select the pixel mode and bit 3 signals
the presence of a colour lookup table (CLUT). Then follows the optional CLUT
block and the image block. Both blocks start with a 32-bit length that
includes itself, followed by four 16-bit geometry fields (x, y, width,
height) and the payload. The CLUT payload is width*height packed 16-bit
colours; the image payload is height rows of width 16-bit words each.

Everything is little-endian. There is no index of records in the data that
contains them so they are found by validating the structure at every
occurrence of the magic value.
*/
package tim

import (
	"errors"
	"fmt"
)

const (
	headerSize      = 8
	blockHeaderSize = 12
	maxDimension    = 4096

	flagPalette = 0x08
	modeMask    = 0x07
)

// Magic is the byte sequence every record starts with.
var Magic = []byte{0x10, 0x00, 0x00, 0x00}

var (
	// ErrInvalid is returned for any structural problem in a record such
	// as a truncated block, a length field pointing past the end of the
	// data or an unsupported mode.
	ErrInvalid = errors.New("tim: invalid record")

	// ErrNoPalette is returned when decoding an indexed mode record
	// without a CLUT.
	ErrNoPalette = fmt.Errorf("%w: indexed mode without palette", ErrInvalid)

	// ErrShortPixelData is returned when the image block holds fewer bytes
	// than its geometry requires.
	ErrShortPixelData = errors.New("tim: not enough pixel data")
)

func invalid(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, a...))
}

// Mode is the pixel encoding of a record.
type Mode uint8

// The four pixel modes.
const (
	Indexed4 Mode = iota
	Indexed8
	Direct16
	Direct24
)

var modeNames = [...]string{
	Indexed4: "4bpp",
	Indexed8: "8bpp",
	Direct16: "16bpp",
	Direct24: "24bpp",
}

func (m Mode) String() string {
	if m.valid() {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

func (m Mode) valid() bool {
	return m <= Direct24
}

// NeedsPalette reports whether pixels of this mode are CLUT indices.
func (m Mode) NeedsPalette() bool {
	return m == Indexed4 || m == Indexed8
}

// BitsPerPixel returns the pixel depth.
func (m Mode) BitsPerPixel() int {
	switch m {
	case Indexed4:
		return 4
	case Indexed8:
		return 8
	case Direct16:
		return 16
	case Direct24:
		return 24
	}
	return 0
}

// Width returns the width in pixels of an image block whose rows are
// strideWords 16-bit words long.
func (m Mode) Width(strideWords int) int {
	switch m {
	case Indexed4:
		return strideWords * 4
	case Indexed8:
		return strideWords * 2
	case Direct16:
		return strideWords
	case Direct24:
		return strideWords * 2 / 3
	}
	return 0
}

// ParseMode converts a mode name as returned by String back to a Mode.
func ParseMode(s string) (Mode, error) {
	for i, n := range modeNames {
		if n == s {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("tim: unknown mode %q", s)
}

// Name returns the conventional file name of the i'th record found in a
// container.
func Name(i int) string {
	return fmt.Sprintf("tex_%04d.tim", i)
}
