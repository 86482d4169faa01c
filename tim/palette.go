package tim

import (
	"encoding/binary"
	"image/color"
)

// PaletteBlock is a colour lookup table. Each of its Height rows is a
// separate palette of Width entries.
type PaletteBlock struct {
	X, Y          uint16
	Width, Height uint16
	Entries       []uint16

	length int
}

// Len returns the length in bytes of the block, including its header.
func (p *PaletteBlock) Len() int {
	return p.length
}

// ParsePalette decodes the CLUT block starting at off.
func ParsePalette(b []byte, off int) (*PaletteBlock, error) {
	bl, err := parseBlock(b, off, "palette")
	if err != nil {
		return nil, err
	}

	n := int(bl.width) * int(bl.height)
	if n*2 > bl.length-blockHeaderSize {
		return nil, invalid("palette of %dx%d entries exceeds block length %d", bl.width, bl.height, bl.length)
	}

	p := &PaletteBlock{
		X:       bl.x,
		Y:       bl.y,
		Width:   bl.width,
		Height:  bl.height,
		Entries: make([]uint16, n),
		length:  bl.length,
	}
	base := off + blockHeaderSize
	for i := range p.Entries {
		p.Entries[i] = binary.LittleEndian.Uint16(b[base+i*2:])
	}

	return p, nil
}

// Rows returns the number of palettes in the CLUT.
func (p *PaletteBlock) Rows() int {
	return int(p.Height)
}

// Colors resolves CLUT row to colours. A negative row resolves the whole
// table as a single palette and a row out of range falls back to the first.
func (p *PaletteBlock) Colors(row int) color.Palette {
	entries := p.Entries
	if row >= 0 && p.Width > 0 && p.Height > 0 {
		if row >= p.Rows() {
			row = 0
		}
		w := int(p.Width)
		entries = entries[row*w : row*w+w]
	}

	pal := make(color.Palette, len(entries))
	for i, e := range entries {
		pal[i] = Resolve(e)
	}
	return pal
}

func unpack(v uint16) (r, g, b uint8) {
	// Color is packed as SBBBBBGGGGGRRRRR
	return uint8(v&0x1f) << 3, uint8(v>>5&0x1f) << 3, uint8(v>>10&0x1f) << 3
}

func pack(c color.Color) uint16 {
	r, g, b, _ := c.RGBA()
	return uint16(r>>11) | uint16(g>>11)<<5 | uint16(b>>11)<<10
}

// Resolve converts a packed CLUT entry to a colour. The top bit is ignored
// and the result is always opaque.
func Resolve(v uint16) color.NRGBA {
	r, g, b := unpack(v)
	return color.NRGBA{r, g, b, 0xff}
}

// resolveDirect converts a 16-bit pixel, treating black as transparent.
func resolveDirect(v uint16) color.NRGBA {
	if v&0x7fff == 0 {
		return color.NRGBA{}
	}
	return Resolve(v)
}
