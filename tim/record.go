package tim

// ImageBlock is the pixel data of a record. Stride is the row length in
// 16-bit words.
type ImageBlock struct {
	X, Y   uint16
	Stride uint16
	Height uint16
	Pixels []byte

	length int
}

// Len returns the length in bytes of the block, including its header.
func (i *ImageBlock) Len() int {
	return i.length
}

// ParseImageBlock decodes the image block starting at off. Pixels aliases b.
func ParseImageBlock(b []byte, off int) (ImageBlock, error) {
	bl, err := parseBlock(b, off, "image")
	if err != nil {
		return ImageBlock{}, err
	}

	return ImageBlock{
		X:      bl.x,
		Y:      bl.y,
		Stride: bl.width,
		Height: bl.height,
		Pixels: b[off+blockHeaderSize : off+bl.length],
		length: bl.length,
	}, nil
}

// Record is a validated TIM record.
type Record struct {
	// Offset is the position of the record in the data it was found in.
	Offset int
	// Raw holds the bytes of the whole record. Palette and Image refer
	// to it.
	Raw     []byte
	Header  Header
	Palette *PaletteBlock
	Image   ImageBlock
}

// Len returns the total length of the record in bytes.
func (r *Record) Len() int {
	return len(r.Raw)
}

// Parse validates the record starting at off in b and measures it. The
// returned record holds a copy of its bytes so b may be reused.
func Parse(b []byte, off int) (*Record, error) {
	if !HasMagic(b, off) {
		return nil, invalid("no magic at offset %d", off)
	}

	h, err := ParseHeader(b, off)
	if err != nil {
		return nil, err
	}

	n := headerSize
	if h.HasPalette {
		p, err := ParsePalette(b, off+n)
		if err != nil {
			return nil, err
		}
		n += p.Len()
	}

	img, err := ParseImageBlock(b, off+n)
	if err != nil {
		return nil, err
	}
	n += img.Len()

	raw := make([]byte, n)
	copy(raw, b[off:off+n])

	return newRecord(off, raw)
}

// newRecord re-parses an owned, already validated, copy so that the blocks
// alias it rather than the source.
func newRecord(off int, raw []byte) (*Record, error) {
	h, err := ParseHeader(raw, 0)
	if err != nil {
		return nil, err
	}

	r := &Record{
		Offset: off,
		Raw:    raw,
		Header: h,
	}

	n := headerSize
	if h.HasPalette {
		if r.Palette, err = ParsePalette(raw, n); err != nil {
			return nil, err
		}
		n += r.Palette.Len()
	}

	if r.Image, err = ParseImageBlock(raw, n); err != nil {
		return nil, err
	}

	return r, nil
}
