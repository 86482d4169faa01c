package tim

import (
	"encoding/binary"
	"image"
	"image/color"
)

// Bounds returns the size in pixels of the image block in mode m.
func (i *ImageBlock) Bounds(m Mode) image.Rectangle {
	return image.Rect(0, 0, m.Width(int(i.Stride)), int(i.Height))
}

func (i *ImageBlock) check(m Mode) (image.Rectangle, error) {
	b := i.Bounds(m)
	if b.Dx() <= 0 || b.Dy() <= 0 || b.Dx() > maxDimension || b.Dy() > maxDimension {
		return image.Rectangle{}, invalid("%s image of %dx%d pixels", m, b.Dx(), b.Dy())
	}
	if len(i.Pixels) < int(i.Stride)*2*b.Dy() {
		return image.Rectangle{}, ErrShortPixelData
	}
	return b, nil
}

// DecodeImage renders the image block in mode m. Indexed modes look up
// pixels in pal, wrapping indices beyond its end.
func DecodeImage(i ImageBlock, m Mode, pal color.Palette) (*image.NRGBA, error) {
	if !m.valid() {
		return nil, invalid("unsupported mode %d", uint8(m))
	}
	if m.NeedsPalette() && len(pal) == 0 {
		return nil, ErrNoPalette
	}

	b, err := i.check(m)
	if err != nil {
		return nil, err
	}

	var d decoder
	d.stride = int(i.Stride) * 2
	d.m = image.NewNRGBA(b)
	if m.NeedsPalette() {
		d.palette = make([]color.NRGBA, len(pal))
		for j, c := range pal {
			d.palette[j] = color.NRGBAModel.Convert(c).(color.NRGBA)
		}
	}

	for y := 0; y < b.Dy(); y++ {
		row := i.Pixels[y*d.stride : (y+1)*d.stride]
		switch m {
		case Indexed4:
			d.indexed4(row, y)
		case Indexed8:
			d.indexed8(row, y)
		case Direct16:
			d.direct16(row, y)
		case Direct24:
			d.direct24(row, y)
		}
	}

	return d.m, nil
}

type decoder struct {
	m       *image.NRGBA
	palette []color.NRGBA
	stride  int
}

func (d *decoder) set(x, y int, c color.NRGBA) {
	i := d.m.PixOffset(x, y)
	d.m.Pix[i+0] = c.R
	d.m.Pix[i+1] = c.G
	d.m.Pix[i+2] = c.B
	d.m.Pix[i+3] = c.A
}

func (d *decoder) lookup(i byte) color.NRGBA {
	return d.palette[int(i)%len(d.palette)]
}

func (d *decoder) indexed4(row []byte, y int) {
	for x, b := range row {
		// Leftmost pixel is in the low nibble
		d.set(x<<1+0, y, d.lookup(b&0x0f))
		d.set(x<<1+1, y, d.lookup(b>>4))
	}
}

func (d *decoder) indexed8(row []byte, y int) {
	for x, b := range row {
		d.set(x, y, d.lookup(b))
	}
}

func (d *decoder) direct16(row []byte, y int) {
	for x := 0; x < len(row)>>1; x++ {
		d.set(x, y, resolveDirect(binary.LittleEndian.Uint16(row[x<<1:])))
	}
}

func (d *decoder) direct24(row []byte, y int) {
	w := d.m.Rect.Dx()
	for x := 0; x < w; x++ {
		p := row[x*3 : x*3+3]
		d.set(x, y, color.NRGBA{p[0], p[1], p[2], 0xff})
	}
}

// Decode renders the record using the whole CLUT as the palette.
func (r *Record) Decode() (*image.NRGBA, error) {
	return r.DecodeCLUT(-1)
}

// DecodeCLUT renders the record using a single row of its CLUT as the
// palette. A negative row uses the whole CLUT.
func (r *Record) DecodeCLUT(row int) (*image.NRGBA, error) {
	var pal color.Palette
	switch {
	case !r.Header.Mode.NeedsPalette():
	case r.Palette == nil:
		return nil, ErrNoPalette
	default:
		pal = r.Palette.Colors(row)
	}
	return DecodeImage(r.Image, r.Header.Mode, pal)
}

// Validate reports whether the record can be decoded without decoding it.
func (r *Record) Validate() error {
	if r.Header.Mode.NeedsPalette() && (r.Palette == nil || len(r.Palette.Entries) == 0) {
		return ErrNoPalette
	}
	_, err := r.Image.check(r.Header.Mode)
	return err
}

// Bounds returns the size in pixels of the record.
func (r *Record) Bounds() image.Rectangle {
	return r.Image.Bounds(r.Header.Mode)
}
