package tim

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/ericpauley/go-quantize/quantize"
)

// Options are the encoding parameters. X and Y place the image in VRAM,
// CLUTX and CLUTY place the palette.
type Options struct {
	Mode         Mode
	X, Y         uint16
	CLUTX, CLUTY uint16
}

var (
	errBadWidth  = errors.New("tim: image width doesn't fit the row stride")
	errTooLarge  = errors.New("tim: image is too large")
	errEmpty     = errors.New("tim: image is empty")
	pixelsPerRow = map[Mode]int{Indexed4: 4, Indexed8: 2, Direct16: 1, Direct24: 2}
)

func maxColors(m Mode) int {
	return 1 << uint(m.BitsPerPixel())
}

// packColor converts c to a 16-bit colour. Transparent colours become zero
// and opaque black gets the semi-transparency bit set so it isn't.
func packColor(c color.Color) uint16 {
	_, _, _, a := c.RGBA()
	if a < 0x8000 {
		return 0
	}
	if v := pack(c); v != 0 {
		return v
	}
	return 0x8000
}

func padPalette(p color.Palette, n int) color.Palette {
	for len(p) < n {
		p = append(p, color.NRGBA{})
	}
	return p
}

func toPaletted(m image.Image, n int) *image.Paletted {
	b := m.Bounds()

	pm, _ := m.(*image.Paletted)
	if pm == nil {
		if cp, ok := m.ColorModel().(color.Palette); ok {
			pm = image.NewPaletted(b, cp)
			draw.Draw(pm, b, m, b.Min, draw.Src)
		}
	}

	if pm == nil || len(pm.Palette) > n {
		q := quantize.MedianCutQuantizer{}
		pm = image.NewPaletted(b, q.Quantize(make(color.Palette, 0, n), m))
		draw.Draw(pm, b, m, b.Min, draw.Src)
	}

	return pm
}

type encoder struct {
	b    bytes.Buffer
	tmp  [blockHeaderSize]byte
	opts Options
}

func (e *encoder) writeHeader(h Header) {
	e.b.Write(Magic)
	binary.LittleEndian.PutUint32(e.tmp[:4], h.flags())
	e.b.Write(e.tmp[:4])
}

func (e *encoder) writeBlock(bl block) {
	bl.put(e.tmp[:])
	e.b.Write(e.tmp[:])
}

func (e *encoder) writePalette(p color.Palette) {
	e.writeBlock(block{
		length: blockHeaderSize + len(p)*2,
		x:      e.opts.CLUTX,
		y:      e.opts.CLUTY,
		width:  uint16(len(p)),
		height: 1,
	})
	for _, c := range p {
		binary.LittleEndian.PutUint16(e.tmp[:2], packColor(c))
		e.b.Write(e.tmp[:2])
	}
}

func (e *encoder) writePixels(m image.Image, stride int) {
	b := m.Bounds()
	e.writeBlock(block{
		length: blockHeaderSize + stride*2*b.Dy(),
		x:      e.opts.X,
		y:      e.opts.Y,
		width:  uint16(stride),
		height: uint16(b.Dy()),
	})

	pm, _ := m.(*image.Paletted)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		switch e.opts.Mode {
		case Indexed4:
			for x := b.Min.X; x < b.Max.X; x += 2 {
				e.b.WriteByte(pm.ColorIndexAt(x, y)&0x0f | pm.ColorIndexAt(x+1, y)&0x0f<<4)
			}
		case Indexed8:
			for x := b.Min.X; x < b.Max.X; x++ {
				e.b.WriteByte(pm.ColorIndexAt(x, y))
			}
		case Direct16:
			for x := b.Min.X; x < b.Max.X; x++ {
				binary.LittleEndian.PutUint16(e.tmp[:2], packColor(m.At(x, y)))
				e.b.Write(e.tmp[:2])
			}
		case Direct24:
			for x := b.Min.X; x < b.Max.X; x++ {
				c := color.NRGBAModel.Convert(m.At(x, y)).(color.NRGBA)
				e.b.Write([]byte{c.R, c.G, c.B})
			}
		}
	}
}

// Encode writes the Image m to w as a TIM record. A nil o encodes 16-bit
// direct colour. Indexed modes reduce the image to 16 or 256 colours if
// needed.
func Encode(w io.Writer, m image.Image, o *Options) error {
	var e encoder
	if o != nil {
		e.opts = *o
	} else {
		e.opts.Mode = Direct16
	}
	mode := e.opts.Mode
	if !mode.valid() {
		return invalid("unsupported mode %d", uint8(mode))
	}

	b := m.Bounds()
	switch {
	case b.Empty():
		return errEmpty
	case b.Dx() > maxDimension || b.Dy() > maxDimension:
		return errTooLarge
	case b.Dx()%pixelsPerRow[mode] != 0:
		return errBadWidth
	}

	stride := b.Dx() * mode.BitsPerPixel() / 16
	e.writeHeader(Header{Mode: mode, HasPalette: mode.NeedsPalette()})

	if mode.NeedsPalette() {
		n := maxColors(mode)
		pm := toPaletted(m, n)
		e.writePalette(padPalette(append(color.Palette(nil), pm.Palette...), n))
		m = pm
	}
	e.writePixels(m, stride)

	_, err := w.Write(e.b.Bytes())
	return err
}
