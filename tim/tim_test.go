package tim

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture builds a record. A nil clut omits the palette block.
type fixture struct {
	mode       Mode
	clut       []uint16
	clutWidth  uint16
	stride     uint16
	height     uint16
	pixels     []byte
	imageLen   int // overrides the image block length when non-zero
	extraFlags uint32
}

func (f fixture) bytes() []byte {
	b := append([]byte(nil), Magic...)
	flags := uint32(f.mode) | f.extraFlags
	if f.clut != nil {
		flags |= flagPalette
	}
	b = binary.LittleEndian.AppendUint32(b, flags)

	if f.clut != nil {
		w, h := f.clutWidth, uint16(0)
		if w == 0 {
			w = uint16(len(f.clut))
		}
		if w > 0 {
			h = uint16(len(f.clut)) / w
		}
		b = binary.LittleEndian.AppendUint32(b, uint32(blockHeaderSize+len(f.clut)*2))
		b = binary.LittleEndian.AppendUint16(b, 0)
		b = binary.LittleEndian.AppendUint16(b, 480)
		b = binary.LittleEndian.AppendUint16(b, w)
		b = binary.LittleEndian.AppendUint16(b, h)
		for _, c := range f.clut {
			b = binary.LittleEndian.AppendUint16(b, c)
		}
	}

	n := f.imageLen
	if n == 0 {
		n = blockHeaderSize + len(f.pixels)
	}
	b = binary.LittleEndian.AppendUint32(b, uint32(n))
	b = binary.LittleEndian.AppendUint16(b, 640)
	b = binary.LittleEndian.AppendUint16(b, 0)
	b = binary.LittleEndian.AppendUint16(b, f.stride)
	b = binary.LittleEndian.AppendUint16(b, f.height)
	return append(b, f.pixels...)
}

func direct16(stride, height uint16) fixture {
	return fixture{
		mode:   Direct16,
		stride: stride,
		height: height,
		pixels: make([]byte, int(stride)*2*int(height)),
	}
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "4bpp", Indexed4.String())
	assert.Equal(t, "24bpp", Direct24.String())
	assert.Equal(t, "Mode(5)", Mode(5).String())

	m, err := ParseMode("8bpp")
	require.NoError(t, err)
	assert.Equal(t, Indexed8, m)

	_, err = ParseMode("32bpp")
	assert.Error(t, err)
}

func TestModeWidth(t *testing.T) {
	tables := []struct {
		mode  Mode
		words int
		want  int
	}{
		{Indexed4, 8, 32},
		{Indexed8, 8, 16},
		{Direct16, 8, 8},
		{Direct24, 3, 2},
		{Direct24, 1, 0},
	}

	for _, table := range tables {
		assert.Equal(t, table.want, table.mode.Width(table.words), table.mode.String())
	}
}

func TestName(t *testing.T) {
	assert.Equal(t, "tex_0000.tim", Name(0))
	assert.Equal(t, "tex_0123.tim", Name(123))
}

func TestParseHeader(t *testing.T) {
	tables := []struct {
		name  string
		flags []byte
		want  Header
		valid bool
	}{
		{"4bpp clut", []byte{0x08, 0, 0, 0}, Header{Indexed4, true}, true},
		{"8bpp clut", []byte{0x09, 0, 0, 0}, Header{Indexed8, true}, true},
		{"16bpp", []byte{0x02, 0, 0, 0}, Header{Direct16, false}, true},
		{"24bpp", []byte{0x03, 0, 0, 0}, Header{Direct24, false}, true},
		{"mode 4", []byte{0x04, 0, 0, 0}, Header{}, false},
		{"mode 7 clut", []byte{0x0f, 0, 0, 0}, Header{}, false},
		{"truncated", []byte{0x02, 0}, Header{}, false},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			b := append(append([]byte(nil), Magic...), table.flags...)
			h, err := ParseHeader(b, 0)
			if !table.valid {
				assert.ErrorIs(t, err, ErrInvalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, table.want, h)
		})
	}
}

func TestHasMagic(t *testing.T) {
	b := []byte{0xff, 0x10, 0x00, 0x00, 0x00, 0x00}
	assert.False(t, HasMagic(b, 0))
	assert.True(t, HasMagic(b, 1))
	assert.False(t, HasMagic(b, 3))
	assert.False(t, HasMagic(b, -1))
}

func TestParse(t *testing.T) {
	f := fixture{
		mode:   Indexed8,
		clut:   []uint16{0x001f, 0x03e0, 0x7c00, 0x7fff},
		stride: 2,
		height: 2,
		pixels: []byte{0, 1, 2, 3, 3, 2, 1, 0},
	}
	b := f.bytes()

	r, err := Parse(b, 0)
	require.NoError(t, err)

	assert.Equal(t, Header{Indexed8, true}, r.Header)
	require.NotNil(t, r.Palette)
	assert.Equal(t, 20, r.Palette.Len())
	assert.Equal(t, uint16(480), r.Palette.Y)
	assert.Equal(t, f.clut, r.Palette.Entries)
	assert.Equal(t, uint16(640), r.Image.X)
	assert.Equal(t, uint16(2), r.Image.Stride)
	assert.Equal(t, 20, r.Image.Len())
	assert.Equal(t, headerSize+r.Palette.Len()+r.Image.Len(), r.Len())
	assert.Equal(t, b, r.Raw)

	// The record owns its bytes
	b[len(b)-1] = 0xff
	assert.Equal(t, byte(0), r.Image.Pixels[len(r.Image.Pixels)-1])
}

func TestParseInvalid(t *testing.T) {
	good := direct16(1, 1).bytes()

	tables := []struct {
		name string
		b    []byte
	}{
		{"no magic", append([]byte{0x11}, good[1:]...)},
		{"header only", good[:headerSize]},
		{"image length below minimum", fixture{mode: Direct16, stride: 1, height: 1, pixels: []byte{0, 0}, imageLen: 11}.bytes()},
		{"image length past end", fixture{mode: Direct16, stride: 1, height: 1, pixels: []byte{0, 0}, imageLen: 100}.bytes()},
		{"palette length past end", append(append([]byte(nil), Magic...), 0x08, 0, 0, 0, 0xff, 0xff, 0, 0)},
		{"palette header truncated", fixture{mode: Indexed4, clut: []uint16{1, 2}, clutWidth: 1, stride: 1, height: 1, pixels: []byte{0, 0}}.bytes()[:headerSize+4]},
		{"unsupported mode", fixture{mode: Direct16, stride: 1, height: 1, pixels: []byte{0, 0}, extraFlags: 0x04}.bytes()},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			_, err := Parse(table.b, 0)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestParsePaletteOverflow(t *testing.T) {
	b := make([]byte, blockHeaderSize+4)
	binary.LittleEndian.PutUint32(b, uint32(len(b)))
	binary.LittleEndian.PutUint16(b[8:], 4)
	binary.LittleEndian.PutUint16(b[10:], 1)

	_, err := ParsePalette(b, 0)
	assert.ErrorIs(t, err, ErrInvalid)

	binary.LittleEndian.PutUint16(b[8:], 2)
	p, err := ParsePalette(b, 0)
	require.NoError(t, err)
	assert.Len(t, p.Entries, 2)
}
