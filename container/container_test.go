package container

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"testing"

	"github.com/bodgit/psxtim/tim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(t *testing.T, c color.NRGBA, w int) []byte {
	t.Helper()
	m := image.NewNRGBA(image.Rect(0, 0, w, 2))
	for i := 0; i < len(m.Pix); i += 4 {
		m.Pix[i+0], m.Pix[i+1], m.Pix[i+2], m.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	b := new(bytes.Buffer)
	require.NoError(t, tim.Encode(b, m, nil))
	return b.Bytes()
}

func concatenated(t *testing.T) []byte {
	var b []byte
	for i, c := range []color.NRGBA{{0xf8, 0, 0, 0xff}, {0, 0xf8, 0, 0xff}, {0, 0, 0xf8, 0xff}} {
		b = append(b, record(t, c, i+1)...)
	}
	return b
}

func TestRebuildIdentity(t *testing.T) {
	b := concatenated(t)
	records := tim.Scan(b)
	require.Len(t, records, 3)

	out, rejected := Rebuild(records, nil)
	assert.Empty(t, rejected)
	assert.Equal(t, b, out)

	out, rejected = Rebuild(records, &Replacements{})
	assert.Empty(t, rejected)
	assert.Equal(t, b, out)
}

func TestRebuildReplace(t *testing.T) {
	b := concatenated(t)
	records := tim.Scan(b)
	require.Len(t, records, 3)

	white := record(t, color.NRGBA{0xf8, 0xf8, 0xf8, 0xff}, 4)

	tables := []struct {
		name string
		s    *Replacements
	}{
		{"index", &Replacements{ByIndex: map[int][]byte{1: white}}},
		{"name", &Replacements{ByName: map[string][]byte{"tex_0001.tim": white}}},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			out, rejected := Rebuild(records, table.s)
			assert.Empty(t, rejected)

			var want []byte
			want = append(want, records[0].Raw...)
			want = append(want, white...)
			want = append(want, records[2].Raw...)
			assert.Equal(t, want, out)

			got := tim.Scan(out)
			require.Len(t, got, 3)
			assert.Equal(t, white, got[1].Raw)
		})
	}
}

func TestRebuildReject(t *testing.T) {
	b := concatenated(t)
	records := tim.Scan(b)
	require.Len(t, records, 3)

	bad := []byte{0xde, 0xad, 0xbe, 0xef}
	out, rejected := Rebuild(records, &Replacements{ByIndex: map[int][]byte{2: bad}})

	assert.Equal(t, b, out)
	require.Len(t, rejected, 1)
	assert.Equal(t, 2, rejected[0].Index)
	assert.Equal(t, "tex_0002.tim", rejected[0].Name)
	assert.ErrorIs(t, rejected[0], ErrNotRecord)
}

func TestRebuildDoesNotAlias(t *testing.T) {
	b := concatenated(t)
	records := tim.Scan(b)
	repl := record(t, color.NRGBA{0x08, 0x08, 0x08, 0xff}, 1)

	out, _ := Rebuild(records, &Replacements{ByIndex: map[int][]byte{0: repl}})
	out[0] = 0xff
	out[len(out)-1] ^= 0xff

	assert.Equal(t, byte(0x10), repl[0])
	assert.Equal(t, b[len(b)-1], records[2].Raw[len(records[2].Raw)-1])
}

func indexed(t *testing.T, entries ...[]byte) []byte {
	header := make([]byte, 32)
	off := len(header)
	for i, e := range entries {
		binary.LittleEndian.PutUint32(header[i*4:], uint32(off))
		off += len(e)
	}
	b := header
	for _, e := range entries {
		b = append(b, e...)
	}
	return b
}

func TestParseIndexed(t *testing.T) {
	e0 := record(t, color.NRGBA{0xf8, 0, 0, 0xff}, 1)
	e1 := append(record(t, color.NRGBA{0, 0xf8, 0, 0xff}, 2), 0, 0, 0, 0)
	b := indexed(t, e0, e1)

	c, err := ParseIndexed(b)
	require.NoError(t, err)
	assert.Len(t, c.Header, 32)
	require.Len(t, c.Entries, 2)
	assert.Equal(t, e0, c.Entries[0])
	assert.Equal(t, e1, c.Entries[1])

	out, rejected, err := RebuildIndexed(c, nil)
	require.NoError(t, err)
	assert.Empty(t, rejected)
	assert.Equal(t, b, out)
}

func TestRebuildIndexed(t *testing.T) {
	e0 := record(t, color.NRGBA{0xf8, 0, 0, 0xff}, 1)
	e1 := record(t, color.NRGBA{0, 0xf8, 0, 0xff}, 1)
	e2 := record(t, color.NRGBA{0, 0, 0xf8, 0xff}, 1)
	b := indexed(t, e0, e1, e2)

	c, err := ParseIndexed(b)
	require.NoError(t, err)

	bigger := record(t, color.NRGBA{0xf8, 0xf8, 0, 0xff}, 6)
	out, rejected, err := RebuildIndexed(c, &Replacements{
		ByIndex: map[int][]byte{0: bigger},
		ByName:  map[string][]byte{"tex_0002.tim": []byte("nope")},
	})
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, 2, rejected[0].Index)

	assert.Equal(t, indexed(t, bigger, e1, e2), out)

	got, err := ParseIndexed(out)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{bigger, e1, e2}, got.Entries)
}

func TestRebuildIndexedEndOffset(t *testing.T) {
	e0 := record(t, color.NRGBA{0xf8, 0, 0, 0xff}, 1)
	e1 := record(t, color.NRGBA{0, 0xf8, 0, 0xff}, 1)

	// The table ends with the length of the file
	b := make([]byte, 12)
	binary.LittleEndian.PutUint32(b[0:], 12)
	binary.LittleEndian.PutUint32(b[4:], uint32(12+len(e0)))
	binary.LittleEndian.PutUint32(b[8:], uint32(12+len(e0)+len(e1)))
	b = append(append(b, e0...), e1...)

	c, err := ParseIndexed(b)
	require.NoError(t, err)
	require.Len(t, c.Entries, 2)

	out, _, err := RebuildIndexed(c, nil)
	require.NoError(t, err)
	assert.Equal(t, b, out)

	for _, repl := range [][]byte{record(t, color.NRGBA{0xf8, 0xf8, 0, 0xff}, 6), e1} {
		out, rejected, err := RebuildIndexed(c, &Replacements{ByIndex: map[int][]byte{0: repl}})
		require.NoError(t, err)
		assert.Empty(t, rejected)
		assert.Equal(t, uint32(len(out)), binary.LittleEndian.Uint32(out[8:]))

		got, err := ParseIndexed(out)
		require.NoError(t, err)
		assert.Equal(t, [][]byte{repl, e1}, got.Entries)
	}
}

func TestParseIndexedUnordered(t *testing.T) {
	e0 := record(t, color.NRGBA{0xf8, 0, 0, 0xff}, 1)
	e1 := record(t, color.NRGBA{0, 0xf8, 0, 0xff}, 2)

	// Slots 0 and 2 share the second entry
	b := make([]byte, 16)
	binary.LittleEndian.PutUint32(b[0:], uint32(16+len(e0)))
	binary.LittleEndian.PutUint32(b[4:], 16)
	binary.LittleEndian.PutUint32(b[8:], uint32(16+len(e0)))
	b = append(append(b, e0...), e1...)

	c, err := ParseIndexed(b)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{e0, e1}, c.Entries)

	out, _, err := RebuildIndexed(c, nil)
	require.NoError(t, err)
	assert.Equal(t, b, out)

	bigger := record(t, color.NRGBA{0xf8, 0xf8, 0, 0xff}, 6)
	out, rejected, err := RebuildIndexed(c, &Replacements{ByName: map[string][]byte{"tex_0000.tim": bigger}})
	require.NoError(t, err)
	assert.Empty(t, rejected)

	want := uint32(16 + len(bigger))
	assert.Equal(t, want, binary.LittleEndian.Uint32(out[0:]))
	assert.Equal(t, uint32(16), binary.LittleEndian.Uint32(out[4:]))
	assert.Equal(t, want, binary.LittleEndian.Uint32(out[8:]))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(out[12:]))

	got, err := ParseIndexed(out)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{bigger, e1}, got.Entries)
}

func TestParseIndexedErrors(t *testing.T) {
	tables := []struct {
		name string
		b    []byte
		err  error
	}{
		{"empty", nil, errNoTable},
		{"zero", make([]byte, 16), errNoTable},
		{"spill", []byte{4, 0, 0, 0, 8, 0, 0, 0, 9, 0, 0, 0, 1, 1, 1, 1}, errTableSpill},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			_, err := ParseIndexed(table.b)
			assert.Equal(t, table.err, err)
		})
	}
}
