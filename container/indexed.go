package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
)

const maxEntries = 256

var (
	errNoTable    = errors.New("container: no offset table")
	errTableSpill = errors.New("container: offset table overlaps first entry")
)

// Indexed is a container with a leading offset table.
type Indexed struct {
	// Header is everything before the first entry; the offset table and
	// any padding after it.
	Header  []byte
	Entries [][]byte

	// slots maps each table slot to its entry, nil means slot i holds
	// entry i.
	slots []int
	// term is the non-zero out of range value that ended the table, if
	// it is part of the header.
	term uint32
	size int
}

// ParseIndexed splits b into its offset table and entries. Slots may be
// unordered or repeat an offset; the entries are the distinct offsets in
// ascending order. The entries alias b.
func ParseIndexed(b []byte) (*Indexed, error) {
	var table []int
	var term uint32
	for i := 0; i < maxEntries && i*4+4 <= len(b); i++ {
		off := binary.LittleEndian.Uint32(b[i*4:])
		if off == 0 {
			break
		}
		if uint64(off) >= uint64(len(b)) {
			term = off
			break
		}
		table = append(table, int(off))
	}

	if len(table) == 0 {
		return nil, errNoTable
	}

	offsets := append([]int(nil), table...)
	sort.Ints(offsets)
	n := 0
	for _, off := range offsets {
		if n == 0 || off != offsets[n-1] {
			offsets[n] = off
			n++
		}
	}
	offsets = offsets[:n]

	if offsets[0] < len(table)*4 {
		return nil, errTableSpill
	}
	if len(table)*4+4 > offsets[0] {
		// Read from the first entry, not the table
		term = 0
	}

	c := &Indexed{
		Header:  b[:offsets[0]],
		Entries: make([][]byte, len(offsets)),
		slots:   make([]int, len(table)),
		term:    term,
		size:    len(b),
	}
	for i, off := range offsets {
		end := len(b)
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		c.Entries[i] = b[off:end]
	}
	for i, off := range table {
		c.slots[i] = sort.SearchInts(offsets, off)
	}

	return c, nil
}

// RebuildIndexed writes the container back with any valid replacements
// and the offset table recomputed to match. Every slot points at the new
// position of its entry and a table ended by the length of the file gets
// the new length. The header keeps its original size.
func RebuildIndexed(c *Indexed, s *Replacements) ([]byte, []Rejection, error) {
	slots := c.slots
	if slots == nil {
		slots = make([]int, len(c.Entries))
		for i := range slots {
			slots[i] = i
		}
	}

	n := len(slots)
	if c.term != 0 {
		n++
	}
	if len(c.Header) < n*4 {
		return nil, nil, errTableSpill
	}

	var b bytes.Buffer
	var rejected []Rejection

	b.Write(c.Header)

	offsets := make([]int, len(c.Entries))
	for i, e := range c.Entries {
		offsets[i] = b.Len()

		out, rej := substitute(i, e, s)
		if rej != nil {
			rejected = append(rejected, *rej)
		}
		b.Write(out)
	}

	if uint64(b.Len()) > math.MaxUint32 {
		return nil, nil, fmt.Errorf("container: %d bytes overflow the offset table", b.Len())
	}

	out := b.Bytes()
	for slot, i := range slots {
		binary.LittleEndian.PutUint32(out[slot*4:], uint32(offsets[i]))
	}
	// Any other sentinel is kept while it still ends the table
	if c.term != 0 && (uint64(c.term) == uint64(c.size) || uint64(c.term) < uint64(len(out))) {
		binary.LittleEndian.PutUint32(out[len(slots)*4:], uint32(len(out)))
	}

	return out, rejected, nil
}
