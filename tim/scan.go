package tim

import "bytes"

// Scan returns every record found in b in ascending offset order. Records
// never overlap; a magic value that doesn't start a valid record is
// skipped one byte at a time as it may just be part of some pixel or
// palette data.
func Scan(b []byte) []*Record {
	var records []*Record
	for off := 0; off+headerSize <= len(b); {
		i := bytes.Index(b[off:], Magic)
		if i < 0 {
			break
		}
		off += i

		r, err := Parse(b, off)
		if err != nil {
			off++
			continue
		}

		records = append(records, r)
		off += r.Len()
	}
	return records
}
