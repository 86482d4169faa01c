/*
Package container rebuilds files that hold TIM records.

Two kinds of container are supported. The plain kind is nothing more than
records written back to back, possibly with other data in between, where the
records are found by scanning. The indexed kind starts with a table of 32-bit
little-endian offsets, one per entry, ending with a zero or an offset past the
end of the file; each entry runs up to the next offset.
*/
package container

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/bodgit/psxtim/tim"
)

// ErrNotRecord is the reason given for a replacement that doesn't start
// with the TIM magic value.
var ErrNotRecord = errors.New("container: replacement is not a TIM record")

// Rejection records a replacement that was ignored.
type Rejection struct {
	Index int
	Name  string
	Err   error
}

func (r Rejection) Error() string {
	return fmt.Sprintf("%s (#%d): %v", r.Name, r.Index, r.Err)
}

func (r Rejection) Unwrap() error {
	return r.Err
}

// Replacements maps a record to its replacement bytes. A record is looked
// up first by index and then by its conventional name, see tim.Name.
type Replacements struct {
	ByIndex map[int][]byte
	ByName  map[string][]byte
}

func (s *Replacements) lookup(i int) ([]byte, bool) {
	if s == nil {
		return nil, false
	}
	if b, ok := s.ByIndex[i]; ok {
		return b, true
	}
	b, ok := s.ByName[tim.Name(i)]
	return b, ok
}

// Len returns the number of replacements.
func (s *Replacements) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ByIndex) + len(s.ByName)
}

// substitute returns what to write for entry i, either the replacement or
// orig.
func substitute(i int, orig []byte, s *Replacements) ([]byte, *Rejection) {
	b, ok := s.lookup(i)
	if !ok {
		return orig, nil
	}
	if !tim.HasMagic(b, 0) {
		return orig, &Rejection{Index: i, Name: tim.Name(i), Err: ErrNotRecord}
	}
	return b, nil
}

// Rebuild concatenates records in order, replacing any record that has a
// replacement starting with the TIM magic value. Replacements that don't
// are ignored and reported. The result never aliases the inputs.
func Rebuild(records []*tim.Record, s *Replacements) ([]byte, []Rejection) {
	var b bytes.Buffer
	var rejected []Rejection

	for i, r := range records {
		out, rej := substitute(i, r.Raw, s)
		if rej != nil {
			rejected = append(rejected, *rej)
		}
		b.Write(out)
	}

	return b.Bytes(), rejected
}
