package psxtim

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/bodgit/psxtim/container"
	"github.com/bodgit/psxtim/tim"
)

// readReplacements collects the files in dir named after the first n
// records. An empty dir yields no replacements.
func (t *Tool) readReplacements(dir string, n int) (*container.Replacements, error) {
	s := &container.Replacements{
		ByName: make(map[string][]byte),
	}
	if dir == "" {
		return s, nil
	}

	for i := 0; i < n; i++ {
		name := tim.Name(i)
		b, err := ioutil.ReadFile(filepath.Join(dir, name))
		switch {
		case os.IsNotExist(err):
			continue
		case err != nil:
			return nil, err
		}
		t.logger.Printf("Replacing %s\n", name)
		s.ByName[name] = b
	}

	return s, nil
}

func (t *Tool) warnRejected(rejected []container.Rejection) {
	for _, r := range rejected {
		t.logger.Printf("Warning: keeping original %v\n", r)
	}
}

// Repack rebuilds the container in file with the records in dir replacing
// the originals and writes the result to output. An indexed container has
// its offset table updated to match.
func (t *Tool) Repack(file, dir, output string, indexed bool) ([]container.Rejection, error) {
	b, err := ioutil.ReadFile(file)
	if err != nil {
		return nil, err
	}

	var out []byte
	var rejected []container.Rejection

	if indexed {
		c, err := container.ParseIndexed(b)
		if err != nil {
			return nil, err
		}

		s, err := t.readReplacements(dir, len(c.Entries))
		if err != nil {
			return nil, err
		}
		if s.Len() == 0 {
			t.logger.Println("No replacements found")
		}

		if out, rejected, err = container.RebuildIndexed(c, s); err != nil {
			return nil, err
		}
	} else {
		records := tim.Scan(b)
		t.logger.Printf("Found %d records in \"%s\"\n", len(records), file)

		var covered int
		for _, r := range records {
			covered += r.Len()
		}
		if covered < len(b) {
			t.logger.Printf("Warning: %d bytes outside of records are dropped\n", len(b)-covered)
		}

		s, err := t.readReplacements(dir, len(records))
		if err != nil {
			return nil, err
		}
		if s.Len() == 0 {
			t.logger.Println("No replacements found")
		}

		out, rejected = container.Rebuild(records, s)
	}

	t.warnRejected(rejected)

	return rejected, ioutil.WriteFile(output, out, 0644)
}
