package psxtim

import (
	"bufio"
	"errors"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/vchimishuk/chub/cue"
)

const (
	rawSectorSize   = 2352
	userDataSize    = 2048
	mode1Header     = 16 // sync + header
	mode2XAHeader   = 24 // sync + header + subheader
	framesPerSecond = 75
	sheetExtension  = ".cue"
)

var errAudioOnly = errors.New("audio-only CDs contain no records")

// sectorLayout returns the size of each sector in a track of type t and the
// offset of the user data within it.
func sectorLayout(t cue.TrackDataType) (size, header int, ok bool) {
	switch t {
	case cue.DataTypeMode1_2048:
		return userDataSize, 0, true
	case cue.DataTypeMode1_2352:
		return rawSectorSize, mode1Header, true
	case cue.DataTypeMode2_2352:
		return rawSectorSize, mode2XAHeader, true
	}
	return 0, 0, false
}

// sectors converts a cue sheet MSF position to a sector count.
func sectors(t cue.Time) int {
	return (t.Min*60+t.Sec)*framesPerSecond + t.Frames
}

// dataRange returns the type of the first data track in the file and the
// sectors it occupies. end is negative when the track runs to the end of the
// file, otherwise it is where the next track of a different type starts so
// CD-DA tracks sharing the file are never read as data.
func dataRange(file *cue.File) (dataType cue.TrackDataType, start, end int, ok bool) {
	for i, track := range file.Tracks {
		if _, _, ok := sectorLayout(track.DataType); !ok {
			continue
		}
		if len(track.Indexes) > 0 {
			start = sectors(*track.Indexes[0].Time)
		}
		end = -1
		for _, next := range file.Tracks[i+1:] {
			if next.DataType != track.DataType && len(next.Indexes) > 0 {
				end = sectors(*next.Indexes[0].Time)
				break
			}
		}
		return track.DataType, start, end, true
	}
	return cue.DataTypeAudio, 0, 0, false
}

// readSectors appends the user data of up to n whole sectors in r to b, a
// negative n reads them all.
func readSectors(r io.Reader, size, header, n int, b []byte) ([]byte, error) {
	br := bufio.NewReaderSize(r, size*16)
	sector := make([]byte, size)
	for ; n != 0; n-- {
		if _, err := io.ReadFull(br, sector); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return b, nil
			}
			return nil, err
		}
		b = append(b, sector[header:header+userDataSize]...)
	}
	return b, nil
}

func (t *Tool) readCueFile(file string) ([]byte, error) {
	sheet, err := cue.ParseFile(file)
	if err != nil {
		return nil, err
	}

	var b []byte
	var found bool
	for _, f := range sheet.Files {
		dataType, start, end, ok := dataRange(f)
		if !ok {
			t.logger.Printf("Skipping \"%s\", no data tracks\n", f.Name)
			continue
		}
		found = true

		size, header, _ := sectorLayout(dataType)
		t.logger.Printf("Reading \"%s\" as %d byte sectors from sector %d\n", f.Name, size, start)

		n := -1
		if end >= 0 {
			if n = end - start; n < 0 {
				n = 0
			}
		}

		name := filepath.Join(filepath.Dir(file), f.Name)
		if b, err = readTrackFile(name, size, header, start, n, b); err != nil {
			return nil, err
		}
	}

	if !found {
		return nil, errAudioOnly
	}

	return b, nil
}

func readTrackFile(file string, size, header, start, n int, b []byte) ([]byte, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := f.Seek(int64(start)*int64(size), io.SeekStart); err != nil {
		return nil, err
	}

	return readSectors(f, size, header, n, b)
}

// Load returns the bytes to scan for the given file. A cue sheet is
// resolved to the user data of its data tracks; anything else is read
// as is.
func (t *Tool) Load(file string) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(file), sheetExtension) {
		return t.readCueFile(file)
	}
	return ioutil.ReadFile(file)
}
