package psxtim

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/psxtim/tim"
	"golang.org/x/image/bmp"
)

type encodeFunc func(io.Writer, image.Image) error

func imageEncoder(format string) (encodeFunc, error) {
	switch format {
	case "":
		return nil, nil
	case "png":
		return png.Encode, nil
	case "bmp":
		return bmp.Encode, nil
	}
	return nil, fmt.Errorf("unsupported image format %q", format)
}

func writeImage(file string, m image.Image, encode encodeFunc) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := encode(f, m); err != nil {
		return err
	}
	return f.Close()
}

// Convert renders the first record in src as an image in dst. The format is
// taken from the extension of dst.
func (t *Tool) Convert(src, dst string, clut int) error {
	b, err := t.Load(src)
	if err != nil {
		return err
	}

	records := tim.Scan(b)
	if len(records) == 0 {
		return fmt.Errorf("no records found in %s", src)
	}
	if len(records) > 1 {
		t.logger.Printf("Found %d records in \"%s\", using the first\n", len(records), src)
	}

	m, err := records[0].DecodeCLUT(clut)
	if err != nil {
		return err
	}

	encode, err := imageEncoder(strings.ToLower(strings.TrimPrefix(filepath.Ext(dst), ".")))
	if err != nil {
		return err
	}
	if encode == nil {
		return fmt.Errorf("no image format for %s", dst)
	}

	return writeImage(dst, m, encode)
}

// Import encodes the image in src, which may be any registered format, as a
// TIM record in dst.
func (t *Tool) Import(src, dst string, o *tim.Options) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	m, format, err := image.Decode(f)
	if err != nil {
		return err
	}
	t.logger.Printf("Decoded %s image \"%s\", %dx%d\n", format, src, m.Bounds().Dx(), m.Bounds().Dy())

	b := new(bytes.Buffer)
	if err := tim.Encode(b, m, o); err != nil {
		return err
	}

	return ioutil.WriteFile(dst, b.Bytes(), 0644)
}
