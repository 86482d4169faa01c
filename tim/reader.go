package tim

import (
	"image"
	"image/color"
	"io"
	"io/ioutil"
)

func init() {
	image.RegisterFormat("tim", string(Magic), Decode, DecodeConfig)
}

func readRecord(r io.Reader) (*Record, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(b, 0)
}

// Decode reads a TIM record from r and returns it as an image.Image.
func Decode(r io.Reader) (image.Image, error) {
	rec, err := readRecord(r)
	if err != nil {
		return nil, err
	}
	return rec.Decode()
}

// DecodeConfig returns the color model and dimensions of a TIM record
// without decoding its pixels.
func DecodeConfig(r io.Reader) (image.Config, error) {
	rec, err := readRecord(r)
	if err != nil {
		return image.Config{}, err
	}
	b, err := rec.Image.check(rec.Header.Mode)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: color.NRGBAModel,
		Width:      b.Dx(),
		Height:     b.Dy(),
	}, nil
}
