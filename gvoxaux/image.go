package gvoxaux

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/soypat/gvox/glbuild"
)

// SliceImage renders layer z of a size³ scalar field stored with x varying
// fastest, then y, then z. The image has y growing upwards.
func SliceImage(values []float32, size, layer int, conv func(float32) color.Color) (*image.RGBA, error) {
	if size <= 0 || len(values) != size*size*size {
		return nil, fmt.Errorf("want %d values for size %d, got %d", size*size*size, size, len(values))
	} else if layer < 0 || layer >= size {
		return nil, fmt.Errorf("layer %d out of range [0, %d)", layer, size)
	} else if conv == nil {
		return nil, errors.New("nil color conversion")
	}
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	base := layer * size * size
	for y := 0; y < size; y++ {
		row := values[base+y*size : base+(y+1)*size]
		for x, v := range row {
			img.Set(x, size-1-y, conv(v))
		}
	}
	return img, nil
}

// WritePNG encodes img as PNG into a file named filename.
func WritePNG(filename string, img image.Image) error {
	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer fp.Close()
	err = png.Encode(fp, img)
	if err != nil {
		return err
	}
	return fp.Sync()
}

// WriteSourceFile writes the unit's kernel source to a file named filename.
func WriteSourceFile(filename string, u *glbuild.Unit) error {
	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer fp.Close()
	_, err = u.WriteTo(fp)
	if err != nil {
		return err
	}
	return fp.Sync()
}

