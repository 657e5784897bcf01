package mnist

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
)

// Encode writes s as a square grayscale PNG.
func Encode(w io.Writer, s Sample) error {
	side := 1
	for side*side < len(s.Pixels) {
		side++
	}
	if side*side != len(s.Pixels) {
		return fmt.Errorf("sample has %d pixels, not a square image", len(s.Pixels))
	}

	img := image.NewGray(image.Rect(0, 0, side, side))
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			v := s.Pixels[y*side+x] * 255
			if v < 0 {
				v = 0
			}
			if v > 255 {
				v = 255
			}
			img.SetGray(x, y, color.Gray{Y: uint8(v)})
		}
	}

	return png.Encode(w, img)
}

// Render writes s to a PNG file at path.
func Render(s Sample, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("while creating image file: %w", err)
	}
	defer f.Close()

	if err := Encode(f, s); err != nil {
		return fmt.Errorf("while encoding image: %w", err)
	}
	return nil
}
