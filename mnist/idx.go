// Package mnist decodes the MNIST idx binary files and npz bundles into
// labeled pixel samples, and renders samples back to images.
package mnist

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"os"
)

const (
	imageMagic = 0x00000803
	labelMagic = 0x00000801
)

// Sample is one labeled digit image: 784 pixels scaled to [0,1].
type Sample struct {
	Index  int
	Label  int
	Pixels []float32
}

// Load reads paired idx image and label files.  Missing, truncated, or
// unrecognized files degrade to an empty set with a log line; the
// training loop must keep running on bad data, not crash.
func Load(imagePath, labelPath string) []Sample {
	imf, err := os.Open(imagePath)
	if err != nil {
		log.Printf("images %s unavailable: %v", imagePath, err)
		return nil
	}
	defer imf.Close()

	lbf, err := os.Open(labelPath)
	if err != nil {
		log.Printf("labels %s unavailable: %v", labelPath, err)
		return nil
	}
	defer lbf.Close()

	samples, err := decode(imf, lbf)
	if err != nil {
		log.Printf("decoding %s / %s: %v", imagePath, labelPath, err)
		return nil
	}
	return samples
}

// decode parses an idx image stream (16-byte header: magic, count,
// rows, cols) against an idx label stream (8-byte header: magic,
// count).  The usable sample count is capped at the smaller of the two
// files.
func decode(images, labels io.Reader) ([]Sample, error) {
	var imHeader struct {
		Magic, Count, Rows, Cols int32
	}
	if err := binary.Read(images, binary.BigEndian, &imHeader); err != nil {
		return nil, fmt.Errorf("while reading image header: %w", err)
	}
	if imHeader.Magic != imageMagic {
		return nil, fmt.Errorf("bad image magic 0x%08x", imHeader.Magic)
	}

	var lbHeader struct {
		Magic, Count int32
	}
	if err := binary.Read(labels, binary.BigEndian, &lbHeader); err != nil {
		return nil, fmt.Errorf("while reading label header: %w", err)
	}
	if lbHeader.Magic != labelMagic {
		return nil, fmt.Errorf("bad label magic 0x%08x", lbHeader.Magic)
	}

	count := int(imHeader.Count)
	if int(lbHeader.Count) < count {
		count = int(lbHeader.Count)
	}
	if count < 0 {
		return nil, fmt.Errorf("negative sample count")
	}
	pixelsPer := int(imHeader.Rows) * int(imHeader.Cols)
	if pixelsPer <= 0 {
		return nil, fmt.Errorf("bad image dimensions %dx%d", imHeader.Rows, imHeader.Cols)
	}

	raw := make([]byte, pixelsPer)
	lbl := make([]byte, 1)
	samples := make([]Sample, 0, count)
	for k := 0; k < count; k++ {
		if _, err := io.ReadFull(images, raw); err != nil {
			return nil, fmt.Errorf("while reading image %d: %w", k, err)
		}
		if _, err := io.ReadFull(labels, lbl); err != nil {
			return nil, fmt.Errorf("while reading label %d: %w", k, err)
		}

		pixels := make([]float32, pixelsPer)
		for i, b := range raw {
			pixels[i] = float32(b) / 255
		}
		samples = append(samples, Sample{
			Index:  k,
			Label:  int(lbl[0]),
			Pixels: pixels,
		})
	}

	return samples, nil
}

// Range returns the samples in [start, end), clamped to what is
// available.
func Range(samples []Sample, start, end int) []Sample {
	if start < 0 {
		start = 0
	}
	if end > len(samples) {
		end = len(samples)
	}
	if start >= end {
		return nil
	}
	return samples[start:end]
}
