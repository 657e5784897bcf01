package mnist

import (
	"fmt"

	"github.com/sbinet/npyio/npz"
)

// LoadNPZ reads an mnist.npz bundle with x_train/y_train/x_test/y_test
// members, each a uint8 array.  Images are (N, 28, 28); labels are (N).
func LoadNPZ(path string) (train, test []Sample, err error) {
	r, err := npz.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("while opening npz file: %w", err)
	}
	defer r.Close()

	train, err = npzSamples(r, "x_train.npy", "y_train.npy")
	if err != nil {
		return nil, nil, fmt.Errorf("while reading train set: %w", err)
	}
	test, err = npzSamples(r, "x_test.npy", "y_test.npy")
	if err != nil {
		return nil, nil, fmt.Errorf("while reading test set: %w", err)
	}
	return train, test, nil
}

func npzSamples(r *npz.Reader, imageName, labelName string) ([]Sample, error) {
	imHeader := r.Header(imageName)
	if len(imHeader.Descr.Shape) != 3 {
		return nil, fmt.Errorf("%s: want 3-d images, got shape %v", imageName, imHeader.Descr.Shape)
	}

	var rawImages []uint8
	if err := r.Read(imageName, &rawImages); err != nil {
		return nil, fmt.Errorf("while reading %s: %w", imageName, err)
	}
	var rawLabels []uint8
	if err := r.Read(labelName, &rawLabels); err != nil {
		return nil, fmt.Errorf("while reading %s: %w", labelName, err)
	}

	count := imHeader.Descr.Shape[0]
	pixelsPer := imHeader.Descr.Shape[1] * imHeader.Descr.Shape[2]
	if len(rawLabels) < count {
		count = len(rawLabels)
	}

	samples := make([]Sample, 0, count)
	for k := 0; k < count; k++ {
		pixels := make([]float32, pixelsPer)
		for i, b := range rawImages[k*pixelsPer : (k+1)*pixelsPer] {
			pixels[i] = float32(b) / 255
		}
		samples = append(samples, Sample{
			Index:  k,
			Label:  int(rawLabels[k]),
			Pixels: pixels,
		})
	}
	return samples, nil
}
