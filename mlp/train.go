package mlp

import (
	"errors"
	"log"
)

// MNIST per-pixel normalization constants.
const (
	PixelMean = 0.1307
	PixelStd  = 0.3081
)

// Normalize maps raw [0,1] pixels to zero-mean unit-variance values.
func Normalize(pixels []float32) []float32 {
	out := make([]float32, len(pixels))
	for i, p := range pixels {
		out[i] = (p - PixelMean) / PixelStd
	}
	return out
}

// Sample is one labeled input as the core consumes it: raw pixels in
// [0,1] and a class label.
type Sample struct {
	Label  int
	Pixels []float32
}

// BatchMetrics summarizes one batch (or one evaluation pass).
type BatchMetrics struct {
	AverageLoss  float32
	Accuracy     float32
	CorrectCount int
}

// TrainConfig captures the knobs required by the training loop.
type TrainConfig struct {
	// Batches is the number of sequential mini-batches to run.
	Batches int

	// BatchSize is the number of samples requested per batch.
	BatchSize int

	LearningRate float32

	// Source returns the samples in [start, end), possibly fewer than
	// requested near the end of the data set, possibly none at all.
	Source func(start, end int) []Sample

	// Report, if set, receives each batch's metrics.
	Report func(batch int, m BatchMetrics)
}

// Train runs cfg.Batches sequential mini-batches against net.  Each
// batch normalizes its samples, runs forward and backward passes,
// accumulates gradients, and applies one SGD update.  An empty batch
// (exhausted or unreadable data source) is logged and skipped; it never
// stops the run.
func Train(net *Network, cfg TrainConfig) error {
	if cfg.Batches <= 0 {
		return errors.New("mlp: batches must be > 0")
	}
	if cfg.BatchSize <= 0 {
		return errors.New("mlp: batch size must be > 0")
	}
	if cfg.LearningRate <= 0 {
		return errors.New("mlp: learning rate must be > 0")
	}
	if cfg.Source == nil {
		return errors.New("mlp: sample source is required")
	}

	acc := NewGradientAccumulator(net)
	opt := SGD{LearningRate: cfg.LearningRate}
	tr := NewTrace(net)

	for batch := 0; batch < cfg.Batches; batch++ {
		start := batch * cfg.BatchSize
		samples := cfg.Source(start, start+cfg.BatchSize)

		acc.Reset()
		m := BatchMetrics{}
		for _, s := range samples {
			x := Normalize(s.Pixels)
			net.Forward(x, tr)

			out := tr.A[NumLayers-1]
			target := OneHot(s.Label, len(out))
			m.AverageLoss += CrossEntropyLoss(out, target)
			if Predict(out) == s.Label {
				m.CorrectCount++
			}

			net.Backprop(x, tr, target, acc)
		}

		if len(samples) == 0 {
			log.Printf("batch %d: no samples at offset %d, skipping update", batch, start)
		} else {
			opt.Apply(net, acc, len(samples))
			m.AverageLoss /= float32(len(samples))
			m.Accuracy = float32(m.CorrectCount) / float32(len(samples))
		}

		if cfg.Report != nil {
			cfg.Report(batch, m)
		}
	}

	return nil
}

// Evaluate runs forward passes only, reporting loss and accuracy over
// samples.  Used by the test command on held-out data.
func Evaluate(net *Network, samples []Sample) BatchMetrics {
	m := BatchMetrics{}
	if len(samples) == 0 {
		return m
	}

	tr := NewTrace(net)
	for _, s := range samples {
		net.Forward(Normalize(s.Pixels), tr)
		out := tr.A[NumLayers-1]
		m.AverageLoss += CrossEntropyLoss(out, OneHot(s.Label, len(out)))
		if Predict(out) == s.Label {
			m.CorrectCount++
		}
	}
	m.AverageLoss /= float32(len(samples))
	m.Accuracy = float32(m.CorrectCount) / float32(len(samples))
	return m
}
