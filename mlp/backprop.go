package mlp

import "fmt"

// GradientAccumulator sums per-sample weight gradients over one batch.
// G[l] always mirrors the shape of the network's W[l].
type GradientAccumulator struct {
	G [NumLayers]*Mat32
}

// NewGradientAccumulator allocates zeroed gradient matrices shaped like
// net's weights.
func NewGradientAccumulator(net *Network) *GradientAccumulator {
	acc := &GradientAccumulator{}
	for l := 0; l < NumLayers; l++ {
		acc.G[l] = MakeMat32(net.W[l].Rows, net.W[l].Cols)
	}
	return acc
}

// Reset zeroes every gradient matrix.  Called at the start of each
// batch.
func (acc *GradientAccumulator) Reset() {
	for l := 0; l < NumLayers; l++ {
		acc.G[l].Zero()
	}
}

// Backprop computes the gradient of the cross-entropy loss for one
// sample and adds it into acc.  x must be the same normalized input
// vector the trace was produced from, and target the one-hot label.
//
// The output layer's delta is output-target, the exact derivative of
// the softmax-cross-entropy composite.  Each earlier delta is the next
// layer's delta pulled back through its weights and gated by the ReLU
// derivative.
func (net *Network) Backprop(x []float32, tr *Trace, target []float32, acc *GradientAccumulator) {
	out := tr.A[NumLayers-1]
	if len(target) != len(out) {
		panic(fmt.Sprintf("target length %d does not match output length %d", len(target), len(out)))
	}
	for l := 0; l < NumLayers; l++ {
		if !acc.G[l].SameShape(net.W[l]) {
			panic(fmt.Sprintf("gradient matrix %d shape (%d, %d) does not match weights (%d, %d)",
				l, acc.G[l].Rows, acc.G[l].Cols, net.W[l].Rows, net.W[l].Cols))
		}
	}

	dz := make([]float32, len(out))
	for i := range out {
		dz[i] = out[i] - target[i]
	}

	for l := NumLayers - 1; l >= 0; l-- {
		w := net.W[l]
		g := acc.G[l]

		// The layer's input: the previous layer's activation, or the
		// raw input vector for layer 0.
		var in []float32
		if l == 0 {
			in = x
		} else {
			in = tr.A[l-1]
		}

		// dL/dW[i][j] = dz[i] * in[j], summed into the batch gradient.
		for i := 0; i < w.Rows; i++ {
			gRow := g.Row(i)
			for j, v := range in {
				gRow[j] += dz[i] * v
			}
		}

		if l == 0 {
			break
		}

		// Pull the delta back through the weights, then gate by the
		// ReLU derivative of the previous layer's pre-activation.
		da := make([]float32, w.Cols)
		for i := 0; i < w.Rows; i++ {
			wRow := w.Row(i)
			for j := range da {
				da[j] += wRow[j] * dz[i]
			}
		}
		zPrev := tr.Z[l-1]
		for j := range da {
			if zPrev[j] <= 0 {
				da[j] = 0
			}
		}
		dz = da
	}
}
