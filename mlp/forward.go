package mlp

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Trace holds every layer's pre-activation vector z and post-activation
// vector a for one sample.  The final layer's a is the softmax output.
// A trace is scoped to a single sample's forward+backward pass; the
// training loop reuses one as scratch across samples.
type Trace struct {
	Z [NumLayers][]float32
	A [NumLayers][]float32
}

// NewTrace allocates a trace sized to net's layers.
func NewTrace(net *Network) *Trace {
	tr := &Trace{}
	for l := 0; l < NumLayers; l++ {
		tr.Z[l] = make([]float32, net.W[l].Rows)
		tr.A[l] = make([]float32, net.W[l].Rows)
	}
	return tr
}

// forwardLayer writes the weighted sums of x against each row of w into
// z: z[i] = dot(w.Row(i), x).
func forwardLayer(w *Mat32, x, z []float32) {
	if len(x) != w.Cols {
		panic(fmt.Sprintf("input length %d does not match weight columns %d", len(x), w.Cols))
	}
	if len(z) != w.Rows {
		panic(fmt.Sprintf("output length %d does not match weight rows %d", len(z), w.Rows))
	}

	for i := 0; i < w.Rows; i++ {
		row := w.Row(i)
		var sum float32
		for j := 0; j < len(row); j++ {
			sum += row[j] * x[j]
		}
		z[i] = sum
	}
}

func reluActivate(z, a []float32) {
	for i, v := range z {
		if v > 0 {
			a[i] = v
		} else {
			a[i] = 0
		}
	}
}

// Softmax writes the probability distribution for logits z into out.
// The maximum logit is subtracted before exponentiating, so the result
// is finite and sums to 1 for any finite input.
//
// https://stackoverflow.com/questions/42599498/numerically-stable-softmax
func Softmax(z, out []float32) {
	maxz := math32.Inf(-1)
	for _, v := range z {
		if v > maxz {
			maxz = v
		}
	}

	var sum float32
	for i, v := range z {
		e := math32.Exp(v - maxz)
		out[i] = e
		sum += e
	}
	for i := range out {
		out[i] /= sum
	}
}

// Forward runs x through every layer, filling tr.  Hidden layers use
// ReLU; the output layer's activation is the softmax distribution over
// classes.
func (net *Network) Forward(x []float32, tr *Trace) {
	net.checkChain(len(x))

	in := x
	for l := 0; l < NumLayers; l++ {
		forwardLayer(net.W[l], in, tr.Z[l])
		if l == NumLayers-1 {
			Softmax(tr.Z[l], tr.A[l])
		} else {
			reluActivate(tr.Z[l], tr.A[l])
		}
		in = tr.A[l]
	}
}

// Infer returns the class probability distribution for one normalized
// input vector.
func (net *Network) Infer(x []float32) []float32 {
	tr := NewTrace(net)
	net.Forward(x, tr)
	out := make([]float32, len(tr.A[NumLayers-1]))
	copy(out, tr.A[NumLayers-1])
	return out
}
