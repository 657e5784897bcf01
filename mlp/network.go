// Package mlp implements a small dense network for digit classification:
// forward propagation, softmax cross-entropy loss, manual backpropagation,
// and plain SGD over mini-batches.
package mlp

import (
	"fmt"
	"math/rand"

	"github.com/chewxy/math32"
)

// LayerSpec fixes one layer's dimensions.
type LayerSpec struct {
	NumInputs  int
	NumNeurons int
}

const (
	NumLayers  = 3
	NumPixels  = 28 * 28
	NumClasses = 10
)

// Topology is the fixed network shape: 784 pixels in, two hidden ReLU
// layers of 16 neurons, 10 output classes.
var Topology = [NumLayers]LayerSpec{
	{NumInputs: NumPixels, NumNeurons: 16},
	{NumInputs: 16, NumNeurons: 16},
	{NumInputs: 16, NumNeurons: NumClasses},
}

// Network holds one weight matrix per layer.  W[l] has shape
// (Topology[l].NumNeurons, Topology[l].NumInputs).  Weights are mutated
// only by SGD.Apply.
type Network struct {
	W [NumLayers]*Mat32
}

// NewNetwork builds a network with He-initialized weights drawn from r.
// The random source is injected so initialization is reproducible.
func NewNetwork(r *rand.Rand) *Network {
	net := &Network{}
	for l, spec := range Topology {
		net.W[l] = MakeMat32(spec.NumNeurons, spec.NumInputs)
		heInit(net.W[l], spec.NumInputs, r)
	}
	return net
}

// heInit fills m with draws from a zero-mean Gaussian with standard
// deviation sqrt(2/fanIn), generated by the Box-Muller transform from
// pairs of uniform draws.
func heInit(m *Mat32, fanIn int, r *rand.Rand) {
	std := math32.Sqrt(2 / float32(fanIn))
	for i := range m.V {
		m.V[i] = std * gaussian(r)
	}
}

func gaussian(r *rand.Rand) float32 {
	var u1 float32
	for u1 == 0 {
		u1 = r.Float32()
	}
	u2 := r.Float32()
	return math32.Sqrt(-2*math32.Log(u1)) * math32.Cos(2*math32.Pi*u2)
}

// checkChain panics unless consecutive weight matrices compose: layer
// l+1 must consume exactly the previous layer's output.  A mismatch is
// an internal invariant violation, never a recoverable condition.
func (net *Network) checkChain(inputLen int) {
	if net.W[0].Cols != inputLen {
		panic(fmt.Sprintf("layer 0 wants %d inputs, got %d", net.W[0].Cols, inputLen))
	}
	for l := 1; l < NumLayers; l++ {
		if net.W[l].Cols != net.W[l-1].Rows {
			panic(fmt.Sprintf("layer %d wants %d inputs, layer %d produces %d",
				l, net.W[l].Cols, l-1, net.W[l-1].Rows))
		}
	}
}
