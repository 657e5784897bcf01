package mlp

import "fmt"

// SGD is the plain stochastic gradient descent update rule.  No
// momentum, no per-parameter adaptation.
type SGD struct {
	LearningRate float32
}

// Apply subtracts the averaged batch gradient from every weight:
// w -= lr * g/batchSize.  A zero batch size leaves the weights
// untouched.
func (o SGD) Apply(net *Network, acc *GradientAccumulator, batchSize int) {
	if batchSize <= 0 {
		return
	}
	scale := o.LearningRate / float32(batchSize)
	for l := 0; l < NumLayers; l++ {
		if !acc.G[l].SameShape(net.W[l]) {
			panic(fmt.Sprintf("gradient matrix %d shape (%d, %d) does not match weights (%d, %d)",
				l, acc.G[l].Rows, acc.G[l].Cols, net.W[l].Rows, net.W[l].Cols))
		}
		w := net.W[l].V
		g := acc.G[l].V
		for i := range w {
			w[i] -= scale * g[i]
		}
	}
}
