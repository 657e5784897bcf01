package mlp

import (
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
)

// smallNetwork builds a 3 -> 4 -> 4 -> 2 network with uniform random
// weights and a random input.  It retries seeds until every
// pre-activation is comfortably away from the ReLU kink, so central
// finite differences stay on one side of it.
func smallNetwork(t *testing.T) (*Network, []float32) {
	t.Helper()

	shapes := [NumLayers]LayerSpec{
		{NumInputs: 3, NumNeurons: 4},
		{NumInputs: 4, NumNeurons: 4},
		{NumInputs: 4, NumNeurons: 2},
	}

	for seed := int64(1); seed < 100; seed++ {
		r := rand.New(rand.NewSource(seed))

		net := &Network{}
		for l, spec := range shapes {
			net.W[l] = MakeMat32(spec.NumNeurons, spec.NumInputs)
			for i := range net.W[l].V {
				net.W[l].V[i] = r.Float32() - 0.5
			}
		}
		x := make([]float32, shapes[0].NumInputs)
		for i := range x {
			x[i] = (r.Float32() - 0.5) * 2
		}

		tr := NewTrace(net)
		net.Forward(x, tr)

		margin := float32(0.02)
		ok := true
		for l := 0; l < NumLayers-1; l++ {
			for _, z := range tr.Z[l] {
				if math32.Abs(z) < margin {
					ok = false
				}
			}
		}
		for _, p := range tr.A[NumLayers-1] {
			if p < 1e-3 {
				ok = false
			}
		}
		if ok {
			return net, x
		}
	}

	t.Fatal("no seed produced a kink-safe network")
	return nil, nil
}

func sampleLoss(net *Network, x, target []float32) float32 {
	tr := NewTrace(net)
	net.Forward(x, tr)
	return CrossEntropyLoss(tr.A[NumLayers-1], target)
}

// The central correctness property: analytic gradients match central
// finite differences of the loss.
func TestGradientsMatchFiniteDifference(t *testing.T) {
	net, x := smallNetwork(t)
	target := OneHot(1, 2)

	tr := NewTrace(net)
	net.Forward(x, tr)

	acc := NewGradientAccumulator(net)
	net.Backprop(x, tr, target, acc)

	eps := float32(1e-3)
	tol := float32(5e-3)

	for l := 0; l < NumLayers; l++ {
		w := net.W[l]
		for i := 0; i < w.Rows; i++ {
			for j := 0; j < w.Cols; j++ {
				orig := w.At(i, j)

				w.Set(i, j, orig+eps)
				lossPlus := sampleLoss(net, x, target)
				w.Set(i, j, orig-eps)
				lossMinus := sampleLoss(net, x, target)
				w.Set(i, j, orig)

				numeric := (lossPlus - lossMinus) / (2 * eps)
				analytic := acc.G[l].At(i, j)
				if math32.Abs(numeric-analytic) > tol {
					t.Errorf("layer %d w[%d][%d]: analytic %v, finite-difference %v",
						l, i, j, analytic, numeric)
				}
			}
		}
	}
}

// An output that exactly equals the one-hot target has a zero output
// delta, so the sample contributes nothing to any weight gradient.
func TestPerfectOutputZeroGradient(t *testing.T) {
	net, x := smallNetwork(t)

	tr := NewTrace(net)
	net.Forward(x, tr)

	target := make([]float32, 2)
	copy(target, tr.A[NumLayers-1])

	acc := NewGradientAccumulator(net)
	net.Backprop(x, tr, target, acc)

	for l := 0; l < NumLayers; l++ {
		for _, g := range acc.G[l].V {
			if g != 0 {
				t.Fatalf("layer %d has nonzero gradient %v for a perfectly predicted sample", l, g)
			}
		}
	}
}

// Gradients are summed across samples, not overwritten.
func TestGradientAccumulatorSums(t *testing.T) {
	net, x := smallNetwork(t)
	target := OneHot(0, 2)

	tr := NewTrace(net)
	net.Forward(x, tr)

	single := NewGradientAccumulator(net)
	net.Backprop(x, tr, target, single)

	double := NewGradientAccumulator(net)
	net.Backprop(x, tr, target, double)
	net.Backprop(x, tr, target, double)

	for l := 0; l < NumLayers; l++ {
		for i, g := range double.G[l].V {
			want := 2 * single.G[l].V[i]
			if math32.Abs(g-want) > 1e-6 {
				t.Errorf("layer %d entry %d: got %v, want %v", l, i, g, want)
			}
		}
	}
}
