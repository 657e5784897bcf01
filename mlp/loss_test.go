package mlp

import (
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
)

func TestCrossEntropyMatchesNegLog(t *testing.T) {
	r := rand.New(rand.NewSource(12345))

	for trial := 0; trial < 100; trial++ {
		p := make([]float32, NumClasses)
		var sum float32
		for i := range p {
			p[i] = r.Float32() + 1e-3
			sum += p[i]
		}
		for i := range p {
			p[i] /= sum
		}

		k := r.Intn(NumClasses)
		loss := CrossEntropyLoss(p, OneHot(k, NumClasses))
		if loss < 0 {
			t.Errorf("negative loss %v for p=%v k=%d", loss, p, k)
		}
		want := -math32.Log(p[k])
		if math32.Abs(loss-want) > 1e-6 {
			t.Errorf("loss %v, want %v for p=%v k=%d", loss, want, p, k)
		}
	}
}

// A true-class probability of exactly zero contributes nothing rather
// than an infinite loss.
func TestCrossEntropySkipsZeroProbability(t *testing.T) {
	p := []float32{0, 0.5, 0.5}
	if loss := CrossEntropyLoss(p, []float32{1, 0, 0}); loss != 0 {
		t.Errorf("loss %v, want 0 when the target class has zero probability", loss)
	}
}

func TestPredict(t *testing.T) {
	cases := []struct {
		output []float32
		want   int
	}{
		{[]float32{0.1, 0.7, 0.2}, 1},
		{[]float32{0.9, 0.05, 0.05}, 0},
		{[]float32{0.2, 0.4, 0.4}, 1}, // tie resolves to first occurrence
		{[]float32{0.25, 0.25, 0.25, 0.25}, 0},
	}

	for _, tc := range cases {
		if got := Predict(tc.output); got != tc.want {
			t.Errorf("Predict(%v) = %d, want %d", tc.output, got, tc.want)
		}
	}
}
