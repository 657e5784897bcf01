package mlp

import (
	"log"

	"github.com/chewxy/math32"
)

// CrossEntropyLoss is -sum_i target[i]*log(output[i]).  Terms with a
// non-positive output are skipped entirely; with a one-hot target this
// means a sample whose true-class probability underflowed to zero
// contributes no loss rather than an infinity.
func CrossEntropyLoss(output, target []float32) float32 {
	var loss float32
	for i, t := range target {
		if t == 0 {
			continue
		}
		if output[i] <= 0 {
			log.Printf("class %d probability %v not positive, dropping its loss term", i, output[i])
			continue
		}
		loss += -t * math32.Log(output[i])
	}
	return loss
}

// OneHot returns a vector of n zeros with a single 1 at label.
func OneHot(label, n int) []float32 {
	v := make([]float32, n)
	v[label] = 1
	return v
}

// Predict returns the index of the largest entry; ties go to the first
// occurrence.
func Predict(output []float32) int {
	best := 0
	score := math32.Inf(-1)
	for i, v := range output {
		if v > score {
			best = i
			score = v
		}
	}
	return best
}
