// Command digitnet trains and evaluates a small digit classifier on the
// MNIST dataset.
//
// To train: `go run ./cmd/digitnet train --train-images=train-images-idx3-ubyte --train-labels=train-labels-idx1-ubyte`
//
// To test: `go run ./cmd/digitnet test --test-images=t10k-images-idx3-ubyte --test-labels=t10k-labels-idx1-ubyte`
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"runtime/pprof"

	"github.com/google/subcommands"

	"digitnet/mlp"
	"digitnet/mnist"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&TrainCommand{}, "")
	subcommands.Register(&TestCommand{}, "")
	subcommands.Register(&InferCommand{}, "")
	subcommands.Register(&RenderCommand{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}

func coreSamples(in []mnist.Sample) []mlp.Sample {
	out := make([]mlp.Sample, len(in))
	for i, s := range in {
		out[i] = mlp.Sample{Label: s.Label, Pixels: s.Pixels}
	}
	return out
}

type TrainCommand struct {
	trainImages string
	trainLabels string
	dataFile    string

	fromWeights string
	outWeights  string

	batches int
	seed    int64

	cpuProfileFile string
}

var _ subcommands.Command = (*TrainCommand)(nil)

func (*TrainCommand) Name() string {
	return "train"
}

func (*TrainCommand) Synopsis() string {
	return "Train the classifier"
}

func (*TrainCommand) Usage() string {
	return ``
}

func (c *TrainCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.trainImages, "train-images", "train-images-idx3-ubyte", "Path to the idx training images")
	f.StringVar(&c.trainLabels, "train-labels", "train-labels-idx1-ubyte", "Path to the idx training labels")
	f.StringVar(&c.dataFile, "data-file", "", "Path to an mnist.npz bundle (overrides the idx flags)")
	f.StringVar(&c.fromWeights, "from-weights", "", "Path to initial weights to load for training")
	f.StringVar(&c.outWeights, "output-weight-file", "digitnet.safetensors", "Path to save trained weights (safetensors format)")
	f.IntVar(&c.batches, "batches", 1000, "Number of mini-batches to run")
	f.Int64Var(&c.seed, "seed", 12345, "Seed for weight initialization")

	f.StringVar(&c.cpuProfileFile, "cpu-profile", "", "Write a CPU profile")
}

func (c *TrainCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *TrainCommand) executeErr(ctx context.Context) error {
	if c.cpuProfileFile != "" {
		f, err := os.Create(c.cpuProfileFile)
		if err != nil {
			return fmt.Errorf("while creating CPU profile file: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("while starting CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	var raw []mnist.Sample
	if c.dataFile != "" {
		train, _, err := mnist.LoadNPZ(c.dataFile)
		if err != nil {
			return fmt.Errorf("while loading npz bundle: %w", err)
		}
		raw = train
	} else {
		raw = mnist.Load(c.trainImages, c.trainLabels)
	}
	log.Printf("Loaded %d training samples", len(raw))

	// Resume from saved weights when present; LoadNetworkFile falls
	// back to fresh initialization otherwise.
	weightsIn := c.fromWeights
	if weightsIn == "" {
		weightsIn = c.outWeights
	}
	r := rand.New(rand.NewSource(c.seed))
	net := mlp.LoadNetworkFile(weightsIn, r)

	var aggLoss float32
	var aggCorrect, aggCount int
	cfg := mlp.TrainConfig{
		Batches:      c.batches,
		BatchSize:    10,
		LearningRate: 0.01,
		Source: func(start, end int) []mlp.Sample {
			return coreSamples(mnist.Range(raw, start, end))
		},
		Report: func(batch int, m mlp.BatchMetrics) {
			log.Printf("batch %d loss=%f accuracy=%.2f correct=%d",
				batch, m.AverageLoss, m.Accuracy, m.CorrectCount)

			aggLoss += m.AverageLoss
			aggCorrect += m.CorrectCount
			aggCount++
			if (batch+1)%100 == 0 {
				log.Printf("after batch %d: avg-loss=%f correct=%d/%d",
					batch, aggLoss/float32(aggCount), aggCorrect, aggCount*10)
				aggLoss, aggCorrect, aggCount = 0, 0, 0
			}
		},
	}

	if err := mlp.Train(net, cfg); err != nil {
		return fmt.Errorf("while training: %w", err)
	}

	if err := net.SaveFile(c.outWeights); err != nil {
		return fmt.Errorf("while saving weights: %w", err)
	}
	log.Printf("Saved weights to %s", c.outWeights)

	return nil
}

type TestCommand struct {
	testImages  string
	testLabels  string
	dataFile    string
	weightsFile string
	seed        int64
}

var _ subcommands.Command = (*TestCommand)(nil)

func (*TestCommand) Name() string {
	return "test"
}

func (*TestCommand) Synopsis() string {
	return "Evaluate saved weights on held-out samples"
}

func (*TestCommand) Usage() string {
	return ``
}

func (c *TestCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.testImages, "test-images", "t10k-images-idx3-ubyte", "Path to the idx test images")
	f.StringVar(&c.testLabels, "test-labels", "t10k-labels-idx1-ubyte", "Path to the idx test labels")
	f.StringVar(&c.dataFile, "data-file", "", "Path to an mnist.npz bundle (overrides the idx flags)")
	f.StringVar(&c.weightsFile, "weights", "digitnet.safetensors", "Path to the weights produced by the train command")
	f.Int64Var(&c.seed, "seed", 12345, "Seed for fallback weight initialization")
}

func (c *TestCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *TestCommand) executeErr(ctx context.Context) error {
	var raw []mnist.Sample
	if c.dataFile != "" {
		_, test, err := mnist.LoadNPZ(c.dataFile)
		if err != nil {
			return fmt.Errorf("while loading npz bundle: %w", err)
		}
		raw = test
	} else {
		raw = mnist.Load(c.testImages, c.testLabels)
	}
	samples := coreSamples(raw)
	if len(samples) == 0 {
		return fmt.Errorf("no test samples available")
	}

	net := mlp.LoadNetworkFile(c.weightsFile, rand.New(rand.NewSource(c.seed)))

	m := mlp.Evaluate(net, samples)
	log.Printf("test samples=%d correct=%d accuracy=%.2f%% avg-loss=%f",
		len(samples), m.CorrectCount, m.Accuracy*100, m.AverageLoss)

	return nil
}

type RenderCommand struct {
	images string
	labels string
	index  int
	out    string
}

var _ subcommands.Command = (*RenderCommand)(nil)

func (*RenderCommand) Name() string {
	return "render"
}

func (*RenderCommand) Synopsis() string {
	return "Render one dataset sample to a PNG"
}

func (*RenderCommand) Usage() string {
	return ``
}

func (c *RenderCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.images, "images", "train-images-idx3-ubyte", "Path to the idx images")
	f.StringVar(&c.labels, "labels", "train-labels-idx1-ubyte", "Path to the idx labels")
	f.IntVar(&c.index, "index", 0, "Sample index to render")
	f.StringVar(&c.out, "out", "sample.png", "Output PNG path")
}

func (c *RenderCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *RenderCommand) executeErr(ctx context.Context) error {
	samples := mnist.Load(c.images, c.labels)
	if c.index < 0 || c.index >= len(samples) {
		return fmt.Errorf("index %d out of range (%d samples)", c.index, len(samples))
	}

	s := samples[c.index]
	if err := mnist.Render(s, c.out); err != nil {
		return fmt.Errorf("while rendering sample: %w", err)
	}
	log.Printf("Wrote sample %d (label %d) to %s", s.Index, s.Label, c.out)

	return nil
}
