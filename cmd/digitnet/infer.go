package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"
	"math/rand"
	"os"

	"github.com/google/subcommands"

	"digitnet/mlp"

	_ "image/jpeg"
	_ "image/png"
)

type InferCommand struct {
	weightsFile string
	imageFile   string
	seed        int64
}

var _ subcommands.Command = (*InferCommand)(nil)

func (*InferCommand) Name() string {
	return "infer"
}

func (*InferCommand) Synopsis() string {
	return "Predict the digit in a single image"
}

func (*InferCommand) Usage() string {
	return ``
}

func (c *InferCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.weightsFile, "weights", "digitnet.safetensors", "Path to the weights produced by the train command")
	f.StringVar(&c.imageFile, "image", "", "Path to the image to predict")
	f.Int64Var(&c.seed, "seed", 12345, "Seed for fallback weight initialization")
}

func (c *InferCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *InferCommand) executeErr(ctx context.Context) error {
	net := mlp.LoadNetworkFile(c.weightsFile, rand.New(rand.NewSource(c.seed)))

	pixels, err := c.loadImage()
	if err != nil {
		return fmt.Errorf("while loading image: %w", err)
	}

	probs := net.Infer(mlp.Normalize(pixels))
	digit := mlp.Predict(probs)

	log.Printf("Prediction: %d (p=%.3f)", digit, probs[digit])
	return nil
}

func (c *InferCommand) loadImage() ([]float32, error) {
	f, err := os.Open(c.imageFile)
	if err != nil {
		return nil, fmt.Errorf("while opening image file: %w", err)
	}
	defer f.Close()

	rawImg, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("while decoding image: %w", err)
	}

	bounds := rawImg.Bounds()
	if bounds.Dx() != 28 || bounds.Dy() != 28 {
		return nil, fmt.Errorf("want a 28x28 image, got %dx%d", bounds.Dx(), bounds.Dy())
	}

	pixels := make([]float32, mlp.NumPixels)
	for y := 0; y < 28; y++ {
		for x := 0; x < 28; x++ {
			g := color.GrayModel.Convert(rawImg.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			pixels[y*28+x] = float32(g.Y) / 255
		}
	}

	return pixels, nil
}
