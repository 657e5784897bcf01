package mlp

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWeightsRoundTrip(t *testing.T) {
	net := NewNetwork(rand.New(rand.NewSource(12345)))

	var buf bytes.Buffer
	if err := WriteWeights(&buf, net); err != nil {
		t.Fatalf("WriteWeights: %v", err)
	}

	weights, err := ReadWeights(&buf)
	if err != nil {
		t.Fatalf("ReadWeights: %v", err)
	}

	for l := 0; l < NumLayers; l++ {
		if diff := cmp.Diff(weights[l], net.W[l]); diff != "" {
			t.Errorf("layer %d differs after round trip; diff (-got +want)\n%s", l, diff)
		}
	}
}

func TestReadWeightsRejectsWrongShape(t *testing.T) {
	net := NewNetwork(rand.New(rand.NewSource(12345)))
	net.W[1] = MakeMat32(16, 17)

	var buf bytes.Buffer
	if err := WriteWeights(&buf, net); err != nil {
		t.Fatalf("WriteWeights: %v", err)
	}

	if _, err := ReadWeights(&buf); err == nil {
		t.Errorf("ReadWeights accepted a layer with the wrong shape")
	}
}

func TestReadWeightsRejectsGarbage(t *testing.T) {
	if _, err := ReadWeights(bytes.NewReader([]byte("not a weight file"))); err == nil {
		t.Errorf("ReadWeights accepted garbage input")
	}
}

// A missing or malformed weight file must fall back to freshly
// initialized weights of the correct shape, never fail the run.
func TestLoadNetworkFileFallsBack(t *testing.T) {
	dir := t.TempDir()

	garbagePath := filepath.Join(dir, "garbage.safetensors")
	if err := os.WriteFile(garbagePath, []byte{0xde, 0xad, 0xbe, 0xef}, 0o644); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "does-not-exist.safetensors")},
		{"garbage file", garbagePath},
	}

	for _, tc := range cases {
		net := LoadNetworkFile(tc.path, rand.New(rand.NewSource(12345)))
		if net == nil {
			t.Fatalf("%s: no network returned", tc.name)
		}
		if diff := cmp.Diff(shapesOf(net), wantShapes()); diff != "" {
			t.Errorf("%s: wrong fallback shapes; diff (-got +want)\n%s", tc.name, diff)
		}
	}
}

func TestLoadNetworkFileReadsSavedWeights(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weights.safetensors")

	saved := NewNetwork(rand.New(rand.NewSource(99)))
	if err := saved.SaveFile(path); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	loaded := LoadNetworkFile(path, rand.New(rand.NewSource(12345)))
	for l := 0; l < NumLayers; l++ {
		if diff := cmp.Diff(loaded.W[l], saved.W[l]); diff != "" {
			t.Errorf("layer %d differs after save/load; diff (-got +want)\n%s", l, diff)
		}
	}
}
