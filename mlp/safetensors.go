package mlp

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
)

// Weights are persisted in the safetensors format: a little-endian
// uint64 header length, a JSON header mapping tensor names to dtype,
// shape, and byte offsets, then the raw F32 payload.  Layer l is stored
// under the key "layer.<l>".

type tensorInfo struct {
	DType       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets []int  `json:"data_offsets"`
}

func layerKey(l int) string {
	return fmt.Sprintf("layer.%d", l)
}

// WriteWeights serializes net's weight matrices to w.
func WriteWeights(w io.Writer, net *Network) error {
	header := map[string]tensorInfo{}
	offset := 0
	for l := 0; l < NumLayers; l++ {
		begin := offset
		offset += len(net.W[l].V) * 4
		header[layerKey(l)] = tensorInfo{
			DType:       "F32",
			Shape:       []int{net.W[l].Rows, net.W[l].Cols},
			DataOffsets: []int{begin, offset},
		}
	}

	headerBytes, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("while marshaling header: %w", err)
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerBytes))); err != nil {
		return fmt.Errorf("while writing header length: %w", err)
	}
	if _, err := w.Write(headerBytes); err != nil {
		return fmt.Errorf("while writing header: %w", err)
	}

	for l := 0; l < NumLayers; l++ {
		if err := binary.Write(w, binary.LittleEndian, net.W[l].V); err != nil {
			return fmt.Errorf("while writing layer %d values: %w", l, err)
		}
	}

	return nil
}

// ReadWeights parses a weight document and validates every matrix
// against Topology.  Anything unexpected is an error; the caller
// decides whether that is fatal.
func ReadWeights(r io.Reader) ([NumLayers]*Mat32, error) {
	var weights [NumLayers]*Mat32

	var headerLen uint64
	if err := binary.Read(r, binary.LittleEndian, &headerLen); err != nil {
		return weights, fmt.Errorf("while reading header length: %w", err)
	}
	if headerLen > 1<<20 {
		return weights, fmt.Errorf("implausible header length %d", headerLen)
	}

	headerBytes := make([]byte, int(headerLen))
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return weights, fmt.Errorf("while reading header: %w", err)
	}
	header := map[string]tensorInfo{}
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return weights, fmt.Errorf("while parsing header: %w", err)
	}

	payload, err := io.ReadAll(r)
	if err != nil {
		return weights, fmt.Errorf("while reading payload: %w", err)
	}

	for l := 0; l < NumLayers; l++ {
		info, ok := header[layerKey(l)]
		if !ok {
			return weights, fmt.Errorf("no entry for %s", layerKey(l))
		}
		if info.DType != "F32" {
			return weights, fmt.Errorf("unsupported dtype %s for %s", info.DType, layerKey(l))
		}
		wantShape := []int{Topology[l].NumNeurons, Topology[l].NumInputs}
		if len(info.Shape) != 2 || info.Shape[0] != wantShape[0] || info.Shape[1] != wantShape[1] {
			return weights, fmt.Errorf("wrong shape for %s; got %v want %v", layerKey(l), info.Shape, wantShape)
		}

		size := info.Shape[0] * info.Shape[1] * 4
		if len(info.DataOffsets) != 2 ||
			info.DataOffsets[1]-info.DataOffsets[0] != size ||
			info.DataOffsets[0] < 0 || info.DataOffsets[1] > len(payload) {
			return weights, fmt.Errorf("bad data offsets for %s: %v", layerKey(l), info.DataOffsets)
		}

		m := MakeMat32(info.Shape[0], info.Shape[1])
		buf := bytes.NewReader(payload[info.DataOffsets[0]:info.DataOffsets[1]])
		if err := binary.Read(buf, binary.LittleEndian, m.V); err != nil {
			return weights, fmt.Errorf("while reading %s values: %w", layerKey(l), err)
		}
		weights[l] = m
	}

	return weights, nil
}

// SaveFile writes net's weights to path.
func (net *Network) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("while creating weight file: %w", err)
	}
	defer f.Close()

	if err := WriteWeights(f, net); err != nil {
		return fmt.Errorf("while writing weight file: %w", err)
	}
	return nil
}

// LoadNetworkFile builds a network from a persisted weight file.  A
// missing, malformed, or wrongly shaped file falls back to fresh
// He-initialized weights drawn from r: a bad weight file must never
// stop a training run.
func LoadNetworkFile(path string, r *rand.Rand) *Network {
	f, err := os.Open(path)
	if err != nil {
		log.Printf("weights %s unavailable (%v), initializing fresh", path, err)
		return NewNetwork(r)
	}
	defer f.Close()

	weights, err := ReadWeights(f)
	if err != nil {
		log.Printf("weights %s malformed (%v), initializing fresh", path, err)
		return NewNetwork(r)
	}

	return &Network{W: weights}
}
